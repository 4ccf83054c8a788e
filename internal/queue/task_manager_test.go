package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTaskManager_Launch_Success tests sequential task execution.
func TestTaskManager_Launch_Success(t *testing.T) {
	t.Parallel()

	tm := NewTaskManager()

	order := []int{}
	for i := range 3 {
		tm.Add(func() error {
			order = append(order, i)

			return nil
		})
	}

	failed, err := tm.Launch(t.Context())
	require.NoError(t, err)

	assert.Zero(t, failed)
	assert.Equal(t, []int{0, 1, 2}, order)
}

// TestTaskManager_Launch_CountsFailures tests that failing tasks are counted
// but do not stop the remaining tasks.
func TestTaskManager_Launch_CountsFailures(t *testing.T) {
	t.Parallel()

	tm := NewTaskManager()

	ran := 0
	tm.Add(func() error { ran++; return errors.New("first") }) //nolint:err113
	tm.Add(func() error { ran++; return nil })
	tm.Add(func() error { ran++; return errors.New("third") }) //nolint:err113

	failed, err := tm.Launch(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 2, failed)
	assert.Equal(t, 3, ran)
}

// TestTaskManager_Launch_Fail_CtxCancel tests in-flight cancellation.
func TestTaskManager_Launch_Fail_CtxCancel(t *testing.T) {
	t.Parallel()

	tm := NewTaskManager()
	ctx, cancel := context.WithCancel(t.Context())

	ran := 0
	tm.Add(func() error { ran++; cancel(); return nil })
	tm.Add(func() error { ran++; return nil })

	_, err := tm.Launch(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 1, ran)
}
