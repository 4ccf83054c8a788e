package migration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottle_Allow(t *testing.T) {
	t.Parallel()

	clock := time.Unix(0, 0)
	th := newThrottle(50*time.Millisecond, func() time.Time { return clock })

	assert.True(t, th.allow())
	assert.False(t, th.allow())

	clock = clock.Add(49 * time.Millisecond)
	assert.False(t, th.allow())

	clock = clock.Add(time.Millisecond)
	assert.True(t, th.allow())
}

func TestProgressReporter_Update(t *testing.T) {
	t.Parallel()

	clock := time.Unix(0, 0)
	posted := []int{}

	p := &progressReporter{
		total:    1000,
		last:     -1,
		throttle: newThrottle(ProgressInterval, func() time.Time { return clock }),
		post:     func(permille int) { posted = append(posted, permille) },
	}

	p.update(100)
	p.update(200)

	clock = clock.Add(ProgressInterval)
	p.update(200)

	clock = clock.Add(ProgressInterval)
	p.update(200)

	clock = clock.Add(ProgressInterval)
	p.update(5000)

	assert.Equal(t, []int{100, 200, 1000}, posted)
}

func TestProgressReporter_ZeroTotal(t *testing.T) {
	t.Parallel()

	called := false

	p := &progressReporter{
		last:     -1,
		throttle: newThrottle(ProgressInterval, time.Now),
		post:     func(int) { called = true },
	}
	p.update(10)

	assert.False(t, called)
}
