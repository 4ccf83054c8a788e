package migration

import (
	"testing"

	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelObserver_DropsProgressWhenFull(t *testing.T) {
	t.Parallel()

	obs := NewChannelObserver(2)
	obs.OnProgress(1)
	obs.OnFile("a")
	obs.OnProgress(2)

	assert.Equal(t, Event{Kind: EventProgress, Permille: 1}, <-obs.Events())
	assert.Equal(t, Event{Kind: EventFile, Text: "a"}, <-obs.Events())
}

func TestChannelObserver_DeliversErrorsAndCompletion(t *testing.T) {
	t.Parallel()

	obs := NewChannelObserver(0)
	result := Result{Status: schema.StatusCompleted, Succeeded: 3}

	go func() {
		obs.OnError("boom")
		obs.OnComplete(result)
	}()

	events := []Event{}
	for ev := range obs.Events() {
		events = append(events, ev)
	}

	require.Len(t, events, 2)
	assert.Equal(t, Event{Kind: EventError, Text: "boom"}, events[0])
	assert.Equal(t, Event{Kind: EventComplete, Result: result}, events[1])
}

func TestLogObserver_Steps(t *testing.T) {
	t.Parallel()

	obs := NewLogObserver()

	obs.OnProgress(5)
	assert.Equal(t, 0, obs.lastStep)

	obs.OnProgress(99)
	assert.Equal(t, 0, obs.lastStep)

	obs.OnProgress(250)
	assert.Equal(t, 2, obs.lastStep)

	obs.OnFile("a")
	obs.OnError("b")
	obs.OnComplete(Result{Status: schema.StatusCompleted})
}
