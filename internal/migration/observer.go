package migration

import (
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
)

// Observer receives the notifications of a migration run. All methods are
// called from the worker goroutine and must not block for long; OnComplete is
// called exactly once per run.
type Observer interface {
	// OnProgress receives the overall progress in parts per thousand.
	OnProgress(permille int)

	// OnFile receives the relative path of the file being transferred, or a
	// "Verifying: <path>" text when a verification starts.
	OnFile(name string)

	// OnError receives the text of a non-fatal per-item error.
	OnError(text string)

	// OnComplete receives the terminal result of the run.
	OnComplete(result Result)
}

// Result is the terminal outcome of a migration run.
type Result struct {
	Status    schema.Status
	Succeeded int
	Failed    int
	BytesDone uint64
	Duration  time.Duration
}

// EventKind is the type of an [Event].
type EventKind int

const (
	EventProgress EventKind = iota
	EventFile
	EventError
	EventComplete
)

// Event is a notification as it is delivered by a [ChannelObserver].
type Event struct {
	Kind     EventKind
	Permille int
	Text     string
	Result   Result
}

// ChannelObserver adapts the notifications of a run to a buffered channel.
// Progress and file events are dropped while the buffer is full, errors and
// the terminal event are always delivered. The channel is closed after the
// terminal event.
type ChannelObserver struct {
	events chan Event
}

// NewChannelObserver returns a pointer to a new [ChannelObserver] with the
// given buffer size.
func NewChannelObserver(size int) *ChannelObserver {
	return &ChannelObserver{
		events: make(chan Event, size),
	}
}

// Events returns the channel that the events are delivered on.
func (o *ChannelObserver) Events() <-chan Event {
	return o.events
}

// OnProgress implements [Observer].
func (o *ChannelObserver) OnProgress(permille int) {
	select {
	case o.events <- Event{Kind: EventProgress, Permille: permille}:
	default:
	}
}

// OnFile implements [Observer].
func (o *ChannelObserver) OnFile(name string) {
	select {
	case o.events <- Event{Kind: EventFile, Text: name}:
	default:
	}
}

// OnError implements [Observer].
func (o *ChannelObserver) OnError(text string) {
	o.events <- Event{Kind: EventError, Text: text}
}

// OnComplete implements [Observer].
func (o *ChannelObserver) OnComplete(result Result) {
	o.events <- Event{Kind: EventComplete, Result: result}
	close(o.events)
}

// LogObserver writes the notifications of a run to the structured log. The
// progress is logged in steps of ten percent.
type LogObserver struct {
	lastStep int
}

// NewLogObserver returns a pointer to a new [LogObserver].
func NewLogObserver() *LogObserver {
	return &LogObserver{lastStep: -1}
}

// OnProgress implements [Observer].
func (o *LogObserver) OnProgress(permille int) {
	step := permille / 100 //nolint:mnd
	if step == o.lastStep {
		return
	}
	o.lastStep = step

	slog.Info("Progress:", "percent", step*10) //nolint:mnd
}

// OnFile implements [Observer].
func (o *LogObserver) OnFile(name string) {
	slog.Debug("Transferring:", "path", name)
}

// OnError implements [Observer].
func (o *LogObserver) OnError(text string) {
	slog.Error(text)
}

// OnComplete implements [Observer].
func (o *LogObserver) OnComplete(result Result) {
	slog.Info("Migration finished:",
		"status", result.Status.String(),
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"transferred", humanize.IBytes(result.BytesDone),
		"elapsed", result.Duration.Round(time.Millisecond).String(),
	)
}
