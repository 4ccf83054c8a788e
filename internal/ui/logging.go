package ui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// logBufferSize is the amount of log lines buffered for the [tea.Program].
const logBufferSize = 1000

type teaProgramProvider interface {
	Send(msg tea.Msg)
}

// LogMsg is a regular string containing a log message. It is typed for
// identification as [tea.Msg] within a [tea.Program].
type LogMsg string

// TeaLogWriter is an implementation of an [io.Writer], for use inside a
// [slog.Handler], that sends any logs to a [tea.Program] as [tea.Msg]. Logs
// that arrive while the buffer is full are dropped and counted, so that a
// slow terminal never stalls the migration worker.
type TeaLogWriter struct {
	program  teaProgramProvider
	doneChan chan struct{}
	logChan  chan LogMsg
	dropped  atomic.Uint64
}

// NewTeaLogWriter returns a pointer to a new [TeaLogWriter]. It also starts the
// internal log processing function, which should eventually be stopped e.g.
// with a deferred [TeaLogWriter.Stop] call.
func NewTeaLogWriter(program teaProgramProvider) *TeaLogWriter {
	wr := &TeaLogWriter{
		program:  program,
		doneChan: make(chan struct{}),
		logChan:  make(chan LogMsg, logBufferSize),
	}

	go wr.processLogs()

	return wr
}

// Stop destroys the [TeaLogWriter] and stops any log message processing. Any
// in-flight or late logs are discarded after calling this method.
func (wr *TeaLogWriter) Stop() {
	close(wr.doneChan)
}

// Dropped returns the amount of log messages that were discarded because the
// buffer was full.
func (wr *TeaLogWriter) Dropped() uint64 {
	return wr.dropped.Load()
}

func (wr *TeaLogWriter) processLogs() {
	for {
		select {
		case <-wr.doneChan:
			return
		case msg := <-wr.logChan:
			wr.program.Send(msg)
		}
	}
}

// Write receives a byte slice containing a log message from e.g. a
// [slog.Handler] and queues it for the [tea.Program].
func (wr *TeaLogWriter) Write(p []byte) (int, error) {
	select {
	case <-wr.doneChan:
	case wr.logChan <- LogMsg(p):
	default:
		wr.dropped.Add(1)
	}

	return len(p), nil
}
