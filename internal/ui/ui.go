// Package ui implements a command-line user interface using [tea], fed by
// the notifications of a running migration.
package ui

import (
	"context"
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/horizonip/Disk-Migration-Tool/internal/migration"
)

// Handler is the principal implementation of a user interface [Handler].
type Handler struct {
	program *tea.Program

	LogWriter *TeaLogWriter

	Initialized atomic.Bool
	Failed      atomic.Bool
}

// NewHandler returns a pointer to a new user interface [Handler]. The events
// are those of a [migration.ChannelObserver], cancel stops the migration.
func NewHandler(ctx context.Context, cancel context.CancelFunc, info JobInfo, events <-chan migration.Event, opts ...tea.ProgramOption) *Handler {
	handler := &Handler{}

	model := NewTeaModel(handler, info, events, cancel)
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)

	handler.program = tea.NewProgram(model, opts...)
	handler.LogWriter = NewTeaLogWriter(handler.program)

	return handler
}

// Launch starts the command-line user interface (the [tea.Program]) and
// blocks until it is quit. The final model is returned.
func (uiHandler *Handler) Launch() (TeaModel, error) {
	defer uiHandler.LogWriter.Stop()

	final, err := uiHandler.program.Run()
	if err != nil {
		uiHandler.Failed.Store(true)

		return TeaModel{}, fmt.Errorf("(ui) %w", err)
	}

	model, _ := final.(TeaModel)

	return model, nil
}
