package main

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

const (
	terminalHandlerName = "terminal"
	uiHandlerName       = "ui"
)

// newTerminalHandler returns the colored [slog.Handler] for terminal output.
func newTerminalHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})
}

// SlogManager is a [slog.Handler] that fans out every record to a set of named
// handlers, which can be swapped at runtime (e.g. terminal for user interface).
type SlogManager struct {
	sync.RWMutex
	handlers map[string]slog.Handler
	attrs    []slog.Attr
	groups   []string
}

// NewSlogManager returns a pointer to a new [SlogManager] without handlers.
func NewSlogManager() *SlogManager {
	return &SlogManager{
		handlers: make(map[string]slog.Handler),
	}
}

// Enabled reports whether any of the handlers handles the level.
func (m *SlogManager) Enabled(ctx context.Context, level slog.Level) bool {
	m.RLock()
	defer m.RUnlock()

	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

// Handle passes the record to every handler that is enabled for its level.
func (m *SlogManager) Handle(ctx context.Context, r slog.Record) error {
	m.RLock()
	defer m.RUnlock()

	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}

	return nil
}

// WithAttrs implements [slog.Handler].
func (m *SlogManager) WithAttrs(attrs []slog.Attr) slog.Handler {
	m.RLock()
	defer m.RUnlock()

	newLm := &SlogManager{
		handlers: make(map[string]slog.Handler, len(m.handlers)),
		attrs:    append(append([]slog.Attr(nil), m.attrs...), attrs...),
		groups:   append([]string(nil), m.groups...),
	}

	for name, h := range m.handlers {
		newLm.handlers[name] = h.WithAttrs(attrs)
	}

	return newLm
}

// WithGroup implements [slog.Handler].
func (m *SlogManager) WithGroup(name string) slog.Handler {
	m.RLock()
	defer m.RUnlock()

	newLm := &SlogManager{
		handlers: make(map[string]slog.Handler, len(m.handlers)),
		attrs:    append([]slog.Attr(nil), m.attrs...),
		groups:   append(append([]string(nil), m.groups...), name),
	}

	for handlerName, h := range m.handlers {
		newLm.handlers[handlerName] = h.WithGroup(name)
	}

	return newLm
}

// AddHandler adds or replaces the named handler.
func (m *SlogManager) AddHandler(name string, handler slog.Handler) {
	m.Lock()
	defer m.Unlock()

	h := handler
	if len(m.attrs) > 0 {
		h = h.WithAttrs(m.attrs)
	}

	for _, group := range m.groups {
		h = h.WithGroup(group)
	}

	m.handlers[name] = h
}

// RemoveHandler removes the named handler.
func (m *SlogManager) RemoveHandler(name string) {
	m.Lock()
	defer m.Unlock()

	delete(m.handlers, name)
}

// HasHandler returns whether the named handler is present.
func (m *SlogManager) HasHandler(name string) bool {
	m.RLock()
	defer m.RUnlock()

	_, ok := m.handlers[name]

	return ok
}
