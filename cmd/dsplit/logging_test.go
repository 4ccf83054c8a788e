package main

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlogManager_FanOutAndSwap(t *testing.T) {
	t.Parallel()

	var first, second bytes.Buffer

	m := NewSlogManager()
	logger := slog.New(m)

	logger.Info("dropped")
	assert.False(t, m.Enabled(t.Context(), slog.LevelError))

	m.AddHandler(terminalHandlerName, slog.NewTextHandler(&first, nil))
	m.AddHandler(uiHandlerName, slog.NewTextHandler(&second, &slog.HandlerOptions{Level: slog.LevelWarn}))

	logger.Info("info line", "path", "/a")
	logger.Warn("warn line")

	assert.Contains(t, first.String(), "info line")
	assert.Contains(t, first.String(), "path=/a")
	assert.Contains(t, first.String(), "warn line")
	assert.NotContains(t, second.String(), "info line")
	assert.Contains(t, second.String(), "warn line")

	m.RemoveHandler(terminalHandlerName)
	assert.False(t, m.HasHandler(terminalHandlerName))
	assert.True(t, m.HasHandler(uiHandlerName))

	logger.Error("after swap")
	assert.NotContains(t, first.String(), "after swap")
	assert.Contains(t, second.String(), "after swap")
}

func TestSlogManager_WithAttrsAndGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	m := NewSlogManager()
	m.AddHandler(terminalHandlerName, slog.NewTextHandler(&buf, nil))

	logger := slog.New(m).With("job", "j1").WithGroup("g")
	logger.Info("grouped", "k", "v")

	assert.Contains(t, buf.String(), "job=j1")
	assert.Contains(t, buf.String(), "g.k=v")
}
