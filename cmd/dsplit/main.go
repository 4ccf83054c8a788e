// Package main implements dsplit, which migrates a source folder onto several
// destination volumes by free capacity and remembers what was transferred.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

const (
	stackTraceBufMax = 1 << 24
)

//nolint:gochecknoglobals
var Version string

func setupSignalHandlers(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigChan
		slog.Warn("Received termination signal, cancelling...")
		cancel()
	}()

	sigChan2 := make(chan os.Signal, 1)
	signal.Notify(sigChan2, syscall.SIGUSR1)
	go func() {
		for range sigChan2 {
			buf := make([]byte, stackTraceBufMax)
			stacklen := runtime.Stack(buf, true)
			_, _ = os.Stderr.Write(buf[:stacklen])
		}
	}()
}

func main() {
	exitCode := 0
	defer func() {
		os.Exit(exitCode)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logManager := NewSlogManager()
	logManager.AddHandler(terminalHandlerName, newTerminalHandler(os.Stdout, slog.LevelInfo))
	slog.SetDefault(slog.New(logManager))

	setupSignalHandlers(cancel)

	app := NewApp(logManager)
	defer app.Teardown()

	if err := newRootCommand(app).ExecuteContext(ctx); err != nil {
		slog.Error("dsplit failed:", "err", err)
		app.SetExitCode(1)
	}

	exitCode = app.ExitCode()
}
