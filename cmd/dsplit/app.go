package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/horizonip/Disk-Migration-Tool/internal/configuration"
	"github.com/horizonip/Disk-Migration-Tool/internal/filesystem"
	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
	"github.com/horizonip/Disk-Migration-Tool/internal/selection"
)

// globalFlags are the flags shared by all commands.
type globalFlags struct {
	configPath string
	cpuprofile string
	memprofile string
	logLevel   string
}

// App holds the handlers and settings shared by the commands.
type App struct {
	logManager *SlogManager
	logLevel   slog.Level
	flags      globalFlags
	exitCode   int

	settings configuration.Settings

	osProvider   *schema.OS
	unixProvider *schema.Unix

	fsHandler        *filesystem.Handler
	selectionHandler *selection.Handler

	memObserver   *memoryObserver
	cpuProfiler   *CPUProfiler
	allocProfiler *AllocProfiler
}

// NewApp returns a pointer to a new [App]; [App.Setup] must be called before
// it is used.
func NewApp(logManager *SlogManager) *App {
	return &App{
		logManager:   logManager,
		logLevel:     slog.LevelInfo,
		osProvider:   &schema.OS{},
		unixProvider: &schema.Unix{},
	}
}

// Setup resolves the settings and establishes the handlers and diagnostics.
func (app *App) Setup(ctx context.Context) error {
	if err := app.logLevel.UnmarshalText([]byte(app.flags.logLevel)); err != nil {
		return fmt.Errorf("(app-setup) invalid log level: %w", err)
	}

	if app.logManager.HasHandler(terminalHandlerName) {
		app.logManager.AddHandler(terminalHandlerName, newTerminalHandler(os.Stdout, app.logLevel))
	}

	configHandler := configuration.NewHandler(&configuration.GodotenvProvider{}, app.osProvider)

	settings, err := configHandler.Load(app.flags.configPath)
	if err != nil {
		return fmt.Errorf("(app-setup) %w", err)
	}
	app.settings = settings

	app.fsHandler = filesystem.NewHandler(ctx, app.osProvider, app.unixProvider)
	app.selectionHandler = selection.NewHandler(app.osProvider)

	app.memObserver = newMemoryObserver(ctx)
	app.cpuProfiler = NewCPUProfiler(ctx, app.flags.cpuprofile)
	app.allocProfiler = NewAllocProfiler(ctx, app.flags.memprofile)

	slog.Debug("Settings resolved:",
		"ledgerDir", settings.LedgerDir,
		"mode", settings.Mode.String(),
		"verify", settings.Verify,
		"excludes", settings.Excludes,
	)

	return nil
}

// Teardown stops the diagnostics started by [App.Setup].
func (app *App) Teardown() {
	if app.allocProfiler != nil {
		app.allocProfiler.Stop()
	}

	if app.cpuProfiler != nil {
		app.cpuProfiler.Stop()
	}

	if app.memObserver != nil {
		app.memObserver.Stop()
	}
}

// SetExitCode records the exit code of the program, the highest one wins.
func (app *App) SetExitCode(code int) {
	app.exitCode = max(app.exitCode, code)
}

// ExitCode returns the exit code of the program.
func (app *App) ExitCode() int {
	return app.exitCode
}
