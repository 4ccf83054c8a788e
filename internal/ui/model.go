package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/horizonip/Disk-Migration-Tool/internal/migration"
	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
)

const (
	maxLogLines   = 100
	maxErrorLines = 50

	capacityInterval = 2 * time.Second
)

//nolint:gochecknoglobals
var (
	// titleStyle defines the style for a panel's title.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	// borderStyle defines the style for a panel's borders.
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))

	// infoStyle defines the style for a panel's text.
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	// errorStyle defines the style for the error panel's text.
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	// helpStyle defines the style for the help panel's text.
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 1)
)

// JobInfo describes the running job for the header panel.
type JobInfo struct {
	Source       string
	Mode         schema.Mode
	Verify       bool
	Files        int
	TotalBytes   uint64
	Destinations []string

	// Capacity returns a current description of every destination, such as
	// its free space. It is polled while the interface runs and can be nil.
	Capacity func() []string
}

// eventMsg wraps a [migration.Event] as [tea.Msg].
type eventMsg migration.Event

// eventsClosedMsg signals that no more events will arrive.
type eventsClosedMsg struct{}

// capacityMsg carries the polled destination descriptions.
type capacityMsg []string

// TeaModel is the principal [tea.Model] for the command-line user interface.
type TeaModel struct {
	width  int
	height int

	cancel context.CancelFunc

	uiHandler *Handler
	events    <-chan migration.Event

	info      JobInfo
	startTime time.Time
	permille  int
	current   string
	errors    []string
	capacity  []string
	result    *migration.Result
	cancelled bool

	fullWidthWithBorders int

	progress     progress.Model
	logsViewport viewport.Model
	logs         []string

	ready bool
}

// NewTeaModel returns an initial new [TeaModel].
//
//nolint:mnd
func NewTeaModel(uiHandler *Handler, info JobInfo, events <-chan migration.Event, cancel context.CancelFunc) TeaModel {
	return TeaModel{
		uiHandler:    uiHandler,
		events:       events,
		info:         info,
		startTime:    time.Now(),
		cancel:       cancel,
		progress:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(80)),
		logsViewport: viewport.New(80, 10),
		logs:         make([]string, 0, maxLogLines),
		errors:       []string{},
	}
}

// Init initializes the model within a [tea.Program].
func (m TeaModel) Init() tea.Cmd {
	if m.uiHandler != nil {
		m.uiHandler.Initialized.Store(true)
	}

	return tea.Batch(
		tea.EnterAltScreen,
		waitForEvent(m.events),
		pollCapacity(m.info.Capacity, 0),
	)
}

// pollCapacity produces a [tea.Cmd] that queries the destination capacity
// after the given delay. It is re-issued after every received result.
func pollCapacity(capacity func() []string, delay time.Duration) tea.Cmd {
	if capacity == nil {
		return nil
	}

	return tea.Tick(delay, func(time.Time) tea.Msg {
		return capacityMsg(capacity())
	})
}

// waitForEvent produces a [tea.Cmd] that blocks until the next migration
// event arrives. It is re-issued after every received event.
func waitForEvent(events <-chan migration.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}

		return eventMsg(ev)
	}
}

// Result returns the terminal result of the migration, if it has arrived.
func (m TeaModel) Result() (migration.Result, bool) {
	if m.result == nil {
		return migration.Result{}, false
	}

	return *m.result, true
}

// Update is the principal message handling method of the model.
// It sets the internal state of the model, for later rendering.
//
//nolint:mnd,ireturn
func (m TeaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.requestCancel()

			return m, tea.Quit

		case "c":
			m.requestCancel()

		case "q":
			if m.result != nil {
				return m, tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		m.fullWidthWithBorders = m.width - 2
		m.progress.Width = m.fullWidthWithBorders - 2

		// Header, progress and errors take about half of the height.
		m.logsViewport.Width = m.fullWidthWithBorders
		m.logsViewport.Height = max(m.height/2-3, 3)
		m.refreshLogs()

		m.ready = true

	case eventMsg:
		cmds = append(cmds, m.handleEvent(migration.Event(msg)), waitForEvent(m.events))

	case eventsClosedMsg:

	case capacityMsg:
		m.capacity = msg
		cmds = append(cmds, pollCapacity(m.info.Capacity, capacityInterval))

	case LogMsg:
		if len(m.logs) >= maxLogLines {
			m.logs = m.logs[1:]
		}
		m.logs = append(m.logs, string(msg))
		m.refreshLogs()

	case progress.FrameMsg:
		updated, cmd := m.progress.Update(msg)
		if progressModel, ok := updated.(progress.Model); ok {
			m.progress = progressModel
		}
		cmds = append(cmds, cmd)
	}

	m.logsViewport, cmd = m.logsViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *TeaModel) requestCancel() {
	if m.result != nil || m.cancelled {
		return
	}

	m.cancelled = true
	m.cancel()
}

//nolint:mnd
func (m *TeaModel) handleEvent(ev migration.Event) tea.Cmd {
	switch ev.Kind {
	case migration.EventProgress:
		m.permille = ev.Permille

		return m.progress.SetPercent(float64(ev.Permille) / 1000)

	case migration.EventFile:
		m.current = ev.Text

	case migration.EventError:
		if len(m.errors) >= maxErrorLines {
			m.errors = m.errors[1:]
		}
		m.errors = append(m.errors, ev.Text)

	case migration.EventComplete:
		result := ev.Result
		m.result = &result
		m.current = ""

		if result.Status == schema.StatusCompleted {
			m.permille = 1000

			return m.progress.SetPercent(1)
		}
	}

	return nil
}

func (m *TeaModel) refreshLogs() {
	if len(m.logs) == 0 {
		return
	}

	logs := lipgloss.NewStyle().
		Width(m.logsViewport.Width).
		Render(strings.TrimSuffix(strings.Join(m.logs, ""), "\n"))

	m.logsViewport.SetContent(logs)
	m.logsViewport.GotoBottom()
}

// View is the principal rendering function of the model.
func (m TeaModel) View() string {
	if !m.ready {
		return "Loading the GUI..."
	}

	var s strings.Builder

	progressSection := borderStyle.
		Width(m.fullWidthWithBorders).
		Render(lipgloss.JoinVertical(
			lipgloss.Left,
			titleStyle.Width(m.fullWidthWithBorders).Render("Migration"),
			"", // Empty line for spacing.
			m.progress.View(),
			"", // Empty line for spacing.
			infoStyle.Width(m.fullWidthWithBorders).Render(m.formatDetails()),
		))

	errorLines := "None"
	if len(m.errors) > 0 {
		errorLines = strings.Join(m.errors, "\n")
	}

	errorSection := borderStyle.
		Width(m.fullWidthWithBorders).
		Render(lipgloss.JoinVertical(
			lipgloss.Left,
			titleStyle.Width(m.fullWidthWithBorders).Render(fmt.Sprintf("Errors (%d)", len(m.errors))),
			errorStyle.Width(m.fullWidthWithBorders).Render(errorLines),
		))

	logsSection := borderStyle.
		Width(m.fullWidthWithBorders).
		Render(lipgloss.JoinVertical(
			lipgloss.Left,
			titleStyle.Width(m.fullWidthWithBorders).Render("Process Information"),
			lipgloss.NewStyle().Width(m.fullWidthWithBorders).Render(m.logsViewport.View()),
		))

	help := "c: cancel migration • ctrl+c: cancel and quit"
	if m.result != nil {
		help = "q: quit"
	}

	s.WriteString(lipgloss.JoinVertical(
		lipgloss.Left,
		progressSection,
		errorSection,
		logsSection,
		helpStyle.Width(m.fullWidthWithBorders).Render(help),
	))

	return s.String()
}

// formatDetails renders the textual details of the progress panel.
//
//nolint:mnd
func (m TeaModel) formatDetails() string {
	done := m.info.TotalBytes * uint64(m.permille) / 1000 //nolint:gosec

	destinations := m.info.Destinations
	if len(m.capacity) > 0 {
		destinations = m.capacity
	}

	header := fmt.Sprintf(
		"Source: %s (%s, verify=%t)\n"+
			"Destinations: %s\n"+
			"Files: %d, Total: %s\n",
		m.info.Source, m.info.Mode, m.info.Verify,
		strings.Join(destinations, ", "),
		m.info.Files, humanize.IBytes(m.info.TotalBytes),
	)

	if m.result != nil {
		return header + fmt.Sprintf(
			"Status: %s\n"+
				"Items: Success=%d, Failed=%d\n"+
				"Transferred: %s in %s\n",
			m.result.Status,
			m.result.Succeeded, m.result.Failed,
			humanize.IBytes(m.result.BytesDone), m.result.Duration.Round(time.Second),
		)
	}

	elapsed := time.Since(m.startTime)

	var speed float64
	if secs := elapsed.Seconds(); secs > 0 {
		speed = float64(done) / secs
	}

	eta := "unknown"
	if speed > 0 && done < m.info.TotalBytes {
		left := time.Duration(float64(m.info.TotalBytes-done) / speed * float64(time.Second))
		eta = left.Round(time.Second).String()
	}

	status := "Running"
	if m.cancelled {
		status = "Cancelling"
	}

	return header + fmt.Sprintf(
		"Status: %s, Progress: %.1f%%\n"+
			"Current: %s\n"+
			"Speed: %s/s, Left: %s\n",
		status, float64(m.permille)/10,
		m.current,
		humanize.IBytes(uint64(speed)), eta,
	)
}
