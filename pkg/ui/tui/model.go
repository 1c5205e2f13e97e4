package tui

import (
	"context"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"igpublisher/pkg/models"
	"igpublisher/pkg/publisher"
)

// Model is the bubbletea model for a single publish attempt
type Model struct {
	// UI components
	spinner spinner.Model
	bar     progress.Model

	// What is being published
	imageURL string
	timeout  time.Duration
	started  time.Time

	// Latest publisher state
	stage       publisher.Stage
	containerID string
	polls       int
	status      models.ContainerStatus
	mediaID     string
	err         error
	elapsed     time.Duration

	// UI state
	width          int
	done           bool
	aborted        bool
	logMessages    []LogMessage
	maxLogMessages int

	cancel context.CancelFunc
	now    func() time.Time
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a model for publishing imageURL. timeout sizes the
// progress bar; cancel, when set, is called if the user quits early.
func NewModel(imageURL string, timeout time.Duration, cancel context.CancelFunc) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	return &Model{
		spinner:        s,
		bar:            bar,
		imageURL:       imageURL,
		timeout:        timeout,
		started:        time.Now(),
		stage:          publisher.StageResolving,
		maxLogMessages: 8,
		cancel:         cancel,
		now:            time.Now,
	}
}

// Init starts the spinner and the clock
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// ApplyEvent folds a publisher event into the model
func (m *Model) ApplyEvent(e publisher.Event) {
	m.stage = e.Stage
	if e.ContainerID != "" {
		m.containerID = e.ContainerID
	}
	if e.Elapsed > 0 {
		m.elapsed = e.Elapsed
	}

	switch e.Stage {
	case publisher.StageCreating:
		m.AddLogMessage("INFO", "Creating media container")
	case publisher.StagePolling:
		m.polls = e.Poll
		m.status = e.Status
		m.AddLogMessage("INFO", "Poll #"+strconv.Itoa(e.Poll)+": "+string(e.Status))
	case publisher.StagePublishing:
		m.AddLogMessage("INFO", "Publishing container "+e.ContainerID)
	case publisher.StageDone:
		m.mediaID = e.MediaID
		m.done = true
		m.AddLogMessage("SUCCESS", "Published media "+e.MediaID)
	case publisher.StageFailed:
		m.err = e.Err
		m.done = true
		if e.Err != nil {
			m.AddLogMessage("ERROR", e.Err.Error())
		}
	}
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	color := dimWhite
	switch level {
	case "ERROR":
		color = lipgloss.Color("#FF0000")
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    m.now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Percent is how much of the poll timeout has elapsed, in [0, 1]. A
// finished publish always reads full.
func (m *Model) Percent() float64 {
	if m.stage == publisher.StageDone {
		return 1
	}
	if m.timeout <= 0 {
		return 0
	}
	p := float64(m.elapsed) / float64(m.timeout)
	if p > 1 {
		return 1
	}
	return p
}

// Done reports whether the publisher has emitted its final event
func (m *Model) Done() bool { return m.done }

// Err returns the failure reported by the publisher, if any
func (m *Model) Err() error { return m.err }

// MediaID returns the published media id, if any
func (m *Model) MediaID() string { return m.mediaID }

// Aborted reports whether the user quit before the publisher finished
func (m *Model) Aborted() bool { return m.aborted }
