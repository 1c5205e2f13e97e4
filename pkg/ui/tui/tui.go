// Package tui renders an interactive progress view for a publish attempt.
package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"igpublisher/pkg/publisher"
)

// TUI represents the terminal user interface
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a TUI for publishing imageURL. cancel is invoked when the
// user quits before the publisher finishes.
func NewTUI(imageURL string, timeout time.Duration, cancel context.CancelFunc, opts ...tea.ProgramOption) *TUI {
	model := NewModel(imageURL, timeout, cancel)
	return &TUI{
		program: tea.NewProgram(model, opts...),
		model:   model,
	}
}

// Start runs the program until the publish finishes or the user quits
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// Observer forwards publisher events into the program
func (t *TUI) Observer() publisher.Observer {
	return func(e publisher.Event) {
		t.Send(EventMsg(e))
	}
}

// Model exposes the final state once Start has returned
func (t *TUI) Model() *Model {
	return t.model
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(SendLog(level, fmt.Sprintf(format, args...)))
}

// LogInfo logs an info message
func (t *TUI) LogInfo(format string, args ...interface{}) {
	t.Log("INFO", format, args...)
}

// LogWarning logs a warning message
func (t *TUI) LogWarning(format string, args ...interface{}) {
	t.Log("WARN", format, args...)
}
