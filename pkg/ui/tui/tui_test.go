package tui

import (
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igpublisher/pkg/publisher"
)

func TestTUIRunsUntilTerminalEvent(t *testing.T) {
	view := NewTUI("https://cdn.example.com/a.jpg", time.Minute, nil,
		tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutSignalHandler())

	done := make(chan error, 1)
	go func() { done <- view.Start() }()

	observe := view.Observer()
	view.LogInfo("polling every %s", 2*time.Second)
	view.LogWarning("%s attempt %d failed", "create_container", 1)
	observe(publisher.Event{Stage: publisher.StageCreating})
	observe(publisher.Event{Stage: publisher.StageDone, ContainerID: "C1", MediaID: "M1"})

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("program did not quit after the final event")
	}

	model := view.Model()
	assert.True(t, model.Done())
	assert.Equal(t, "M1", model.MediaID())

	var levels []string
	for _, msg := range model.logMessages {
		levels = append(levels, msg.Level)
	}
	assert.Equal(t, []string{"INFO", "WARN", "INFO", "SUCCESS"}, levels)
}
