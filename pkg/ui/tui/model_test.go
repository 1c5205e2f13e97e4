package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igpublisher/pkg/models"
	"igpublisher/pkg/publisher"
)

func TestModelFollowsEvents(t *testing.T) {
	model := NewModel("https://cdn.example.com/a.jpg", 60*time.Second, nil)

	model.ApplyEvent(publisher.Event{Stage: publisher.StageCreating})
	model.ApplyEvent(publisher.Event{Stage: publisher.StagePolling, ContainerID: "C1", Poll: 1, Status: models.StatusInProgress, Elapsed: 15 * time.Second})

	assert.Equal(t, publisher.StagePolling, model.stage)
	assert.Equal(t, "C1", model.containerID)
	assert.Equal(t, 1, model.polls)
	assert.InDelta(t, 0.25, model.Percent(), 0.001)
	assert.False(t, model.Done())

	model.ApplyEvent(publisher.Event{Stage: publisher.StagePublishing, ContainerID: "C1"})
	model.ApplyEvent(publisher.Event{Stage: publisher.StageDone, MediaID: "M1"})

	assert.True(t, model.Done())
	assert.Equal(t, "M1", model.MediaID())
	assert.Equal(t, 1.0, model.Percent())
	assert.NoError(t, model.Err())
}

func TestModelFailure(t *testing.T) {
	model := NewModel("https://cdn.example.com/a.jpg", time.Minute, nil)
	failure := errors.New("Media processing failed (status ERROR)")

	_, cmd := model.Update(EventMsg(publisher.Event{Stage: publisher.StageFailed, Err: failure}))

	require.NotNil(t, cmd, "a terminal event quits the program")
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, failure, model.Err())
	assert.Contains(t, model.View(), "Media processing failed (status ERROR)")
}

func TestModelQuitCancelsPublish(t *testing.T) {
	cancelled := false
	model := NewModel("https://cdn.example.com/a.jpg", time.Minute, func() { cancelled = true })

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	require.NotNil(t, cmd)
	assert.True(t, cancelled)
	assert.True(t, model.Aborted())
}

func TestModelQuitAfterDoneDoesNotCancel(t *testing.T) {
	cancelled := false
	model := NewModel("https://cdn.example.com/a.jpg", time.Minute, func() { cancelled = true })
	model.ApplyEvent(publisher.Event{Stage: publisher.StageDone, MediaID: "M1"})

	model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.False(t, cancelled)
	assert.False(t, model.Aborted())
}

func TestModelTickAdvancesElapsed(t *testing.T) {
	model := NewModel("https://cdn.example.com/a.jpg", 10*time.Second, nil)
	start := model.started
	model.now = func() time.Time { return start.Add(5 * time.Second) }

	_, cmd := model.Update(TickMsg(time.Now()))

	assert.NotNil(t, cmd)
	assert.InDelta(t, 0.5, model.Percent(), 0.001)
}

func TestModelKeepsRecentLogs(t *testing.T) {
	model := NewModel("https://cdn.example.com/a.jpg", time.Minute, nil)
	for i := 0; i < 20; i++ {
		model.Update(SendLog("INFO", "line"))
	}
	assert.Len(t, model.logMessages, model.maxLogMessages)

	model.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Empty(t, model.logMessages)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00", formatDuration(-time.Second))
	assert.Equal(t, "00:02", formatDuration(2*time.Second))
	assert.Equal(t, "01:00", formatDuration(time.Minute))
}
