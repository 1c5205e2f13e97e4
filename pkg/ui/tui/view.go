package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"igpublisher/pkg/publisher"
)

// View renders the publish panel
func (m *Model) View() string {
	width := m.width
	if width == 0 || width > 80 {
		width = 80
	}

	sections := []string{
		m.renderStatusPanel(width),
		m.renderLogsPanel(width),
	}

	if m.done {
		sections = append(sections, m.renderResult())
	} else {
		sections = append(sections, helpStyle.Render("q: cancel publish • ctrl+l: clear logs"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

// renderStatusPanel renders the stage line, the wait bar and the container
// details
func (m *Model) renderStatusPanel(width int) string {
	title := titleStyle.Render(" INSTAGRAM PUBLISH ")

	stage := m.spinner.View() + " " + stageLabel(m.stage)
	switch m.stage {
	case publisher.StageDone:
		stage = successStyle.Render("✓ " + stageLabel(m.stage))
	case publisher.StageFailed:
		stage = errorStyle.Render("✗ " + stageLabel(m.stage))
	}

	rows := []string{
		stage,
		"",
		m.bar.ViewAs(m.Percent()),
		fmt.Sprintf("%s %s / %s",
			statsLabelStyle.Render("Elapsed:"),
			statsValueStyle.Render(formatDuration(m.elapsed)),
			statsValueStyle.Render(formatDuration(m.timeout))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Image:"), truncate(m.imageURL, width-14)),
	}

	if m.containerID != "" {
		rows = append(rows, fmt.Sprintf("%s %s", statsLabelStyle.Render("Container:"), statsValueStyle.Render(m.containerID)))
	}
	if m.polls > 0 {
		rows = append(rows, fmt.Sprintf("%s %s %s",
			statsLabelStyle.Render("Polls:"),
			statsValueStyle.Render(fmt.Sprintf("%d", m.polls)),
			GetStatusStyle(string(m.status)).Render(string(m.status))))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n")),
	)
}

// renderLogsPanel renders the logs panel
func (m *Model) renderLogsPanel(width int) string {
	title := titleStyle.Render(" LOG ")

	var logs []string
	for _, log := range m.logMessages {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		message := logMessageStyle.Render(truncate(log.Message, width-25))
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, message))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("Waiting for the Graph API...")
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return errorStyle.Render("Publish failed: " + m.err.Error())
	}
	return successStyle.Render("Media id: " + m.mediaID)
}

func stageLabel(s publisher.Stage) string {
	switch s {
	case publisher.StageResolving:
		return "Resolving credentials"
	case publisher.StageCreating:
		return "Creating media container"
	case publisher.StagePolling:
		return "Waiting for the container to finish processing"
	case publisher.StagePublishing:
		return "Publishing"
	case publisher.StageDone:
		return "Published"
	case publisher.StageFailed:
		return "Failed"
	default:
		return string(s)
	}
}

func truncate(s string, max int) string {
	if max < 4 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}
