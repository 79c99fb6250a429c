package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor = lipgloss.Color("#7c3aed")
	successColor = lipgloss.Color("#10b981")
	warningColor = lipgloss.Color("#f59e0b")
	errorColor   = lipgloss.Color("#ef4444")
	mutedColor   = lipgloss.Color("#94a3b8")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Width(8).
			Foreground(mutedColor)

	focusedLabelStyle = labelStyle.
				Foreground(primaryColor).
				Bold(true)

	onStyle = lipgloss.NewStyle().
		Foreground(successColor).
		Bold(true)

	offStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)

// View renders the panel.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("OSC bridge"))
	b.WriteString("\n")

	for i, label := range []string{"host", "port"} {
		style := labelStyle
		if i == m.focused {
			style = focusedLabelStyle
		}
		b.WriteString(style.Render(label))
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
	}
	if m.editError != "" {
		b.WriteString(errorStyle.Render("✗ " + m.editError))
	} else if d := m.status.Destination; d != nil {
		b.WriteString(onStyle.Render("→ " + d.String()))
	}
	if m.status.BindError != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("✗ " + m.status.BindError))
	}
	b.WriteString("\n\n")

	b.WriteString(boxStyle.Render(m.renderAngles()))
	b.WriteString("\n")
	b.WriteString(m.renderState())
	b.WriteString("\n")

	b.WriteString(helpStyle.Render("tab switch field • f1/f2/f3 toggle yaw/pitch/roll • esc quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderAngles() string {
	axes := m.status.Axes
	var yaw, pitch, roll string
	if last := m.status.LastSent; last != nil {
		yaw, pitch, roll = angle(last.Yaw), angle(last.Pitch), angle(last.Roll)
	} else {
		yaw, pitch, roll = "-", "-", "-"
	}

	rows := []string{
		axisRow("yaw", axes.Yaw, yaw),
		axisRow("pitch", axes.Pitch, pitch),
		axisRow("roll", axes.Roll, roll),
	}
	return strings.Join(rows, "\n")
}

func axisRow(name string, enabled bool, value string) string {
	box := offStyle.Render("[ ]")
	if enabled {
		box = onStyle.Render("[x]")
	}
	return fmt.Sprintf("%s %-6s %9s", box, name, value)
}

func angle(deg float64) string {
	return fmt.Sprintf("%.2f°", deg)
}

func (m Model) renderState() string {
	s := m.status
	line := fmt.Sprintf("%s • sent %d • suppressed %d • failures %d",
		s.State, s.Stats.Sent, s.Stats.Suppressed, s.Stats.SendFailures)
	if m.sourceState != nil {
		line = m.sourceState() + " • " + line
	}
	if s.Declination != nil {
		line += fmt.Sprintf(" • declination %.1f°", *s.Declination)
	}
	if s.Suspended {
		return warningStyle.Render("sensors suspended • " + line)
	}
	return offStyle.Render(line)
}
