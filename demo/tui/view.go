package tui

import (
	"strings"
)

const barWidth = 40

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("🎬 Skitbot Composer"))
	b.WriteString("\n\n")

	if m.ID != "" {
		b.WriteString(InfoStyle.Render("Composition: " + m.ID))
		b.WriteString("\n\n")
	}

	b.WriteString(m.getStateText())
	b.WriteString("\n\n")

	if m.Status != nil {
		b.WriteString(progressBar(m.Status.Status, m.Status.Progress, barWidth))
		b.WriteString("\n\n")
	}

	// Logs
	if len(m.Logs) > 0 {
		b.WriteString(InfoStyle.Render("📝 Recent Activity:"))
		b.WriteString("\n")
		for _, entry := range m.Logs {
			b.WriteString(InfoStyle.Render("   " + entry.Timestamp.Format("15:04:05") + "  " + entry.Message))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.Status != nil && m.Status.Status.Terminal() && (len(m.Status.Script) > 0 || m.Status.OutputURL != "") {
		b.WriteString(BoxStyle.Render(m.formatResult()))
		b.WriteString("\n\n")
	}

	// Help text
	if m.finished() {
		b.WriteString(HighlightStyle.Render("Press 'r' to regenerate | Press 'q' or Ctrl+C to exit"))
	} else {
		b.WriteString(InfoStyle.Render("Press 'q' or Ctrl+C to detach (composition keeps running)"))
	}

	return b.String()
}
