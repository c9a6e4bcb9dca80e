package tui

import (
	"skitbot/types"

	"github.com/charmbracelet/lipgloss"
)

// Palette. Each pipeline stage gets its own hue so a glance at the status
// line and bar tells how far a composition got.
const (
	colorBrand     = "#7D56F4"
	colorMuted     = "#626262"
	colorLight     = "#FAFAFA"
	colorBorder    = "#874BFD"
	colorQueued    = "#A8A8A8"
	colorScript    = "#F4A259"
	colorAudio     = "#5BC0EB"
	colorComposite = "#9B5DE5"
	colorCaptions  = "#F15BB5"
	colorUpload    = "#00BBF9"
	colorDone      = "#04B575"
	colorFailed    = "#FF4D4D"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorBrand)).
			MarginTop(1).
			MarginBottom(1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorFailed))

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorMuted))

	// LinkStyle renders artifact URLs in the result box.
	LinkStyle = lipgloss.NewStyle().
			Underline(true).
			Foreground(lipgloss.Color(colorUpload))

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorBorder)).
			Padding(1, 2)

	HighlightStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorLight)).
			Background(lipgloss.Color(colorBrand)).
			Padding(0, 1)
)

// stage pairs the label shown for a status with its color.
type stage struct {
	icon  string
	label string
	style lipgloss.Style
}

func stageColor(hex string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex))
}

var stages = map[types.CompositionStatus]stage{
	types.StatusPending:          {"🕒", "Queued", stageColor(colorQueued)},
	types.StatusGeneratingScript: {"✍️ ", "Writing the script...", stageColor(colorScript)},
	types.StatusGeneratingAudio:  {"🎙️ ", "Synthesizing voices...", stageColor(colorAudio)},
	types.StatusCompositing:      {"🎞️ ", "Compositing overlays and audio...", stageColor(colorComposite)},
	types.StatusAddingSubtitles:  {"💬", "Burning in subtitles...", stageColor(colorCaptions)},
	types.StatusUploading:        {"☁️ ", "Uploading...", stageColor(colorUpload)},
	types.StatusCompleted:        {"✅", "COMPLETE", stageColor(colorDone).Bold(true)},
	types.StatusFailed:           {"❌", "Failed", ErrorStyle.Bold(true)},
}

// stageStyle is the color of status, muted for anything unknown.
func stageStyle(status types.CompositionStatus) lipgloss.Style {
	if st, ok := stages[status]; ok {
		return st.style
	}
	return InfoStyle
}
