package tui

import (
	"fmt"
	"strings"
	"time"

	"skitbot/api"
	"skitbot/types"

	tea "github.com/charmbracelet/bubbletea"
)

const maxLogs = 8

// LogEntry represents a single log line with timestamp
type LogEntry struct {
	Timestamp time.Time
	Message   string
}

// Model represents the TUI client state (thin client)
type Model struct {
	Client  *ComposerClient
	Request types.CompositionRequest

	// ID is empty until the server accepts the request
	ID        string
	Status    *api.StatusResponse
	Logs      []LogEntry
	Err       error
	Connected bool
}

// NewModel creates a model that submits req on start.
func NewModel(baseURL string, req types.CompositionRequest) Model {
	return Model{
		Client:  NewComposerClient(baseURL),
		Request: req,
		Logs:    make([]LogEntry, 0, maxLogs),
	}
}

// NewWatchModel creates a model that follows an existing composition.
func NewWatchModel(baseURL, id string) Model {
	m := NewModel(baseURL, types.CompositionRequest{})
	m.ID = id
	return m
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	if m.ID != "" {
		return tea.Batch(pollStatus(m.Client, m.ID), tickCmd())
	}
	return startComposition(m.Client, m.Request)
}

// AddLog appends a log line, keeping the most recent ones
func (m Model) AddLog(msg string) Model {
	m.Logs = append(m.Logs, LogEntry{Timestamp: time.Now(), Message: msg})
	if len(m.Logs) > maxLogs {
		m.Logs = m.Logs[len(m.Logs)-maxLogs:]
	}
	return m
}

// finished reports whether the composition reached a terminal state
func (m Model) finished() bool {
	return m.Status != nil && m.Status.Status.Terminal()
}

// getStateText returns the appropriate state message
func (m Model) getStateText() string {
	if m.Err != nil && m.ID == "" {
		return ErrorStyle.Render(fmt.Sprintf("❌ Error: %v", m.Err))
	}
	if m.ID == "" {
		return stageStyle(types.StatusPending).Render("📤 Submitting composition...")
	}
	if !m.Connected {
		return ErrorStyle.Render("❌ Not connected to server")
	}
	if m.Status == nil {
		return InfoStyle.Render("⏳ Waiting for first status...")
	}
	return stageText(m.Status.Status, m.Status.Error)
}

// stageText renders the status line for status in its stage color.
func stageText(status types.CompositionStatus, errMsg string) string {
	st, ok := stages[status]
	if !ok {
		return InfoStyle.Render(string(status))
	}
	text := st.icon + " " + st.label
	if status == types.StatusFailed && errMsg != "" {
		text += ": " + errMsg
	}
	if status == types.StatusCompleted {
		return HighlightStyle.Render(text)
	}
	return st.style.Render(text)
}

// progressBar renders progress (0-100) as a fixed-width bar in the color of status
func progressBar(status types.CompositionStatus, progress, width int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	filled := progress * width / 100
	return stageStyle(status).Render(strings.Repeat("█", filled)) +
		InfoStyle.Render(strings.Repeat("░", width-filled)) +
		fmt.Sprintf(" %3d%%", progress)
}

// formatResult formats the finished composition for display
func (m Model) formatResult() string {
	s := m.Status
	var b strings.Builder

	b.WriteString(HighlightStyle.Render(s.Title))
	b.WriteString("\n\n")

	for _, line := range s.Script {
		b.WriteString(fmt.Sprintf("%6.2fs  %s\n", line.StartTime, InfoStyle.Render(line.Text)))
	}
	if len(s.Script) > 0 {
		b.WriteString("\n")
	}
	if s.OutputURL != "" {
		b.WriteString(fmt.Sprintf("Video:     %s\n", LinkStyle.Render(s.OutputURL)))
	}
	if s.SubtitlesURL != "" {
		b.WriteString(fmt.Sprintf("Subtitles: %s\n", LinkStyle.Render(s.SubtitlesURL)))
	}
	return b.String()
}
