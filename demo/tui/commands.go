package tui

import (
	"context"
	"time"

	"skitbot/types"

	tea "github.com/charmbracelet/bubbletea"
)

const pollInterval = time.Second

// startComposition creates a command that submits the request
func startComposition(client *ComposerClient, req types.CompositionRequest) tea.Cmd {
	return func() tea.Msg {
		id, err := client.Start(context.Background(), req)
		return StartedMsg{ID: id, Err: err}
	}
}

// pollStatus creates a command to poll composition status
func pollStatus(client *ComposerClient, id string) tea.Cmd {
	return func() tea.Msg {
		status, err := client.Status(context.Background(), id)
		return StatusUpdateMsg{Status: status, Err: err}
	}
}

// triggerRegenerate creates a command to re-render the composition
func triggerRegenerate(client *ComposerClient, id string) tea.Cmd {
	return func() tea.Msg {
		return RegenerateMsg{Err: client.Regenerate(context.Background(), id)}
	}
}

// tickCmd creates a command that ticks once per poll interval
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
