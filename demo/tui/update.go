package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case StartedMsg:
		return m.handleStarted(msg)
	case StatusUpdateMsg:
		return m.handleStatusUpdate(msg)
	case TickMsg:
		return m.handleTick()
	case RegenerateMsg:
		return m.handleRegenerate(msg)
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "r", "R":
		if m.finished() && len(m.Status.Script) > 0 {
			m = m.AddLog("Requesting regenerate with stored audio...")
			return m, triggerRegenerate(m.Client, m.ID)
		}
	}
	return m, nil
}

// handleStarted records the new composition id and starts polling
func (m Model) handleStarted(msg StartedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Err = msg.Err
		return m, nil
	}
	m.ID = msg.ID
	m.Connected = true
	m = m.AddLog(fmt.Sprintf("Composition accepted: %s", msg.ID))
	return m, tea.Batch(pollStatus(m.Client, m.ID), tickCmd())
}

// handleStatusUpdate syncs local state with the server
func (m Model) handleStatusUpdate(msg StatusUpdateMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Connected = false
		m.Err = msg.Err
		return m, nil
	}
	m.Connected = true
	m.Err = nil
	if m.Status == nil || m.Status.Status != msg.Status.Status {
		m = m.AddLog(fmt.Sprintf("%s (%d%%)", msg.Status.Status, msg.Status.Progress))
	}
	m.Status = msg.Status
	return m, nil
}

// handleTick polls while the composition is still running
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	if m.ID == "" || m.finished() {
		return m, tickCmd()
	}
	return m, tea.Batch(pollStatus(m.Client, m.ID), tickCmd())
}

// handleRegenerate resumes polling after a regenerate was accepted
func (m Model) handleRegenerate(msg RegenerateMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m = m.AddLog(fmt.Sprintf("Regenerate rejected: %v", msg.Err))
		return m, nil
	}
	m.Status = nil
	m = m.AddLog("Regenerating...")
	return m, pollStatus(m.Client, m.ID)
}
