package tui

import (
	"time"

	"skitbot/api"
)

// Messages for the tea program (polling-based)

// StartedMsg is sent once the composition request was accepted
type StartedMsg struct {
	ID  string
	Err error
}

// StatusUpdateMsg is sent when we receive status from the server
type StatusUpdateMsg struct {
	Status *api.StatusResponse
	Err    error
}

// TickMsg is sent periodically to trigger polling
type TickMsg struct {
	Time time.Time
}

// RegenerateMsg is sent when a regenerate request returns
type RegenerateMsg struct {
	Err error
}
