// Package hook runs an external executable on wakegate state transitions.
package hook

import (
	"encoding/json"
	"time"
)

// Event kinds.
const (
	EventTransition = "transition"
	EventReset      = "reset"
	EventFinished   = "finished"
)

// Event is sent to the hook as JSON on stdin.
type Event struct {
	Event   string    `json:"event"`
	From    string    `json:"from,omitempty"`
	To      string    `json:"to,omitempty"`
	Session string    `json:"session,omitempty"`
	Outcome string    `json:"outcome,omitempty"`
	At      time.Time `json:"at"`
}

// Response is the optional JSON a hook writes to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}
