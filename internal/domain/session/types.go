package session

import (
	"time"

	"github.com/browsergrid/backend/internal/container"
)

// State is a session lifecycle state.
type State string

const (
	StateStarting  State = "starting"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateTimedOut  State = "timed_out"
	StateFailed    State = "failed"
	StateStopped   State = "stopped"
)

// Session is one browsing session and its attached resources.
type Session struct {
	ID    string `json:"id"`
	State State  `json:"state"`

	Task  string `json:"task"`
	Model string `json:"model"`

	ContainerID   string              `json:"container_id"`
	ContainerName string              `json:"container_name"`
	Endpoints     container.Endpoints `json:"endpoints"`

	CDPURL          string `json:"cdp_url"`
	VNCURL          string `json:"vnc_url"`
	StickinessToken string `json:"-"`

	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// EventType classifies stream events.
type EventType string

const (
	// EventLine is one line of agent output.
	EventLine EventType = "line"
	// EventNotice is an orchestrator status message. The stream itself
	// ends when the event channel closes.
	EventNotice EventType = "notice"
)

// Event is one entry on a session's output stream.
type Event struct {
	Type EventType
	Text string
}

// StartRequest describes a new session.
type StartRequest struct {
	Task  string `json:"task" binding:"required"`
	Model string `json:"model"`
}
