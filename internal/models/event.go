package models

import "time"

// Event types recorded in the control journal.
const (
	EventWindowEnter  = "WINDOW_ENTER"
	EventWindowExit   = "WINDOW_EXIT"
	EventIntervention = "INTERVENTION"
	EventActuation    = "ACTUATION"
	EventOverride     = "OVERRIDE"
	EventError        = "ERROR"
)

// ControlEvent is a single journal entry.
type ControlEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // WINDOW_ENTER | WINDOW_EXIT | INTERVENTION | ACTUATION | OVERRIDE | ERROR
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
