package models

import "time"

// ControllerStatus is the snapshot published after each reconciler pass.
// Flags reflect the reconciler's view at the end of the pass, including
// commands it issued during the pass.
type ControllerStatus struct {
	DeviceID         string     `json:"device_id"`
	Window           string     `json:"window,omitempty"` // active window name, empty outside all windows
	MandateActive    bool       `json:"mandate_active"`
	ClimateReactOn   bool       `json:"climate_react_on"`
	DeviceOn         bool       `json:"device_on"`
	TemperatureC     *float64   `json:"temperature_c,omitempty"` // nil when telemetry was absent or stale
	TemperatureAt    *time.Time `json:"temperature_at,omitempty"`
	LastIntervention *time.Time `json:"last_intervention,omitempty"`
	Samples          int        `json:"samples"`
	TickedAt         time.Time  `json:"ticked_at"`
}
