package policy

import (
	"time"

	"github.com/meanin2/ac-automation/internal/history"
)

// TrendMode selects the "device on but not cooling" test.
type TrendMode string

const (
	// TrendDelta fires on an observed warming delta over a trailing window.
	// Default: it stays defined on sparse histories.
	TrendDelta TrendMode = "delta"
	// TrendRising fires on a strict monotonic rise over the last N samples.
	TrendRising TrendMode = "rising"
)

// Reason explains a fired intervention.
type Reason string

const (
	ReasonOffAboveThreshold Reason = "device off & temperature at/above threshold"
	ReasonOnNotCooling      Reason = "device on but not cooling"
)

// Config holds the fallback thresholds. Policy variants differ only in data,
// never in code paths.
type Config struct {
	HighTempC    float64
	Cooldown     time.Duration
	Trend        TrendMode
	DeltaWindow  time.Duration // trailing span for TrendDelta
	MinDeltaC    float64       // warming delta that counts as "not cooling"
	RisingWindow int           // sample count for TrendRising
}

// Input is the observed state a decision is made from.
type Input struct {
	MandateActive     bool
	ControllerEnabled bool
	DeviceOn          bool
	TemperatureC      float64
}

// Decide returns the reason to force the device on, if any. At most one
// reason fires per cycle; the threshold rule takes priority over the trend
// rule. The policy never requests power-off — turning the device off is
// solely the job of window-exit mandates. When the controller is disabled the
// user turned it off deliberately, so the policy stays silent.
func Decide(cfg Config, in Input, h *history.History, now time.Time) (Reason, bool) {
	if !in.MandateActive || !in.ControllerEnabled {
		return "", false
	}
	if !h.CooldownOK(cfg.Cooldown, now) {
		return "", false
	}
	if !in.DeviceOn && in.TemperatureC >= cfg.HighTempC {
		return ReasonOffAboveThreshold, true
	}
	if in.DeviceOn && notCooling(cfg, h, now) {
		return ReasonOnNotCooling, true
	}
	return "", false
}

func notCooling(cfg Config, h *history.History, now time.Time) bool {
	switch cfg.Trend {
	case TrendRising:
		return h.Rising(cfg.RisingWindow)
	default: // TrendDelta
		delta, ok := h.DeltaSince(cfg.DeltaWindow, now)
		return ok && delta >= cfg.MinDeltaC
	}
}
