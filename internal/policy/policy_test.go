package policy

import (
	"testing"
	"time"

	"github.com/meanin2/ac-automation/internal/history"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

func deltaConfig() Config {
	return Config{
		HighTempC:    24.5,
		Cooldown:     15 * time.Minute,
		Trend:        TrendDelta,
		DeltaWindow:  30 * time.Minute,
		MinDeltaC:    0.3,
		RisingWindow: 3,
	}
}

func risingConfig() Config {
	cfg := deltaConfig()
	cfg.Trend = TrendRising
	return cfg
}

// warmingHistory triggers both trend tests: strictly rising samples spanning
// more than the delta window.
func warmingHistory() *history.History {
	h := history.New(24, 2*time.Hour)
	h.Record(23.0, at(-40))
	h.Record(23.5, at(-20))
	h.Record(24.0, at(-10))
	h.Record(24.2, at(0))
	return h
}

func TestDecide_ThresholdBeatsTrend(t *testing.T) {
	t.Parallel()

	// Device off, temp over threshold, and a trend that would also fire:
	// only the threshold reason may be returned.
	in := Input{MandateActive: true, ControllerEnabled: true, DeviceOn: false, TemperatureC: 25.0}
	reason, fire := Decide(deltaConfig(), in, warmingHistory(), at(0))
	if !fire {
		t.Fatalf("expected a decision")
	}
	if reason != ReasonOffAboveThreshold {
		t.Errorf("reason: got %q, want %q", reason, ReasonOffAboveThreshold)
	}
}

func TestDecide_ThresholdBoundary(t *testing.T) {
	t.Parallel()

	cfg := deltaConfig()
	h := history.New(24, 2*time.Hour)

	// Exactly at threshold fires; just below does not.
	if _, fire := Decide(cfg, Input{MandateActive: true, ControllerEnabled: true, TemperatureC: 24.5}, h, at(0)); !fire {
		t.Errorf("temp == threshold must fire")
	}
	if _, fire := Decide(cfg, Input{MandateActive: true, ControllerEnabled: true, TemperatureC: 24.4}, h, at(0)); fire {
		t.Errorf("temp below threshold must not fire")
	}
}

func TestDecide_DeltaTrend(t *testing.T) {
	t.Parallel()

	cfg := deltaConfig()
	in := Input{MandateActive: true, ControllerEnabled: true, DeviceOn: true, TemperatureC: 24.2}

	reason, fire := Decide(cfg, in, warmingHistory(), at(0))
	if !fire || reason != ReasonOnNotCooling {
		t.Fatalf("got (%q, %v), want (%q, true)", reason, fire, ReasonOnNotCooling)
	}

	// Cooling history: newest below the trailing sample.
	cooling := history.New(24, 2*time.Hour)
	cooling.Record(25.0, at(-40))
	cooling.Record(24.0, at(0))
	if _, fire := Decide(cfg, in, cooling, at(0)); fire {
		t.Errorf("cooling delta must not fire")
	}

	// Sparse history: no sample old enough means no decision, not a panic.
	sparse := history.New(24, 2*time.Hour)
	sparse.Record(25.0, at(0))
	if _, fire := Decide(cfg, in, sparse, at(0)); fire {
		t.Errorf("insufficient delta history must not fire")
	}
}

func TestDecide_RisingTrend(t *testing.T) {
	t.Parallel()

	cfg := risingConfig()
	in := Input{MandateActive: true, ControllerEnabled: true, DeviceOn: true, TemperatureC: 24.2}

	if reason, fire := Decide(cfg, in, warmingHistory(), at(0)); !fire || reason != ReasonOnNotCooling {
		t.Fatalf("rising history must fire, got (%q, %v)", reason, fire)
	}

	flat := history.New(24, 2*time.Hour)
	flat.Record(24.0, at(-10))
	flat.Record(24.0, at(-5))
	flat.Record(24.0, at(0))
	if _, fire := Decide(cfg, in, flat, at(0)); fire {
		t.Errorf("flat history must not fire in rising mode")
	}

	short := history.New(24, 2*time.Hour)
	short.Record(23.0, at(-5))
	short.Record(24.0, at(0))
	if _, fire := Decide(cfg, in, short, at(0)); fire {
		t.Errorf("two samples with window 3 must not fire")
	}
}

func TestDecide_Gates(t *testing.T) {
	t.Parallel()

	cfg := deltaConfig()
	hot := Input{MandateActive: true, ControllerEnabled: true, DeviceOn: false, TemperatureC: 30.0}

	cases := []struct {
		name string
		in   Input
		prep func(h *history.History)
	}{
		{
			name: "mandate inactive",
			in:   Input{MandateActive: false, ControllerEnabled: true, TemperatureC: 30.0},
		},
		{
			name: "controller disabled by user",
			in:   Input{MandateActive: true, ControllerEnabled: false, TemperatureC: 30.0},
		},
		{
			name: "cooldown active",
			in:   hot,
			prep: func(h *history.History) { h.MarkIntervention(at(-5)) },
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := history.New(24, 2*time.Hour)
			if tc.prep != nil {
				tc.prep(h)
			}
			if reason, fire := Decide(cfg, tc.in, h, at(0)); fire {
				t.Errorf("must not fire, got %q", reason)
			}
		})
	}
}

func TestDecide_NeverFiresOffDevice(t *testing.T) {
	t.Parallel()

	// Device on, room cool, no warming: nothing to do. The policy has no
	// power-off branch at all; absence of a reason is the only "off" signal.
	in := Input{MandateActive: true, ControllerEnabled: true, DeviceOn: true, TemperatureC: 20.0}
	cooling := history.New(24, 2*time.Hour)
	cooling.Record(22.0, at(-40))
	cooling.Record(20.0, at(0))
	if reason, fire := Decide(deltaConfig(), in, cooling, at(0)); fire {
		t.Errorf("nominal cooling must not fire, got %q", reason)
	}
}
