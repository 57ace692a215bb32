package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meanin2/ac-automation/internal/history"
	"github.com/meanin2/ac-automation/internal/logger"
	"github.com/meanin2/ac-automation/internal/models"
	"github.com/meanin2/ac-automation/internal/policy"
	"github.com/meanin2/ac-automation/internal/repository"
	"github.com/meanin2/ac-automation/internal/schedule"
	"github.com/meanin2/ac-automation/internal/telemetry"
)

// ErrUnknownWindow is returned by the named window actions for names not in
// the configured table.
var ErrUnknownWindow = errors.New("unknown window")

// ReconcilerService owns the telemetry cache, temperature history and
// cooldown gate for one device, and reconciles observed state against the
// window mandate on every tick. Each step is fail-soft: a failed read or
// actuation is logged and degrades that cycle only.
type ReconcilerService struct {
	deviceID  string
	client    DeviceClient
	cache     *telemetry.Cache
	hist      *history.History
	windows   *schedule.Table
	policy    policy.Config
	cacheTTL  time.Duration
	staleness time.Duration
	events    repository.EventRepo
	log       *logger.Logger

	// busy coalesces ticks: an externally triggered tick overlapping the
	// periodic one would let two interventions race past the cooldown gate.
	busy atomic.Bool

	mu     sync.Mutex
	status models.ControllerStatus
}

func NewReconcilerService(d Deps) *ReconcilerService {
	return &ReconcilerService{
		deviceID:  d.DeviceID,
		client:    d.Client,
		cache:     d.Cache,
		hist:      d.History,
		windows:   d.Windows,
		policy:    d.Policy,
		cacheTTL:  d.CacheTTL,
		staleness: d.Staleness,
		events:    d.Repos.Events,
		log:       d.Log,
	}
}

// Run ticks at the given interval until ctx is canceled, reconciling once
// immediately so a restart inside a window re-applies the mandate without
// waiting a full period. A tick that blocks past the next scheduled one is
// coalesced by the ticker, not queued.
func (r *ReconcilerService) Run(ctx context.Context, interval time.Duration) {
	r.Tick(ctx, time.Now())
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			r.Tick(ctx, now)
		}
	}
}

// Tick runs one reconciliation pass for the given instant.
func (r *ReconcilerService) Tick(ctx context.Context, now time.Time) {
	if !r.busy.CompareAndSwap(false, true) {
		r.log.Infow("tick skipped, previous pass still running")
		return
	}
	defer r.busy.Store(false)

	mandate, active := r.windows.Classify(now)
	if !active {
		r.reconcileIdle(ctx, now)
		return
	}

	// Window mandate: climate react must be enabled. Unknown reads leave the
	// attribute unchanged this cycle.
	crOn, crKnown := r.readFlag(ctx, r.crKey(), r.client.ClimateReactEnabled)
	if crKnown && !crOn {
		if err := r.client.SetClimateReact(ctx, r.deviceID, true); err != nil {
			r.log.Warnw("enable climate react failed", "err", err)
		} else {
			r.cache.Invalidate(r.crKey())
			crOn = true // local view; no fresh read needed
			r.journal(ctx, models.EventActuation, "climate react enabled by window mandate",
				map[string]any{"window": mandate.Window})
			r.log.Infow("climate react -> ON", "window", mandate.Window)
		}
	}

	acOn, _ := r.readFlag(ctx, r.acKey(), r.client.DeviceOn)

	st := models.ControllerStatus{
		DeviceID:       r.deviceID,
		Window:         mandate.Window,
		MandateActive:  true,
		ClimateReactOn: crOn,
		DeviceOn:       acOn,
		TickedAt:       now,
	}

	tempC, tempAt, haveTemp := r.freshTemperature(ctx, now)
	if haveTemp {
		at := tempAt
		if at.IsZero() {
			at = now
		}
		r.hist.Record(tempC, at)
		st.TemperatureC = &tempC
		st.TemperatureAt = &at

		if mandate.Fallback {
			in := policy.Input{
				MandateActive:     true,
				ControllerEnabled: crOn,
				DeviceOn:          acOn,
				TemperatureC:      tempC,
			}
			if reason, fire := policy.Decide(r.policy, in, r.hist, now); fire {
				r.intervene(ctx, now, reason, tempC, mandate.Window)
				st.DeviceOn = true
			}
		}
	}

	r.publish(st)
}

// reconcileIdle drives both attributes off outside all windows, issuing
// commands only for attributes observed on. Temperature and fallback are not
// evaluated here.
func (r *ReconcilerService) reconcileIdle(ctx context.Context, now time.Time) {
	crOn, crKnown := r.readFlag(ctx, r.crKey(), r.client.ClimateReactEnabled)
	if crKnown && crOn {
		if err := r.client.SetClimateReact(ctx, r.deviceID, false); err != nil {
			r.log.Warnw("disable climate react failed", "err", err)
		} else {
			r.cache.Invalidate(r.crKey())
			crOn = false
			r.journal(ctx, models.EventActuation, "climate react disabled outside windows", nil)
			r.log.Infow("climate react -> OFF")
		}
	}

	acOn, acKnown := r.readFlag(ctx, r.acKey(), r.client.DeviceOn)
	if acKnown && acOn {
		if err := r.client.SetDevicePower(ctx, r.deviceID, false); err != nil {
			r.log.Warnw("power off failed", "err", err)
		} else {
			r.cache.Invalidate(r.acKey())
			acOn = false
			r.journal(ctx, models.EventActuation, "device powered off outside windows", nil)
			r.log.Infow("device power -> OFF")
		}
	}

	r.publish(models.ControllerStatus{
		DeviceID:       r.deviceID,
		MandateActive:  false,
		ClimateReactOn: crOn,
		DeviceOn:       acOn,
		TickedAt:       now,
	})
}

// intervene forces the device on. The intervention is marked only after the
// actuation succeeds so a failed attempt may retry next cycle, and it is
// marked exactly once so it cannot double-fire within a cooldown period.
func (r *ReconcilerService) intervene(ctx context.Context, now time.Time, reason policy.Reason, tempC float64, window string) {
	if err := r.client.SetDevicePower(ctx, r.deviceID, true); err != nil {
		r.log.Warnw("intervention actuation failed", "reason", reason, "err", err)
		return
	}
	r.cache.Invalidate(r.acKey())
	r.hist.MarkIntervention(now)
	r.journal(ctx, models.EventIntervention, string(reason),
		map[string]any{"temperature_c": tempC, "window": window})
	r.log.Warnw("intervention: forcing device on", "reason", reason, "temp_c", tempC)
}

// EnterWindow applies the entry mandate of a named window (for calendar
// triggers): climate react on.
func (r *ReconcilerService) EnterWindow(ctx context.Context, name string) error {
	w, ok := r.windows.Find(name)
	if !ok {
		return ErrUnknownWindow
	}
	if err := r.client.SetClimateReact(ctx, r.deviceID, true); err != nil {
		return err
	}
	r.cache.Invalidate(r.crKey())
	r.journal(ctx, models.EventWindowEnter, "window entry mandate applied",
		map[string]any{"window": w.Name})
	r.log.Infow("window entry", "window", w.Name)
	return nil
}

// ExitWindow applies the exit mandate of a named window: climate react off
// and device off, regardless of fallback history. Both actuations are
// attempted even if one fails.
func (r *ReconcilerService) ExitWindow(ctx context.Context, name string) error {
	w, ok := r.windows.Find(name)
	if !ok {
		return ErrUnknownWindow
	}
	var errs []error
	if err := r.client.SetClimateReact(ctx, r.deviceID, false); err != nil {
		errs = append(errs, err)
	} else {
		r.cache.Invalidate(r.crKey())
	}
	if err := r.client.SetDevicePower(ctx, r.deviceID, false); err != nil {
		errs = append(errs, err)
	} else {
		r.cache.Invalidate(r.acKey())
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	r.journal(ctx, models.EventWindowExit, "window exit mandate applied",
		map[string]any{"window": w.Name})
	r.log.Infow("window exit", "window", w.Name)
	return nil
}

// ForcePower is a manual operator override of the device power state.
func (r *ReconcilerService) ForcePower(ctx context.Context, on bool) error {
	if err := r.client.SetDevicePower(ctx, r.deviceID, on); err != nil {
		return err
	}
	r.cache.Invalidate(r.acKey())
	r.journal(ctx, models.EventOverride, "device power overridden by operator",
		map[string]any{"on": on})
	r.log.Infow("operator override: device power", "on", on)
	return nil
}

// ForceClimateReact is a manual operator override of the automation toggle.
func (r *ReconcilerService) ForceClimateReact(ctx context.Context, enabled bool) error {
	if err := r.client.SetClimateReact(ctx, r.deviceID, enabled); err != nil {
		return err
	}
	r.cache.Invalidate(r.crKey())
	r.journal(ctx, models.EventOverride, "climate react overridden by operator",
		map[string]any{"enabled": enabled})
	r.log.Infow("operator override: climate react", "enabled", enabled)
	return nil
}

// Snapshot returns the status published by the most recent pass.
func (r *ReconcilerService) Snapshot() models.ControllerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *ReconcilerService) publish(st models.ControllerStatus) {
	if li, ok := r.hist.LastIntervention(); ok {
		st.LastIntervention = &li
	}
	st.Samples = r.hist.Len()
	r.mu.Lock()
	r.status = st
	r.mu.Unlock()
}

// readFlag reads a cached device attribute, fetching on a cache miss. A
// failed fetch yields known=false and the attribute is treated as unchanged
// by the caller.
func (r *ReconcilerService) readFlag(ctx context.Context, key string, fetch func(context.Context, string) (bool, error)) (value, known bool) {
	v, err := r.cache.GetOrFetch(key, r.cacheTTL, func() (bool, error) {
		return fetch(ctx, r.deviceID)
	})
	if err != nil {
		r.log.Warnw("state read failed", "key", key, "err", err)
		return false, false
	}
	return v, true
}

// freshTemperature fetches the latest reading and discards it when older than
// the staleness horizon. Readings with an unparseable vendor timestamp are
// accepted as-is.
func (r *ReconcilerService) freshTemperature(ctx context.Context, now time.Time) (float64, time.Time, bool) {
	m, err := r.client.LatestMeasurement(ctx, r.deviceID)
	if err != nil {
		r.log.Infow("temperature unavailable, skipping fallback this cycle", "err", err)
		return 0, time.Time{}, false
	}
	if !m.At.IsZero() && now.Sub(m.At) > r.staleness {
		r.log.Infow("temperature reading stale, skipping fallback this cycle",
			"age_sec", int(now.Sub(m.At).Seconds()))
		return 0, time.Time{}, false
	}
	return m.TemperatureC, m.At, true
}

func (r *ReconcilerService) journal(ctx context.Context, typ, msg string, meta map[string]any) {
	ev := models.ControlEvent{Type: typ, Description: msg}
	if meta != nil {
		ev.Metadata = meta
	}
	if err := r.events.Append(ctx, ev); err != nil {
		r.log.Warnw("journal append failed", "type", typ, "err", err)
	}
}

func (r *ReconcilerService) crKey() string { return "climate-react:" + r.deviceID }
func (r *ReconcilerService) acKey() string { return "power:" + r.deviceID }
