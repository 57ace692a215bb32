package history

import "time"

// Sample is one temperature reading.
type Sample struct {
	At     time.Time
	ValueC float64
}

// History is a bounded rolling log of temperature samples plus the
// intervention cooldown gate. It is owned by a single reconciler loop and is
// not safe for concurrent use.
type History struct {
	maxSamples       int
	maxAge           time.Duration
	samples          []Sample
	lastIntervention time.Time
}

// New returns a History retaining at most maxSamples samples and discarding
// samples older than maxAge relative to the newest. Both bounds are enforced;
// whichever truncates harder wins.
func New(maxSamples int, maxAge time.Duration) *History {
	if maxSamples <= 0 {
		maxSamples = 24
	}
	if maxAge <= 0 {
		maxAge = 2 * time.Hour
	}
	return &History{
		maxSamples: maxSamples,
		maxAge:     maxAge,
		samples:    make([]Sample, 0, maxSamples),
	}
}

// Record appends a sample and evicts anything beyond the retention policy.
// Callers are expected to discard stale readings before recording.
func (h *History) Record(valueC float64, at time.Time) {
	h.samples = append(h.samples, Sample{At: at, ValueC: valueC})
	if n := len(h.samples) - h.maxSamples; n > 0 {
		h.samples = h.samples[n:]
	}
	horizon := h.samples[len(h.samples)-1].At.Add(-h.maxAge)
	i := 0
	for i < len(h.samples) && h.samples[i].At.Before(horizon) {
		i++
	}
	h.samples = h.samples[i:]
}

// Rising reports whether the most recent window samples are strictly
// increasing. Insufficient history is not rising.
func (h *History) Rising(window int) bool {
	if window < 2 || len(h.samples) < window {
		return false
	}
	recent := h.samples[len(h.samples)-window:]
	for i := 0; i < len(recent)-1; i++ {
		if recent[i].ValueC >= recent[i+1].ValueC {
			return false
		}
	}
	return true
}

// DeltaSince returns latest − the most recent sample at least span old
// (walking backward from the newest). Positive means the room warmed over the
// interval. ok is false when no sample is that old yet.
func (h *History) DeltaSince(span time.Duration, now time.Time) (delta float64, ok bool) {
	if len(h.samples) == 0 {
		return 0, false
	}
	latest := h.samples[len(h.samples)-1]
	for i := len(h.samples) - 1; i >= 0; i-- {
		if now.Sub(h.samples[i].At) >= span {
			return latest.ValueC - h.samples[i].ValueC, true
		}
	}
	return 0, false
}

// CooldownOK reports whether a new intervention may fire. A last-intervention
// timestamp in the future means the clock is corrupted; that fails closed.
func (h *History) CooldownOK(cooldown time.Duration, now time.Time) bool {
	if h.lastIntervention.IsZero() {
		return true
	}
	if now.Before(h.lastIntervention) {
		return false
	}
	return now.Sub(h.lastIntervention) >= cooldown
}

// MarkIntervention records the time a forced power-on was issued. This is the
// only mutator of the cooldown gate; call it once per fired intervention.
func (h *History) MarkIntervention(at time.Time) {
	h.lastIntervention = at
}

// LastIntervention returns the most recent intervention time, if any.
func (h *History) LastIntervention() (time.Time, bool) {
	return h.lastIntervention, !h.lastIntervention.IsZero()
}

// Len returns the number of retained samples.
func (h *History) Len() int {
	return len(h.samples)
}

// Latest returns the newest sample, if any.
func (h *History) Latest() (Sample, bool) {
	if len(h.samples) == 0 {
		return Sample{}, false
	}
	return h.samples[len(h.samples)-1], true
}
