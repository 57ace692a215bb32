package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DaySet is a bitmask of weekdays using a fixed Sunday=0 … Saturday=6 indexing.
type DaySet uint8

// Explicit day indexing, independent of any platform weekday numbering.
const (
	Sunday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// dayIndex maps config day names to the fixed 0–6 scheme.
var dayIndex = map[string]int{
	"sun": Sunday,
	"mon": Monday,
	"tue": Tuesday,
	"wed": Wednesday,
	"thu": Thursday,
	"fri": Friday,
	"sat": Saturday,
}

// weekdayIndex maps time.Weekday to the same fixed scheme.
var weekdayIndex = map[time.Weekday]int{
	time.Sunday:    Sunday,
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
}

// AllDays covers every day of the week.
const AllDays DaySet = 0x7f

// ParseDays builds a DaySet from config names ("mon".."sun", or "all").
func ParseDays(names []string) (DaySet, error) {
	if len(names) == 0 {
		return 0, errors.New("empty day list")
	}
	var ds DaySet
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "all" {
			return AllDays, nil
		}
		idx, ok := dayIndex[n]
		if !ok {
			return 0, fmt.Errorf("unknown day name %q", n)
		}
		ds |= 1 << idx
	}
	return ds, nil
}

// Contains reports whether the set includes the given day index (0–6).
func (ds DaySet) Contains(day int) bool {
	return day >= 0 && day <= 6 && ds&(1<<day) != 0
}

// MinuteOfDay is minutes since local midnight.
type MinuteOfDay int

// ParseClock parses "HH:MM" into a MinuteOfDay.
func ParseClock(s string) (MinuteOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return MinuteOfDay(t.Hour()*60 + t.Minute()), nil
}

func (m MinuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// Window is a named half-open interval [Start, End) of local wall-clock time
// on the days in Days. While the window is active the climate controller is
// mandated enabled; on exit the controller is mandated disabled and the
// device powered off. Fallback controls whether the safety-net policy is
// evaluated inside the window.
type Window struct {
	Name     string
	Days     DaySet
	Start    MinuteOfDay
	End      MinuteOfDay
	Fallback bool
}

// Mandate is the state an active window requires.
type Mandate struct {
	Window       string // window name
	ClimateReact bool   // controller must be enabled while inside
	Fallback     bool   // evaluate the fallback policy inside this window
}

// Table is the static, validated window configuration. Windows are evaluated
// in declared order and the first match wins; validation guarantees no two
// windows overlap on any shared day, so order never changes the outcome.
type Table struct {
	windows []Window
	loc     *time.Location
}

// NewTable validates the window set and returns a Table evaluating times in loc.
func NewTable(windows []Window, loc *time.Location) (*Table, error) {
	if loc == nil {
		loc = time.UTC
	}
	t := &Table{windows: windows, loc: loc}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// validate rejects empty/invalid intervals and same-day overlaps.
// Overlapping windows make classification ambiguous and are a configuration
// error, never resolved at runtime.
func (t *Table) validate() error {
	seen := make(map[string]struct{}, len(t.windows))
	for i, w := range t.windows {
		if strings.TrimSpace(w.Name) == "" {
			return fmt.Errorf("window %d: missing name", i)
		}
		if _, dup := seen[w.Name]; dup {
			return fmt.Errorf("window %q: duplicate name", w.Name)
		}
		seen[w.Name] = struct{}{}
		if w.Days == 0 {
			return fmt.Errorf("window %q: no days selected", w.Name)
		}
		if w.Start >= w.End {
			return fmt.Errorf("window %q: start %s must be before end %s", w.Name, w.Start, w.End)
		}
	}
	for i := 0; i < len(t.windows); i++ {
		for j := i + 1; j < len(t.windows); j++ {
			a, b := t.windows[i], t.windows[j]
			if a.Days&b.Days == 0 {
				continue
			}
			// Half-open intervals [Start, End) intersect iff each starts
			// before the other ends.
			if a.Start < b.End && b.Start < a.End {
				return fmt.Errorf("windows %q and %q overlap on a shared day", a.Name, b.Name)
			}
		}
	}
	return nil
}

// Classify maps a wall-clock instant to the mandate of the window containing
// it, if any. Pure and total: it never fails, and for a validated table the
// result is independent of declaration order.
func (t *Table) Classify(now time.Time) (Mandate, bool) {
	local := now.In(t.loc)
	day := weekdayIndex[local.Weekday()]
	minute := MinuteOfDay(local.Hour()*60 + local.Minute())
	for _, w := range t.windows {
		if !w.Days.Contains(day) {
			continue
		}
		if minute >= w.Start && minute < w.End {
			return Mandate{Window: w.Name, ClimateReact: true, Fallback: w.Fallback}, true
		}
	}
	return Mandate{}, false
}

// Find returns the window with the given name.
func (t *Table) Find(name string) (Window, bool) {
	for _, w := range t.windows {
		if w.Name == name {
			return w, true
		}
	}
	return Window{}, false
}

// Location returns the table's evaluation timezone.
func (t *Table) Location() *time.Location {
	return t.loc
}
