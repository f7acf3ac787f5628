package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Interval is a calendar-aware period. Years and months are applied first
// with the day of month clamped to the target month's length (Jan 31 plus one
// month is Feb 28/29), then days are added.
type Interval struct {
	Years  int
	Months int
	Days   int
}

// Named intervals. These are values, not shared state: callers get copies.
var (
	Daily    = Interval{Days: 1}
	Weekly   = Interval{Days: 7}
	Biweekly = Interval{Days: 14}
	// Bimonthly is the same as Biweekly. Kept for settings files written
	// against the older name.
	Bimonthly = Biweekly
	Monthly   = Interval{Months: 1}
	Annually  = Interval{Years: 1}
)

// namedIntervals maps setting names to intervals. Read-only after init.
var namedIntervals = map[string]Interval{
	"daily":     Daily,
	"weekly":    Weekly,
	"biweekly":  Biweekly,
	"bimonthly": Bimonthly,
	"monthly":   Monthly,
	"annually":  Annually,
	"yearly":    Annually,
}

// canonicalNames is consulted by String, in order.
var canonicalNames = []struct {
	name     string
	interval Interval
}{
	{"daily", Daily},
	{"weekly", Weekly},
	{"biweekly", Biweekly},
	{"monthly", Monthly},
	{"annually", Annually},
}

// ParseInterval resolves a named interval ("monthly", "biweekly", ...) or a
// sequence of "<n> <unit>" pairs ("2 weeks", "1 year 3 days").
func ParseInterval(s string) (Interval, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Interval{}, fmt.Errorf("%w: empty", ErrInvalidInterval)
	}
	if iv, ok := namedIntervals[s]; ok {
		return iv, nil
	}

	fields := strings.Fields(s)
	if len(fields)%2 != 0 {
		return Interval{}, fmt.Errorf("%w: %q", ErrInvalidInterval, s)
	}
	var iv Interval
	for i := 0; i < len(fields); i += 2 {
		n, err := strconv.Atoi(fields[i])
		if err != nil || n <= 0 {
			return Interval{}, fmt.Errorf("%w: bad count %q", ErrInvalidInterval, fields[i])
		}
		switch strings.TrimSuffix(fields[i+1], "s") {
		case "day":
			iv.Days += n
		case "week":
			iv.Days += 7 * n
		case "month":
			iv.Months += n
		case "year":
			iv.Years += n
		default:
			return Interval{}, fmt.Errorf("%w: unknown unit %q", ErrInvalidInterval, fields[i+1])
		}
	}
	return iv, nil
}

func (iv Interval) IsZero() bool {
	return iv == Interval{}
}

// Valid reports whether the interval moves time strictly forward.
func (iv Interval) Valid() bool {
	if iv.Years < 0 || iv.Months < 0 || iv.Days < 0 {
		return false
	}
	return !iv.IsZero()
}

// Times scales the interval by n.
func (iv Interval) Times(n int) Interval {
	return Interval{Years: iv.Years * n, Months: iv.Months * n, Days: iv.Days * n}
}

// AddTo returns t advanced by the interval. Time of day and location are
// preserved.
func (iv Interval) AddTo(t time.Time) time.Time {
	if iv.Years != 0 || iv.Months != 0 {
		year, month, day := t.Date()
		totalMonths := int(month) - 1 + iv.Months + 12*(year+iv.Years)
		ny, nm := totalMonths/12, time.Month(totalMonths%12+1)
		if last := daysIn(ny, nm); day > last {
			day = last
		}
		hh, mm, ss := t.Clock()
		t = time.Date(ny, nm, day, hh, mm, ss, t.Nanosecond(), t.Location())
	}
	if iv.Days != 0 {
		t = t.AddDate(0, 0, iv.Days)
	}
	return t
}

// Occurrence returns anchor advanced by n intervals. Computing from the
// anchor keeps month-end schedules stable (Jan 31, Feb 28, Mar 31).
func (iv Interval) Occurrence(anchor time.Time, n int) time.Time {
	return iv.Times(n).AddTo(anchor)
}

// String returns the canonical name when there is one, otherwise the
// "<n> <unit>" form ParseInterval accepts.
func (iv Interval) String() string {
	if iv.IsZero() {
		return ""
	}
	for _, c := range canonicalNames {
		if c.interval == iv {
			return c.name
		}
	}
	var parts []string
	if iv.Years != 0 {
		parts = append(parts, plural(iv.Years, "year"))
	}
	if iv.Months != 0 {
		parts = append(parts, plural(iv.Months, "month"))
	}
	if iv.Days != 0 {
		if iv.Days%7 == 0 {
			parts = append(parts, plural(iv.Days/7, "week"))
		} else {
			parts = append(parts, plural(iv.Days, "day"))
		}
	}
	return strings.Join(parts, " ")
}

func (iv Interval) MarshalText() ([]byte, error) {
	return []byte(iv.String()), nil
}

// UnmarshalText accepts everything ParseInterval does; an empty value leaves
// the zero interval.
func (iv *Interval) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "" {
		*iv = Interval{}
		return nil
	}
	parsed, err := ParseInterval(string(text))
	if err != nil {
		return err
	}
	*iv = parsed
	return nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
