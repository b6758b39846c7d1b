// Package timeline converts wall-clock times of day into minute offsets on a
// single festival axis that stays contiguous across midnight.
package timeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/stagely/internal/domain/model"
)

// Time axis constants.
const (
	MinutesPerDay      = 24 * 60
	DefaultDuration    = 60 // minutes assumed when a performance has no end
	DefaultStepMinutes = 15
)

// ErrInvalidTimeFormat is returned by ParseStrict for malformed times.
var ErrInvalidTimeFormat = errors.New("invalid time format")

// Minutes parses "HH:MM" (or "HH:MM:SS") into minutes since midnight.
// Malformed or empty input yields 0; organizer input is validated upstream.
func Minutes(hhmm string) int {
	m, err := ParseStrict(hhmm)
	if err != nil {
		return 0
	}
	return m
}

// ParseStrict parses "HH:MM" or "HH:MM:SS" and rejects anything else.
func ParseStrict(hhmm string) (int, error) {
	parts := strings.Split(strings.TrimSpace(hhmm), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hhmm)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) > 2 || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hhmm)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hhmm)
	}
	if len(parts) == 3 {
		s, err := strconv.Atoi(parts[2])
		if err != nil || len(parts[2]) != 2 || s < 0 || s > 59 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hhmm)
		}
	}
	return h*60 + m, nil
}

// EffectiveEnd returns the end of a performance in minutes on the same scale
// as Minutes(start). An end earlier than the start falls on the next day; a
// missing end defaults to start + DefaultDuration.
func EffectiveEnd(start, end string) int {
	s := Minutes(start)
	if strings.TrimSpace(end) == "" {
		return s + DefaultDuration
	}
	e := Minutes(end)
	if e < s {
		e += MinutesPerDay
	}
	return e
}

// Format renders minutes as "HH:MM", wrapping past midnight.
func Format(minutes int) string {
	m := ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Span is a performance on the festival axis, in minutes from opening.
type Span struct {
	Start int
	End   int
}

// Duration in minutes.
func (s Span) Duration() int { return s.End - s.Start }

// Position places a performance on the presentation grid.
type Position struct {
	StartSlot     int
	DurationSlots int
}

// Axis is the festival day's time axis. Offsets are minutes since opening.
// On a window that crosses midnight, times of day up to the closing time
// belong to the following morning. Any other time before opening gets a
// negative offset.
type Axis struct {
	open  int
	close int
	step  int
}

// NewAxis builds the axis for a festival window. A non-positive step uses
// DefaultStepMinutes.
func NewAxis(w model.Window, step int) Axis {
	w = w.WithDefaults()
	if step <= 0 {
		step = DefaultStepMinutes
	}
	open := Minutes(w.Start)
	closing := Minutes(w.End)
	if closing < open {
		closing += MinutesPerDay
	}
	return Axis{open: open, close: closing, step: step}
}

// Open returns the opening time in minutes since midnight.
func (a Axis) Open() int { return a.open }

// Step returns the slot size in minutes.
func (a Axis) Step() int { return a.step }

// Offset converts a time of day into minutes since opening.
func (a Axis) Offset(hhmm string) int {
	m := Minutes(hhmm)
	if m < a.open && a.Overnight() && m+MinutesPerDay <= a.close {
		m += MinutesPerDay
	}
	return m - a.open
}

// Overnight reports whether the window closes after midnight.
func (a Axis) Overnight() bool { return a.close >= MinutesPerDay }

// Clock converts an axis offset back into a time of day.
func (a Axis) Clock(offset int) string { return Format(a.open + offset) }

// Span places p on the axis. The end keeps the performance's own duration,
// so a set that wraps into the next morning is shifted as a whole.
func (a Axis) Span(p model.Performance) Span {
	start := a.Offset(p.Start)
	return Span{
		Start: start,
		End:   start + EffectiveEnd(p.Start, p.End) - Minutes(p.Start),
	}
}

// Position returns the grid slot of p, at least one slot tall. A set that
// starts before opening is clipped to the first slot.
func (a Axis) Position(p model.Performance) Position {
	sp := a.Span(p)
	if sp.Start < 0 {
		sp.Start = 0
	}
	slots := (sp.Duration() + a.step - 1) / a.step
	if slots < 1 {
		slots = 1
	}
	return Position{StartSlot: sp.Start / a.step, DurationSlots: slots}
}

// Slots enumerates the presentation axis from opening to closing inclusive.
func (a Axis) Slots() []string {
	slots := make([]string, 0, (a.close-a.open)/a.step+1)
	for m := a.open; m <= a.close; m += a.step {
		slots = append(slots, Format(m))
	}
	return slots
}
