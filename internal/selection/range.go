// Package selection implements date-range picking through day clicks and slot picking
// over a generated availability grid.
package selection

import (
	"time"

	"skibook/internal/occupancy"
	"skibook/internal/slots"
)

// Phase is the current phase of a range selection.
type Phase string

const (
	PhaseEmpty        Phase = "empty"
	PhasePartialStart Phase = "partial_start"
	PhaseComplete     Phase = "complete"
)

// Mode is the calendar selection mode.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeRange  Mode = "range"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeSingle || m == ModeRange
}

// Range is a start/end date pair built by successive clicks. Zero times mean unset.
type Range struct {
	Start time.Time
	End   time.Time
}

// Transition describes the effect of a click.
type Transition struct {
	From      Phase
	To        Phase
	Range     Range
	Started   bool // a new selection began; callers hide actions until Completed
	Completed bool
}

// Phase derives the phase from which dates are set.
func (r Range) Phase() Phase {
	switch {
	case r.Start.IsZero():
		return PhaseEmpty
	case r.End.IsZero():
		return PhasePartialStart
	default:
		return PhaseComplete
	}
}

// Click applies a day click. A second click earlier than the start swaps the pair,
// the same day completes a single-day range, and any click on a complete range
// starts over from the clicked day.
func (r *Range) Click(d time.Time) Transition {
	d = slots.DateOf(d)
	from := r.Phase()

	switch from {
	case PhasePartialStart:
		if d.Before(r.Start) {
			r.Start, r.End = d, r.Start
		} else {
			r.End = d
		}
	default:
		r.Start, r.End = d, time.Time{}
	}

	to := r.Phase()
	return Transition{
		From:      from,
		To:        to,
		Range:     *r,
		Started:   to == PhasePartialStart,
		Completed: to == PhaseComplete,
	}
}

// Reset clears the selection.
func (r *Range) Reset() {
	*r = Range{}
}

// Contains reports whether d falls within a complete range, endpoints included.
func (r Range) Contains(d time.Time) bool {
	if r.Phase() != PhaseComplete {
		return false
	}
	d = slots.DateOf(d)
	return !d.Before(r.Start) && !d.After(r.End)
}

// IsStart reports whether d is the start date.
func (r Range) IsStart(d time.Time) bool {
	return !r.Start.IsZero() && slots.DateOf(d).Equal(r.Start)
}

// IsEnd reports whether d is the end date.
func (r Range) IsEnd(d time.Time) bool {
	return !r.End.IsZero() && slots.DateOf(d).Equal(r.End)
}

// Days returns the number of days in a complete range, zero otherwise.
func (r Range) Days() int {
	if r.Phase() != PhaseComplete {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// View is the JSON form of a range.
type View struct {
	Phase     Phase   `json:"phase"`
	StartDate *string `json:"startDate"`
	EndDate   *string `json:"endDate"`
}

// View renders the range with YYYY-MM-DD dates and nulls for unset ends.
func (r Range) View() View {
	v := View{Phase: r.Phase()}
	if !r.Start.IsZero() {
		s := r.Start.Format(occupancy.DateLayout)
		v.StartDate = &s
	}
	if !r.End.IsZero() {
		e := r.End.Format(occupancy.DateLayout)
		v.EndDate = &e
	}
	return v
}

// Selector couples a range with the selection mode of the calendar it belongs to.
type Selector struct {
	mode Mode
	rng  Range
	Day  time.Time // last clicked day in single mode
}

// NewSelector creates a selector in the given mode, defaulting to range mode.
func NewSelector(mode Mode) *Selector {
	if !mode.Valid() {
		mode = ModeRange
	}
	return &Selector{mode: mode}
}

// Mode returns the current mode.
func (s *Selector) Mode() Mode {
	return s.mode
}

// Range returns the current range.
func (s *Selector) Range() Range {
	return s.rng
}

// SetMode switches mode. Any change of mode clears the range.
func (s *Selector) SetMode(mode Mode) {
	if !mode.Valid() || mode == s.mode {
		return
	}
	s.mode = mode
	s.rng.Reset()
	s.Day = time.Time{}
}

// Click routes a day click. In single mode the range is untouched and the
// returned transition carries no phase change.
func (s *Selector) Click(d time.Time) Transition {
	if s.mode == ModeSingle {
		s.Day = slots.DateOf(d)
		p := s.rng.Phase()
		return Transition{From: p, To: p, Range: s.rng}
	}
	return s.rng.Click(d)
}

// Clear resets the range regardless of phase.
func (s *Selector) Clear() {
	s.rng.Reset()
	s.Day = time.Time{}
}
