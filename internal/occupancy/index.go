// Package occupancy indexes booked day slots per calendar date.
package occupancy

import (
	"sort"

	"skibook/internal/dayslot"
)

// DateLayout is the date key format used across the index.
const DateLayout = "2006-01-02"

// Record is one booked slot as returned by the data service.
type Record struct {
	Date      string `json:"date"`      // YYYY-MM-DD
	DaySlotID *int   `json:"daySlotId"` // nil rows carry no slot identity
}

// Index maps a YYYY-MM-DD date to the set of occupied day-slot ids.
type Index map[string]map[int]struct{}

// Build indexes records. Duplicates collapse and records without a slot id
// or a date are skipped.
func Build(records []Record) Index {
	idx := make(Index)
	for _, r := range records {
		if r.DaySlotID == nil {
			continue
		}
		date := dateKey(r.Date)
		if date == "" {
			continue
		}
		set, ok := idx[date]
		if !ok {
			set = make(map[int]struct{})
			idx[date] = set
		}
		set[*r.DaySlotID] = struct{}{}
	}
	return idx
}

// dateKey truncates timestamps like "2025-02-10T00:00:00Z" to the date part.
func dateKey(s string) string {
	if len(s) > len(DateLayout) {
		return s[:len(DateLayout)]
	}
	return s
}

// Has reports whether slot id is occupied on date.
func (idx Index) Has(date string, id int) bool {
	_, ok := idx[dateKey(date)][id]
	return ok
}

// SlotsOn returns the occupied slot ids on date in ascending order.
func (idx Index) SlotsOn(date string) []int {
	set := idx[dateKey(date)]
	if len(set) == 0 {
		return nil
	}
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Dates returns all dates with at least one occupied slot, ascending.
func (idx Index) Dates() []string {
	dates := make([]string, 0, len(idx))
	for d := range idx {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Len returns the number of distinct (date, slot) pairs.
func (idx Index) Len() int {
	n := 0
	for _, set := range idx {
		n += len(set)
	}
	return n
}

// SlotState is the four-segment booking indicator shown on a calendar day.
type SlotState struct {
	Morning   bool `json:"morning"`
	Lunch     bool `json:"lunch"`
	Afternoon bool `json:"afternoon"`
	Evening   bool `json:"evening"`
}

// Any reports whether at least one segment is booked.
func (s SlotState) Any() bool {
	return s.Morning || s.Lunch || s.Afternoon || s.Evening
}

// Full reports whether every segment is booked.
func (s SlotState) Full() bool {
	return s.Morning && s.Lunch && s.Afternoon && s.Evening
}

// SlotState returns the indicator for date. A full-day booking marks every segment.
func (idx Index) SlotState(date string) SlotState {
	var st SlotState
	for id := range idx[dateKey(date)] {
		switch id {
		case dayslot.FullDay:
			return SlotState{Morning: true, Lunch: true, Afternoon: true, Evening: true}
		case dayslot.Morning:
			st.Morning = true
		case dayslot.Lunch:
			st.Lunch = true
		case dayslot.Afternoon:
			st.Afternoon = true
		case dayslot.Evening:
			st.Evening = true
		}
	}
	return st
}
