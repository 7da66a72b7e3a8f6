// Package slots builds the priced, bookable slot grid for an instructor and date range.
package slots

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"skibook/internal/dayslot"
	"skibook/internal/occupancy"
)

// AvailableSlot is one (date, day-slot) cell of the selection grid.
type AvailableSlot struct {
	Date        string  `json:"date"` // YYYY-MM-DD
	DaySlotID   int     `json:"daySlotId"`
	DaySlotName string  `json:"daySlotName"`
	StartTime   string  `json:"startTime"` // HH:MM:SS
	EndTime     string  `json:"endTime"`
	Hours       float64 `json:"hours"`
	Price       float64 `json:"price"`
	IsAvailable bool    `json:"isAvailable"`
}

// SelectedSlot is a priced slot the user has chosen.
type SelectedSlot struct {
	Date        string  `json:"date"`
	DaySlotID   int     `json:"daySlotId"`
	DaySlotName string  `json:"daySlotName"`
	StartTime   string  `json:"startTime"`
	EndTime     string  `json:"endTime"`
	Hours       float64 `json:"hours"`
	Price       float64 `json:"price"`
}

// Key identifies the slot within a grid.
func (s AvailableSlot) Key() string {
	return Key(s.Date, s.DaySlotID)
}

// Selected converts the grid cell into a chosen slot.
func (s AvailableSlot) Selected() SelectedSlot {
	return SelectedSlot{
		Date:        s.Date,
		DaySlotID:   s.DaySlotID,
		DaySlotName: s.DaySlotName,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		Hours:       s.Hours,
		Price:       s.Price,
	}
}

// Key builds the "YYYY-MM-DD-id" grid key.
func Key(date string, daySlotID int) string {
	return date + "-" + strconv.Itoa(daySlotID)
}

// Generate enumerates every date in [start, end] (inclusive, calendar days) against the
// given slot types. Types are emitted in ascending id order within a date. An inverted
// range yields no slots. Non-positive rates price every slot at zero.
func Generate(start, end time.Time, idx occupancy.Index, hourlyRate float64, types []dayslot.Type) []AvailableSlot {
	start, end = DateOf(start), DateOf(end)
	if start.After(end) {
		return nil
	}

	ordered := make([]dayslot.Type, len(types))
	copy(ordered, types)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	if hourlyRate < 0 {
		hourlyRate = 0
	}

	var result []AvailableSlot
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		date := d.Format(occupancy.DateLayout)
		for _, t := range ordered {
			result = append(result, AvailableSlot{
				Date:        date,
				DaySlotID:   t.ID,
				DaySlotName: t.Name,
				StartTime:   t.DefaultStart,
				EndTime:     t.DefaultEnd,
				Hours:       t.Hours,
				Price:       hourlyRate * t.Hours,
				IsAvailable: !idx.Has(date, t.ID),
			})
		}
	}
	return result
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(occupancy.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// Available returns only available slots.
func Available(slots []AvailableSlot) []AvailableSlot {
	var available []AvailableSlot
	for _, s := range slots {
		if s.IsAvailable {
			available = append(available, s)
		}
	}
	return available
}

// DateGroup holds the slots of one date.
type DateGroup struct {
	Date  string          `json:"date"`
	Slots []AvailableSlot `json:"slots"`
}

// GroupByDate groups slots by date, preserving grid order.
func GroupByDate(slots []AvailableSlot) []DateGroup {
	var groups []DateGroup
	for _, s := range slots {
		if n := len(groups); n > 0 && groups[n-1].Date == s.Date {
			groups[n-1].Slots = append(groups[n-1].Slots, s)
			continue
		}
		groups = append(groups, DateGroup{Date: s.Date, Slots: []AvailableSlot{s}})
	}
	return groups
}

// FullyBookedDates returns the dates on which no slot is available.
func FullyBookedDates(slots []AvailableSlot) []string {
	var dates []string
	for _, g := range GroupByDate(slots) {
		booked := true
		for _, s := range g.Slots {
			if s.IsAvailable {
				booked = false
				break
			}
		}
		if booked {
			dates = append(dates, g.Date)
		}
	}
	return dates
}

// TypeSummary describes availability of one slot type across a range.
type TypeSummary struct {
	Name          string `json:"name"`
	IsAvailable   bool   `json:"isAvailable"`
	TotalDays     int    `json:"totalDays"`
	AvailableDays int    `json:"availableDays"`
}

// Summary describes availability across a date range.
type Summary struct {
	StartDate           string        `json:"startDate"`
	EndDate             string        `json:"endDate"`
	TotalDays           int           `json:"totalDays"`
	Slots               []TypeSummary `json:"slots"`
	TotalAvailableHours float64       `json:"totalAvailableHours"`
}

// Summarize aggregates a generated grid per slot type.
func Summarize(start, end time.Time, slots []AvailableSlot) Summary {
	sum := Summary{
		StartDate: DateOf(start).Format(occupancy.DateLayout),
		EndDate:   DateOf(end).Format(occupancy.DateLayout),
	}

	byType := make(map[int]*TypeSummary)
	var order []int
	for _, g := range GroupByDate(slots) {
		sum.TotalDays++
		for _, s := range g.Slots {
			ts, ok := byType[s.DaySlotID]
			if !ok {
				ts = &TypeSummary{Name: s.DaySlotName}
				byType[s.DaySlotID] = ts
				order = append(order, s.DaySlotID)
			}
			ts.TotalDays++
			if s.IsAvailable {
				ts.AvailableDays++
				sum.TotalAvailableHours += s.Hours
			}
		}
	}

	sort.Ints(order)
	for _, id := range order {
		ts := byType[id]
		ts.IsAvailable = ts.AvailableDays > 0
		sum.Slots = append(sum.Slots, *ts)
	}
	return sum
}

// Totals sums hours and price over chosen slots.
func Totals(selected []SelectedSlot) (hours, price float64) {
	for _, s := range selected {
		hours += s.Hours
		price += s.Price
	}
	return hours, price
}

// FormatHours formats a duration in hours, e.g. "3h" or "2.5h".
func FormatHours(hours float64) string {
	return strconv.FormatFloat(hours, 'f', -1, 64) + "h"
}
