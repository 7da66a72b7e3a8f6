// Package calendar lays out month views with per-day slot indicators and range flags.
package calendar

import (
	"fmt"
	"time"

	"skibook/internal/occupancy"
	"skibook/internal/selection"
	"skibook/internal/slots"
)

// Cells is the fixed number of cells in a month grid (six weeks).
const Cells = 42

// Month identifies a calendar month.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth builds a month from numeric year and month values.
func ParseMonth(year, month int) (Month, error) {
	if month < 1 || month > 12 {
		return Month{}, fmt.Errorf("invalid month %d: expected 1-12", month)
	}
	if year < 1 {
		return Month{}, fmt.Errorf("invalid year %d", year)
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

// First returns the first day of the month.
func (m Month) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Shift moves by n months, crossing year boundaries.
func (m Month) Shift(n int) Month {
	return MonthOf(m.First().AddDate(0, n, 0))
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return m.First().AddDate(0, 1, -1).Day()
}

func (m Month) String() string {
	return fmt.Sprintf("%s %d", m.Month, m.Year)
}

// Day is one cell of the month grid.
type Day struct {
	Date           string              `json:"date"`
	DayNumber      int                 `json:"dayNumber"`
	IsCurrentMonth bool                `json:"isCurrentMonth"`
	IsToday        bool                `json:"isToday"`
	IsStartDate    bool                `json:"isStartDate"`
	IsEndDate      bool                `json:"isEndDate"`
	IsInRange      bool                `json:"isInRange"`
	Slots          occupancy.SlotState `json:"slots"`
}

// View is a rendered month.
type View struct {
	Year     int      `json:"year"`
	Month    int      `json:"month"`
	Title    string   `json:"title"`
	Weekdays []string `json:"weekdays"`
	Days     []Day    `json:"days"`
}

var weekdayHeaders = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Grid returns the 42 dates shown for m, starting on the Sunday on or before the first.
func Grid(m Month) []time.Time {
	first := m.First()
	start := first.AddDate(0, 0, -int(first.Weekday()))

	out := make([]time.Time, Cells)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

// Build renders m against the occupancy index and the current range. today marks IsToday.
func Build(m Month, today time.Time, idx occupancy.Index, rng selection.Range) View {
	today = slots.DateOf(today)

	v := View{
		Year:     m.Year,
		Month:    int(m.Month),
		Title:    m.String(),
		Weekdays: append([]string(nil), weekdayHeaders...),
		Days:     make([]Day, 0, Cells),
	}
	for _, d := range Grid(m) {
		date := d.Format(occupancy.DateLayout)
		v.Days = append(v.Days, Day{
			Date:           date,
			DayNumber:      d.Day(),
			IsCurrentMonth: d.Month() == m.Month && d.Year() == m.Year,
			IsToday:        d.Equal(today),
			IsStartDate:    rng.IsStart(d),
			IsEndDate:      rng.IsEnd(d),
			IsInRange:      rng.Contains(d),
			Slots:          idx.SlotState(date),
		})
	}
	return v
}
