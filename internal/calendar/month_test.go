package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skibook/internal/dayslot"
	"skibook/internal/occupancy"
	"skibook/internal/selection"
)

func TestGrid(t *testing.T) {
	tests := []struct {
		name  string
		month Month
		first string
		last  string
	}{
		// 2025-02-01 is a Saturday
		{"february 2025", Month{2025, time.February}, "2025-01-26", "2025-03-08"},
		// 2026-03-01 is a Sunday
		{"month starting sunday", Month{2026, time.March}, "2026-03-01", "2026-04-11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Grid(tt.month)
			require.Len(t, g, Cells)
			assert.Equal(t, tt.first, g[0].Format(occupancy.DateLayout))
			assert.Equal(t, tt.last, g[Cells-1].Format(occupancy.DateLayout))
			assert.Equal(t, time.Sunday, g[0].Weekday())
		})
	}
}

func TestShift(t *testing.T) {
	assert.Equal(t, Month{2026, time.January}, Month{2025, time.December}.Shift(1))
	assert.Equal(t, Month{2024, time.December}, Month{2025, time.January}.Shift(-1))
	assert.Equal(t, Month{2025, time.March}, Month{2025, time.March}.Shift(0))
	assert.Equal(t, 28, Month{2025, time.February}.Days())
	assert.Equal(t, 29, Month{2024, time.February}.Days())
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth(2025, 2)
	require.NoError(t, err)
	assert.Equal(t, "February 2025", m.String())

	_, err = ParseMonth(2025, 13)
	assert.Error(t, err)
	_, err = ParseMonth(0, 1)
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	id := dayslot.Morning
	idx := occupancy.Build([]occupancy.Record{{Date: "2025-02-10", DaySlotID: &id}})

	var rng selection.Range
	rng.Click(time.Date(2025, 2, 12, 0, 0, 0, 0, time.UTC))
	rng.Click(time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC))

	today := time.Date(2025, 2, 11, 15, 4, 0, 0, time.UTC)
	v := Build(Month{2025, time.February}, today, idx, rng)

	require.Len(t, v.Days, Cells)
	assert.Equal(t, 2, v.Month)
	assert.Equal(t, "Sun", v.Weekdays[0])

	assert.False(t, v.Days[0].IsCurrentMonth, "leading january day")
	assert.Equal(t, 26, v.Days[0].DayNumber)

	byDate := make(map[string]Day, len(v.Days))
	for _, d := range v.Days {
		byDate[d.Date] = d
	}

	feb10 := byDate["2025-02-10"]
	assert.True(t, feb10.IsCurrentMonth)
	assert.True(t, feb10.IsStartDate)
	assert.True(t, feb10.IsInRange)
	assert.True(t, feb10.Slots.Morning)
	assert.False(t, feb10.Slots.Lunch)

	feb11 := byDate["2025-02-11"]
	assert.True(t, feb11.IsToday)
	assert.True(t, feb11.IsInRange)
	assert.False(t, feb11.IsStartDate)

	assert.True(t, byDate["2025-02-12"].IsEndDate)
	assert.False(t, byDate["2025-02-13"].IsInRange)
	assert.False(t, byDate["2025-03-01"].IsCurrentMonth)
}
