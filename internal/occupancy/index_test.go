package occupancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skibook/internal/dayslot"
)

func slotID(id int) *int {
	return &id
}

func TestBuild(t *testing.T) {
	idx := Build([]Record{
		{Date: "2025-02-10", DaySlotID: slotID(dayslot.Morning)},
		{Date: "2025-02-10", DaySlotID: slotID(dayslot.Evening)},
		{Date: "2025-02-11", DaySlotID: slotID(dayslot.Lunch)},
		{Date: "2025-02-12", DaySlotID: nil},
		{Date: "", DaySlotID: slotID(dayslot.Lunch)},
	})

	assert.True(t, idx.Has("2025-02-10", dayslot.Morning))
	assert.True(t, idx.Has("2025-02-10", dayslot.Evening))
	assert.False(t, idx.Has("2025-02-10", dayslot.Lunch))
	assert.True(t, idx.Has("2025-02-11", dayslot.Lunch))
	assert.Equal(t, []string{"2025-02-10", "2025-02-11"}, idx.Dates(), "nil slot rows must not create dates")
	assert.Equal(t, []int{dayslot.Morning, dayslot.Evening}, idx.SlotsOn("2025-02-10"))
	assert.Nil(t, idx.SlotsOn("2025-02-12"))
	assert.Equal(t, 3, idx.Len())
}

func TestBuild_Idempotent(t *testing.T) {
	records := []Record{
		{Date: "2025-02-10", DaySlotID: slotID(dayslot.Morning)},
		{Date: "2025-02-11", DaySlotID: slotID(dayslot.Afternoon)},
	}
	doubled := append(append([]Record{}, records...), records...)
	doubled = append(doubled, records[0])

	assert.Equal(t, Build(records), Build(doubled))
}

func TestBuild_TruncatesTimestamps(t *testing.T) {
	idx := Build([]Record{{Date: "2025-02-10T00:00:00Z", DaySlotID: slotID(dayslot.Lunch)}})

	assert.True(t, idx.Has("2025-02-10", dayslot.Lunch))
	assert.Equal(t, []string{"2025-02-10"}, idx.Dates())
}

func TestBuild_Empty(t *testing.T) {
	idx := Build(nil)
	require.NotNil(t, idx)
	assert.Equal(t, 0, idx.Len())
	assert.False(t, idx.Has("2025-02-10", dayslot.Morning))
}

func TestSlotState(t *testing.T) {
	idx := Build([]Record{
		{Date: "2025-02-10", DaySlotID: slotID(dayslot.Morning)},
		{Date: "2025-02-10", DaySlotID: slotID(dayslot.Evening)},
		{Date: "2025-02-11", DaySlotID: slotID(dayslot.FullDay)},
		{Date: "2025-02-12", DaySlotID: slotID(42)},
	})

	tests := []struct {
		date string
		want SlotState
	}{
		{"2025-02-10", SlotState{Morning: true, Evening: true}},
		{"2025-02-11", SlotState{Morning: true, Lunch: true, Afternoon: true, Evening: true}},
		{"2025-02-12", SlotState{}},
		{"2025-02-13", SlotState{}},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.SlotState(tt.date))
		})
	}

	assert.True(t, idx.SlotState("2025-02-11").Full())
	assert.True(t, idx.SlotState("2025-02-10").Any())
	assert.False(t, idx.SlotState("2025-02-12").Any())
}
