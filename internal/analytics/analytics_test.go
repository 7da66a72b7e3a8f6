package analytics

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"skibook/internal/dayslot"
	"skibook/internal/models"
)

func ptr(v int) *int {
	return &v
}

func fixture() ([]models.Instructor, []models.BookingSlot) {
	instructors := []models.Instructor{
		{ID: "b", FirstName: "Bea", LastName: "Schmid"},
		{ID: "a", FirstName: "Anna", LastName: "Keller"},
		{ID: "c", FirstName: "Carl", LastName: ""},
	}
	slots := []models.BookingSlot{
		{InstructorID: "a", Date: "2025-02-12", DaySlotID: ptr(dayslot.Morning), Weekday: ptr(3)},
		{InstructorID: "a", Date: "2025-02-10", DaySlotID: ptr(dayslot.Lunch), Weekday: ptr(1), StartTime: "12:30:00"},
		{InstructorID: "b", Date: "2025-02-11", DaySlotID: ptr(dayslot.Morning), Weekday: ptr(2)},
		{InstructorID: "b", Date: "2025-02-16", DaySlotID: ptr(dayslot.Lunch), Weekday: ptr(7)},
		{InstructorID: "b", Date: "2025-02-17", DaySlotID: ptr(dayslot.Evening), Weekday: ptr(1)},
		{InstructorID: "b", Date: "2025-02-18", DaySlotID: ptr(99)},
		{InstructorID: "d", Date: "2025-02-19", DaySlotID: nil},
	}
	return instructors, slots
}

func TestOverview(t *testing.T) {
	_, slots := fixture()

	ov := Overview(3, 5, dayslot.Default().Types(), slots)

	assert.Equal(t, 8, ov.TotalUsers)
	assert.Equal(t, 3, ov.TotalInstructors)
	assert.Equal(t, 5, ov.TotalCustomers)
	assert.Equal(t, 3, ov.InstructorsWithAvailability, "rows without a slot type still count")
	// (2 + 4 + 0) / 3
	assert.Equal(t, 2.0, ov.AverageSlotTypesPerInstructor)
	assert.Equal(t, []string{"Morning", "Lunch", "Evening"}, ov.SlotTypesUsed)
}

func TestOverview_Rounding(t *testing.T) {
	slots := []models.BookingSlot{
		{InstructorID: "a", DaySlotID: ptr(2)},
		{InstructorID: "b", DaySlotID: ptr(2)},
		{InstructorID: "b", DaySlotID: ptr(3)},
	}
	ov := Overview(2, 0, dayslot.Default().Types(), slots)
	assert.Equal(t, 1.5, ov.AverageSlotTypesPerInstructor)

	slots = append(slots, models.BookingSlot{InstructorID: "c", DaySlotID: ptr(4)})
	ov = Overview(3, 0, dayslot.Default().Types(), slots)
	// 4 / 3
	assert.Equal(t, 1.3, ov.AverageSlotTypesPerInstructor)

	empty := Overview(0, 0, nil, nil)
	assert.Zero(t, empty.AverageSlotTypesPerInstructor)
	assert.Equal(t, []string{}, empty.SlotTypesUsed)
}

func TestInstructors(t *testing.T) {
	instructors, slots := fixture()

	data := Instructors(instructors, dayslot.Default().Types(), slots)

	require.Len(t, data.Instructors, 3)
	bea := data.Instructors[0]
	assert.Equal(t, "b", bea.ID)
	assert.Equal(t, 4, bea.SlotTypeCount)
	assert.Equal(t, []string{"Evening", "Lunch", "Morning", "Unknown (99)"}, bea.SlotTypes)
	require.NotNil(t, bea.DateRange)
	assert.Equal(t, DateRange{Earliest: "2025-02-11", Latest: "2025-02-18"}, *bea.DateRange)

	anna := data.Instructors[1]
	assert.Equal(t, "Anna Keller", anna.Name)
	assert.Equal(t, 2, anna.SlotTypeCount)

	carl := data.Instructors[2]
	assert.Equal(t, "Carl", carl.Name)
	assert.Zero(t, carl.SlotTypeCount)
	assert.Empty(t, carl.SlotTypes)
	assert.Nil(t, carl.DateRange)

	assert.Equal(t, InstructorsSummary{TotalInstructorsWithSlotTypes: 2, TotalInstructors: 3}, data.Summary)

	require.Len(t, data.Aggregate.SlotTypes, 5)
	morning := data.Aggregate.SlotTypes[1]
	assert.Equal(t, dayslot.Morning, morning.ID)
	assert.Equal(t, 2, morning.InstructorCount)
	assert.Equal(t, []string{"Anna Keller", "Bea Schmid"}, morning.InstructorNames)
	assert.Equal(t, 0, data.Aggregate.SlotTypes[0].InstructorCount)
	require.NotNil(t, data.Aggregate.DateRange)
	assert.Equal(t, "2025-02-10", data.Aggregate.DateRange.Earliest)
}

func TestInstructors_TiesKeepFirstNameOrder(t *testing.T) {
	instructors := []models.Instructor{
		{ID: "z", FirstName: "Zoe"},
		{ID: "m", FirstName: "Max"},
	}
	slots := []models.BookingSlot{
		{InstructorID: "z", DaySlotID: ptr(2)},
		{InstructorID: "m", DaySlotID: ptr(3)},
	}

	data := Instructors(instructors, dayslot.Default().Types(), slots)
	assert.Equal(t, "m", data.Instructors[0].ID)
	assert.Equal(t, "z", data.Instructors[1].ID)
}

func TestInstructorSlots(t *testing.T) {
	instructors, slots := fixture()

	a := InstructorSlots(instructors[1], dayslot.Default().Types(), slots)
	assert.Equal(t, InstructorRef{ID: "a", Name: "Anna Keller"}, a.Instructor)
	require.Len(t, a.SlotTypes, 2)

	assert.Equal(t, SlotTypeBreakdown{
		ID: dayslot.Morning, Name: "Morning", StartTime: "09:00:00", EndTime: "12:00:00",
		DaysConfigured: []string{"Wednesday"},
	}, a.SlotTypes[0])
	assert.Equal(t, "12:30:00", a.SlotTypes[1].StartTime, "actual time wins over default")
	assert.Equal(t, "14:00:00", a.SlotTypes[1].EndTime)
	require.NotNil(t, a.DateRange)
	assert.Equal(t, DateRange{Earliest: "2025-02-10", Latest: "2025-02-12"}, *a.DateRange)

	b := InstructorSlots(instructors[0], dayslot.Default().Types(), slots)
	require.Len(t, b.SlotTypes, 3, "unknown slot type is skipped")
	assert.Equal(t, []string{"Sunday"}, b.SlotTypes[1].DaysConfigured, "weekday 7 is Sunday")
	assert.Equal(t, "2025-02-17", b.DateRange.Latest)

	c := InstructorSlots(instructors[2], dayslot.Default().Types(), slots)
	assert.Empty(t, c.SlotTypes)
	assert.Nil(t, c.DateRange)
}

func TestSignups(t *testing.T) {
	at := func(s string) time.Time {
		tm, err := time.Parse(time.RFC3339, s)
		require.NoError(t, err)
		return tm
	}
	instructors := []models.Instructor{
		{ID: "a", CreatedAt: at("2025-02-10T08:00:00Z")},
		{ID: "b", CreatedAt: at("2025-02-12T23:59:00Z")},
		{ID: "c"},
	}
	customers := []models.Customer{
		{ID: "x", CreatedAt: at("2025-02-10T18:00:00Z")},
		{ID: "y", CreatedAt: at("2025-03-01T10:00:00Z")},
	}

	data := Signups(instructors, customers, "2025-02-01", "2025-02-28")
	require.Len(t, data.Series, 2)
	assert.Equal(t, SignupPoint{Date: "2025-02-10", InstructorSignups: 1, CustomerSignups: 1, TotalSignups: 2}, data.Series[0])
	assert.Equal(t, "2025-02-12", data.Series[1].Date)
	assert.Equal(t, "2025-02-10", data.DateRange.Start)
	assert.Equal(t, "2025-02-12", data.DateRange.End)

	empty := Signups(nil, nil, "2025-01-01", "2025-01-31")
	assert.Empty(t, empty.Series)
	assert.Equal(t, "2025-01-01", empty.DateRange.Start)
}

func TestWriteXLSX(t *testing.T) {
	instructors, slots := fixture()
	types := dayslot.Default().Types()

	report := Report{
		Overview:    Overview(len(instructors), 2, types, slots),
		Instructors: Instructors(instructors, types, slots),
		Slots:       []InstructorSlotDetails{InstructorSlots(instructors[1], types, slots)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Overview", "Instructors", "Slot Types", "Instructor Slots"}, f.GetSheetList())

	v, err := f.GetCellValue("Overview", "B2")
	require.NoError(t, err)
	assert.Equal(t, "5", v)

	name, err := f.GetCellValue("Instructors", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Bea Schmid", name)

	rows, err := f.GetRows("Instructor Slots")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestProfileCompleteness(t *testing.T) {
	instructors := []models.Instructor{
		{ID: "a", FirstName: "Anna", LastName: "Keller", Avatar: "https://img/a.jpg", Biography: "Race coach"},
		{ID: "b", FirstName: "Bea", Avatar: "  ", Biography: "\n"},
		{ID: "c", FirstName: "Carl"},
	}
	profiles := map[string]models.Profile{
		"a": {Images: []string{"1", "2"}, Languages: []string{"German"}},
		"c": {Languages: []string{"English", "French"}},
		"x": {Images: []string{"orphan"}},
	}

	data := ProfileCompleteness(instructors, profiles)
	assert.Equal(t, ProfileSummary{TotalInstructors: 3, WithAvatar: 1, WithGallery: 1, WithLanguages: 2, WithBiography: 1}, data.Summary)
	assert.Equal(t, ProfilePercentages{Avatar: 33, Gallery: 33, Languages: 67, Biography: 33}, data.Percentages)

	require.Len(t, data.Details, 3)
	assert.Equal(t, ProfileDetail{ID: "a", Name: "Anna Keller", HasAvatar: true, GalleryCount: 2, LanguageCount: 1, HasBiography: true}, data.Details[0])
	assert.False(t, data.Details[1].HasAvatar, "blank avatar")
	assert.False(t, data.Details[1].HasBiography, "blank biography")
	assert.Equal(t, 2, data.Details[2].LanguageCount)
}

func TestProfileCompleteness_Empty(t *testing.T) {
	data := ProfileCompleteness(nil, nil)
	assert.Equal(t, ProfilePercentages{}, data.Percentages)
	assert.NotNil(t, data.Details)
	assert.Empty(t, data.Details)
}
