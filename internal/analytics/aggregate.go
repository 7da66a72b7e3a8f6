// Package analytics aggregates instructor availability for the internal dashboard.
package analytics

import (
	"fmt"
	"math"
	"sort"

	"skibook/internal/dayslot"
	"skibook/internal/models"
	"skibook/internal/occupancy"
)

var dayNames = map[int]string{
	0: "Sunday",
	1: "Monday",
	2: "Tuesday",
	3: "Wednesday",
	4: "Thursday",
	5: "Friday",
	6: "Saturday",
	7: "Sunday",
}

// DateRange is the earliest and latest date seen.
type DateRange struct {
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}

type OverviewData struct {
	TotalUsers                    int      `json:"totalUsers"`
	TotalInstructors              int      `json:"totalInstructors"`
	TotalCustomers                int      `json:"totalCustomers"`
	InstructorsWithAvailability   int      `json:"instructorsWithAvailability"`
	AverageSlotTypesPerInstructor float64  `json:"averageSlotTypesPerInstructor"`
	SlotTypesUsed                 []string `json:"slotTypesUsed"`
}

// Overview computes headline numbers. The average counts distinct slot types per
// instructor that has any slot row, rounded to one decimal.
func Overview(instructors, customers int, types []dayslot.Type, slots []models.BookingSlot) OverviewData {
	perInstructor := make(map[string]map[int]struct{})
	used := make(map[int]struct{})

	for _, s := range slots {
		set, ok := perInstructor[s.InstructorID]
		if !ok {
			set = make(map[int]struct{})
			perInstructor[s.InstructorID] = set
		}
		if s.DaySlotID != nil && *s.DaySlotID != 0 {
			set[*s.DaySlotID] = struct{}{}
			used[*s.DaySlotID] = struct{}{}
		}
	}

	var total int
	for _, set := range perInstructor {
		total += len(set)
	}
	var avg float64
	if len(perInstructor) > 0 {
		avg = math.Round(float64(total)/float64(len(perInstructor))*10) / 10
	}

	names := []string{}
	for _, t := range sortedTypes(types) {
		if _, ok := used[t.ID]; ok {
			names = append(names, t.Name)
		}
	}

	return OverviewData{
		TotalUsers:                    instructors + customers,
		TotalInstructors:              instructors,
		TotalCustomers:                customers,
		InstructorsWithAvailability:   len(perInstructor),
		AverageSlotTypesPerInstructor: avg,
		SlotTypesUsed:                 names,
	}
}

type InstructorAvailability struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	SlotTypeCount int        `json:"slotTypeCount"`
	SlotTypes     []string   `json:"slotTypes"`
	DateRange     *DateRange `json:"dateRange"`
}

type SlotTypeAggregate struct {
	ID               int      `json:"id"`
	Name             string   `json:"name"`
	DefaultStartTime string   `json:"defaultStartTime"`
	DefaultEndTime   string   `json:"defaultEndTime"`
	InstructorCount  int      `json:"instructorCount"`
	InstructorNames  []string `json:"instructorNames"`
}

type InstructorsSummary struct {
	TotalInstructorsWithSlotTypes int `json:"totalInstructorsWithSlotTypes"`
	TotalInstructors              int `json:"totalInstructors"`
}

type Aggregate struct {
	SlotTypes []SlotTypeAggregate `json:"slotTypes"`
	DateRange *DateRange          `json:"dateRange"`
}

type InstructorsData struct {
	Instructors []InstructorAvailability `json:"instructors"`
	Summary     InstructorsSummary       `json:"summary"`
	Aggregate   Aggregate                `json:"aggregate"`
}

// Instructors reports every instructor with the slot types they configured, the
// ones with the most slot types first. Ties keep first-name order.
func Instructors(instructors []models.Instructor, types []dayslot.Type, slots []models.BookingSlot) InstructorsData {
	cat := dayslot.New(types)

	type acc struct {
		ids   map[int]struct{}
		dates []string
	}
	byInstructor := make(map[string]*acc)
	for _, s := range slots {
		a, ok := byInstructor[s.InstructorID]
		if !ok {
			a = &acc{ids: make(map[int]struct{})}
			byInstructor[s.InstructorID] = a
		}
		if s.DaySlotID != nil && *s.DaySlotID != 0 {
			a.ids[*s.DaySlotID] = struct{}{}
		}
		if s.Date != "" {
			a.dates = append(a.dates, s.Date)
		}
	}

	ordered := append([]models.Instructor(nil), instructors...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].FirstName < ordered[j].FirstName })

	data := InstructorsData{Instructors: []InstructorAvailability{}}
	names := make(map[int][]string)
	var allDates []string

	for _, in := range ordered {
		row := InstructorAvailability{ID: in.ID, Name: in.Name(), SlotTypes: []string{}}
		if a, ok := byInstructor[in.ID]; ok && len(a.ids) > 0 {
			row.SlotTypeCount = len(a.ids)
			for id := range a.ids {
				t, known := cat.Type(id)
				if !known {
					row.SlotTypes = append(row.SlotTypes, fmt.Sprintf("Unknown (%d)", id))
					continue
				}
				row.SlotTypes = append(row.SlotTypes, t.Name)
				names[id] = append(names[id], row.Name)
			}
			sort.Strings(row.SlotTypes)
			row.DateRange = dateRange(a.dates)
			allDates = append(allDates, a.dates...)
			data.Summary.TotalInstructorsWithSlotTypes++
		}
		data.Instructors = append(data.Instructors, row)
	}
	sort.SliceStable(data.Instructors, func(i, j int) bool {
		return data.Instructors[i].SlotTypeCount > data.Instructors[j].SlotTypeCount
	})
	data.Summary.TotalInstructors = len(instructors)

	data.Aggregate.SlotTypes = []SlotTypeAggregate{}
	for _, t := range cat.Types() {
		list := names[t.ID]
		sort.Strings(list)
		if list == nil {
			list = []string{}
		}
		data.Aggregate.SlotTypes = append(data.Aggregate.SlotTypes, SlotTypeAggregate{
			ID:               t.ID,
			Name:             t.Name,
			DefaultStartTime: t.DefaultStart,
			DefaultEndTime:   t.DefaultEnd,
			InstructorCount:  len(list),
			InstructorNames:  list,
		})
	}
	data.Aggregate.DateRange = dateRange(allDates)
	return data
}

type SlotTypeBreakdown struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	StartTime      string   `json:"startTime"`
	EndTime        string   `json:"endTime"`
	DaysConfigured []string `json:"daysConfigured"`
}

type InstructorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type InstructorSlotDetails struct {
	Instructor InstructorRef       `json:"instructor"`
	SlotTypes  []SlotTypeBreakdown `json:"slotTypes"`
	DateRange  *DateRange          `json:"dateRange"`
}

// InstructorSlots breaks one instructor's slots down by slot type. The last non-empty
// actual time of a type wins over the catalog default. Slot types missing from the
// catalog are skipped.
func InstructorSlots(in models.Instructor, types []dayslot.Type, slots []models.BookingSlot) InstructorSlotDetails {
	cat := dayslot.New(types)

	type acc struct {
		start, end string
		weekdays   map[int]struct{}
		dates      []string
	}
	byType := make(map[int]*acc)
	for _, s := range slots {
		if s.InstructorID != in.ID || s.DaySlotID == nil || *s.DaySlotID == 0 {
			continue
		}
		a, ok := byType[*s.DaySlotID]
		if !ok {
			a = &acc{weekdays: make(map[int]struct{})}
			byType[*s.DaySlotID] = a
		}
		if s.Weekday != nil {
			a.weekdays[*s.Weekday] = struct{}{}
		}
		if s.Date != "" {
			a.dates = append(a.dates, s.Date)
		}
		if s.StartTime != "" {
			a.start = s.StartTime
		}
		if s.EndTime != "" {
			a.end = s.EndTime
		}
	}

	details := InstructorSlotDetails{
		Instructor: InstructorRef{ID: in.ID, Name: in.Name()},
		SlotTypes:  []SlotTypeBreakdown{},
	}
	var allDates []string
	for id, a := range byType {
		t, ok := cat.Type(id)
		if !ok {
			continue
		}

		days := make([]int, 0, len(a.weekdays))
		for d := range a.weekdays {
			days = append(days, d)
		}
		sort.Ints(days)
		configured := make([]string, 0, len(days))
		for _, d := range days {
			name, ok := dayNames[d]
			if !ok {
				name = fmt.Sprintf("Day %d", d)
			}
			configured = append(configured, name)
		}

		b := SlotTypeBreakdown{
			ID:             id,
			Name:           t.Name,
			StartTime:      a.start,
			EndTime:        a.end,
			DaysConfigured: configured,
		}
		if b.StartTime == "" {
			b.StartTime = t.DefaultStart
		}
		if b.EndTime == "" {
			b.EndTime = t.DefaultEnd
		}
		details.SlotTypes = append(details.SlotTypes, b)
		allDates = append(allDates, a.dates...)
	}
	sort.Slice(details.SlotTypes, func(i, j int) bool { return details.SlotTypes[i].ID < details.SlotTypes[j].ID })
	details.DateRange = dateRange(allDates)
	return details
}

type SignupPoint struct {
	Date              string `json:"date"`
	InstructorSignups int    `json:"instructorSignups"`
	CustomerSignups   int    `json:"customerSignups"`
	TotalSignups      int    `json:"totalSignups"`
}

type SignupsData struct {
	Series    []SignupPoint `json:"series"`
	DateRange struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"dateRange"`
}

// Signups counts signups per day within [start, end]. Empty bounds are open.
// The reported range is the span of the series, falling back to the requested bounds.
func Signups(instructors []models.Instructor, customers []models.Customer, start, end string) SignupsData {
	type counts struct{ instructors, customers int }
	byDate := make(map[string]*counts)

	within := func(date string) bool {
		return (start == "" || date >= start) && (end == "" || date <= end)
	}
	bump := func(date string, instructor bool) {
		if date == "" || !within(date) {
			return
		}
		c, ok := byDate[date]
		if !ok {
			c = &counts{}
			byDate[date] = c
		}
		if instructor {
			c.instructors++
		} else {
			c.customers++
		}
	}

	for _, in := range instructors {
		if !in.CreatedAt.IsZero() {
			bump(in.CreatedAt.UTC().Format(occupancy.DateLayout), true)
		}
	}
	for _, c := range customers {
		if !c.CreatedAt.IsZero() {
			bump(c.CreatedAt.UTC().Format(occupancy.DateLayout), false)
		}
	}

	data := SignupsData{Series: []SignupPoint{}}
	for date, c := range byDate {
		data.Series = append(data.Series, SignupPoint{
			Date:              date,
			InstructorSignups: c.instructors,
			CustomerSignups:   c.customers,
			TotalSignups:      c.instructors + c.customers,
		})
	}
	sort.Slice(data.Series, func(i, j int) bool { return data.Series[i].Date < data.Series[j].Date })

	data.DateRange.Start, data.DateRange.End = start, end
	if n := len(data.Series); n > 0 {
		data.DateRange.Start = data.Series[0].Date
		data.DateRange.End = data.Series[n-1].Date
	}
	return data
}

func dateRange(dates []string) *DateRange {
	if len(dates) == 0 {
		return nil
	}
	sorted := append([]string(nil), dates...)
	sort.Strings(sorted)
	return &DateRange{
		Earliest: sorted[0],
		Latest:   sorted[len(sorted)-1],
	}
}

func sortedTypes(types []dayslot.Type) []dayslot.Type {
	out := append([]dayslot.Type(nil), types...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
