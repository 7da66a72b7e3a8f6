package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"skibook/internal/calendar"
	"skibook/internal/dayslot"
	"skibook/internal/metrics"
	"skibook/internal/models"
	"skibook/internal/occupancy"
	"skibook/internal/selection"
	"skibook/internal/slots"
)

// AvailabilityResponse is the response for GET /api/availability.
type AvailabilityResponse struct {
	InstructorID     string                `json:"instructorId"`
	HourlyRate       float64               `json:"hourlyRate"`
	Slots            []slots.AvailableSlot `json:"slots"`
	Days             []slots.DateGroup     `json:"days"`
	FullyBookedDates []string              `json:"fullyBookedDates"`
	Summary          slots.Summary         `json:"summary"`
}

// handleDaySlots returns the day-slot catalog.
// GET /api/day-slots
func (s *HTTPServer) handleDaySlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("day_slots")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"daySlots": s.catalog.Current().Types()})
}

// handleAvailability returns the priced slot grid of an instructor.
// GET /api/availability?instructor_id=ID&start_date=YYYY-MM-DD&end_date=YYYY-MM-DD&include_full_day=true
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	q := r.URL.Query()
	instructorID := q.Get("instructor_id")
	if instructorID == "" {
		writeError(w, http.StatusBadRequest, "instructor_id is required")
		return
	}
	start, end, err := s.validateRange(q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	instructor, ok := s.instructor(w, r, instructorID)
	if !ok {
		return
	}

	cat := s.catalog.Current()
	types := cat.Bookable()
	if q.Get("include_full_day") == "true" {
		types = cat.Types()
	}

	grid, err := s.generate(r, instructor, start, end, types)
	if err != nil {
		s.logger.Error().Err(err).Str("instructor_id", instructorID).Msg("load occupancy")
		writeError(w, http.StatusInternalServerError, "failed to load bookings")
		return
	}

	resp := AvailabilityResponse{
		InstructorID:     instructor.ID,
		HourlyRate:       instructor.HourlyRate,
		Slots:            grid,
		Days:             slots.GroupByDate(grid),
		FullyBookedDates: slots.FullyBookedDates(grid),
		Summary:          slots.Summarize(start, end, grid),
	}
	if resp.Slots == nil {
		resp.Slots = []slots.AvailableSlot{}
	}
	if resp.FullyBookedDates == nil {
		resp.FullyBookedDates = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// generate builds the grid from a single occupancy fetch.
func (s *HTTPServer) generate(r *http.Request, in *models.Instructor, start, end time.Time, types []dayslot.Type) ([]slots.AvailableSlot, error) {
	idx, err := s.occupancyIndex(r, in.ID, start, end)
	if err != nil {
		return nil, err
	}
	grid := slots.Generate(start, end, idx, in.HourlyRate, types)
	metrics.ObserveSlotsGenerated(len(grid))
	return grid, nil
}

func (s *HTTPServer) occupancyIndex(r *http.Request, instructorID string, start, end time.Time) (occupancy.Index, error) {
	if s.occ == nil || instructorID == "" {
		return occupancy.Build(nil), nil
	}
	records, err := s.occ.Occupancy(r.Context(), instructorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("occupancy for %s: %w", instructorID, err)
	}
	return occupancy.Build(records), nil
}

func (s *HTTPServer) instructor(w http.ResponseWriter, r *http.Request, id string) (*models.Instructor, bool) {
	in, err := s.data.GetInstructor(r.Context(), id)
	if err != nil {
		if s.isNotFound(err) {
			writeError(w, http.StatusNotFound, "instructor not found")
			return nil, false
		}
		s.logger.Error().Err(err).Str("instructor_id", id).Msg("get instructor")
		writeError(w, http.StatusInternalServerError, "failed to load instructor")
		return nil, false
	}
	return in, true
}

func (s *HTTPServer) validateRange(startStr, endStr string) (start, end time.Time, err error) {
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date and end_date are required")
	}

	start, err = time.Parse(occupancy.DateLayout, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format; expected YYYY-MM-DD")
	}
	end, err = time.Parse(occupancy.DateLayout, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format; expected YYYY-MM-DD")
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must be before or equal to end_date")
	}

	days := int(end.Sub(start).Hours() / 24)
	if days > s.opts.MaxRangeDays {
		return time.Time{}, time.Time{}, fmt.Errorf("date range exceeds maximum of %d days", s.opts.MaxRangeDays)
	}
	return start, end, nil
}

// CalendarResponse is the response for GET /api/calendar.
type CalendarResponse struct {
	calendar.View
	Mode      selection.Mode `json:"mode"`
	Selection selection.View `json:"selection"`
	Prev      calendar.Month `json:"prev"`
	Next      calendar.Month `json:"next"`
}

// handleCalendar renders a month with slot indicators and the session selection.
// GET /api/calendar?year=2025&month=2&instructor_id=ID
func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("calendar")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	month := calendar.MonthOf(s.now())
	if q.Get("year") != "" || q.Get("month") != "" {
		year, errY := strconv.Atoi(q.Get("year"))
		mon, errM := strconv.Atoi(q.Get("month"))
		if errY != nil || errM != nil {
			writeError(w, http.StatusBadRequest, "year and month must be numbers")
			return
		}
		m, err := calendar.ParseMonth(year, mon)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		month = m
	}

	grid := calendar.Grid(month)
	idx, err := s.occupancyIndex(r, q.Get("instructor_id"), grid[0], grid[len(grid)-1])
	if err != nil {
		s.logger.Error().Err(err).Msg("load calendar occupancy")
		writeError(w, http.StatusInternalServerError, "failed to load bookings")
		return
	}

	var (
		mode selection.Mode
		rng  selection.Range
	)
	s.selections.Peek(requestSession(r), func(sel *selection.Selector) {
		mode, rng = sel.Mode(), sel.Range()
	})

	writeJSON(w, http.StatusOK, CalendarResponse{
		View:      calendar.Build(month, s.now(), idx, rng),
		Mode:      mode,
		Selection: rng.View(),
		Prev:      month.Shift(-1),
		Next:      month.Shift(1),
	})
}
