package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"skibook/internal/analytics"
	"skibook/internal/metrics"
	"skibook/internal/models"
	"skibook/internal/slots"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleAnalyticsOverview returns headline availability numbers.
// GET /api/analytics/overview
func (s *HTTPServer) handleAnalyticsOverview(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("analytics_overview")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	overview, err := s.overview(r)
	if err != nil {
		s.logger.Error().Err(err).Msg("analytics overview")
		writeError(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// handleAnalyticsInstructors returns per-instructor availability and per-type aggregates.
// GET /api/analytics/instructors
func (s *HTTPServer) handleAnalyticsInstructors(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("analytics_instructors")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	data, _, _, err := s.instructorsData(r)
	if err != nil {
		s.logger.Error().Err(err).Msg("analytics instructors")
		writeError(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// handleAnalyticsInstructorSlots returns the slot breakdown of one instructor.
// GET /api/analytics/instructor-slots?id=ID
func (s *HTTPServer) handleAnalyticsInstructorSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("analytics_instructor_slots")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	in, ok := s.instructor(w, r, id)
	if !ok {
		return
	}
	rows, err := s.data.ListBookingSlots(r.Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Str("instructor_id", id).Msg("list booking slots")
		writeError(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}
	writeJSON(w, http.StatusOK, analytics.InstructorSlots(*in, s.catalog.Current().Types(), rows))
}

// handleAnalyticsSignups returns daily signup counts.
// GET /api/analytics/signups?startDate=YYYY-MM-DD&endDate=YYYY-MM-DD
func (s *HTTPServer) handleAnalyticsSignups(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("analytics_signups")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	start, end := q.Get("startDate"), q.Get("endDate")
	for name, v := range map[string]string{"startDate": start, "endDate": end} {
		if v == "" {
			continue
		}
		if _, err := slots.ParseDate(v); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s format; expected YYYY-MM-DD", name))
			return
		}
	}
	if start != "" && end != "" && start > end {
		writeError(w, http.StatusBadRequest, "startDate must be before or equal to endDate")
		return
	}

	instructors, err := s.data.ListInstructors(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list instructors")
		writeError(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}
	customers, err := s.data.ListCustomers(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list customers")
		writeError(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}
	writeJSON(w, http.StatusOK, analytics.Signups(instructors, customers, start, end))
}

// handleAnalyticsProfileCompleteness reports which instructors filled in avatar,
// biography, gallery and languages.
// GET /api/analytics/profile-completeness
func (s *HTTPServer) handleAnalyticsProfileCompleteness(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("analytics_profile_completeness")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	instructors, err := s.data.ListInstructors(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list instructors")
		writeError(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}
	profiles, err := s.data.InstructorProfiles(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("load instructor profiles")
		writeError(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}
	writeJSON(w, http.StatusOK, analytics.ProfileCompleteness(instructors, profiles))
}

// handleAnalyticsExport streams the analytics report as an xlsx workbook.
// GET /api/analytics/export
func (s *HTTPServer) handleAnalyticsExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("analytics_export")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	overview, err := s.overview(r)
	if err != nil {
		s.logger.Error().Err(err).Msg("export overview")
		writeError(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}
	data, instructors, rows, err := s.instructorsData(r)
	if err != nil {
		s.logger.Error().Err(err).Msg("export instructors")
		writeError(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}

	types := s.catalog.Current().Types()
	byInstructor := make(map[string][]models.BookingSlot)
	for _, row := range rows {
		byInstructor[row.InstructorID] = append(byInstructor[row.InstructorID], row)
	}
	report := analytics.Report{Overview: overview, Instructors: data}
	for _, in := range instructors {
		if own := byInstructor[in.ID]; len(own) > 0 {
			report.Slots = append(report.Slots, analytics.InstructorSlots(in, types, own))
		}
	}

	var buf bytes.Buffer
	if err := analytics.WriteXLSX(&buf, report); err != nil {
		s.logger.Error().Err(err).Msg("write workbook")
		writeError(w, http.StatusInternalServerError, "failed to build export")
		return
	}

	filename := fmt.Sprintf("skibook_analytics_%s.xlsx", s.now().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *HTTPServer) overview(r *http.Request) (analytics.OverviewData, error) {
	instructors, customers, err := s.data.Counts(r.Context())
	if err != nil {
		return analytics.OverviewData{}, fmt.Errorf("counts: %w", err)
	}
	rows, err := s.data.ListBookingSlots(r.Context(), "")
	if err != nil {
		return analytics.OverviewData{}, fmt.Errorf("booking slots: %w", err)
	}
	return analytics.Overview(instructors, customers, s.catalog.Current().Types(), rows), nil
}

func (s *HTTPServer) instructorsData(r *http.Request) (analytics.InstructorsData, []models.Instructor, []models.BookingSlot, error) {
	instructors, err := s.data.ListInstructors(r.Context())
	if err != nil {
		return analytics.InstructorsData{}, nil, nil, fmt.Errorf("instructors: %w", err)
	}
	rows, err := s.data.ListBookingSlots(r.Context(), "")
	if err != nil {
		return analytics.InstructorsData{}, nil, nil, fmt.Errorf("booking slots: %w", err)
	}
	return analytics.Instructors(instructors, s.catalog.Current().Types(), rows), instructors, rows, nil
}
