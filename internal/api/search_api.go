package api

import (
	"net/http"

	"skibook/internal/metrics"
	"skibook/internal/models"
	"skibook/internal/search"
)

// SearchResponse is the response for GET /api/search/instructors. Count is the size
// of the returned page, Total the number of matches before paging.
type SearchResponse struct {
	Data   []search.Result `json:"data"`
	Count  int             `json:"count"`
	Total  int             `json:"total"`
	Params search.Query    `json:"params"`
}

// handleSearchInstructors lists instructors filtered by location and discipline.
// With startDate and endDate, instructors with no free bookable slot in the range
// are dropped.
// GET /api/search/instructors?location=&disciplineIds=a,b&startDate=&endDate=&limit=20&offset=0
func (s *HTTPServer) handleSearchInstructors(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("search_instructors")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	q, err := search.ParseQuery(r.URL.Query(), s.opts.MaxRangeDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	instructors, err := s.data.ListInstructors(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list instructors")
		writeError(w, http.StatusInternalServerError, "failed to search instructors")
		return
	}
	profiles, err := s.data.InstructorProfiles(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("load instructor profiles")
		writeError(w, http.StatusInternalServerError, "failed to search instructors")
		return
	}

	start, end := q.Window()
	types := s.catalog.Current().Bookable()
	results := []search.Result{}
	for i := range instructors {
		in := &instructors[i]
		if !q.Matches(*in) {
			continue
		}
		if q.HasDates() {
			grid, err := s.generate(r, in, start, end, types)
			if err != nil {
				s.logger.Error().Err(err).Str("instructor_id", in.ID).Msg("load occupancy")
				writeError(w, http.StatusInternalServerError, "failed to search instructors")
				return
			}
			if search.FullyBooked(grid) {
				continue
			}
		}
		results = append(results, search.NewResult(*in, profiles[in.ID]))
	}

	page := q.Page(results)
	s.logger.Debug().
		Str("location", q.Location).
		Int("matches", len(results)).
		Int("returned", len(page)).
		Msg("instructor search")
	writeJSON(w, http.StatusOK, SearchResponse{Data: page, Count: len(page), Total: len(results), Params: q})
}

// handleResorts lists resorts ordered by name.
// GET /api/resorts
func (s *HTTPServer) handleResorts(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("resorts")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resorts, err := s.data.ListResorts(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list resorts")
		writeError(w, http.StatusInternalServerError, "failed to load resorts")
		return
	}
	if resorts == nil {
		resorts = []models.Resort{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": resorts, "count": len(resorts)})
}
