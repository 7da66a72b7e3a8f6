package api

import (
	"net/http"

	"skibook/internal/events"
	"skibook/internal/metrics"
	"skibook/internal/selection"
	"skibook/internal/slots"
)

// SelectionResponse describes the session selection after a request.
type SelectionResponse struct {
	Mode        selection.Mode `json:"mode"`
	Selection   selection.View `json:"selection"`
	Days        int            `json:"days"`
	SelectedDay *string        `json:"selectedDay"`
	Started     bool           `json:"started"`
	Completed   bool           `json:"completed"`
}

type clickRequest struct {
	Date string `json:"date"`
}

type modeRequest struct {
	Mode selection.Mode `json:"mode"`
}

func selectionResponse(sel *selection.Selector, tr selection.Transition) SelectionResponse {
	rng := sel.Range()
	resp := SelectionResponse{
		Mode:      sel.Mode(),
		Selection: rng.View(),
		Days:      rng.Days(),
		Started:   tr.Started,
		Completed: tr.Completed,
	}
	if !sel.Day.IsZero() {
		d := sel.Day.Format("2006-01-02")
		resp.SelectedDay = &d
	}
	return resp
}

// handleSelection returns or clears the session selection. Reads never create a session.
// GET|DELETE /api/selection
func (s *HTTPServer) handleSelection(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("selection")

	var resp SelectionResponse
	switch r.Method {
	case http.MethodGet:
		s.selections.Peek(requestSession(r), func(sel *selection.Selector) {
			resp = selectionResponse(sel, selection.Transition{})
		})
	case http.MethodDelete:
		s.selections.Peek(requestSession(r), func(sel *selection.Selector) {
			sel.Clear()
			resp = selectionResponse(sel, selection.Transition{})
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSelectionClick applies a day click to the session selection.
// POST /api/selection/click {"date": "YYYY-MM-DD"}
func (s *HTTPServer) handleSelectionClick(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("selection_click")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req clickRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	day, err := slots.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session := s.sessionID(w, r)
	var resp SelectionResponse
	s.selections.GetOrCreate(session).Do(func(sel *selection.Selector) {
		tr := sel.Click(day)
		resp = selectionResponse(sel, tr)
	})
	if resp.Completed {
		s.publish(events.Event{Type: events.SelectionDone, Session: session})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSelectionMode switches between single and range mode, clearing the range on change.
// POST /api/selection/mode {"mode": "single"|"range"}
func (s *HTTPServer) handleSelectionMode(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("selection_mode")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req modeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !req.Mode.Valid() {
		writeError(w, http.StatusBadRequest, "mode must be 'single' or 'range'")
		return
	}

	var resp SelectionResponse
	s.selections.GetOrCreate(s.sessionID(w, r)).Do(func(sel *selection.Selector) {
		sel.SetMode(req.Mode)
		resp = selectionResponse(sel, selection.Transition{})
	})
	writeJSON(w, http.StatusOK, resp)
}
