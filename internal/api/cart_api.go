package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"skibook/internal/cart"
	"skibook/internal/events"
	"skibook/internal/metrics"
	"skibook/internal/selection"
	"skibook/internal/slots"
)

// SlotRef picks one cell of an instructor's availability grid.
type SlotRef struct {
	Date      string `json:"date"`
	DaySlotID int    `json:"daySlotId"`
}

// AddCartItemRequest is the body of POST /api/cart/items. Prices are computed
// server side from the instructor rate and current availability.
type AddCartItemRequest struct {
	InstructorID  string    `json:"instructorId"`
	SelectedSlots []SlotRef `json:"selectedSlots"`
}

// AddCartItemResponse is the response for POST /api/cart/items.
type AddCartItemResponse struct {
	Item cart.Item     `json:"item"`
	Cart cart.Snapshot `json:"cart"`
}

// handleCart returns or clears the session cart. Unknown sessions see an empty
// cart that is not retained.
// GET|DELETE /api/cart
func (s *HTTPServer) handleCart(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cart")
	if r.Method != http.MethodGet && r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	session := requestSession(r)
	c, err := s.carts.Peek(r.Context(), session)
	if err != nil {
		s.logger.Error().Err(err).Str("session", session).Msg("open cart")
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	if r.Method == http.MethodDelete && c.ItemCount() > 0 {
		if err := c.Clear(r.Context()); err != nil {
			s.logger.Error().Err(err).Str("session", session).Msg("clear cart")
			writeError(w, http.StatusInternalServerError, "failed to save cart")
			return
		}
		s.publish(events.Event{Type: events.CartCleared, Session: session})
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// handleCartItems adds or removes cart items.
// POST /api/cart/items
// DELETE /api/cart/items?id=cart-...
func (s *HTTPServer) handleCartItems(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cart_items")
	switch r.Method {
	case http.MethodPost:
		s.addCartItem(w, r)
	case http.MethodDelete:
		s.removeCartItem(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req AddCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.InstructorID == "" {
		writeError(w, http.StatusBadRequest, "instructorId is required")
		return
	}

	start, end, err := s.refsRange(req.SelectedSlots)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	instructor, ok := s.instructor(w, r, req.InstructorID)
	if !ok {
		return
	}

	var chosen []slots.SelectedSlot
	if len(req.SelectedSlots) > 0 {
		grid, err := s.generate(r, instructor, start, end, s.catalog.Current().Bookable())
		if err != nil {
			s.logger.Error().Err(err).Str("instructor_id", instructor.ID).Msg("load occupancy")
			writeError(w, http.StatusInternalServerError, "failed to load bookings")
			return
		}
		picker := selection.NewPicker(grid)
		for _, ref := range req.SelectedSlots {
			if picker.IsSelected(ref.Date, ref.DaySlotID) {
				continue
			}
			if !picker.Toggle(ref.Date, ref.DaySlotID) {
				writeError(w, http.StatusConflict, fmt.Sprintf("slot %s is not available", slots.Key(ref.Date, ref.DaySlotID)))
				return
			}
		}
		chosen = picker.Confirm()
	}

	session := s.sessionID(w, r)
	c, err := s.carts.Open(r.Context(), session)
	if err != nil {
		s.logger.Error().Err(err).Str("session", session).Msg("open cart")
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	item, err := c.Add(r.Context(), cart.Candidate{
		InstructorID:     instructor.ID,
		InstructorName:   instructor.Name(),
		InstructorAvatar: instructor.Avatar,
		Location:         instructor.Location,
		Discipline:       instructor.Discipline,
		PricePerHour:     instructor.HourlyRate,
		SelectedSlots:    chosen,
	})
	if errors.Is(err, cart.ErrEmptySelection) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("session", session).Msg("add cart item")
		writeError(w, http.StatusInternalServerError, "failed to save cart")
		return
	}

	s.logger.Info().
		Str("session", session).
		Str("item_id", item.ID).
		Str("instructor_id", item.InstructorID).
		Float64("total_price", item.TotalPrice).
		Msg("cart item added")
	s.publish(events.Event{
		Type:    events.CartItemAdded,
		Session: session,
		ItemID:  item.ID,
		Amount:  item.TotalPrice,
		Hours:   item.TotalHours,
	})

	writeJSON(w, http.StatusCreated, AddCartItemResponse{Item: item, Cart: c.Snapshot()})
}

// refsRange validates slot references and returns the date span they cover.
func (s *HTTPServer) refsRange(refs []SlotRef) (start, end time.Time, err error) {
	for i, ref := range refs {
		d, err := slots.ParseDate(ref.Date)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("selectedSlots[%d]: %w", i, err)
		}
		if i == 0 || d.Before(start) {
			start = d
		}
		if i == 0 || d.After(end) {
			end = d
		}
	}
	if days := int(end.Sub(start).Hours() / 24); days > s.opts.MaxRangeDays {
		return time.Time{}, time.Time{}, fmt.Errorf("date range exceeds maximum of %d days", s.opts.MaxRangeDays)
	}
	return start, end, nil
}

func (s *HTTPServer) removeCartItem(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	session := requestSession(r)
	c, err := s.carts.Peek(r.Context(), session)
	if err != nil {
		s.logger.Error().Err(err).Str("session", session).Msg("open cart")
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	removed, err := c.Remove(r.Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Str("session", session).Msg("remove cart item")
		writeError(w, http.StatusInternalServerError, "failed to save cart")
		return
	}
	if removed {
		s.publish(events.Event{Type: events.CartItemRemoved, Session: session, ItemID: id})
	}

	writeJSON(w, http.StatusOK, map[string]any{"removed": removed, "cart": c.Snapshot()})
}
