package api

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/google/uuid"

	"skibook/internal/cart"
	"skibook/internal/events"
	"skibook/internal/metrics"
	"skibook/internal/models"
	"skibook/internal/selection"
	"skibook/internal/slots"
)

// CheckoutRequest is the optional body of POST /api/cart/checkout. Without a
// customerId a customer is created from customerName.
type CheckoutRequest struct {
	CustomerID   string `json:"customerId,omitempty"`
	CustomerName string `json:"customerName,omitempty"`
}

// CheckoutResponse lists the bookings created from the cart, one per cart item.
type CheckoutResponse struct {
	CustomerID string           `json:"customerId"`
	Bookings   []models.Booking `json:"bookings"`
	TotalHours float64          `json:"totalHours"`
	TotalPrice float64          `json:"totalPrice"`
}

type bookingStatusRequest struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// AddSlotRequest is the body of POST /api/availability/slots. Times default to the
// day slot's catalog times.
type AddSlotRequest struct {
	InstructorID string `json:"instructorId"`
	Date         string `json:"date"`
	DaySlotID    int    `json:"daySlotId"`
	StartTime    string `json:"startTime,omitempty"`
	EndTime      string `json:"endTime,omitempty"`
}

// handleCheckout turns the session cart into pending bookings. Every cell is
// checked against fresh occupancy first, so a slot booked since it was added to
// the cart fails the whole checkout with 409 and leaves the cart intact.
// POST /api/cart/checkout
func (s *HTTPServer) handleCheckout(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cart_checkout")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req CheckoutRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if s.bookings == nil {
		writeError(w, http.StatusServiceUnavailable, "checkout is not available")
		return
	}

	session := requestSession(r)
	c, err := s.carts.Peek(r.Context(), session)
	if err != nil {
		s.logger.Error().Err(err).Str("session", session).Msg("open cart")
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}
	items := c.Items()
	if len(items) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "cart is empty")
		return
	}

	for _, item := range items {
		if !s.recheckItem(w, r, item) {
			return
		}
	}

	customerID := req.CustomerID
	if customerID == "" {
		customer := &models.Customer{ID: "cust-" + uuid.NewString(), Name: req.CustomerName}
		if err := s.bookings.CreateCustomer(r.Context(), customer); err != nil {
			s.logger.Error().Err(err).Msg("create customer")
			writeError(w, http.StatusInternalServerError, "failed to create customer")
			return
		}
		customerID = customer.ID
	}

	created := make([]models.Booking, 0, len(items))
	for _, item := range items {
		b := bookingFromItem(item, customerID)
		if err := s.bookings.CreateBooking(r.Context(), &b); err != nil {
			s.rollbackBookings(r, created)
			if s.isSlotTaken(err) {
				writeError(w, http.StatusConflict, "a selected slot was booked by someone else")
				return
			}
			s.logger.Error().Err(err).Str("instructor_id", item.InstructorID).Msg("create booking")
			writeError(w, http.StatusInternalServerError, "failed to create booking")
			return
		}
		created = append(created, b)
	}

	for _, b := range created {
		s.invalidate(r, b.InstructorID)
		s.publish(events.Event{Type: events.BookingStatus, Session: session, Status: b.Status})
	}

	resp := CheckoutResponse{
		CustomerID: customerID,
		Bookings:   created,
		TotalHours: c.TotalHours(),
		TotalPrice: c.Total(),
	}
	if err := c.Clear(r.Context()); err != nil {
		// bookings exist; a stale cart fails its next checkout with 409
		s.logger.Error().Err(err).Str("session", session).Msg("clear cart after checkout")
	}

	s.logger.Info().
		Str("session", session).
		Str("customer_id", customerID).
		Int("bookings", len(created)).
		Str("hours", slots.FormatHours(resp.TotalHours)).
		Float64("total_price", resp.TotalPrice).
		Msg("checkout completed")
	s.publish(events.Event{Type: events.CheckoutDone, Session: session, Amount: resp.TotalPrice, Hours: resp.TotalHours})

	writeJSON(w, http.StatusCreated, resp)
}

// recheckItem verifies every slot of a cart item is still free.
func (s *HTTPServer) recheckItem(w http.ResponseWriter, r *http.Request, item cart.Item) bool {
	refs := make([]SlotRef, 0, len(item.SelectedSlots))
	for _, ss := range item.SelectedSlots {
		refs = append(refs, SlotRef{Date: ss.Date, DaySlotID: ss.DaySlotID})
	}
	start, end, err := s.refsRange(refs)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("cart item %s: %v", item.ID, err))
		return false
	}

	instructor, ok := s.instructor(w, r, item.InstructorID)
	if !ok {
		return false
	}
	grid, err := s.generate(r, instructor, start, end, s.catalog.Current().Bookable())
	if err != nil {
		s.logger.Error().Err(err).Str("instructor_id", instructor.ID).Msg("load occupancy")
		writeError(w, http.StatusInternalServerError, "failed to load bookings")
		return false
	}

	picker := selection.NewPicker(grid)
	for _, ref := range refs {
		if !picker.Toggle(ref.Date, ref.DaySlotID) {
			writeError(w, http.StatusConflict, fmt.Sprintf("slot %s is no longer available", slots.Key(ref.Date, ref.DaySlotID)))
			return false
		}
	}
	return true
}

func bookingFromItem(item cart.Item, customerID string) models.Booking {
	b := models.Booking{
		InstructorID: item.InstructorID,
		CustomerID:   customerID,
		Status:       models.BookingStatusPending,
		Items:        make([]models.BookingItem, 0, len(item.SelectedSlots)),
	}
	for _, ss := range item.SelectedSlots {
		daySlot := ss.DaySlotID
		b.Items = append(b.Items, models.BookingItem{
			DaySlotID:    &daySlot,
			Date:         ss.Date,
			StartTime:    ss.StartTime,
			EndTime:      ss.EndTime,
			TotalMinutes: int(math.Round(ss.Hours * 60)),
			HourlyRate:   item.PricePerHour,
		})
	}
	return b
}

// rollbackBookings cancels bookings created earlier in a failed checkout.
func (s *HTTPServer) rollbackBookings(r *http.Request, created []models.Booking) {
	for _, b := range created {
		if _, err := s.bookings.UpdateBookingStatus(r.Context(), b.ID, models.BookingStatusCanceled); err != nil {
			s.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("cancel booking of failed checkout")
		}
		s.invalidate(r, b.InstructorID)
	}
}

// handleBookingStatus confirms or cancels a booking.
// POST /api/bookings/status {"id": 1, "status": "confirmed"|"canceled"}
func (s *HTTPServer) handleBookingStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("booking_status")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req bookingStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ID <= 0 {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if req.Status != models.BookingStatusConfirmed && req.Status != models.BookingStatusCanceled {
		writeError(w, http.StatusBadRequest, "status must be 'confirmed' or 'canceled'")
		return
	}
	if s.bookings == nil {
		writeError(w, http.StatusServiceUnavailable, "bookings are not available")
		return
	}

	instructorID, err := s.bookings.UpdateBookingStatus(r.Context(), req.ID, req.Status)
	if err != nil {
		if s.isNotFound(err) {
			writeError(w, http.StatusNotFound, "booking not found")
			return
		}
		s.logger.Error().Err(err).Int64("booking_id", req.ID).Msg("update booking status")
		writeError(w, http.StatusInternalServerError, "failed to update booking")
		return
	}

	s.invalidate(r, instructorID)
	s.logger.Info().Int64("booking_id", req.ID).Str("status", req.Status).Msg("booking status changed")
	s.publish(events.Event{Type: events.BookingStatus, Status: req.Status})

	writeJSON(w, http.StatusOK, map[string]any{"id": req.ID, "instructorId": instructorID, "status": req.Status})
}

// handleAvailabilitySlots records an availability row for an instructor.
// POST /api/availability/slots
func (s *HTTPServer) handleAvailabilitySlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability_slots")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req AddSlotRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.InstructorID == "" {
		writeError(w, http.StatusBadRequest, "instructorId is required")
		return
	}
	date, err := slots.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	typ, ok := s.catalog.Current().Type(req.DaySlotID)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown daySlotId %d", req.DaySlotID))
		return
	}
	if s.bookings == nil {
		writeError(w, http.StatusServiceUnavailable, "bookings are not available")
		return
	}
	if _, ok := s.instructor(w, r, req.InstructorID); !ok {
		return
	}

	daySlot, weekday := typ.ID, int(date.Weekday())
	row := &models.BookingSlot{
		InstructorID: req.InstructorID,
		Date:         req.Date,
		DaySlotID:    &daySlot,
		StartTime:    firstNonEmpty(req.StartTime, typ.DefaultStart),
		EndTime:      firstNonEmpty(req.EndTime, typ.DefaultEnd),
		Weekday:      &weekday,
	}
	if err := s.bookings.AddBookingSlot(r.Context(), row); err != nil {
		s.logger.Error().Err(err).Str("instructor_id", req.InstructorID).Msg("add booking slot")
		writeError(w, http.StatusInternalServerError, "failed to save slot")
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
