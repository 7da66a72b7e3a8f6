package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"skibook/internal/cart"
	"skibook/internal/dayslot"
	"skibook/internal/events"
	"skibook/internal/models"
	"skibook/internal/occupancy"
	"skibook/internal/selection"
)

const (
	// DefaultMaxRangeDays is the maximum number of days allowed in an availability request.
	DefaultMaxRangeDays = 90

	sessionCookie = "skibook_session"
	sessionHeader = "X-Session-ID"
)

// DataSource reads instructors, customers and configured availability.
type DataSource interface {
	GetInstructor(ctx context.Context, id string) (*models.Instructor, error)
	ListInstructors(ctx context.Context) ([]models.Instructor, error)
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	Counts(ctx context.Context) (instructors, customers int, err error)
	ListBookingSlots(ctx context.Context, instructorID string) ([]models.BookingSlot, error)
	InstructorProfiles(ctx context.Context) (map[string]models.Profile, error)
	ListResorts(ctx context.Context) ([]models.Resort, error)
}

// BookingStore writes customers, bookings and availability rows.
type BookingStore interface {
	CreateCustomer(ctx context.Context, c *models.Customer) error
	CreateBooking(ctx context.Context, b *models.Booking) error
	UpdateBookingStatus(ctx context.Context, id int64, status string) (instructorID string, err error)
	AddBookingSlot(ctx context.Context, s *models.BookingSlot) error
}

// CacheInvalidator drops cached occupancy of an instructor after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, instructorID string) error
}

// OccupancySource supplies booked rows for an instructor and date window.
type OccupancySource interface {
	Occupancy(ctx context.Context, instructorID string, start, end time.Time) ([]occupancy.Record, error)
}

var (
	// ErrNotFound is matched with errors.Is against DataSource errors to produce 404s.
	ErrNotFound = errors.New("not found")
	// ErrSlotTaken is matched against BookingStore errors to produce 409s.
	ErrSlotTaken = errors.New("slot already booked")
)

type Options struct {
	Port           int
	MaxRangeDays   int
	RateLimitRPS   float64
	RateLimitBurst int
	// NotFound is the sentinel the data source wraps for missing rows.
	NotFound error
	// SlotTaken is the sentinel the booking store wraps for double bookings.
	SlotTaken error
}

type Deps struct {
	Data        DataSource
	Occupancy   OccupancySource
	Bookings    BookingStore
	Invalidator CacheInvalidator
	Catalog     *dayslot.Registry
	Selections  *selection.Store
	Carts       *cart.Manager
	Bus         *events.EventBus
}

// HTTPServer serves the booking API.
type HTTPServer struct {
	opts        Options
	data        DataSource
	occ         OccupancySource
	bookings    BookingStore
	invalidator CacheInvalidator
	catalog     *dayslot.Registry
	selections  *selection.Store
	carts       *cart.Manager
	bus         *events.EventBus
	logger      *zerolog.Logger
	server      *http.Server
	now         func() time.Time
}

func NewHTTPServer(opts Options, deps Deps, logger *zerolog.Logger) *HTTPServer {
	if opts.MaxRangeDays <= 0 {
		opts.MaxRangeDays = DefaultMaxRangeDays
	}
	if opts.NotFound == nil {
		opts.NotFound = ErrNotFound
	}
	if opts.SlotTaken == nil {
		opts.SlotTaken = ErrSlotTaken
	}
	if deps.Catalog == nil {
		deps.Catalog = dayslot.NewRegistry(dayslot.Default())
	}
	if deps.Selections == nil {
		deps.Selections = selection.NewStore(selection.ModeRange)
	}
	if deps.Carts == nil {
		deps.Carts = cart.NewManager(cart.NewMemoryRepository(), cart.DefaultStorageKey)
	}
	l := logger.With().Str("component", "api").Logger()

	s := &HTTPServer{
		opts:        opts,
		data:        deps.Data,
		occ:         deps.Occupancy,
		bookings:    deps.Bookings,
		invalidator: deps.Invalidator,
		catalog:     deps.Catalog,
		selections:  deps.Selections,
		carts:       deps.Carts,
		bus:         deps.Bus,
		logger:      &l,
		now:         time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/day-slots", s.handleDaySlots)
	mux.HandleFunc("/api/availability", s.handleAvailability)
	mux.HandleFunc("/api/availability/slots", s.handleAvailabilitySlots)
	mux.HandleFunc("/api/search/instructors", s.handleSearchInstructors)
	mux.HandleFunc("/api/resorts", s.handleResorts)
	mux.HandleFunc("/api/calendar", s.handleCalendar)
	mux.HandleFunc("/api/selection", s.handleSelection)
	mux.HandleFunc("/api/selection/click", s.handleSelectionClick)
	mux.HandleFunc("/api/selection/mode", s.handleSelectionMode)
	mux.HandleFunc("/api/cart", s.handleCart)
	mux.HandleFunc("/api/cart/items", s.handleCartItems)
	mux.HandleFunc("/api/cart/checkout", s.handleCheckout)
	mux.HandleFunc("/api/bookings/status", s.handleBookingStatus)
	mux.HandleFunc("/api/analytics/overview", s.handleAnalyticsOverview)
	mux.HandleFunc("/api/analytics/instructors", s.handleAnalyticsInstructors)
	mux.HandleFunc("/api/analytics/instructor-slots", s.handleAnalyticsInstructorSlots)
	mux.HandleFunc("/api/analytics/signups", s.handleAnalyticsSignups)
	mux.HandleFunc("/api/analytics/profile-completeness", s.handleAnalyticsProfileCompleteness)
	mux.HandleFunc("/api/analytics/export", s.handleAnalyticsExport)

	var handler http.Handler = mux
	if opts.RateLimitRPS > 0 {
		handler = newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst).middleware(handler)
	}
	handler = s.logRequests(handler)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the routed handler chain.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("API server started")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func (s *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestSession returns the client session from the header or cookie, or "".
func requestSession(r *http.Request) string {
	if id := r.Header.Get(sessionHeader); id != "" {
		return id
	}
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}

// sessionID returns the client session, issuing a cookie for new clients. Only
// handlers that write session state call it.
func (s *HTTPServer) sessionID(w http.ResponseWriter, r *http.Request) string {
	if id := requestSession(r); id != "" {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
	})
	return id
}

func (s *HTTPServer) isNotFound(err error) bool {
	return errors.Is(err, s.opts.NotFound) || errors.Is(err, ErrNotFound)
}

func (s *HTTPServer) isSlotTaken(err error) bool {
	return errors.Is(err, s.opts.SlotTaken) || errors.Is(err, ErrSlotTaken)
}

// invalidate drops cached occupancy after a write. Failures are logged; the
// cache ttl bounds how long a stale grid can be served.
func (s *HTTPServer) invalidate(r *http.Request, instructorID string) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(r.Context(), instructorID); err != nil {
		s.logger.Warn().Err(err).Str("instructor_id", instructorID).Msg("invalidate occupancy cache")
	}
}

func (s *HTTPServer) publish(e events.Event) {
	s.bus.Publish(e)
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
