package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skibook",
			Name:      "http_requests_total",
			Help:      "Count of API requests by handler.",
		},
		[]string{"handler"},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skibook",
			Name:      "http_rate_limited_total",
			Help:      "Count of requests rejected by the rate limiter.",
		},
	)

	cartEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skibook",
			Name:      "cart_events_total",
			Help:      "Count of cart mutations by type.",
		},
		[]string{"event"},
	)

	cartValue = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skibook",
			Name:      "cart_added_value_total",
			Help:      "Sum of prices of items added to carts.",
		},
	)

	slotsGenerated = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "skibook",
			Name:      "availability_slots_generated",
			Help:      "Number of slots per generated availability grid.",
			Buckets:   prometheus.ExponentialBuckets(4, 2, 8),
		},
	)

	bookings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skibook",
			Name:      "bookings_total",
			Help:      "Count of bookings created or moved to a status.",
		},
		[]string{"status"},
	)

	sessionsEvicted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skibook",
			Name:      "sessions_evicted_total",
			Help:      "Idle selection sessions and carts dropped from memory.",
		},
		[]string{"kind"},
	)

	occupancyCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skibook",
			Name:      "occupancy_cache_total",
			Help:      "Occupancy cache lookups by result.",
		},
		[]string{"result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, rateLimited, cartEvents, cartValue, slotsGenerated, bookings, sessionsEvicted, occupancyCache)
	})
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}

func IncRateLimited() {
	rateLimited.Inc()
}

func IncCartEvent(event string) {
	cartEvents.WithLabelValues(event).Inc()
}

func AddCartValue(v float64) {
	if v > 0 {
		cartValue.Add(v)
	}
}

func ObserveSlotsGenerated(n int) {
	slotsGenerated.Observe(float64(n))
}

// IncOccupancyCache records a cache lookup; result is "hit" or "miss".
func IncOccupancyCache(result string) {
	occupancyCache.WithLabelValues(result).Inc()
}

func IncBooking(status string) {
	bookings.WithLabelValues(status).Inc()
}

// AddSessionsEvicted records n evictions; kind is "selection" or "cart".
func AddSessionsEvicted(kind string, n int) {
	if n > 0 {
		sessionsEvicted.WithLabelValues(kind).Add(float64(n))
	}
}
