package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(httpRequests.WithLabelValues("availability"))
	IncHTTP("availability")
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("availability")))

	beforeValue := testutil.ToFloat64(cartValue)
	AddCartValue(300)
	AddCartValue(-5)
	assert.Equal(t, beforeValue+300, testutil.ToFloat64(cartValue))

	IncCartEvent("item_added")
	assert.GreaterOrEqual(t, testutil.ToFloat64(cartEvents.WithLabelValues("item_added")), 1.0)

	beforeBookings := testutil.ToFloat64(bookings.WithLabelValues("pending"))
	IncBooking("pending")
	assert.Equal(t, beforeBookings+1, testutil.ToFloat64(bookings.WithLabelValues("pending")))

	beforeEvicted := testutil.ToFloat64(sessionsEvicted.WithLabelValues("cart"))
	AddSessionsEvicted("cart", 3)
	AddSessionsEvicted("cart", 0)
	assert.Equal(t, beforeEvicted+3, testutil.ToFloat64(sessionsEvicted.WithLabelValues("cart")))
}
