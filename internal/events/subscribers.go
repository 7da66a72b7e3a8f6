package events

import (
	"github.com/rs/zerolog"

	"skibook/internal/metrics"
)

// SubscribeMetrics counts cart and selection events.
func SubscribeMetrics(bus *EventBus) {
	count := func(e Event) error {
		metrics.IncCartEvent(e.Type)
		return nil
	}
	bus.Subscribe(CartItemAdded, func(e Event) error {
		metrics.AddCartValue(e.Amount)
		return count(e)
	})
	bus.Subscribe(CartItemRemoved, count)
	bus.Subscribe(CartCleared, count)
	bus.Subscribe(SelectionDone, count)
	bus.Subscribe(CheckoutDone, count)
	bus.Subscribe(BookingStatus, func(e Event) error {
		metrics.IncBooking(e.Status)
		return nil
	})
}

// SubscribeLogging writes every cart event to the logger at debug level.
func SubscribeLogging(bus *EventBus, logger *zerolog.Logger) {
	log := func(e Event) error {
		logger.Debug().
			Str("event", e.Type).
			Str("session", e.Session).
			Str("item_id", e.ItemID).
			Str("status", e.Status).
			Float64("amount", e.Amount).
			Msg("domain event")
		return nil
	}
	for _, t := range []string{CartItemAdded, CartItemRemoved, CartCleared, CheckoutDone, SelectionDone, BookingStatus} {
		bus.Subscribe(t, log)
	}
	bus.OnError(func(e Event, err error) {
		logger.Error().Err(err).Str("event", e.Type).Msg("event handler failed")
	})
}
