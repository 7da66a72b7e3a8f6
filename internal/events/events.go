package events

import (
	"sync"
	"time"
)

// Cart and booking event types.
const (
	CartItemAdded   = "cart.item_added"
	CartItemRemoved = "cart.item_removed"
	CartCleared     = "cart.cleared"
	CheckoutDone    = "cart.checked_out"
	SelectionDone   = "selection.completed"
	BookingStatus   = "booking.status_changed"
)

// Event is a lightweight domain event.
type Event struct {
	Type      string
	Session   string
	ItemID    string
	Status    string
	Amount    float64
	Hours     float64
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	onError     func(Event, error)
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// OnError sets a callback for handler failures.
func (b *EventBus) OnError(fn func(Event, error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = fn
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type synchronously.
// A nil bus drops events.
func (b *EventBus) Publish(event Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	onError := b.onError
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}
