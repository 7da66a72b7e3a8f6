// Package cart aggregates confirmed slot selections into priced cart items.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"skibook/internal/slots"
)

// DefaultStorageKey is the key prefix under which carts are persisted.
const DefaultStorageKey = "raven-cart-storage"

// ErrEmptySelection is returned when adding a candidate without slots.
var ErrEmptySelection = errors.New("cart item requires at least one selected slot")

// Candidate is an instructor booking about to be added to the cart.
type Candidate struct {
	InstructorID     string               `json:"instructorId"`
	InstructorName   string               `json:"instructorName"`
	InstructorAvatar string               `json:"instructorAvatar,omitempty"`
	Location         string               `json:"location,omitempty"`
	Discipline       string               `json:"discipline,omitempty"`
	PricePerHour     float64              `json:"pricePerHour"`
	SelectedSlots    []slots.SelectedSlot `json:"selectedSlots"`
}

// Item is one cart entry. TotalHours and TotalPrice always equal the sums over SelectedSlots.
type Item struct {
	ID               string               `json:"id"`
	InstructorID     string               `json:"instructorId"`
	InstructorName   string               `json:"instructorName"`
	InstructorAvatar string               `json:"instructorAvatar,omitempty"`
	Location         string               `json:"location,omitempty"`
	Discipline       string               `json:"discipline,omitempty"`
	SelectedSlots    []slots.SelectedSlot `json:"selectedSlots"`
	TotalHours       float64              `json:"totalHours"`
	TotalPrice       float64              `json:"totalPrice"`
	PricePerHour     float64              `json:"pricePerHour"`
	AddedAt          int64                `json:"addedAt"` // unix milliseconds
}

// State is the persisted form of a cart.
type State struct {
	Items []Item `json:"items"`
}

// Repository loads and saves cart state by key.
type Repository interface {
	Load(ctx context.Context, key string) (State, error)
	Save(ctx context.Context, key string, state State) error
}

// Cart holds the items of one client. All methods are safe for concurrent use.
type Cart struct {
	key   string
	repo  Repository
	now   func() time.Time
	newID func() string

	mu    sync.RWMutex
	items []Item
}

// New creates an empty cart persisted under key.
func New(repo Repository, key string) *Cart {
	return &Cart{
		key:   key,
		repo:  repo,
		now:   time.Now,
		newID: func() string { return "cart-" + uuid.NewString() },
	}
}

// Load restores a cart from repo.
func Load(ctx context.Context, repo Repository, key string) (*Cart, error) {
	state, err := repo.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load cart %s: %w", key, err)
	}
	c := New(repo, key)
	c.items = cloneItems(state.Items)
	return c, nil
}

// Key returns the storage key.
func (c *Cart) Key() string {
	return c.key
}

// Add creates an item from the candidate, persists the cart and returns the item.
func (c *Cart) Add(ctx context.Context, cand Candidate) (Item, error) {
	if len(cand.SelectedSlots) == 0 {
		return Item{}, ErrEmptySelection
	}

	hours, price := slots.Totals(cand.SelectedSlots)
	item := Item{
		ID:               c.newID(),
		InstructorID:     cand.InstructorID,
		InstructorName:   cand.InstructorName,
		InstructorAvatar: cand.InstructorAvatar,
		Location:         cand.Location,
		Discipline:       cand.Discipline,
		SelectedSlots:    append([]slots.SelectedSlot(nil), cand.SelectedSlots...),
		TotalHours:       hours,
		TotalPrice:       price,
		PricePerHour:     cand.PricePerHour,
		AddedAt:          c.now().UnixMilli(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]Item, 0, len(c.items)+1)
	next = append(next, c.items...)
	next = append(next, item)
	if err := c.commit(ctx, next); err != nil {
		return Item{}, err
	}
	return item, nil
}

// Remove deletes the item with id. Unknown ids are ignored and nothing is saved.
// It reports whether an item was removed.
func (c *Cart) Remove(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]Item, 0, len(c.items))
	for _, it := range c.items {
		if it.ID != id {
			next = append(next, it)
		}
	}
	if len(next) == len(c.items) {
		return false, nil
	}
	if err := c.commit(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// Clear removes every item.
func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commit(ctx, nil)
}

// commit saves next and swaps it in. Callers hold c.mu.
func (c *Cart) commit(ctx context.Context, next []Item) error {
	if err := c.repo.Save(ctx, c.key, State{Items: next}); err != nil {
		return fmt.Errorf("save cart %s: %w", c.key, err)
	}
	c.items = next
	return nil
}

// Total returns the sum of item prices.
func (c *Cart) Total() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total float64
	for _, it := range c.items {
		total += it.TotalPrice
	}
	return total
}

// TotalHours returns the sum of item hours.
func (c *Cart) TotalHours() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var hours float64
	for _, it := range c.items {
		hours += it.TotalHours
	}
	return hours
}

// ItemCount returns the number of items.
func (c *Cart) ItemCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Items returns a copy of the current items.
func (c *Cart) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneItems(c.items)
}

// Snapshot is a consistent view of the cart for rendering.
type Snapshot struct {
	Items      []Item  `json:"items"`
	ItemCount  int     `json:"itemCount"`
	TotalHours float64 `json:"totalHours"`
	TotalPrice float64 `json:"totalPrice"`
}

// Snapshot returns items and totals read under one lock.
func (c *Cart) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{Items: cloneItems(c.items), ItemCount: len(c.items)}
	if s.Items == nil {
		s.Items = []Item{}
	}
	for _, it := range c.items {
		s.TotalHours += it.TotalHours
		s.TotalPrice += it.TotalPrice
	}
	return s
}

func cloneItems(items []Item) []Item {
	if len(items) == 0 {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		it.SelectedSlots = append([]slots.SelectedSlot(nil), it.SelectedSlots...)
		out[i] = it
	}
	return out
}
