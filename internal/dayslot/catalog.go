// Package dayslot defines the catalog of named day periods an instructor can be booked for.
package dayslot

import (
	"fmt"
	"sort"
	"sync/atomic"
)

// Well-known ids of the built-in catalog.
const (
	FullDay   = 1
	Morning   = 2
	Lunch     = 3
	Afternoon = 4
	Evening   = 5
)

// Type is a named recurring period of a day.
type Type struct {
	ID           int     `json:"id" yaml:"id"`
	Name         string  `json:"name" yaml:"name"`
	DefaultStart string  `json:"defaultStart" yaml:"default_start"` // "09:00:00"
	DefaultEnd   string  `json:"defaultEnd" yaml:"default_end"`     // "12:00:00"
	Hours        float64 `json:"hours" yaml:"hours"`
	Bookable     bool    `json:"bookable" yaml:"bookable"`
}

// Label is the result of a catalog lookup. Known is false when the id is
// not in the catalog, in which case Name holds a synthesized placeholder.
type Label struct {
	ID    int
	Name  string
	Known bool
}

// String returns the display name, placeholder included.
func (l Label) String() string {
	return l.Name
}

// Catalog is an immutable id-indexed set of day-slot types.
type Catalog struct {
	types []Type
	byID  map[int]Type
}

// New builds a catalog from types. Later duplicates of an id win.
func New(types []Type) *Catalog {
	byID := make(map[int]Type, len(types))
	for _, t := range types {
		byID[t.ID] = t
	}
	ordered := make([]Type, 0, len(byID))
	for _, t := range byID {
		ordered = append(ordered, t)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	return &Catalog{types: ordered, byID: byID}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return New([]Type{
		{ID: FullDay, Name: "Full Day", DefaultStart: "09:00:00", DefaultEnd: "17:00:00", Hours: 8},
		{ID: Morning, Name: "Morning", DefaultStart: "09:00:00", DefaultEnd: "12:00:00", Hours: 3, Bookable: true},
		{ID: Lunch, Name: "Lunch", DefaultStart: "12:00:00", DefaultEnd: "14:00:00", Hours: 2, Bookable: true},
		{ID: Afternoon, Name: "Afternoon", DefaultStart: "14:00:00", DefaultEnd: "17:00:00", Hours: 3, Bookable: true},
		{ID: Evening, Name: "Evening", DefaultStart: "17:00:00", DefaultEnd: "20:00:00", Hours: 3, Bookable: true},
	})
}

// Lookup never fails: unknown ids yield a "Day {id}" placeholder.
func (c *Catalog) Lookup(id int) Label {
	if t, ok := c.byID[id]; ok {
		return Label{ID: id, Name: t.Name, Known: true}
	}
	return Label{ID: id, Name: fmt.Sprintf("Day %d", id)}
}

// Type returns the type with the given id.
func (c *Catalog) Type(id int) (Type, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// Types returns all types ordered by id.
func (c *Catalog) Types() []Type {
	out := make([]Type, len(c.types))
	copy(out, c.types)
	return out
}

// Bookable returns the types offered for selection, ordered by id.
func (c *Catalog) Bookable() []Type {
	var out []Type
	for _, t := range c.types {
		if t.Bookable {
			out = append(out, t)
		}
	}
	return out
}

// Len returns the number of types.
func (c *Catalog) Len() int {
	return len(c.types)
}

// Registry holds the current catalog and allows it to be swapped while in use.
type Registry struct {
	current atomic.Pointer[Catalog]
}

// NewRegistry creates a registry serving c.
func NewRegistry(c *Catalog) *Registry {
	r := &Registry{}
	r.Set(c)
	return r
}

// Current returns the catalog in effect.
func (r *Registry) Current() *Catalog {
	return r.current.Load()
}

// Set replaces the catalog. A nil catalog is ignored.
func (r *Registry) Set(c *Catalog) {
	if c == nil {
		return
	}
	r.current.Store(c)
}
