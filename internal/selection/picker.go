package selection

import (
	"skibook/internal/slots"
)

// Picker tracks which cells of an availability grid the user has toggled on.
type Picker struct {
	grid     []slots.AvailableSlot
	byKey    map[string]int
	selected map[string]bool
}

// NewPicker creates a picker over grid.
func NewPicker(grid []slots.AvailableSlot) *Picker {
	byKey := make(map[string]int, len(grid))
	for i, s := range grid {
		byKey[s.Key()] = i
	}
	return &Picker{
		grid:     grid,
		byKey:    byKey,
		selected: make(map[string]bool),
	}
}

// Toggle flips the selection of the slot at (date, daySlotID) and reports whether it is
// now selected. Booked or unknown slots cannot be selected.
func (p *Picker) Toggle(date string, daySlotID int) bool {
	key := slots.Key(date, daySlotID)
	i, ok := p.byKey[key]
	if !ok || !p.grid[i].IsAvailable {
		return false
	}
	if p.selected[key] {
		delete(p.selected, key)
		return false
	}
	p.selected[key] = true
	return true
}

// IsSelected reports whether the slot is selected.
func (p *Picker) IsSelected(date string, daySlotID int) bool {
	return p.selected[slots.Key(date, daySlotID)]
}

// PickerTotals are the running totals of a picker.
type PickerTotals struct {
	TotalHours float64 `json:"totalHours"`
	TotalPrice float64 `json:"totalPrice"`
	ItemCount  int     `json:"itemCount"`
}

// Totals sums the selected slots.
func (p *Picker) Totals() PickerTotals {
	hours, price := slots.Totals(p.Selected())
	return PickerTotals{TotalHours: hours, TotalPrice: price, ItemCount: len(p.selected)}
}

// Selected returns the chosen slots in grid order.
func (p *Picker) Selected() []slots.SelectedSlot {
	var out []slots.SelectedSlot
	for _, s := range p.grid {
		if p.selected[s.Key()] {
			out = append(out, s.Selected())
		}
	}
	return out
}

// Confirm returns the chosen slots and clears the picker.
func (p *Picker) Confirm() []slots.SelectedSlot {
	out := p.Selected()
	p.selected = make(map[string]bool)
	return out
}
