package dayslot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"
)

// ErrReloadRefused wraps a Guard veto.
var ErrReloadRefused = errors.New("catalog reload refused")

// Change describes the difference between the catalog in effect and a reloaded one.
type Change struct {
	Catalog *Catalog
	// Added holds ids that became bookable.
	Added []int
	// Removed holds ids that stopped being bookable, including dropped ones.
	Removed []int
	// Dropped holds ids missing from the new catalog altogether.
	Dropped []int
}

// Empty reports whether the reload changes no ids.
func (c Change) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Dropped) == 0
}

// Diff compares two catalogs. A nil prev is treated as empty.
func Diff(prev, next *Catalog) Change {
	ch := Change{Catalog: next}
	if prev == nil {
		prev = New(nil)
	}
	for _, t := range next.Types() {
		old, ok := prev.Type(t.ID)
		if t.Bookable && (!ok || !old.Bookable) {
			ch.Added = append(ch.Added, t.ID)
		}
	}
	for _, t := range prev.Types() {
		cur, ok := next.Type(t.ID)
		if !ok {
			ch.Dropped = append(ch.Dropped, t.ID)
		}
		if t.Bookable && (!ok || !cur.Bookable) {
			ch.Removed = append(ch.Removed, t.ID)
		}
	}
	return ch
}

// Watcher polls a catalog file and swaps it into a Registry when it changes.
type Watcher struct {
	path     string
	interval time.Duration
	reg      *Registry
	lastMod  time.Time

	// Guard may veto a change before it reaches the registry.
	Guard func(Change) error
	// OnChange is called after a change has been applied.
	OnChange func(Change)
	// OnError receives load failures and Guard vetoes from Run.
	OnError func(error)
}

// NewWatcher watches path for reg. The file's current modification time is taken
// as already loaded.
func NewWatcher(path string, reg *Registry, interval time.Duration) *Watcher {
	if path == "" {
		path = "configs/day_slots.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	w := &Watcher{path: path, interval: interval, reg: reg}
	if info, err := os.Stat(path); err == nil {
		w.lastMod = info.ModTime()
	}
	return w
}

// Reload loads the file if it was modified since the last attempt. It reports
// whether the registry changed. A broken or vetoed file is not retried until it
// is modified again.
func (w *Watcher) Reload() (Change, bool, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return Change{}, false, fmt.Errorf("stat catalog: %w", err)
	}
	if !info.ModTime().After(w.lastMod) {
		return Change{}, false, nil
	}
	w.lastMod = info.ModTime()

	cat, err := LoadFile(w.path)
	if err != nil {
		return Change{}, false, err
	}
	ch := Diff(w.reg.Current(), cat)
	if w.Guard != nil {
		if err := w.Guard(ch); err != nil {
			return ch, false, fmt.Errorf("%w: %v", ErrReloadRefused, err)
		}
	}
	w.reg.Set(cat)
	if w.OnChange != nil {
		w.OnChange(ch)
	}
	return ch, true, nil
}

// Run calls Reload on every tick until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := w.Reload(); err != nil && w.OnError != nil {
				w.OnError(err)
			}
		}
	}
}

// DropsAny returns the first dropped id contained in ids.
func (c Change) DropsAny(ids []int) (int, bool) {
	for _, id := range c.Dropped {
		if slices.Contains(ids, id) {
			return id, true
		}
	}
	return 0, false
}
