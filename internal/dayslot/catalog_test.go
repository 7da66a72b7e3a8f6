package dayslot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	c := Default()

	tests := []struct {
		id    int
		name  string
		known bool
	}{
		{FullDay, "Full Day", true},
		{Morning, "Morning", true},
		{Lunch, "Lunch", true},
		{Afternoon, "Afternoon", true},
		{Evening, "Evening", true},
		{9, "Day 9", false},
		{0, "Day 0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := c.Lookup(tt.id)
			assert.Equal(t, tt.id, l.ID)
			assert.Equal(t, tt.name, l.String())
			assert.Equal(t, tt.known, l.Known)
		})
	}
}

func TestBookableExcludesFullDay(t *testing.T) {
	got := Default().Bookable()
	require.Len(t, got, 4)

	ids := make([]int, 0, len(got))
	for _, typ := range got {
		ids = append(ids, typ.ID)
	}
	assert.Equal(t, []int{Morning, Lunch, Afternoon, Evening}, ids)
}

func TestNewOrdersByID(t *testing.T) {
	c := New([]Type{
		{ID: 4, Name: "Afternoon"},
		{ID: 2, Name: "Morning"},
		{ID: 3, Name: "Lunch"},
	})

	types := c.Types()
	require.Len(t, types, 3)
	assert.Equal(t, 2, types[0].ID)
	assert.Equal(t, 3, types[1].ID)
	assert.Equal(t, 4, types[2].ID)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(Default())
	assert.Equal(t, 5, r.Current().Len())

	r.Set(nil)
	assert.Equal(t, 5, r.Current().Len(), "nil catalog must be ignored")

	r.Set(New([]Type{{ID: 2, Name: "Morning", Hours: 3}}))
	assert.Equal(t, 1, r.Current().Len())
}

const validCatalog = `
day_slots:
  - id: 2
    name: Morning
    default_start: "09:00:00"
    default_end: "12:00:00"
    hours: 3
    bookable: true
  - id: 3
    name: Lunch
    default_start: "12:00:00"
    default_end: "14:00:00"
    hours: 2
    bookable: true
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "day_slots.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	c, err := LoadFile(writeFile(t, validCatalog))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	lunch, ok := c.Type(Lunch)
	require.True(t, ok)
	assert.Equal(t, 2.0, lunch.Hours)
	assert.True(t, lunch.Bookable)
}

func TestLoadFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "empty",
			content: "day_slots: []",
			wantErr: "no day slots defined",
		},
		{
			name: "duplicate id",
			content: `
day_slots:
  - {id: 2, name: Morning, default_start: "09:00:00", default_end: "12:00:00", hours: 3}
  - {id: 2, name: Lunch, default_start: "12:00:00", default_end: "14:00:00", hours: 2}
`,
			wantErr: "duplicate id 2",
		},
		{
			name: "bad time",
			content: `
day_slots:
  - {id: 2, name: Morning, default_start: "9am", default_end: "12:00:00", hours: 3}
`,
			wantErr: "expected HH:MM:SS",
		},
		{
			name: "end before start",
			content: `
day_slots:
  - {id: 2, name: Morning, default_start: "12:00:00", default_end: "09:00:00", hours: 3}
`,
			wantErr: "default_end must be after default_start",
		},
		{
			name: "zero hours",
			content: `
day_slots:
  - {id: 2, name: Morning, default_start: "09:00:00", default_end: "12:00:00", hours: 0}
`,
			wantErr: "hours must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeFile(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDiff(t *testing.T) {
	next := New([]Type{
		{ID: FullDay, Name: "Full Day", Hours: 8, Bookable: true},
		{ID: Morning, Name: "Morning", Hours: 3, Bookable: true},
		{ID: Lunch, Name: "Lunch", Hours: 2, Bookable: false},
		{ID: 6, Name: "Night", Hours: 2, Bookable: true},
	})

	ch := Diff(Default(), next)
	assert.Equal(t, []int{FullDay, 6}, ch.Added)
	assert.Equal(t, []int{Lunch, Afternoon, Evening}, ch.Removed)
	assert.Equal(t, []int{Afternoon, Evening}, ch.Dropped)
	assert.False(t, ch.Empty())

	id, ok := ch.DropsAny([]int{Morning, Evening})
	assert.True(t, ok)
	assert.Equal(t, Evening, id)
	_, ok = ch.DropsAny([]int{Morning})
	assert.False(t, ok)

	assert.True(t, Diff(Default(), Default()).Empty())
	assert.Equal(t, []int{Morning, Lunch, Afternoon, Evening}, Diff(nil, Default()).Added)
}

// touch rewrites path and pushes its mtime forward so the watcher sees a change
// regardless of filesystem timestamp resolution.
func touch(t *testing.T, path, content string, step int) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	mod := time.Now().Add(time.Duration(step) * time.Minute)
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestWatcherReload(t *testing.T) {
	path := writeFile(t, validCatalog)
	reg := NewRegistry(Default())
	w := NewWatcher(path, reg, time.Hour)

	var applied []Change
	w.OnChange = func(c Change) { applied = append(applied, c) }

	_, changed, err := w.Reload()
	require.NoError(t, err)
	assert.False(t, changed, "unchanged file is not reloaded")
	assert.Equal(t, 5, reg.Current().Len())

	touch(t, path, validCatalog, 1)
	ch, changed, err := w.Reload()
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, 2, reg.Current().Len())
	assert.Equal(t, []int{FullDay, Afternoon, Evening}, ch.Dropped)
	assert.Equal(t, []int{Afternoon, Evening}, ch.Removed)
	require.Len(t, applied, 1)

	touch(t, path, "day_slots: [", 2)
	_, changed, err = w.Reload()
	assert.Error(t, err)
	assert.False(t, changed)
	assert.Equal(t, 2, reg.Current().Len(), "broken file keeps the current catalog")

	_, changed, err = w.Reload()
	require.NoError(t, err)
	assert.False(t, changed, "broken file is not retried until modified")
}

func TestWatcherGuard(t *testing.T) {
	path := writeFile(t, validCatalog)
	reg := NewRegistry(Default())
	w := NewWatcher(path, reg, time.Hour)

	referenced := []int{Evening}
	w.Guard = func(c Change) error {
		if id, ok := c.DropsAny(referenced); ok {
			return fmt.Errorf("day slot %d is still referenced", id)
		}
		return nil
	}

	touch(t, path, validCatalog, 1)
	_, changed, err := w.Reload()
	require.ErrorIs(t, err, ErrReloadRefused)
	assert.Contains(t, err.Error(), "day slot 5 is still referenced")
	assert.False(t, changed)
	assert.Equal(t, 5, reg.Current().Len())

	referenced = nil
	touch(t, path, validCatalog, 2)
	_, changed, err = w.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestWatcherRun(t *testing.T) {
	path := writeFile(t, validCatalog)
	reg := NewRegistry(Default())
	w := NewWatcher(path, reg, 10*time.Millisecond)

	done := make(chan Change, 1)
	w.OnChange = func(c Change) { done <- c }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	touch(t, path, validCatalog, 1)
	select {
	case c := <-done:
		assert.Equal(t, 2, c.Catalog.Len())
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not pick up the change")
	}
}
