package selection

import (
	"sync"
	"time"
)

// Session is the calendar selection state of one client.
type Session struct {
	ID string

	mu        sync.Mutex
	updatedAt time.Time
	now       func() time.Time
	selector  *Selector
}

func newSession(id string, mode Mode, now func() time.Time) *Session {
	return &Session{
		ID:        id,
		updatedAt: now(),
		now:       now,
		selector:  NewSelector(mode),
	}
}

// Do runs fn with exclusive access to the session selector.
func (s *Session) Do(fn func(sel *Selector)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.selector)
	s.updatedAt = s.now()
}

// UpdatedAt returns the time of the last Do.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// IsExpired reports whether the session has been idle for longer than timeout.
func (s *Session) IsExpired(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Sub(s.updatedAt) > timeout
}

// Store keeps selection sessions in memory.
type Store struct {
	sessions    map[string]*Session
	mu          sync.RWMutex
	defaultMode Mode
	now         func() time.Time
}

// NewStore creates a store whose new sessions start in defaultMode.
func NewStore(defaultMode Mode) *Store {
	if !defaultMode.Valid() {
		defaultMode = ModeRange
	}
	return &Store{
		sessions:    make(map[string]*Session),
		defaultMode: defaultMode,
		now:         time.Now,
	}
}

// Get returns the session or nil.
func (st *Store) Get(id string) *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[id]
}

// GetOrCreate returns an existing session or creates a new one.
func (st *Store) GetOrCreate(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[id]; ok {
		return s
	}
	s := newSession(id, st.defaultMode, st.now)
	st.sessions[id] = s
	return s
}

// Peek runs fn on the selector of an existing session, or on a fresh selector
// that is not stored when there is none. Read-only callers use it so unknown
// clients leave nothing behind.
func (st *Store) Peek(id string, fn func(sel *Selector)) {
	if id != "" {
		if s := st.Get(id); s != nil {
			s.Do(fn)
			return
		}
	}
	fn(NewSelector(st.defaultMode))
}

// Cleanup removes sessions idle for longer than timeout and returns how many were removed.
func (st *Store) Cleanup(timeout time.Duration) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		if s.IsExpired(timeout) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
