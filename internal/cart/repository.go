package cart

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository keeps cart state in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{states: make(map[string]State)}
}

// Load returns the state under key, or an empty state.
func (r *MemoryRepository) Load(_ context.Context, key string) (State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return State{Items: cloneItems(r.states[key].Items)}, nil
}

// Save replaces the state under key. An empty state removes the key.
func (r *MemoryRepository) Save(_ context.Context, key string, state State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(state.Items) == 0 {
		delete(r.states, key)
		return nil
	}
	r.states[key] = State{Items: cloneItems(state.Items)}
	return nil
}

// Evict drops the state under key.
func (r *MemoryRepository) Evict(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, key)
}

// Len returns the number of stored carts.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}

// evicter is implemented by repositories whose state lives only in this process.
type evicter interface {
	Evict(key string)
}

type openCart struct {
	cart     *Cart
	lastUsed time.Time
}

// Manager opens carts per client session, loading each from the repository once.
type Manager struct {
	repo   Repository
	prefix string
	now    func() time.Time

	mu    sync.Mutex
	carts map[string]*openCart
}

// NewManager creates a manager that stores carts under "<prefix>:<session>".
func NewManager(repo Repository, prefix string) *Manager {
	if prefix == "" {
		prefix = DefaultStorageKey
	}
	return &Manager{repo: repo, prefix: prefix, now: time.Now, carts: make(map[string]*openCart)}
}

// Key returns the storage key for a session.
func (m *Manager) Key(session string) string {
	return m.prefix + ":" + session
}

// Open returns the cart of session, loading it on first use. The repository is
// read outside the lock; when two requests race, the first stored cart wins.
func (m *Manager) Open(ctx context.Context, session string) (*Cart, error) {
	if c := m.cached(session); c != nil {
		return c, nil
	}

	loaded, err := Load(ctx, m.repo, m.Key(session))
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if oc, ok := m.carts[session]; ok {
		oc.lastUsed = m.now()
		return oc.cart, nil
	}
	m.carts[session] = &openCart{cart: loaded, lastUsed: m.now()}
	return loaded, nil
}

// Peek returns the cart of session without registering it. Unknown sessions
// yield an empty cart that nothing retains.
func (m *Manager) Peek(ctx context.Context, session string) (*Cart, error) {
	if session == "" {
		return New(m.repo, m.Key(session)), nil
	}
	if c := m.cached(session); c != nil {
		return c, nil
	}
	return Load(ctx, m.repo, m.Key(session))
}

func (m *Manager) cached(session string) *Cart {
	m.mu.Lock()
	defer m.mu.Unlock()
	if oc, ok := m.carts[session]; ok {
		oc.lastUsed = m.now()
		return oc.cart
	}
	return nil
}

// Cleanup forgets carts not opened for longer than timeout and returns how many
// were dropped. Repositories that keep state only in memory lose it too.
func (m *Manager) Cleanup(timeout time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev, _ := m.repo.(evicter)
	removed := 0
	for session, oc := range m.carts {
		if m.now().Sub(oc.lastUsed) <= timeout {
			continue
		}
		delete(m.carts, session)
		if ev != nil {
			ev.Evict(m.Key(session))
		}
		removed++
	}
	return removed
}

// Len returns the number of open carts.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.carts)
}
