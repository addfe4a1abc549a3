package interview

import (
	"sync"

	"github.com/google/uuid"
)

type entry struct {
	session *Session
	busy    sync.Mutex
}

// Registry keeps one Session per connection. Sessions are never shared: a
// caller must Acquire a session and release it when its turn is done.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	opts     Options
}

// NewRegistry creates an empty registry whose sessions use opts
func NewRegistry(opts Options) *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		opts:     opts,
	}
}

// Create starts a new session with a random id
func (r *Registry) Create() *Session {
	id := uuid.New().String()
	session := NewSession(id, r.opts)

	r.mu.Lock()
	r.sessions[id] = &entry{session: session}
	r.mu.Unlock()

	return session
}

// Acquire hands out the session for exclusive use. The returned release func
// must be called once the caller is done. A session already held by another
// caller yields ErrSessionBusy.
func (r *Registry) Acquire(id string) (*Session, func(), error) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, nil, ErrSessionNotFound
	}

	if !e.busy.TryLock() {
		return nil, nil, ErrSessionBusy
	}
	return e.session, e.busy.Unlock, nil
}

// Delete ends a session. It reports whether the session existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
