package presence

import "sync"

// Registry is the authoritative map from identity to live session. It is the
// single shared mutable structure of the presence core; every operation is
// safe for unbounded concurrent callers. Reads hand out value copies so a
// caller never observes a session mid-mutation.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add inserts the session iff no live session exists for its identity.
// Returns false (and changes nothing) when one already exists. This is the
// enforcement point for the one-session-per-identity invariant.
func (r *Registry) Add(s Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.Identity]; ok {
		return false
	}
	cp := s
	r.sessions[s.Identity] = &cp
	return true
}

// Remove deletes and returns the session for identity, if present.
func (r *Registry) Remove(identity string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[identity]
	if !ok {
		return Session{}, false
	}
	delete(r.sessions, identity)
	return *s, true
}

// Get returns a copy of the session for identity, if present.
func (r *Registry) Get(identity string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[identity]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// ListByRoom returns a point-in-time copy of every session whose current
// room equals room. Callers iterating the result are unaffected by
// concurrent mutation.
func (r *Registry) ListByRoom(room string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Session
	for _, s := range r.sessions {
		if s.CurrentRoom == room {
			out = append(out, *s)
		}
	}
	return out
}

// UpdateRoom atomically sets the current room of the session for identity.
// Returns ErrNotFound when the identity has no live session, which callers
// treat as a benign race with disconnect.
func (r *Registry) UpdateRoom(identity, room string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[identity]
	if !ok {
		return ErrNotFound
	}
	s.CurrentRoom = room
	return nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
