package session

import (
	"sync"

	"github.com/ripplemq/ripplemq/store"
)

// Registry is the session store (C3): sessionForClient, createNewSession,
// nextPacketID, wipeSubscriptions, keyed by clientID. Admission uses a
// plain mutex rather than a CAS map: a session, once created, is the only
// mutable handle for its clientID, so creation races are resolved with a
// single lock rather than the registry's compare-and-set discipline (that
// discipline matters for the connection registry in broker/registry.go,
// where a stale pointer must never silently win).
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// SessionForClient returns the existing session for id, if any.
func (r *Registry) SessionForClient(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// CreateNewSession creates and stores a session for id. Fails if one
// already exists.
func (r *Registry) CreateNewSession(id string, cleanSession bool) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[id]; exists {
		return nil, store.ErrSessionExists
	}
	s := New(id, cleanSession)
	r.sessions[id] = s
	return s, nil
}

// NextPacketID delegates to the named session's own allocator.
func (r *Registry) NextPacketID(id string) (uint16, bool) {
	s, ok := r.SessionForClient(id)
	if !ok {
		return 0, false
	}
	return s.NextPacketID(), true
}

// WipeSubscriptions clears id's subscription set without touching
// inflight/secondPhase/enqueued state.
func (r *Registry) WipeSubscriptions(id string) {
	s, ok := r.SessionForClient(id)
	if !ok {
		return
	}
	for filter := range s.Subscriptions() {
		s.UnsubscribeFrom(filter)
	}
}

// Remove deletes id's session entirely, used when a clean session
// disconnects and its state must not survive the connection.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}
