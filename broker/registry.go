package broker

// Registry is the connection registry (C4): clientID -> live
// ConnectionDescriptor, enforcing a single active connection per
// clientID. Every admission/removal is compare-and-set; there is no
// get-then-put path.
type Registry struct {
	descriptors  *casMap[*ConnectionDescriptor]
	reconnecting *casMap[struct{}]
}

// NewRegistry returns an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		descriptors:  newCASMap[*ConnectionDescriptor](),
		reconnecting: newCASMap[struct{}](),
	}
}

// Admit is the single admission primitive. If no descriptor exists for
// clientID, it is inserted and Admit reports ok=true. If one already
// exists, Admit marks clientID as reconnecting, aborts (closes) the
// existing descriptor's channel, and reports ok=false: the new
// CONNECT is abandoned, relying on the old channel's connection-lost
// handler to see the reconnecting marker and skip will publication.
func (r *Registry) Admit(clientID string, d *ConnectionDescriptor) (existing *ConnectionDescriptor, ok bool) {
	stored, inserted := r.descriptors.putIfAbsent(clientID, d)
	if inserted {
		return nil, true
	}
	r.reconnecting.replace(clientID, struct{}{})
	stored.Abort()
	return stored, false
}

// Get returns the current descriptor for clientID, if any.
func (r *Registry) Get(clientID string) (*ConnectionDescriptor, bool) {
	return r.descriptors.get(clientID)
}

// RemoveIfCurrent removes clientID's entry only if it is still exactly d
// (pointer identity), never a synthetic stand-in.
func (r *Registry) RemoveIfCurrent(clientID string, d *ConnectionDescriptor) bool {
	return r.descriptors.removeIfCurrent(clientID, d, func(a, b *ConnectionDescriptor) bool { return a == b })
}

// WasReconnecting reports and clears whether clientID's loss was caused
// by a newer CONNECT displacing the old descriptor. Used by
// connection-lost handling to suppress will publication for a displaced
// connection.
func (r *Registry) WasReconnecting(clientID string) bool {
	_, ok := r.reconnecting.remove(clientID)
	return ok
}
