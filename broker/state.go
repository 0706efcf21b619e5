package broker

import "sync/atomic"

// State is a connection descriptor's position in the CONNECT/DISCONNECT
// lifecycle. Every handler method is a sequence of CAS transitions that
// aborts (and closes the channel) on the first failure, rather than
// spreading state across loosely-coordinated method calls.
type State int32

const (
	Disconnected State = iota
	SendAck
	SessionCreated
	MessagesRepublished
	Established
	SubscriptionsRemoved
	MessagesDropped
	InterceptorsNotified
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case SendAck:
		return "SENDACK"
	case SessionCreated:
		return "SESSION_CREATED"
	case MessagesRepublished:
		return "MESSAGES_REPUBLISHED"
	case Established:
		return "ESTABLISHED"
	case SubscriptionsRemoved:
		return "SUBSCRIPTIONS_REMOVED"
	case MessagesDropped:
		return "MESSAGES_DROPPED"
	case InterceptorsNotified:
		return "INTERCEPTORS_NOTIFIED"
	default:
		return "UNKNOWN"
	}
}

// stateHolder is an atomically CAS-advanced state field, embedded by
// ConnectionDescriptor.
type stateHolder struct {
	state atomic.Int32
}

// transition performs a compare-and-set from `from` to `to`. A failed CAS
// means some other goroutine already moved the state; the caller must
// abort without further side effects.
func (h *stateHolder) transition(from, to State) bool {
	return h.state.CompareAndSwap(int32(from), int32(to))
}

// current returns the present state, for diagnostics and tests.
func (h *stateHolder) current() State {
	return State(h.state.Load())
}

func newStateHolder(initial State) *stateHolder {
	h := &stateHolder{}
	h.state.Store(int32(initial))
	return h
}
