package broker

import "errors"

// Sentinel errors for the categories in the error-handling design: every
// handler either completes its state transitions or returns one of these,
// which the director/transport interprets as "close the channel".
var (
	// ErrProtocolViolation covers an invalid protocol version, an invalid
	// topic filter in UNSUBSCRIBE, and a duplicate mid-handshake CONNECT.
	ErrProtocolViolation = errors.New("broker: protocol violation")

	// ErrAuthenticationFailed is returned when CONNECT credentials are
	// rejected; the caller still sends the matching CONNACK return code
	// before closing.
	ErrAuthenticationFailed = errors.New("broker: authentication failed")

	// ErrStateTransitionFailed means a CAS on the connection descriptor's
	// state lost a race; the handler must abort without side effects.
	ErrStateTransitionFailed = errors.New("broker: state transition failed")

	// ErrUnknownPacket is returned for a packet type the director has no
	// dispatch case for.
	ErrUnknownPacket = errors.New("broker: unknown packet type")

	// ErrStorageFailure is returned by HandleConnect when replaying a
	// resumed session's stored messages fails (the underlying error is not
	// wrapped); HandleConnect emits a connection-lost event alongside it
	// and the caller closes the channel.
	ErrStorageFailure = errors.New("broker: storage failure")

	// ErrConnectionDisplaced is returned by HandleConnect when clientID
	// already had a live descriptor: the old channel has been aborted and
	// the new CONNECT is abandoned without a CONNACK, per §4.4's
	// abandon-and-retry semantics. The transport must close the new
	// channel without writing any packet.
	ErrConnectionDisplaced = errors.New("broker: connection displaced, CONNECT abandoned")
)
