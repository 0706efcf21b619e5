package broker

import (
	"github.com/ripplemq/ripplemq/packets"
	"github.com/ripplemq/ripplemq/session"
)

// BrokerSelf is the synthetic publisher clientID used for internal
// publishes that have no originating client session
// (Broker.PublishAsSelf from an embedding application).
const BrokerSelf = "BROKER_SELF"

// Channel is the connection handle the transport hands to the director:
// a write sink plus a writability hint and a close primitive. The byte
// codec and network I/O themselves are external collaborators (see the
// transport package); this interface is the narrow seam the director
// needs.
type Channel interface {
	WritePacket(pkt packets.ControlPacket) error
	Writable() bool
	Flush() error
	Close() error
	RemoteAddr() string
}

// ConnectionDescriptor is the registry's admission unit: one per live
// TCP connection, holding the CAS-advanced lifecycle state and the
// channel it owns.
type ConnectionDescriptor struct {
	*stateHolder

	ClientID     string
	Username     string
	Channel      Channel
	CleanSession bool
	Session      *session.Session

	// Receiving tracks QoS2 publishes received from this connection that
	// are awaiting PUBREL: packetID (as a string key) -> stored guid.
	Receiving *casMap[string]
}

// NewConnectionDescriptor returns a descriptor in the DISCONNECTED state.
func NewConnectionDescriptor(clientID string, ch Channel, cleanSession bool) *ConnectionDescriptor {
	return &ConnectionDescriptor{
		stateHolder:  newStateHolder(Disconnected),
		ClientID:     clientID,
		Channel:      ch,
		CleanSession: cleanSession,
		Receiving:    newCASMap[string](),
	}
}

// Abort closes the descriptor's channel; used by the registry when a
// newer CONNECT displaces an existing descriptor for the same clientID.
func (d *ConnectionDescriptor) Abort() {
	_ = d.Channel.Close()
}
