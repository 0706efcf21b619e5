package broker

import (
	"github.com/ripplemq/ripplemq/interceptor"
	"github.com/ripplemq/ripplemq/packets"
)

// handlePublishQoS1 authorizes, publishes, and replies with PUBACK. A
// denied write still gets no PUBACK: the publisher sees the channel go
// silent rather than an explicit rejection, matching the spec's "silent
// drop on authorization failure" rule for QoS0/1/2 alike.
func (d *Director) handlePublishQoS1(desc *ConnectionDescriptor, p *packets.Publish) error {
	if !d.Authorizer.CanWrite(p.TopicName, desc.Username, desc.ClientID) {
		return nil
	}
	if err := d.Publish(desc.ClientID, p.TopicName, p.Payload, 1, p.Retain); err != nil {
		return err
	}
	d.Bus.Emit(interceptor.Event{Kind: interceptor.Published, ClientID: desc.ClientID, Topic: p.TopicName, QoS: 1})

	ack := &packets.PubAck{}
	ack.FixedHeader = packets.FixedHeader{PacketType: packets.PubAckType}
	ack.ID = p.ID
	return desc.Channel.WritePacket(ack)
}
