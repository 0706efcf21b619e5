package broker

import (
	"github.com/ripplemq/ripplemq/interceptor"
	"github.com/ripplemq/ripplemq/packets"
)

// handlePubAck clears a QoS1 delivery's inflight entry (§4.9). An ack for
// an id not currently inflight (duplicate, or one the session already
// forgot) is ignored rather than treated as a protocol violation.
func (d *Director) handlePubAck(desc *ConnectionDescriptor, p *packets.PubAck) error {
	if desc.Session == nil {
		return nil
	}
	if desc.Session.InFlightAcknowledged(p.ID) {
		d.Bus.Emit(interceptor.Event{Kind: interceptor.MessageAcknowledged, ClientID: desc.ClientID, PacketID: p.ID})
	}
	return nil
}

// handlePubRec moves a QoS2 delivery from inflight to second-phase
// waiting and replies PUBREL, continuing the flow from this broker's
// side as the original publisher of the outbound message.
func (d *Director) handlePubRec(desc *ConnectionDescriptor, p *packets.PubRec) error {
	if desc.Session == nil {
		return nil
	}
	if !desc.Session.MoveInFlightToSecondPhaseAckWaiting(p.ID) {
		return nil
	}
	rel := &packets.PubRel{}
	rel.FixedHeader = packets.FixedHeader{PacketType: packets.PubRelType, QoS: 1}
	rel.ID = p.ID
	return desc.Channel.WritePacket(rel)
}

// handlePubComp clears a QoS2 delivery's second-phase entry, completing
// the flow from this broker's side.
func (d *Director) handlePubComp(desc *ConnectionDescriptor, p *packets.PubComp) error {
	if desc.Session == nil {
		return nil
	}
	if desc.Session.SecondPhaseAcknowledged(p.ID) {
		d.Bus.Emit(interceptor.Event{Kind: interceptor.MessageAcknowledged, ClientID: desc.ClientID, PacketID: p.ID})
	}
	return nil
}
