package broker

import (
	"github.com/ripplemq/ripplemq/interceptor"
	"github.com/ripplemq/ripplemq/packets"
	"github.com/ripplemq/ripplemq/topicmatcher"
)

// handleSubscribe validates and authorizes each requested filter,
// records the ones that succeed in the session and the matcher, replies
// SUBACK with one return code per filter in request order, then replays
// matching retained messages (§4.8). A retransmitted SUBSCRIBE (same
// clientID, same packet id, still in flight) is dropped rather than
// processed twice.
func (d *Director) handleSubscribe(desc *ConnectionDescriptor, p *packets.Subscribe) error {
	guardKey := desc.ClientID + ":" + keyForID(p.ID)
	if _, inserted := d.subInCourse.putIfAbsent(guardKey, struct{}{}); !inserted {
		return nil
	}
	defer d.subInCourse.remove(guardKey)

	codes := make([]byte, len(p.Topics))
	accepted := make([]packets.Topic, 0, len(p.Topics))

	for i, t := range p.Topics {
		if err := topicmatcher.Validate(t.Name); err != nil {
			codes[i] = packets.SubFailure
			continue
		}
		if !d.Authorizer.CanRead(t.Name, desc.Username, desc.ClientID) {
			codes[i] = packets.SubFailure
			continue
		}

		if desc.Session != nil {
			desc.Session.Subscribe(t.Name, t.QoS)
		}
		d.Matcher.Add(t.Name, desc.ClientID, t.QoS)
		codes[i] = t.QoS
		accepted = append(accepted, t)

		d.Bus.Emit(interceptor.Event{Kind: interceptor.Subscribed, ClientID: desc.ClientID, Topic: t.Name, QoS: t.QoS})
	}

	ack := &packets.SubAck{ID: p.ID, ReturnCodes: codes}
	ack.FixedHeader = packets.FixedHeader{PacketType: packets.SubAckType}
	if err := desc.Channel.WritePacket(ack); err != nil {
		return err
	}

	for _, t := range accepted {
		retained, err := d.Messages.SearchMatching(t.Name)
		if err != nil {
			return err
		}
		if len(retained) == 0 {
			continue
		}
		if err := d.Publisher.PublishRetained(desc.ClientID, retained, t.QoS); err != nil {
			return err
		}
	}
	return nil
}

// handleUnsubscribe removes each filter from the matcher and the
// session, then replies UNSUBACK. An invalid topic filter is a protocol
// violation (§4.8): the transport must close the channel without
// sending UNSUBACK.
func (d *Director) handleUnsubscribe(desc *ConnectionDescriptor, p *packets.Unsubscribe) error {
	for _, filter := range p.Topics {
		if err := topicmatcher.Validate(filter); err != nil {
			return ErrProtocolViolation
		}
	}

	for _, filter := range p.Topics {
		d.Matcher.Remove(filter, desc.ClientID)
		if desc.Session != nil {
			desc.Session.UnsubscribeFrom(filter)
		}
		d.Bus.Emit(interceptor.Event{Kind: interceptor.Unsubscribed, ClientID: desc.ClientID, Topic: filter})
	}

	ack := &packets.UnsubAck{ID: p.ID}
	ack.FixedHeader = packets.FixedHeader{PacketType: packets.UnsubAckType}
	return desc.Channel.WritePacket(ack)
}
