package broker

import (
	"strconv"

	"github.com/ripplemq/ripplemq/interceptor"
	"github.com/ripplemq/ripplemq/packets"
	"github.com/ripplemq/ripplemq/store"
)

func keyForID(id uint16) string { return strconv.Itoa(int(id)) }

// handlePublishQoS2 is the first half of the QoS2 flow: authorize, store
// the message under a fresh guid, record packetID -> guid in the
// connection's receiving map, and reply PUBREC. Fan-out is deferred to
// the matching PUBREL (§4.5): a publisher that never sends PUBREL must
// never have its message delivered.
func (d *Director) handlePublishQoS2(desc *ConnectionDescriptor, p *packets.Publish) error {
	if !d.Authorizer.CanWrite(p.TopicName, desc.Username, desc.ClientID) {
		return nil
	}

	guid, err := d.Messages.StorePublishForFuture(store.StoredMessage{
		ClientID: desc.ClientID,
		Topic:    p.TopicName,
		Payload:  p.Payload,
		QoS:      2,
		Retained: p.Retain,
	})
	if err != nil {
		return err
	}
	desc.Receiving.replace(keyForID(p.ID), guid)

	rec := &packets.PubRec{}
	rec.FixedHeader = packets.FixedHeader{PacketType: packets.PubRecType}
	rec.ID = p.ID
	return desc.Channel.WritePacket(rec)
}

// handlePubRel completes a QoS2 publish this connection received: the
// stored message is retrieved by the guid recorded at PUBLISH time,
// retained handling is applied, the message is fanned out to matching
// subscribers, and PUBCOMP is sent. A PUBREL with no matching receiving
// entry means this packet ID was already completed and its entry removed
// (the client's retransmit after a lost PUBCOMP, a normal part of QoS2
// recovery per §8): re-send PUBCOMP rather than closing the channel.
func (d *Director) handlePubRel(desc *ConnectionDescriptor, p *packets.PubRel) error {
	guid, ok := desc.Receiving.remove(keyForID(p.ID))
	if !ok {
		comp := &packets.PubComp{}
		comp.FixedHeader = packets.FixedHeader{PacketType: packets.PubCompType}
		comp.ID = p.ID
		return desc.Channel.WritePacket(comp)
	}

	msg, found, err := d.Messages.Get(guid)
	if err != nil {
		return err
	}
	if found {
		if msg.Retained {
			if len(msg.Payload) == 0 {
				if err := d.Messages.CleanRetained(msg.Topic); err != nil {
					return err
				}
			} else if err := d.Messages.StoreRetained(msg.Topic, guid); err != nil {
				return err
			}
		}

		if subs := d.Matcher.Match(msg.Topic); len(subs) > 0 {
			if err := d.Publisher.Publish2Subscribers(msg, subs); err != nil {
				return err
			}
		}
		d.Bus.Emit(interceptor.Event{Kind: interceptor.Published, ClientID: desc.ClientID, Topic: msg.Topic, QoS: 2})
	}

	comp := &packets.PubComp{}
	comp.FixedHeader = packets.FixedHeader{PacketType: packets.PubCompType}
	comp.ID = p.ID
	return desc.Channel.WritePacket(comp)
}
