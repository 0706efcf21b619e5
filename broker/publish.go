package broker

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ripplemq/ripplemq/packets"
	"github.com/ripplemq/ripplemq/session"
	"github.com/ripplemq/ripplemq/store"
	"github.com/ripplemq/ripplemq/topicmatcher"
)

// Publisher fans a stored message out to matched subscribers (C6),
// replays a reconnecting session's stored messages, and replays retained
// messages on SUBSCRIBE.
type Publisher struct {
	registry *Registry
	sessions *session.Registry
}

// NewPublisher wires a Publisher to the connection registry and session
// registry it needs to find a recipient's live channel and packet-ID
// allocator.
func NewPublisher(registry *Registry, sessions *session.Registry) *Publisher {
	return &Publisher{registry: registry, sessions: sessions}
}

// Publish2Subscribers groups subs by clientID (keeping the maximum
// requested QoS per client), then delivers msg to each recipient at
// effective QoS = min(msg.QoS, subscriber.requestedQoS), fanning out
// concurrently via errgroup.
func (p *Publisher) Publish2Subscribers(msg store.StoredMessage, subs []topicmatcher.Subscription) error {
	byClient := make(map[string]byte, len(subs))
	for _, s := range subs {
		if cur, ok := byClient[s.ClientID]; !ok || s.QoS > cur {
			byClient[s.ClientID] = s.QoS
		}
	}

	g, _ := errgroup.WithContext(context.Background())
	for clientID, subQoS := range byClient {
		clientID, subQoS := clientID, subQoS
		g.Go(func() error {
			return p.deliverOne(clientID, msg, subQoS, false)
		})
	}
	return g.Wait()
}

func effectiveQoS(publisherQoS, subscriberQoS byte) byte {
	if publisherQoS < subscriberQoS {
		return publisherQoS
	}
	return subscriberQoS
}

// deliverOne delivers msg to clientID at effective QoS. retain controls the
// wire RETAIN flag on the outgoing PUBLISH: per MQTT-3.3.1-9 it is set only
// when this delivery is a retained-message replay on a fresh SUBSCRIBE, and
// cleared for ordinary fan-out even if msg.Retained records that the
// publisher originally sent it with RETAIN=1.
func (p *Publisher) deliverOne(clientID string, msg store.StoredMessage, subQoS byte, retain bool) error {
	qos := effectiveQoS(msg.QoS, subQoS)

	out := msg
	out.QoS = qos

	if qos == 0 {
		return p.write(clientID, out, retain)
	}

	sess, ok := p.sessions.SessionForClient(clientID)
	if !ok {
		return nil // no session at all: nothing to enqueue onto
	}
	out.PacketID = sess.NextPacketID()
	sess.TrackInflight(out)

	if err := p.write(clientID, out, retain); err != nil {
		sess.Enqueue(out)
	}
	return nil
}

// write attempts an immediate delivery to clientID's live channel. It
// enqueues on the recipient's session (resumed on reconnection or a
// channel-writable event) when there is no active connection, or the
// channel reports non-writable. A successful write marks the recipient's
// own session dirty so its auto-flush ticker actually flushes the
// buffered bytes: the recipient's read loop only marks its session dirty
// for writes it issues itself (replies to its own packets), never for
// cross-client fan-out landing on its channel from another goroutine.
func (p *Publisher) write(clientID string, msg store.StoredMessage, retain bool) error {
	desc, ok := p.registry.Get(clientID)
	if !ok || !desc.Channel.Writable() {
		sess, sok := p.sessions.SessionForClient(clientID)
		if sok {
			sess.Enqueue(msg)
		}
		return nil
	}
	if err := desc.Channel.WritePacket(toPublish(msg, retain)); err != nil {
		return err
	}
	if desc.Session != nil {
		desc.Session.MarkWritten()
	}
	return nil
}

func toPublish(msg store.StoredMessage, retain bool) *packets.Publish {
	return &packets.Publish{
		FixedHeader: packets.FixedHeader{PacketType: packets.PublishType, QoS: msg.QoS, Retain: retain},
		TopicName:   msg.Topic,
		ID:          msg.PacketID,
		Payload:     msg.Payload,
	}
}

// PublishStored replays a reconnecting (cleanSession=false) session's
// stored QoS1/QoS2 messages in the order given (Session.StoredMessages
// keeps enqueue order for the queue only, not for inflight). A successfully
// written or re-enqueued entry stays in inflight awaiting its ack. This is
// the owning client receiving its own backlog, not a retained-message
// replay, so RETAIN stays cleared.
func (p *Publisher) PublishStored(clientID string, stored []store.StoredMessage) error {
	for _, msg := range stored {
		if err := p.write(clientID, msg, false); err != nil {
			return err
		}
	}
	return nil
}

// DrainSession flushes desc's queued messages directly to its own channel.
// The transport's read loop calls this after every successfully dispatched
// packet: a round trip that just succeeded is the closest signal a blocking
// bufio/TCP writer can give that the channel is currently writable, playing
// the role of the channel-writable event in §4.6/§5.
func (d *Director) DrainSession(desc *ConnectionDescriptor) {
	if desc.Session == nil {
		return
	}
	desc.Session.Drain(func(msg store.StoredMessage) bool {
		if err := desc.Channel.WritePacket(toPublish(msg, false)); err != nil {
			return false
		}
		desc.Session.MarkWritten()
		return true
	})
}

// PublishRetained walks the retained index for filter matches and
// delivers each at min(stored.QoS, subQoS); QoS>=1 deliveries also go
// through the inflight path. This is the one delivery path where RETAIN
// stays set on the wire, per MQTT-3.3.1-9.
func (p *Publisher) PublishRetained(clientID string, retained []store.StoredMessage, subQoS byte) error {
	for _, msg := range retained {
		if err := p.deliverOne(clientID, msg, subQoS, true); err != nil {
			return err
		}
	}
	return nil
}
