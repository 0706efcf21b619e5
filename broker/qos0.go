package broker

import (
	"github.com/ripplemq/ripplemq/interceptor"
	"github.com/ripplemq/ripplemq/packets"
)

// handlePublish is the QoS-generic entry point Dispatch calls for every
// inbound PUBLISH; it fans out to the per-QoS handler (§4.5).
func (d *Director) handlePublish(desc *ConnectionDescriptor, p *packets.Publish) error {
	switch p.QoS {
	case 0:
		return d.handlePublishQoS0(desc, p)
	case 1:
		return d.handlePublishQoS1(desc, p)
	case 2:
		return d.handlePublishQoS2(desc, p)
	default:
		return ErrProtocolViolation
	}
}

// handlePublishQoS0 authorizes, publishes (subject to retain handling),
// and returns. A denied write is silently dropped, not an error: the
// spec treats authorization failure as a no-op rather than a protocol
// violation.
func (d *Director) handlePublishQoS0(desc *ConnectionDescriptor, p *packets.Publish) error {
	if !d.Authorizer.CanWrite(p.TopicName, desc.Username, desc.ClientID) {
		return nil
	}
	if err := d.Publish(desc.ClientID, p.TopicName, p.Payload, 0, p.Retain); err != nil {
		return err
	}
	d.Bus.Emit(interceptor.Event{Kind: interceptor.Published, ClientID: desc.ClientID, Topic: p.TopicName, QoS: 0})
	return nil
}
