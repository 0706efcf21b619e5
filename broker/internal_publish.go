package broker

import "github.com/ripplemq/ripplemq/store"

// Publish is the broker-internal publish entry point (the original's
// internalPublish): it goes through retained storage and fan-out but
// skips authorization. Used by will delivery and by Broker.Publish for
// an embedding application. clientID is the nominal publisher: the
// publishing client's own ID for client and will publishes, BrokerSelf for
// Broker.PublishAsSelf.
func (d *Director) Publish(clientID, topic string, payload []byte, qos byte, retained bool) error {
	if retained {
		if len(payload) == 0 {
			if err := d.Messages.CleanRetained(topic); err != nil {
				return err
			}
		} else {
			guid, err := d.Messages.StorePublishForFuture(store.StoredMessage{
				ClientID: clientID,
				Topic:    topic,
				Payload:  payload,
				QoS:      qos,
				Retained: true,
			})
			if err != nil {
				return err
			}
			if err := d.Messages.StoreRetained(topic, guid); err != nil {
				return err
			}
		}
	}

	subs := d.Matcher.Match(topic)
	if len(subs) == 0 {
		return nil
	}
	msg := store.StoredMessage{ClientID: clientID, Topic: topic, Payload: payload, QoS: qos, Retained: retained}
	return d.Publisher.Publish2Subscribers(msg, subs)
}
