package broker

import (
	"github.com/ripplemq/ripplemq/interceptor"
)

// HandleDisconnect runs the graceful DISCONNECT sequence (§4.7bis):
// ESTABLISHED -> SUBSCRIPTIONS_REMOVED -> MESSAGES_DROPPED ->
// INTERCEPTORS_NOTIFIED -> DISCONNECTED. A clean session has its
// subscriptions wiped and its messages dropped in the corresponding
// phases. The will entry is removed unconditionally: graceful disconnect
// must not publish the will. The descriptor is removed from the registry
// only if it is still the current one.
func (d *Director) HandleDisconnect(desc *ConnectionDescriptor) error {
	if !desc.transition(Established, SubscriptionsRemoved) {
		return ErrStateTransitionFailed
	}
	if desc.CleanSession && desc.Session != nil {
		for filter := range desc.Session.Subscriptions() {
			d.Matcher.Remove(filter, desc.ClientID)
		}
		d.Sessions.WipeSubscriptions(desc.ClientID)
	}

	if !desc.transition(SubscriptionsRemoved, MessagesDropped) {
		return ErrStateTransitionFailed
	}
	if desc.CleanSession {
		_ = d.Messages.DropMessagesInSession(desc.ClientID)
		if desc.Session != nil {
			desc.Session.CleanSessionWipe()
		}
		d.Sessions.Remove(desc.ClientID)
	}
	if desc.Session != nil {
		desc.Session.StopAutoFlush()
	}

	if !desc.transition(MessagesDropped, InterceptorsNotified) {
		return ErrStateTransitionFailed
	}
	d.Wills.Remove(desc.ClientID)
	d.Bus.Emit(interceptor.Event{Kind: interceptor.ClientDisconnected, ClientID: desc.ClientID})

	if !desc.transition(InterceptorsNotified, Disconnected) {
		return ErrStateTransitionFailed
	}
	d.Registry.RemoveIfCurrent(desc.ClientID, desc)
	_ = desc.Channel.Close()
	return nil
}

// HandleConnectionLost runs the ungraceful-loss sequence (§4.7ter): the
// descriptor is removed from the registry (only if still current). If
// this clientID was marked reconnecting (a newer CONNECT forced the
// loss), the marker is cleared and the will is NOT published — the newer
// connection's own CONNECT already observed the old session. Otherwise,
// any stored will is published through the normal fan-out path and then
// erased.
func (d *Director) HandleConnectionLost(desc *ConnectionDescriptor) error {
	d.Registry.RemoveIfCurrent(desc.ClientID, desc)
	if desc.Session != nil {
		desc.Session.StopAutoFlush()
	}

	d.Bus.Emit(interceptor.Event{Kind: interceptor.ConnectionLost, ClientID: desc.ClientID})

	if d.Registry.WasReconnecting(desc.ClientID) {
		return nil
	}

	will, ok := d.Wills.Get(desc.ClientID)
	if !ok {
		return nil
	}
	d.Wills.Remove(desc.ClientID)

	return d.Publish(desc.ClientID, will.Topic, will.Payload, will.QoS, will.Retained)
}
