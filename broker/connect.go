package broker

import (
	"math"
	"time"

	"github.com/ripplemq/ripplemq/interceptor"
	"github.com/ripplemq/ripplemq/packets"
	"github.com/ripplemq/ripplemq/store"
)

func toWillMessage(pkt *packets.Connect) store.WillMessage {
	return store.WillMessage{
		Topic:    pkt.WillTopic,
		Payload:  pkt.WillMessage,
		Retained: pkt.WillRetain,
		QoS:      pkt.WillQoS,
	}
}

// ConnectResult carries the outcome of HandleConnect back to the
// transport, which owns sending the CONNACK and (on failure) closing the
// channel.
type ConnectResult struct {
	ReturnCode     byte
	SessionPresent bool
	Descriptor     *ConnectionDescriptor
	KeepAlive      time.Duration
}

// HandleConnect runs the CAS-sequenced CONNECT state machine (§4.7):
// version/clientID validation, authentication, registry admission,
// session lookup-or-create, will registration, and stored-message
// replay, advancing the descriptor DISCONNECTED -> ... -> ESTABLISHED.
// Any failure returns a non-zero ReturnCode (or err) and the caller must
// close the channel without attempting further steps.
func (d *Director) HandleConnect(ch Channel, pkt *packets.Connect) (ConnectResult, error) {
	// 1. Protocol version.
	if pkt.ProtocolVersion != packets.V31 && pkt.ProtocolVersion != packets.V311 {
		return ConnectResult{ReturnCode: packets.ConnUnacceptableProtocol}, ErrProtocolViolation
	}

	// 2. ClientID.
	clientID := pkt.ClientID
	if clientID == "" {
		if !pkt.CleanSession || !d.AllowZeroByteClientID {
			return ConnectResult{ReturnCode: packets.ConnIdentifierRejected}, ErrProtocolViolation
		}
		clientID = GenerateClientID()
	}

	// 3. Authenticate.
	if pkt.UsernameFlag {
		if !pkt.PasswordFlag && !d.AllowAnonymous {
			return ConnectResult{ReturnCode: packets.ConnBadUsernameOrPassword}, ErrAuthenticationFailed
		}
		if d.Authenticator == nil || !d.Authenticator.CheckValid(clientID, pkt.Username, pkt.Password) {
			return ConnectResult{ReturnCode: packets.ConnBadUsernameOrPassword}, ErrAuthenticationFailed
		}
	} else if !d.AllowAnonymous {
		return ConnectResult{ReturnCode: packets.ConnNotAuthorized}, ErrAuthenticationFailed
	}

	// 4. Register descriptor. A clientID already holding a live descriptor
	// displaces it: Admit aborts the old channel and marks it reconnecting,
	// but does not seat the new desc. Per §4.4 and the original
	// ProtocolProcessor.processConnect's existing.abort()-then-return, this
	// CONNECT is abandoned outright; the client is expected to retry.
	desc := NewConnectionDescriptor(clientID, ch, pkt.CleanSession)
	desc.Username = pkt.Username
	if _, admitted := d.Registry.Admit(clientID, desc); !admitted {
		return ConnectResult{}, ErrConnectionDisplaced
	}

	// 5. Keep-alive: ceil(keepAlive * 1.5) seconds, left for the
	// transport to install as an idle timer calling HandleConnectionLost.
	keepAlive := time.Duration(math.Ceil(float64(pkt.KeepAlive)*1.5)) * time.Second

	// 6. DISCONNECTED -> SENDACK.
	if !desc.transition(Disconnected, SendAck) {
		d.Registry.RemoveIfCurrent(clientID, desc)
		return ConnectResult{ReturnCode: packets.ConnServerUnavailable}, ErrStateTransitionFailed
	}

	existingSession, hadSession := d.Sessions.SessionForClient(clientID)
	sessionPresent := !pkt.CleanSession && hadSession

	// 7. SENDACK -> SESSION_CREATED.
	if !desc.transition(SendAck, SessionCreated) {
		d.Registry.RemoveIfCurrent(clientID, desc)
		return ConnectResult{ReturnCode: packets.ConnServerUnavailable}, ErrStateTransitionFailed
	}

	sessionObj := existingSession
	if !hadSession {
		created, err := d.Sessions.CreateNewSession(clientID, pkt.CleanSession)
		if err != nil {
			// Lost a race to create the same session; use whichever won.
			created, _ = d.Sessions.SessionForClient(clientID)
		}
		sessionObj = created
	}
	if pkt.CleanSession {
		sessionObj.CleanSessionWipe()
	}
	desc.Session = sessionObj

	// 8. Will registration.
	if pkt.WillFlag {
		d.Wills.Put(clientID, toWillMessage(pkt))
	}

	// 9. SESSION_CREATED -> MESSAGES_REPUBLISHED.
	if !desc.transition(SessionCreated, MessagesRepublished) {
		d.Registry.RemoveIfCurrent(clientID, desc)
		return ConnectResult{ReturnCode: packets.ConnServerUnavailable}, ErrStateTransitionFailed
	}
	if !pkt.CleanSession {
		stored := sessionObj.StoredMessages()
		if err := d.Publisher.PublishStored(clientID, stored); err != nil {
			d.Registry.RemoveIfCurrent(clientID, desc)
			d.Bus.Emit(interceptor.Event{Kind: interceptor.ConnectionLost, ClientID: clientID})
			return ConnectResult{ReturnCode: packets.ConnServerUnavailable}, ErrStorageFailure
		}
		for _, msg := range stored {
			sessionObj.RemoveEnqueued(msg.GUID)
		}
	}
	sessionObj.StartAutoFlush(func() { _ = ch.Flush() })

	// 10. MESSAGES_REPUBLISHED -> ESTABLISHED.
	if !desc.transition(MessagesRepublished, Established) {
		d.Registry.RemoveIfCurrent(clientID, desc)
		return ConnectResult{ReturnCode: packets.ConnServerUnavailable}, ErrStateTransitionFailed
	}

	d.Bus.Emit(interceptor.Event{Kind: interceptor.ClientConnected, ClientID: clientID})

	return ConnectResult{
		ReturnCode:     packets.ConnAccepted,
		SessionPresent: sessionPresent,
		Descriptor:     desc,
		KeepAlive:      keepAlive,
	}, nil
}
