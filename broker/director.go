package broker

import (
	"log/slog"

	"github.com/ripplemq/ripplemq/auth"
	"github.com/ripplemq/ripplemq/interceptor"
	"github.com/ripplemq/ripplemq/packets"
	"github.com/ripplemq/ripplemq/session"
	"github.com/ripplemq/ripplemq/store"
	"github.com/ripplemq/ripplemq/topicmatcher"
)

// Director is the top-level dispatch (C7): it owns every other component
// and routes a decoded packet plus its channel to the matching handler.
// This is the split of io.moquette.server.MessageHandler (per-channel read
// loop, owned by the transport) from ProtocolProcessor (the type switch
// implemented here as Dispatch).
type Director struct {
	Registry  *Registry
	Sessions  *session.Registry
	Matcher   *topicmatcher.Matcher
	Messages  store.MessageStore
	Wills     store.WillStore
	Publisher *Publisher
	Bus       *interceptor.Bus

	Authenticator auth.Authenticator
	Authorizer    auth.Authorizer

	AllowAnonymous        bool
	AllowZeroByteClientID bool

	Logger *slog.Logger

	subInCourse *casMap[struct{}]
}

// Config bundles a Director's collaborators and policy flags.
type Config struct {
	Matcher               *topicmatcher.Matcher
	Messages              store.MessageStore
	Wills                 store.WillStore
	Authenticator         auth.Authenticator
	Authorizer            auth.Authorizer
	AllowAnonymous        bool
	AllowZeroByteClientID bool
	Logger                *slog.Logger
}

// NewDirector wires a Director from cfg, constructing the registry,
// session registry, and publisher it owns.
func NewDirector(cfg Config) *Director {
	registry := NewRegistry()
	sessions := session.NewRegistry()

	authz := cfg.Authorizer
	if authz == nil {
		authz = auth.AllowAll{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Director{
		Registry:              registry,
		Sessions:              sessions,
		Matcher:               cfg.Matcher,
		Messages:              cfg.Messages,
		Wills:                 cfg.Wills,
		Publisher:             NewPublisher(registry, sessions),
		Bus:                   interceptor.New(),
		Authenticator:         cfg.Authenticator,
		Authorizer:            authz,
		AllowAnonymous:        cfg.AllowAnonymous,
		AllowZeroByteClientID: cfg.AllowZeroByteClientID,
		Logger:                logger,
		subInCourse:           newCASMap[struct{}](),
	}
}

// Dispatch is the protocol-agnostic type switch driving every inbound
// packet to its handler. An unknown packet type is a protocol violation:
// the transport's read loop is expected to close the channel on a
// non-nil error.
func (d *Director) Dispatch(desc *ConnectionDescriptor, pkt packets.ControlPacket) error {
	switch p := pkt.(type) {
	case *packets.Publish:
		return d.handlePublish(desc, p)
	case *packets.PubAck:
		return d.handlePubAck(desc, p)
	case *packets.PubRec:
		return d.handlePubRec(desc, p)
	case *packets.PubRel:
		return d.handlePubRel(desc, p)
	case *packets.PubComp:
		return d.handlePubComp(desc, p)
	case *packets.Subscribe:
		return d.handleSubscribe(desc, p)
	case *packets.Unsubscribe:
		return d.handleUnsubscribe(desc, p)
	case *packets.PingReq:
		return desc.Channel.WritePacket(&packets.PingResp{FixedHeader: packets.FixedHeader{PacketType: packets.PingRespType}})
	case *packets.Disconnect:
		return d.HandleDisconnect(desc)
	case *packets.Connect:
		return ErrProtocolViolation // CONNECT is only valid once, handled before Dispatch
	default:
		return ErrUnknownPacket
	}
}
