package broker

import (
	"log/slog"

	"github.com/ripplemq/ripplemq/auth"
	"github.com/ripplemq/ripplemq/store"
	"github.com/ripplemq/ripplemq/topicmatcher"
)

// Broker is the top-level handle an embedding application or the
// transport package holds: it wraps a Director with the construction
// convenience of picking a storage backend and policy. Broker.Publish is
// the Go-exported equivalent of the original's internalPublish (§4):
// usable by an embedding caller with no client session of its own.
type Broker struct {
	*Director
}

// Options configures a new Broker.
type Options struct {
	Matcher               *topicmatcher.Matcher
	Messages              store.MessageStore
	Wills                 store.WillStore
	Authenticator         auth.Authenticator
	Authorizer            auth.Authorizer
	AllowAnonymous        bool
	AllowZeroByteClientID bool
	Logger                *slog.Logger
}

// New wires a Broker from opts, defaulting an empty matcher if none is
// supplied.
func New(opts Options) *Broker {
	matcher := opts.Matcher
	if matcher == nil {
		matcher = topicmatcher.New()
	}
	return &Broker{
		Director: NewDirector(Config{
			Matcher:               matcher,
			Messages:              opts.Messages,
			Wills:                 opts.Wills,
			Authenticator:         opts.Authenticator,
			Authorizer:            opts.Authorizer,
			AllowAnonymous:        opts.AllowAnonymous,
			AllowZeroByteClientID: opts.AllowZeroByteClientID,
			Logger:                opts.Logger,
		}),
	}
}

// PublishAsSelf publishes topic/payload as BrokerSelf, for an embedding
// application that has no client session of its own.
func (b *Broker) PublishAsSelf(topic string, payload []byte, qos byte, retained bool) error {
	return b.Publish(BrokerSelf, topic, payload, qos, retained)
}
