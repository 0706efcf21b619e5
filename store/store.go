// Package store defines the persistence contracts for in-flight, retained
// and will messages (C2 of the protocol engine). Concrete implementations
// live in store/memory (the default) and store/badger (the optional
// disk-backed key-value implementation).
package store

import "errors"

// ErrNotFound is returned when a lookup by guid or topic misses.
var ErrNotFound = errors.New("store: not found")

// ErrSessionExists is returned by session.Registry.CreateNewSession when a
// session with the requested clientID is already present.
var ErrSessionExists = errors.New("store: session already exists")

// StoredMessage is a persisted publication: its payload, its QoS/retain
// metadata, and (per recipient) an assigned packet identifier.
type StoredMessage struct {
	GUID     string
	ClientID string // publisher
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
	PacketID uint16
}

// WillMessage is held per clientID from CONNECT (if the will flag is set)
// until graceful DISCONNECT or publication on connection-lost.
type WillMessage struct {
	Topic    string
	Payload  []byte
	Retained bool
	QoS      byte
}

// MessageStore stores in-flight/retained publications, keyed by guid, and
// the topic -> guid retained index.
type MessageStore interface {
	// StorePublishForFuture assigns a fresh guid and persists msg, returning
	// the guid. Fails only on underlying storage error.
	StorePublishForFuture(msg StoredMessage) (string, error)

	// Get returns the stored message for guid.
	Get(guid string) (StoredMessage, bool, error)

	// StoreRetained sets topic's retained pointer to guid.
	StoreRetained(topic, guid string) error

	// CleanRetained removes topic's retained pointer.
	CleanRetained(topic string) error

	// SearchMatching returns every retained message whose topic satisfies
	// filter under MQTT wildcard rules.
	SearchMatching(filter string) ([]StoredMessage, error)

	// DropMessagesInSession erases every stored message published by
	// clientID that is not referenced by the retained index.
	DropMessagesInSession(clientID string) error
}

// WillStore holds the process-wide (but broker-instance-owned) will
// testament mapping.
type WillStore interface {
	Put(clientID string, will WillMessage)
	Get(clientID string) (WillMessage, bool)
	Remove(clientID string)
}
