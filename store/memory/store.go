// Package memory implements store.MessageStore and store.WillStore entirely
// in process memory; the default backend with no durability guarantees.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ripplemq/ripplemq/store"
	"github.com/ripplemq/ripplemq/topicmatcher"
)

// MessageStore keeps stored messages in a map and maintains a retained
// trie (see topicmatcher.RetainedTrie) so SearchMatching is bounded by the
// matched-node count rather than a global scan of every retained topic.
type MessageStore struct {
	mu       sync.RWMutex
	messages map[string]store.StoredMessage // guid -> message
	retained *topicmatcher.RetainedTrie
}

var _ store.MessageStore = (*MessageStore)(nil)

// New returns an empty in-memory message store.
func New() *MessageStore {
	return &MessageStore{
		messages: make(map[string]store.StoredMessage),
		retained: topicmatcher.NewRetainedTrie(),
	}
}

func (s *MessageStore) StorePublishForFuture(msg store.StoredMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg.GUID = uuid.NewString()
	s.messages[msg.GUID] = msg
	return msg.GUID, nil
}

func (s *MessageStore) Get(guid string) (store.StoredMessage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[guid]
	return msg, ok, nil
}

func (s *MessageStore) StoreRetained(topic, guid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.retained.Set(topic, guid)
	return nil
}

func (s *MessageStore) CleanRetained(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.retained.Clear(topic)
	return nil
}

func (s *MessageStore) SearchMatching(filter string) ([]store.StoredMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	guids := s.retained.Search(filter)
	out := make([]store.StoredMessage, 0, len(guids))
	for _, guid := range guids {
		if msg, ok := s.messages[guid]; ok {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (s *MessageStore) DropMessagesInSession(clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	retainedGUIDs := make(map[string]bool)
	for _, guid := range s.retained.Search("#") {
		retainedGUIDs[guid] = true
	}

	for guid, msg := range s.messages {
		if msg.ClientID == clientID && !retainedGUIDs[guid] {
			delete(s.messages, guid)
		}
	}
	return nil
}
