package badger

import (
	"encoding/json"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/ripplemq/ripplemq/store"
	"github.com/ripplemq/ripplemq/topicmatcher"
)

// Key layout:
//   - message:{guid}       -> JSON-encoded store.StoredMessage
//   - retained:{topic}     -> guid

// MessageStore implements store.MessageStore on top of a shared BadgerDB
// handle. The retained topic -> guid index is additionally mirrored into an
// in-process topicmatcher.RetainedTrie so SearchMatching avoids a full
// key-prefix scan. retainedMu guards every access to retained: the trie
// itself is not internally synchronized (topicmatcher.RetainedTrie docs),
// matching the mutex store/memory.MessageStore already holds around the
// identical trie.
type MessageStore struct {
	db         *badger.DB
	retainedMu sync.RWMutex
	retained   *topicmatcher.RetainedTrie
}

var _ store.MessageStore = (*MessageStore)(nil)

func newMessageStore(db *badger.DB) *MessageStore {
	m := &MessageStore{db: db, retained: topicmatcher.NewRetainedTrie()}
	m.loadRetainedIndex()
	return m
}

func (m *MessageStore) loadRetainedIndex() {
	m.retainedMu.Lock()
	defer m.retainedMu.Unlock()

	_ = m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("retained:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			topic := string(item.KeyCopy(nil)[len("retained:"):])
			_ = item.Value(func(val []byte) error {
				m.retained.Set(topic, string(val))
				return nil
			})
		}
		return nil
	})
}

func (m *MessageStore) StorePublishForFuture(msg store.StoredMessage) (string, error) {
	msg.GUID = uuid.NewString()
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("store/badger: marshal message: %w", err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("message:"+msg.GUID), data)
	})
	if err != nil {
		return "", err
	}
	return msg.GUID, nil
}

func (m *MessageStore) Get(guid string) (store.StoredMessage, bool, error) {
	var msg store.StoredMessage
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("message:" + guid))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &msg)
		})
	})
	if err == badger.ErrKeyNotFound {
		return store.StoredMessage{}, false, nil
	}
	if err != nil {
		return store.StoredMessage{}, false, err
	}
	return msg, true, nil
}

func (m *MessageStore) StoreRetained(topic, guid string) error {
	err := m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("retained:"+topic), []byte(guid))
	})
	if err != nil {
		return err
	}
	m.retainedMu.Lock()
	m.retained.Set(topic, guid)
	m.retainedMu.Unlock()
	return nil
}

func (m *MessageStore) CleanRetained(topic string) error {
	err := m.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte("retained:" + topic))
	})
	if err != nil {
		return err
	}
	m.retainedMu.Lock()
	m.retained.Clear(topic)
	m.retainedMu.Unlock()
	return nil
}

func (m *MessageStore) SearchMatching(filter string) ([]store.StoredMessage, error) {
	m.retainedMu.RLock()
	guids := m.retained.Search(filter)
	m.retainedMu.RUnlock()
	out := make([]store.StoredMessage, 0, len(guids))
	for _, guid := range guids {
		msg, ok, err := m.Get(guid)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *MessageStore) DropMessagesInSession(clientID string) error {
	m.retainedMu.RLock()
	allRetained := m.retained.Search("#")
	m.retainedMu.RUnlock()

	retainedGUIDs := make(map[string]bool)
	for _, guid := range allRetained {
		retainedGUIDs[guid] = true
	}

	var toDelete [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("message:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			var msg store.StoredMessage
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			})
			if err != nil {
				return err
			}
			if msg.ClientID == clientID && !retainedGUIDs[msg.GUID] {
				toDelete = append(toDelete, key)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return m.db.Update(func(txn *badger.Txn) error {
		for _, key := range toDelete {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}
