package badger

import (
	"encoding/json"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/ripplemq/ripplemq/store"
)

// WillStore implements store.WillStore, keyed "will:{clientID}".
type WillStore struct {
	db *badger.DB
}

var _ store.WillStore = (*WillStore)(nil)

func newWillStore(db *badger.DB) *WillStore {
	return &WillStore{db: db}
}

func (w *WillStore) Put(clientID string, will store.WillMessage) {
	data, err := json.Marshal(will)
	if err != nil {
		return
	}
	_ = w.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("will:"+clientID), data)
	})
}

func (w *WillStore) Get(clientID string) (store.WillMessage, bool) {
	var will store.WillMessage
	err := w.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("will:" + clientID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &will)
		})
	})
	if err != nil {
		return store.WillMessage{}, false
	}
	return will, true
}

func (w *WillStore) Remove(clientID string) {
	_ = w.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte("will:" + clientID))
	})
}
