package memory

import (
	"sync"

	"github.com/ripplemq/ripplemq/store"
)

// WillStore keeps will testaments in a mutex-guarded map, owned by a single
// Broker instance rather than process-global state.
type WillStore struct {
	mu    sync.RWMutex
	wills map[string]store.WillMessage
}

var _ store.WillStore = (*WillStore)(nil)

// NewWillStore returns an empty will store.
func NewWillStore() *WillStore {
	return &WillStore{wills: make(map[string]store.WillMessage)}
}

func (w *WillStore) Put(clientID string, will store.WillMessage) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.wills[clientID] = will
}

func (w *WillStore) Get(clientID string) (store.WillMessage, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	will, ok := w.wills[clientID]
	return will, ok
}

func (w *WillStore) Remove(clientID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.wills, clientID)
}
