// Package badger adapts github.com/dgraph-io/badger/v4 to the
// store.MessageStore and store.WillStore contracts, the pluggable
// disk-backed key-value implementation allowed by the broker's scope
// ("disk-durable persistence beyond a pluggable key-value interface" is
// the only thing ruled out).
package badger

import (
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// Store is the composite BadgerDB-backed store.
type Store struct {
	db *badger.DB

	messages *MessageStore
	wills    *WillStore

	mu       sync.Mutex
	closed   bool
	gcStopCh chan struct{}
	gcDone   chan struct{}
}

// Config configures the on-disk database location.
type Config struct {
	Dir string
}

// New opens (or creates) a BadgerDB database at cfg.Dir and starts its
// periodic value-log GC.
func New(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = nil
	opts.SyncWrites = false // MQTT messages are transient and re-deliverable

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:       db,
		messages: newMessageStore(db),
		wills:    newWillStore(db),
		gcStopCh: make(chan struct{}),
		gcDone:   make(chan struct{}),
	}
	go s.runGC()
	return s, nil
}

// Messages returns the message store.
func (s *Store) Messages() *MessageStore { return s.messages }

// Wills returns the will store.
func (s *Store) Wills() *WillStore { return s.wills }

// Close stops the GC loop and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.gcStopCh)
	<-s.gcDone
	return s.db.Close()
}

func (s *Store) runGC() {
	defer close(s.gcDone)
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.gcStopCh:
			return
		case <-ticker.C:
		again:
			err := s.db.RunValueLogGC(0.5)
			if err == nil {
				goto again
			}
		}
	}
}
