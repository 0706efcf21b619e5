// Package session implements the per-client persistent session object
// (C3): subscriptions, inflight/second-phase QoS tracking, the outbound
// enqueue queue, and packet identifier allocation.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ripplemq/ripplemq/store"
)

// maxEnqueued bounds the outbound queue for a disconnected or
// non-writable session; the oldest entry is dropped to admit a new one,
// mirroring the teacher's bounded offline queue.
const maxEnqueued = 1000

// autoFlushInterval is the default auto-flush period (§5 of the spec).
const autoFlushInterval = 500 * time.Millisecond

// Session is a client's persistent MQTT state. Touched by at most one
// connection goroutine at a time for its owning client; cross-client
// fan-out uses its own lock when enqueuing.
type Session struct {
	ClientID     string
	CleanSession bool

	mu            sync.Mutex
	subscriptions map[string]byte // topicFilter -> qos
	inflight      map[uint16]store.StoredMessage
	secondPhase   map[uint16]store.StoredMessage
	enqueued      []store.StoredMessage
	nextPacketID  uint32

	flushMu       sync.Mutex
	dirty         bool
	flusher       func()
	stopAutoFlush chan struct{}
}

// New returns a freshly created session for clientID.
func New(clientID string, cleanSession bool) *Session {
	return &Session{
		ClientID:      clientID,
		CleanSession:  cleanSession,
		subscriptions: make(map[string]byte),
		inflight:      make(map[uint16]store.StoredMessage),
		secondPhase:   make(map[uint16]store.StoredMessage),
	}
}

// Subscribe records filter at qos, overwriting any existing QoS.
func (s *Session) Subscribe(filter string, qos byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[filter] = qos
}

// UnsubscribeFrom removes filter.
func (s *Session) UnsubscribeFrom(filter string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, filter)
}

// Subscriptions returns a snapshot of the session's topic filters.
func (s *Session) Subscriptions() map[string]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]byte, len(s.subscriptions))
	for f, q := range s.subscriptions {
		out[f] = q
	}
	return out
}

// NextPacketID returns a strictly increasing (modulo 65535) identifier,
// skipping 0 and any id currently present in inflight or secondPhase.
func (s *Session) NextPacketID() uint16 {
	for {
		id := uint16(atomic.AddUint32(&s.nextPacketID, 1) & 0xFFFF)
		if id == 0 {
			continue
		}
		s.mu.Lock()
		_, inInflight := s.inflight[id]
		_, inSecondPhase := s.secondPhase[id]
		s.mu.Unlock()
		if !inInflight && !inSecondPhase {
			return id
		}
	}
}

// TrackInflight records msg as awaiting PUBACK/PUBREC under msg.PacketID.
func (s *Session) TrackInflight(msg store.StoredMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight[msg.PacketID] = msg
}

// GetInflightMessage returns the inflight entry for pid, if any.
func (s *Session) GetInflightMessage(pid uint16) (store.StoredMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.inflight[pid]
	return msg, ok
}

// InFlightAcknowledged clears pid from inflight (PUBACK, or PUBCOMP's
// analog for QoS1). Returns false if no such entry existed.
func (s *Session) InFlightAcknowledged(pid uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[pid]; !ok {
		return false
	}
	delete(s.inflight, pid)
	return true
}

// MoveInFlightToSecondPhaseAckWaiting moves pid from inflight to
// secondPhase on PUBREC, ahead of PUBREL/PUBCOMP.
func (s *Session) MoveInFlightToSecondPhaseAckWaiting(pid uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.inflight[pid]
	if !ok {
		return false
	}
	delete(s.inflight, pid)
	s.secondPhase[pid] = msg
	return true
}

// SecondPhaseAcknowledged clears pid from secondPhase on PUBCOMP.
func (s *Session) SecondPhaseAcknowledged(pid uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.secondPhase[pid]; !ok {
		return false
	}
	delete(s.secondPhase, pid)
	return true
}

// Enqueue appends msg to the outbound queue, dropping the oldest entry if
// the bound is exceeded.
func (s *Session) Enqueue(msg store.StoredMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.enqueued) >= maxEnqueued {
		s.enqueued = s.enqueued[1:]
	}
	s.enqueued = append(s.enqueued, msg)
}

// RemoveEnqueued removes the first queued entry with the given guid, used
// once a republished message is confirmed dequeued.
func (s *Session) RemoveEnqueued(guid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, msg := range s.enqueued {
		if msg.GUID == guid {
			s.enqueued = append(s.enqueued[:i], s.enqueued[i+1:]...)
			return
		}
	}
}

// Dequeue pops the oldest queued message, or reports none.
func (s *Session) Dequeue() (store.StoredMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.enqueued) == 0 {
		return store.StoredMessage{}, false
	}
	msg := s.enqueued[0]
	s.enqueued = s.enqueued[1:]
	return msg, true
}

// StoredMessages returns the enqueued queue in enqueue order, followed by
// the current inflight set, for replay on reconnect. The inflight entries
// come from a map, so their order is not defined.
func (s *Session) StoredMessages() []store.StoredMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.StoredMessage, 0, len(s.enqueued)+len(s.inflight))
	out = append(out, s.enqueued...)
	for _, msg := range s.inflight {
		out = append(out, msg)
	}
	return out
}

// CleanSessionWipe discards subscriptions, inflight, secondPhase and the
// enqueued queue. Used both for a CleanSession connect and on graceful
// DISCONNECT when the session was marked clean.
func (s *Session) CleanSessionWipe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions = make(map[string]byte)
	s.inflight = make(map[uint16]store.StoredMessage)
	s.secondPhase = make(map[uint16]store.StoredMessage)
	s.enqueued = nil
}

// Drain writes every queued message through write until write returns
// false (channel no longer writable) or the queue empties. Called by
// broker.Director.DrainSession after each successfully dispatched packet,
// since a blocking TCP writer has no separate writable signal beyond "the
// last write round trip succeeded."
func (s *Session) Drain(write func(store.StoredMessage) bool) {
	for {
		msg, ok := s.Dequeue()
		if !ok {
			return
		}
		if !write(msg) {
			s.mu.Lock()
			s.enqueued = append([]store.StoredMessage{msg}, s.enqueued...)
			s.mu.Unlock()
			return
		}
	}
}

// StartAutoFlush launches the 500ms auto-flush handler: while writes have
// occurred without an explicit Flush call, flush is invoked periodically.
// Grounded on the original's AutoFlushHandler/setupAutoFlusher.
func (s *Session) StartAutoFlush(flush func()) {
	s.flushMu.Lock()
	if s.stopAutoFlush != nil {
		s.flushMu.Unlock()
		return
	}
	s.flusher = flush
	s.stopAutoFlush = make(chan struct{})
	stop := s.stopAutoFlush
	s.flushMu.Unlock()

	go func() {
		ticker := time.NewTicker(autoFlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.flushMu.Lock()
				dirty := s.dirty
				s.dirty = false
				s.flushMu.Unlock()
				if dirty {
					flush()
				}
			}
		}
	}()
}

// MarkWritten records that a write occurred since the last flush, for the
// auto-flush handler to notice.
func (s *Session) MarkWritten() {
	s.flushMu.Lock()
	s.dirty = true
	s.flushMu.Unlock()
}

// StopAutoFlush stops the auto-flush goroutine, if running.
func (s *Session) StopAutoFlush() {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	if s.stopAutoFlush != nil {
		close(s.stopAutoFlush)
		s.stopAutoFlush = nil
	}
}
