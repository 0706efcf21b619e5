package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ripplemq/ripplemq/store"
)

func TestNextPacketIDSkipsZeroAndInflight(t *testing.T) {
	s := New("c1", false)

	id := s.NextPacketID()
	require.NotZero(t, id)

	s.TrackInflight(store.StoredMessage{PacketID: id + 1})
	next := s.NextPacketID()
	require.NotEqual(t, id+1, next)
}

func TestInflightAndSecondPhaseAreDisjoint(t *testing.T) {
	s := New("c1", false)
	pid := uint16(5)

	s.TrackInflight(store.StoredMessage{PacketID: pid})
	_, ok := s.GetInflightMessage(pid)
	require.True(t, ok)

	require.True(t, s.MoveInFlightToSecondPhaseAckWaiting(pid))
	_, ok = s.GetInflightMessage(pid)
	require.False(t, ok)

	require.True(t, s.SecondPhaseAcknowledged(pid))
	require.False(t, s.SecondPhaseAcknowledged(pid))
}

func TestCleanSessionWipeClearsEverything(t *testing.T) {
	s := New("c1", true)
	s.Subscribe("a/b", 1)
	s.TrackInflight(store.StoredMessage{PacketID: 1})
	s.Enqueue(store.StoredMessage{GUID: "g1"})

	s.CleanSessionWipe()

	require.Empty(t, s.Subscriptions())
	_, ok := s.GetInflightMessage(1)
	require.False(t, ok)
	_, ok = s.Dequeue()
	require.False(t, ok)
}

func TestRegistryCreateNewSessionFailsIfExists(t *testing.T) {
	r := NewRegistry()
	_, err := r.CreateNewSession("c1", false)
	require.NoError(t, err)

	_, err = r.CreateNewSession("c1", false)
	require.ErrorIs(t, err, store.ErrSessionExists)
}

func TestDrainStopsOnUnwritable(t *testing.T) {
	s := New("c1", false)
	s.Enqueue(store.StoredMessage{GUID: "g1"})
	s.Enqueue(store.StoredMessage{GUID: "g2"})

	var delivered []string
	s.Drain(func(msg store.StoredMessage) bool {
		if msg.GUID != "g1" {
			return false // refuse after the first
		}
		delivered = append(delivered, msg.GUID)
		return true
	})

	require.Equal(t, []string{"g1"}, delivered)
	msg, ok := s.Dequeue()
	require.True(t, ok)
	require.Equal(t, "g2", msg.GUID)
}
