package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ripplemq/ripplemq/store"
)

func TestCleanRetainedRemovesUntilRestored(t *testing.T) {
	s := New()

	guid, err := s.StorePublishForFuture(store.StoredMessage{ClientID: "pub", Topic: "a/b", Payload: []byte("x"), QoS: 1})
	require.NoError(t, err)
	require.NoError(t, s.StoreRetained("a/b", guid))

	matched, err := s.SearchMatching("a/+")
	require.NoError(t, err)
	require.Len(t, matched, 1)

	require.NoError(t, s.CleanRetained("a/b"))

	matched, err = s.SearchMatching("a/+")
	require.NoError(t, err)
	require.Empty(t, matched)

	guid2, err := s.StorePublishForFuture(store.StoredMessage{ClientID: "pub", Topic: "a/b", Payload: []byte("y"), QoS: 1})
	require.NoError(t, err)
	require.NoError(t, s.StoreRetained("a/b", guid2))

	matched, err = s.SearchMatching("a/+")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	require.Equal(t, []byte("y"), matched[0].Payload)
}

func TestDropMessagesInSessionKeepsRetained(t *testing.T) {
	s := New()

	retainedGUID, err := s.StorePublishForFuture(store.StoredMessage{ClientID: "pub", Topic: "a/b", Payload: []byte("keep")})
	require.NoError(t, err)
	require.NoError(t, s.StoreRetained("a/b", retainedGUID))

	transientGUID, err := s.StorePublishForFuture(store.StoredMessage{ClientID: "pub", Topic: "c/d", Payload: []byte("drop")})
	require.NoError(t, err)

	require.NoError(t, s.DropMessagesInSession("pub"))

	_, ok, _ := s.Get(retainedGUID)
	require.True(t, ok)

	_, ok, _ = s.Get(transientGUID)
	require.False(t, ok)
}

func TestWillStorePutGetRemove(t *testing.T) {
	w := NewWillStore()

	_, ok := w.Get("c1")
	require.False(t, ok)

	w.Put("c1", store.WillMessage{Topic: "bye", Payload: []byte("gone"), QoS: 1})
	will, ok := w.Get("c1")
	require.True(t, ok)
	require.Equal(t, "bye", will.Topic)

	w.Remove("c1")
	_, ok = w.Get("c1")
	require.False(t, ok)
}
