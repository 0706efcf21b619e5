package topicmatcher

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func clientIDs(subs []Subscription) []string {
	out := make([]string, 0, len(subs))
	for _, s := range subs {
		out = append(out, s.ClientID)
	}
	sort.Strings(out)
	return out
}

func TestMatchExactAndWildcards(t *testing.T) {
	m := New()
	m.Add("a/b", "exact", 1)
	m.Add("a/+", "plus", 1)
	m.Add("a/#", "hash", 2)
	m.Add("x/y", "other", 0)

	got := clientIDs(m.Match("a/b"))
	require.Equal(t, []string{"exact", "hash", "plus"}, got)

	got = clientIDs(m.Match("a/b/c"))
	require.Equal(t, []string{"hash"}, got)

	got = clientIDs(m.Match("x/y"))
	require.Equal(t, []string{"other"}, got)
}

func TestAddIsIdempotentPerClientFilter(t *testing.T) {
	m := New()
	m.Add("a/b", "c1", 0)
	m.Add("a/b", "c1", 2)

	subs := m.Match("a/b")
	require.Len(t, subs, 1)
	require.Equal(t, byte(2), subs[0].QoS)
}

func TestRemovePrunesEmptyNodes(t *testing.T) {
	m := New()
	m.Add("a/b/c", "c1", 1)
	m.Remove("a/b/c", "c1")

	require.Empty(t, m.root.children)
}

func TestRemoveLeavesSiblingSubscriptionsIntact(t *testing.T) {
	m := New()
	m.Add("a/b", "c1", 1)
	m.Add("a/c", "c2", 1)
	m.Remove("a/b", "c1")

	require.Empty(t, m.Match("a/b"))
	require.Len(t, m.Match("a/c"), 1)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate("a/+/c"))
	require.NoError(t, Validate("a/#"))
	require.Error(t, Validate(""))
	require.Error(t, Validate("a/#/b"))
	require.Error(t, Validate("a/b+"))
	require.Error(t, Validate("a/b#"))
}

func TestRetainedTrieSearch(t *testing.T) {
	rt := NewRetainedTrie()
	rt.Set("a/b", "guid-1")
	rt.Set("a/c", "guid-2")

	got := rt.Search("a/+")
	sort.Strings(got)
	require.Equal(t, []string{"guid-1", "guid-2"}, got)

	rt.Clear("a/b")
	got = rt.Search("a/+")
	require.Equal(t, []string{"guid-2"}, got)
}
