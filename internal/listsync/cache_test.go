package listsync

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestCacheAdapter_NamespacedPerAccount(t *testing.T) {
	store, err := NewSessionStore(0)
	require.NoError(t, err)

	schema := FollowSetSchema("work", "Work")
	clock := clockwork.NewFakeClock()
	alice := NewCacheAdapter(store, schema, "alice", clock)
	bob := NewCacheAdapter(store, schema, "bob", clock)

	at := time.Unix(1000, 0).UTC()
	alice.Set(Snapshot[Contact]{Items: []Item[Contact]{contactItem("only-alice", at)}})

	_, _, ok := bob.Get()
	require.False(t, ok, "bob must not see alice's cached list")

	snap, _, ok := alice.Get()
	require.True(t, ok)
	require.Equal(t, "only-alice", snap.Items[0].Value.PubKey)
}

func TestCacheAdapter_MigratesLegacyEntry(t *testing.T) {
	store, err := NewSessionStore(0)
	require.NoError(t, err)

	schema := FollowSetSchema("work", "Work")
	clock := clockwork.NewFakeClock()
	c := NewCacheAdapter(store, schema, "alice", clock)

	at := time.Unix(1000, 0).UTC()
	c.seedLegacy(Snapshot[Contact]{Items: []Item[Contact]{contactItem("old", at)}})

	snap, _, ok := c.Get()
	require.True(t, ok)
	require.Equal(t, "old", snap.Items[0].Value.PubKey)

	// The legacy key is consumed: a different account gets nothing.
	other := NewCacheAdapter(store, schema, "bob", clock)
	_, _, ok = other.Get()
	require.False(t, ok)
}

func TestCacheAdapter_SetOverwrites(t *testing.T) {
	store, err := NewSessionStore(0)
	require.NoError(t, err)

	schema := FollowSetSchema("work", "Work")
	clock := clockwork.NewFakeClock()
	c := NewCacheAdapter(store, schema, "alice", clock)

	at := time.Unix(1000, 0).UTC()
	c.Set(Snapshot[Contact]{Items: []Item[Contact]{contactItem("v1", at)}})
	c.Set(Snapshot[Contact]{Items: []Item[Contact]{contactItem("v2", at)}})

	snap, _, ok := c.Get()
	require.True(t, ok)
	require.Len(t, snap.Items, 1)
	require.Equal(t, "v2", snap.Items[0].Value.PubKey)
}
