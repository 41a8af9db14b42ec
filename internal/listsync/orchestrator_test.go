package listsync

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lumora-app/listsync/internal/common"
	"github.com/stretchr/testify/require"
)

func TestOrchestrator_SyncMergesAndPersists(t *testing.T) {
	clock := clockwork.NewFakeClock()
	at := time.Unix(1000, 0).UTC()
	net := &fakeNetwork[Contact]{res: FetchResult[Contact]{
		Found: true,
		Items: []Item[Contact]{contactItem("remote", at)},
	}}
	o, file, _ := testOrchestrator(t, net, clock, time.Minute)
	ctx := context.Background()

	require.NoError(t, file.Write(ctx, Snapshot[Contact]{
		Items:        []Item[Contact]{contactItem("local", at)},
		LastModified: at,
	}))

	snap, err := o.Sync(ctx, false)
	require.NoError(t, err)
	require.Equal(t, []string{"local", "remote"}, snap.ItemIDs(o.schema))

	// The merge result became durable.
	onDisk, err := file.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"local", "remote"}, onDisk.ItemIDs(o.schema))
}

func TestOrchestrator_FreshCacheSkipsTiers(t *testing.T) {
	clock := clockwork.NewFakeClock()
	net := &fakeNetwork[Contact]{res: FetchResult[Contact]{Found: true}}
	o, _, _ := testOrchestrator(t, net, clock, time.Minute)
	ctx := context.Background()

	_, err := o.Sync(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, net.calls())

	// Within the TTL the cache answers alone.
	_, err = o.Sync(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, net.calls())

	// force bypasses the fast path.
	_, err = o.Sync(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 2, net.calls())

	// And so does an expired entry.
	clock.Advance(2 * time.Minute)
	_, err = o.Sync(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 3, net.calls())
}

func TestOrchestrator_NetworkFailureFallsBackToFile(t *testing.T) {
	clock := clockwork.NewFakeClock()
	at := time.Unix(1000, 0).UTC()
	net := &fakeNetwork[Contact]{fetchErr: &common.RelayError{URL: "all", Err: context.DeadlineExceeded}}
	o, file, _ := testOrchestrator(t, net, clock, time.Minute)
	ctx := context.Background()

	require.NoError(t, file.Write(ctx, Snapshot[Contact]{
		Items:        []Item[Contact]{contactItem("local", at)},
		LastModified: at,
	}))

	snap, err := o.Sync(ctx, false)
	require.NoError(t, err)
	require.Equal(t, []string{"local"}, snap.ItemIDs(o.schema))
}

func TestOrchestrator_AddRemovePublishLifecycle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	net := &fakeNetwork[Contact]{}
	o, file, _ := testOrchestrator(t, net, clock, time.Minute)
	ctx := context.Background()

	require.False(t, o.PublishPending())

	require.NoError(t, o.AddItem(ctx, Item[Contact]{Value: Contact{PubKey: "a", Petname: "v1"}}))
	require.True(t, o.PublishPending(), "local edits wait for an explicit publish")
	require.Empty(t, net.published, "no edit publishes on its own")

	// Re-adding the same identity replaces fields in place.
	require.NoError(t, o.AddItem(ctx, Item[Contact]{Value: Contact{PubKey: "a", Petname: "v2"}}))
	snap, err := file.Read(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	require.Equal(t, "v2", snap.Items[0].Value.Petname)

	require.NoError(t, o.RemoveItem(ctx, "a"))
	snap, err = file.Read(ctx)
	require.NoError(t, err)
	require.Empty(t, snap.Items)
	require.Contains(t, snap.Tombstones, "a")

	require.NoError(t, o.Publish(ctx))
	require.False(t, o.PublishPending())
	require.Len(t, net.published, 1)
}

func TestOrchestrator_ItemsReadsLocallyOnly(t *testing.T) {
	clock := clockwork.NewFakeClock()
	at := time.Unix(1000, 0).UTC()
	net := &fakeNetwork[Contact]{}
	o, file, _ := testOrchestrator(t, net, clock, time.Minute)
	ctx := context.Background()

	require.NoError(t, file.Write(ctx, Snapshot[Contact]{
		Items:        []Item[Contact]{contactItem("local", at)},
		LastModified: at,
	}))

	items, err := o.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Zero(t, net.calls(), "Items must not hit the network")
}

func TestOrchestrator_AddClearsTombstone(t *testing.T) {
	clock := clockwork.NewFakeClock()
	net := &fakeNetwork[Contact]{}
	o, file, _ := testOrchestrator(t, net, clock, time.Minute)
	ctx := context.Background()

	require.NoError(t, o.AddItem(ctx, Item[Contact]{Value: Contact{PubKey: "a"}}))
	require.NoError(t, o.RemoveItem(ctx, "a"))
	require.NoError(t, o.AddItem(ctx, Item[Contact]{Value: Contact{PubKey: "a"}}))

	snap, err := file.Read(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	require.NotContains(t, snap.Tombstones, "a")
}

func TestOrchestrator_ObserversNotifiedOnChange(t *testing.T) {
	clock := clockwork.NewFakeClock()
	at := time.Unix(1000, 0).UTC()
	net := &fakeNetwork[Contact]{res: FetchResult[Contact]{
		Found: true,
		Items: []Item[Contact]{contactItem("remote", at)},
	}}
	o, _, _ := testOrchestrator(t, net, clock, time.Minute)
	ctx := context.Background()

	var notified [][]string
	o.OnChange(func(snap Snapshot[Contact]) {
		notified = append(notified, snap.ItemIDs(o.schema))
	})

	_, err := o.Sync(ctx, false)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"remote"}}, notified)

	// A no-change cycle stays silent.
	_, err = o.Sync(ctx, true)
	require.NoError(t, err)
	require.Len(t, notified, 1)
}

func TestOrchestrator_SyncReconcilesFolderAssignments(t *testing.T) {
	clock := clockwork.NewFakeClock()
	at := time.Unix(1000, 0).UTC()
	net := &fakeNetwork[Contact]{res: FetchResult[Contact]{
		Found: true,
		Items: []Item[Contact]{contactItem("remote", at)},
	}}
	o, _, folders := testOrchestrator(t, net, clock, time.Minute)
	ctx := context.Background()

	_, err := o.Sync(ctx, false)
	require.NoError(t, err)

	all, err := folders.Assignments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "remote", all[0].ItemID)
	require.Equal(t, RootID, all[0].FolderID)

	// The item disappears; its assignment goes with it.
	require.NoError(t, o.RemoveItem(ctx, "remote"))
	all, err = folders.Assignments(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}
