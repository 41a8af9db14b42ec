package listsync

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lumora-app/listsync/internal/logging"
	"golang.org/x/sync/errgroup"
)

// DefaultCacheTTL is how long a cached snapshot satisfies Sync without
// touching the file or the relays.
const DefaultCacheTTL = 30 * time.Second

// Orchestrator drives one list through its three tiers. All operations on
// one orchestrator are serialized; concurrent syncs of the same list would
// only race the same relays for the same answer.
type Orchestrator[T any] struct {
	schema  Schema[T]
	cache   *CacheAdapter[T]
	file    *FileAdapter[T]
	network NetworkTier[T]
	folders *FolderStore
	clock   clockwork.Clock
	log     logging.Logger

	cacheTTL time.Duration

	mu             sync.Mutex
	observers      []func(Snapshot[T])
	publishPending bool
}

func NewOrchestrator[T any](
	schema Schema[T],
	cache *CacheAdapter[T],
	file *FileAdapter[T],
	network NetworkTier[T],
	folders *FolderStore,
	clock clockwork.Clock,
	log logging.Logger,
	cacheTTL time.Duration,
) *Orchestrator[T] {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Orchestrator[T]{
		schema:   schema,
		cache:    cache,
		file:     file,
		network:  network,
		folders:  folders,
		clock:    clock,
		log:      log.With("list", schema.StorageKey),
		cacheTTL: cacheTTL,
	}
}

// OnChange registers an observer invoked with the canonical snapshot after
// every cycle that changed it. Observers run with the orchestrator's lock
// held and must not call back into it.
func (o *Orchestrator[T]) OnChange(fn func(Snapshot[T])) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

// Folders exposes the list's folder store. Callers share this instance so
// folder edits and merge-time reconciliation see the same state.
func (o *Orchestrator[T]) Folders() *FolderStore {
	return o.folders
}

// PublishPending reports whether a local edit is waiting for an explicit
// Publish.
func (o *Orchestrator[T]) PublishPending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.publishPending
}

// Sync returns the canonical snapshot. A fresh cache entry short-circuits
// the cycle entirely: no file read and no relay round happens behind the
// returned value. The cache is a disposable hint, so serving it cannot lose
// anything durable, and the background refresher (plus the TTL expiring)
// guarantees a real cycle runs soon anyway. Callers that must observe the
// relays now pass force, which skips the fast path.
//
// On the slow path the file and the relays are consulted concurrently and
// merged.
func (o *Orchestrator[T]) Sync(ctx context.Context, force bool) (Snapshot[T], error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !force {
		if snap, storedAt, ok := o.cache.Get(); ok && o.clock.Since(storedAt) < o.cacheTTL {
			return snap, nil
		}
	}

	var (
		fileSnap Snapshot[T]
		netRes   FetchResult[T]
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fileSnap, err = o.file.Read(gctx)
		return err
	})
	g.Go(func() error {
		res, err := o.network.Fetch(gctx)
		if err != nil {
			// The file alone is a complete answer; a dead network only
			// means no remote additions this cycle.
			o.log.Warn(gctx, "network fetch failed, syncing from file only", "err", err)
			return nil
		}
		netRes = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot[T]{}, err
	}

	merged, changed := Merge(o.schema, fileSnap, netRes, o.clock.Now())

	o.cache.Set(merged)
	if changed {
		if err := o.file.Write(ctx, merged); err != nil {
			return Snapshot[T]{}, err
		}
	}

	if err := o.reconcileFolders(ctx, merged); err != nil {
		// Folder metadata is decorative next to the list itself; a failed
		// reconcile is logged and retried next cycle.
		o.log.Warn(ctx, "folder reconcile failed", "err", err)
	}

	if changed {
		o.notify(merged)
	}
	return merged, nil
}

// Items returns the current canonical items without touching the network:
// the cached snapshot when one exists, otherwise the durable file.
func (o *Orchestrator[T]) Items(ctx context.Context) ([]Item[T], error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if snap, _, ok := o.cache.Get(); ok {
		return snap.Items, nil
	}
	snap, err := o.file.Read(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Items, nil
}

// AddItem upserts an item by its identity. Re-adding an existing id
// replaces its field values in place and clears any tombstone for it. The
// edit is durable immediately; relays see it on the next Publish.
func (o *Orchestrator[T]) AddItem(ctx context.Context, item Item[T]) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap, err := o.file.Read(ctx)
	if err != nil {
		return err
	}

	if item.AddedAt.IsZero() {
		item.AddedAt = o.clock.Now()
	}

	id := o.schema.ItemID(item.Value)
	replaced := false
	for i := range snap.Items {
		if o.schema.ItemID(snap.Items[i].Value) == id {
			snap.Items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		snap.Items = append(snap.Items, item)
	}
	delete(snap.Tombstones, id)
	snap.LastModified = o.clock.Now()

	return o.commitLocal(ctx, snap)
}

// RemoveItem deletes an item and records a tombstone so the next merge does
// not resurrect it from a stale relay copy.
func (o *Orchestrator[T]) RemoveItem(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap, err := o.file.Read(ctx)
	if err != nil {
		return err
	}

	kept := snap.Items[:0]
	for _, it := range snap.Items {
		if o.schema.ItemID(it.Value) == id {
			continue
		}
		kept = append(kept, it)
	}
	snap.Items = kept

	if snap.Tombstones == nil {
		snap.Tombstones = make(map[string]int64)
	}
	snap.Tombstones[id] = o.clock.Now().Unix()
	snap.LastModified = o.clock.Now()

	return o.commitLocal(ctx, snap)
}

// Publish pushes the durable snapshot to the relays. Publishing is always
// explicit; no local edit or merge triggers it on its own.
func (o *Orchestrator[T]) Publish(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap, err := o.file.Read(ctx)
	if err != nil {
		return err
	}
	if err := o.network.Publish(ctx, snap); err != nil {
		return err
	}
	o.publishPending = false
	return nil
}

func (o *Orchestrator[T]) commitLocal(ctx context.Context, snap Snapshot[T]) error {
	if err := o.file.Write(ctx, snap); err != nil {
		return err
	}
	o.cache.Set(snap)
	o.publishPending = true

	if err := o.reconcileFolders(ctx, snap); err != nil {
		o.log.Warn(ctx, "folder reconcile failed", "err", err)
	}
	o.notify(snap)
	return nil
}

// reconcileFolders keeps the folder metadata consistent with the canonical
// item set: every item has an assignment, no assignment points at a gone
// item.
func (o *Orchestrator[T]) reconcileFolders(ctx context.Context, snap Snapshot[T]) error {
	if o.folders == nil {
		return nil
	}

	ids := snap.ItemIDs(o.schema)
	if err := o.folders.EnsureAssignments(ctx, ids); err != nil {
		return err
	}

	canonical := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		canonical[id] = struct{}{}
	}
	removed, err := o.folders.CleanupOrphanedAssignments(ctx, canonical)
	if err != nil {
		return err
	}
	if removed > 0 {
		o.log.Debug(ctx, "dropped orphaned folder assignments", "count", removed)
	}
	return nil
}

func (o *Orchestrator[T]) notify(snap Snapshot[T]) {
	for _, fn := range o.observers {
		fn(snap)
	}
}
