package listsync

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lumora-app/listsync/internal/logging"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func contactItem(pub string, at time.Time) Item[Contact] {
	return Item[Contact]{Value: Contact{PubKey: pub}, AddedAt: at}
}

// fakeNetwork is a scripted network tier.
type fakeNetwork[T any] struct {
	mu         sync.Mutex
	res        FetchResult[T]
	fetchErr   error
	fetchCalls int
	published  []Snapshot[T]
	publishErr error
}

func (f *fakeNetwork[T]) Fetch(ctx context.Context) (FetchResult[T], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return FetchResult[T]{}, f.fetchErr
	}
	return f.res, nil
}

func (f *fakeNetwork[T]) Publish(ctx context.Context, snap Snapshot[T]) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, snap)
	return nil
}

func (f *fakeNetwork[T]) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

// testOrchestrator wires an orchestrator over a temp dir, a real file
// adapter and folder store, and the given fake network.
func testOrchestrator(t *testing.T, net NetworkTier[Contact], clock clockwork.Clock, ttl time.Duration) (*Orchestrator[Contact], *FileAdapter[Contact], *FolderStore) {
	t.Helper()

	schema := FollowSetSchema("work", "Work")
	dir := t.TempDir()

	file, err := NewFileAdapter(schema, dir, "pub1")
	require.NoError(t, err)
	folders, err := NewFolderStore(dir, "pub1", schema.StorageKey, clock)
	require.NoError(t, err)

	store, err := NewSessionStore(0)
	require.NoError(t, err)
	cache := NewCacheAdapter(store, schema, "pub1", clock)

	o := NewOrchestrator(schema, cache, file, net, folders, clock, testLogger(), ttl)
	return o, file, folders
}
