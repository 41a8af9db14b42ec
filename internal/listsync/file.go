package listsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/lumora-app/listsync/internal/common"
	"github.com/lumora-app/listsync/internal/nostr"
	"github.com/natefinch/atomic"
)

const fileDocVersion = 1

// fileItem is the durable form of one item: its own wire tags plus the
// local-only metadata the wire format has no room for.
type fileItem struct {
	Tags    []nostr.Tag `json:"tags"`
	Private bool        `json:"private,omitempty"`
	AddedAt int64       `json:"added_at"`
}

type fileDoc struct {
	Version       int              `json:"version"`
	Items         []fileItem       `json:"items"`
	Tombstones    map[string]int64 `json:"tombstones,omitempty"`
	OpaquePrivate []byte           `json:"opaque_private,omitempty"`
	LastModified  int64            `json:"last_modified"`
}

// knownDocFields are the top-level keys the adapter owns. Anything else in
// the document belongs to another (possibly newer) client and is preserved
// verbatim on rewrite.
var knownDocFields = map[string]struct{}{
	"version": {}, "items": {}, "tombstones": {}, "opaque_private": {}, "last_modified": {},
}

// FileAdapter is the durable tier for one (account, list) pair: a single
// JSON document under the account's data directory. Access is serialized by
// an in-process mutex plus a cross-process file lock; writes are atomic.
type FileAdapter[T any] struct {
	schema Schema[T]
	path   string
	lock   *flock.Flock

	mu sync.Mutex
	// extra holds unknown top-level fields read from the document, echoed
	// back on the next write.
	extra map[string]json.RawMessage
}

// NewFileAdapter ensures the account's list directory exists and binds the
// adapter to the list's document. An inaccessible account directory is a
// fatal storage error.
func NewFileAdapter[T any](schema Schema[T], dataDir, pubKey string) (*FileAdapter[T], error) {
	dir := filepath.Join(dataDir, "accounts", pubKey, "lists")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: mkdir %s: %v", common.ErrStorage, dir, err)
	}

	path := filepath.Join(dir, schema.StorageKey+".json")
	return &FileAdapter[T]{
		schema: schema,
		path:   path,
		lock:   flock.New(path + ".lock"),
	}, nil
}

// Read loads the current snapshot. A document that does not exist yet reads
// as an empty snapshot; any other failure is surfaced as common.ErrStorage,
// never silently treated as empty.
func (f *FileAdapter[T]) Read(ctx context.Context) (Snapshot[T], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readLocked(ctx)
}

func (f *FileAdapter[T]) readLocked(ctx context.Context) (Snapshot[T], error) {
	var snap Snapshot[T]

	if err := f.flockShared(ctx); err != nil {
		return snap, err
	}
	defer f.lock.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("%w: read %s: %v", common.ErrStorage, f.path, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return snap, fmt.Errorf("%w: parse %s: %v", common.ErrStorage, f.path, err)
	}

	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return snap, fmt.Errorf("%w: parse %s: %v", common.ErrStorage, f.path, err)
	}

	f.extra = make(map[string]json.RawMessage)
	for k, v := range raw {
		if _, known := knownDocFields[k]; !known {
			f.extra[k] = v
		}
	}

	for _, fi := range doc.Items {
		decoded := f.schema.FromWireTags(fi.Tags, time.Unix(fi.AddedAt, 0).UTC())
		for _, it := range decoded {
			it.Private = fi.Private
			snap.Items = append(snap.Items, it)
		}
	}
	snap.Tombstones = doc.Tombstones
	snap.OpaquePrivate = doc.OpaquePrivate
	snap.LastModified = time.Unix(doc.LastModified, 0).UTC()
	return snap, nil
}

// Write persists the snapshot atomically, carrying over any unknown
// top-level fields seen by the last Read.
func (f *FileAdapter[T]) Write(ctx context.Context, snap Snapshot[T]) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeLocked(ctx, snap)
}

func (f *FileAdapter[T]) writeLocked(ctx context.Context, snap Snapshot[T]) error {
	doc := fileDoc{
		Version:       fileDocVersion,
		Items:         make([]fileItem, 0, len(snap.Items)),
		Tombstones:    snap.Tombstones,
		OpaquePrivate: snap.OpaquePrivate,
		LastModified:  snap.LastModified.Unix(),
	}
	for _, it := range snap.Items {
		doc.Items = append(doc.Items, fileItem{
			Tags:    f.schema.ToWireTags(it.Value),
			Private: it.Private,
			AddedAt: it.AddedAt.Unix(),
		})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode list document: %w", err)
	}

	if len(f.extra) > 0 {
		var merged map[string]json.RawMessage
		if err := json.Unmarshal(data, &merged); err != nil {
			return fmt.Errorf("encode list document: %w", err)
		}
		for k, v := range f.extra {
			merged[k] = v
		}
		if data, err = json.Marshal(merged); err != nil {
			return fmt.Errorf("encode list document: %w", err)
		}
	}

	if err := f.flockExclusive(ctx); err != nil {
		return err
	}
	defer f.lock.Unlock()

	if err := atomic.WriteFile(f.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: write %s: %v", common.ErrStorage, f.path, err)
	}
	return nil
}

func (f *FileAdapter[T]) flockShared(ctx context.Context) error {
	ok, err := f.lock.TryRLockContext(ctx, 20*time.Millisecond)
	if err != nil || !ok {
		return fmt.Errorf("%w: lock %s: %v", common.ErrStorage, f.path, err)
	}
	return nil
}

func (f *FileAdapter[T]) flockExclusive(ctx context.Context) error {
	ok, err := f.lock.TryLockContext(ctx, 20*time.Millisecond)
	if err != nil || !ok {
		return fmt.Errorf("%w: lock %s: %v", common.ErrStorage, f.path, err)
	}
	return nil
}
