package listsync

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lumora-app/listsync/internal/common"
	"github.com/stretchr/testify/require"
)

func TestFileAdapter_MissingFileReadsEmpty(t *testing.T) {
	schema := FollowSetSchema("work", "Work")
	f, err := NewFileAdapter(schema, t.TempDir(), "pub1")
	require.NoError(t, err)

	snap, err := f.Read(context.Background())
	require.NoError(t, err)
	require.Empty(t, snap.Items)
	require.Nil(t, snap.Tombstones)
}

func TestFileAdapter_RoundTrip(t *testing.T) {
	schema := FollowSetSchema("work", "Work")
	f, err := NewFileAdapter(schema, t.TempDir(), "pub1")
	require.NoError(t, err)

	at := time.Unix(1000, 0).UTC()
	snap := Snapshot[Contact]{
		Items: []Item[Contact]{
			{Value: Contact{PubKey: "a", Petname: "alice"}, AddedAt: at},
			{Value: Contact{PubKey: "b"}, Private: true, AddedAt: at},
		},
		Tombstones:    map[string]int64{"gone": 900},
		OpaquePrivate: []byte("blob"),
		LastModified:  at,
	}
	require.NoError(t, f.Write(context.Background(), snap))

	got, err := f.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, snap.Items, got.Items)
	require.Equal(t, snap.Tombstones, got.Tombstones)
	require.Equal(t, snap.OpaquePrivate, got.OpaquePrivate)
	require.Equal(t, at, got.LastModified)
}

func TestFileAdapter_PreservesUnknownFields(t *testing.T) {
	schema := FollowSetSchema("work", "Work")
	dir := t.TempDir()
	f, err := NewFileAdapter(schema, dir, "pub1")
	require.NoError(t, err)

	// A newer client wrote fields this version knows nothing about.
	path := filepath.Join(dir, "accounts", "pub1", "lists", schema.StorageKey+".json")
	doc := `{"version":1,"items":[{"tags":[["p","a"]],"added_at":1000}],"last_modified":1000,` +
		`"future_field":{"nested":true},"another":"keep me"}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	snap, err := f.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)

	snap.Items = append(snap.Items, contactItem("b", time.Unix(2000, 0).UTC()))
	require.NoError(t, f.Write(context.Background(), snap))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	require.JSONEq(t, `{"nested":true}`, string(raw["future_field"]))
	require.JSONEq(t, `"keep me"`, string(raw["another"]))
}

func TestFileAdapter_InaccessibleDirIsStorageError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}

	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.MkdirAll(blocked, 0o500))
	t.Cleanup(func() { _ = os.Chmod(blocked, 0o700) })

	_, err := NewFileAdapter(FollowSetSchema("work", "Work"), blocked, "pub1")
	require.ErrorIs(t, err, common.ErrStorage)
}
