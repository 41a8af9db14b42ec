// Package listsync is the multi-tier list synchronization engine: it keeps a
// named, ordered, partially-encrypted list of identifiers consistent across
// an in-memory session cache, a per-account durable file and an
// eventually-consistent set of relays.
package listsync

import "time"

// Item is one list entry. The payload type T is declared by the list's
// Schema; Private selects the encryption partition the item belongs to.
type Item[T any] struct {
	Value   T
	Private bool
	AddedAt time.Time
}

// Snapshot is the materialized state of one tier, or of a merge result.
//
// LastModified is tier-local: snapshots from different tiers share no clock
// and their timestamps must never be compared directly; only the merge
// policy relates them.
type Snapshot[T any] struct {
	Items        []Item[T]
	LastModified time.Time

	// OpaquePrivate carries a private partition this device could not
	// decrypt. It is re-published byte-for-byte so clients with
	// different key material never destroy each other's data.
	OpaquePrivate []byte

	// Tombstones records ids removed locally but possibly still present
	// on stale remote copies, keyed by removal unix time. Kept for one
	// merge cycle. File-tier metadata only.
	Tombstones map[string]int64
}

// ItemIDs returns the ids of the snapshot's items in order.
func (s Snapshot[T]) ItemIDs(schema Schema[T]) []string {
	ids := make([]string, 0, len(s.Items))
	for _, it := range s.Items {
		ids = append(ids, schema.ItemID(it.Value))
	}
	return ids
}
