package listsync

import (
	"bytes"
	"time"
)

// Merge reconciles the durable file snapshot with one network observation
// into the canonical snapshot for this cycle. It returns the result and
// whether it differs from the file's current content (callers skip the
// file write when nothing changed).
//
// Policy:
//   - The file is the base: it is durable and sees local writes first, so
//     it decides item identity and ordering.
//   - Items only the network has are remote additions and are appended in
//     arrival order, unless a tombstone says this device removed them.
//   - Items only the file has are always kept. The network union can be
//     incomplete for any number of harmless reasons (relay downtime,
//     partial responses, decryption limits); absence there is never proof
//     of removal.
//   - When both tiers hold the same id with different field values the
//     file's version wins: remote copies can be arbitrarily stale and the
//     wire format carries no per-item clock to say otherwise.
//   - Tombstones are consumed by the first cycle in which at least one
//     relay answered; a cycle that observed nothing keeps them intact.
//   - An undecryptable private partition is carried through opaquely.
func Merge[T any](s Schema[T], file Snapshot[T], net FetchResult[T], now time.Time) (Snapshot[T], bool) {
	result := Snapshot[T]{LastModified: file.LastModified}

	present := make(map[string]struct{}, len(file.Items))
	for _, it := range file.Items {
		id := s.ItemID(it.Value)
		if _, dup := present[id]; dup {
			continue
		}
		present[id] = struct{}{}
		result.Items = append(result.Items, it)
	}

	changed := len(result.Items) != len(file.Items)

	for _, it := range net.Items {
		id := s.ItemID(it.Value)
		if _, exists := present[id]; exists {
			continue // file wins on field conflicts
		}
		if _, removed := file.Tombstones[id]; removed {
			continue
		}
		present[id] = struct{}{}
		result.Items = append(result.Items, it)
		changed = true
	}

	switch {
	case net.CouldNotDecrypt:
		result.OpaquePrivate = net.OpaquePrivate
	case !net.Found:
		// No relay answered; keep whatever opaque blob the file holds.
		result.OpaquePrivate = file.OpaquePrivate
	}
	if !bytes.Equal(result.OpaquePrivate, file.OpaquePrivate) {
		changed = true
	}

	if net.Found {
		// Tombstones have served their one cycle.
		if len(file.Tombstones) > 0 {
			changed = true
		}
	} else {
		// A cycle that observed zero relays hasn't given the tombstones
		// their chance to suppress a stale remote copy; they carry over
		// until a relay actually answers.
		result.Tombstones = file.Tombstones
	}

	if changed {
		result.LastModified = now
	}
	return result, changed
}
