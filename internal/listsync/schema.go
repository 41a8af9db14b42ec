package listsync

import (
	"time"

	"github.com/lumora-app/listsync/internal/nostr"
)

// Schema declares one list type: its identity, wire encoding and whether its
// private partition is encrypted. A Schema is an immutable data value; the
// engine is parameterized by it instead of being subclassed per list type.
//
// Conversion law: for any valid item v, FromWireTags(ToWireTags(v), t) must
// contain an item equal to v in all fields (only the timestamp is injected).
// FromWireTags must skip tags it does not recognize — unknown tag types from
// newer or foreign clients pass through the file tier untouched and must not
// break decoding.
type Schema[T any] struct {
	// Name is the human-readable list name.
	Name string

	// StorageKey names the list in the cache and file tiers.
	StorageKey string

	// Kind is the wire event kind the list maps to.
	Kind int

	// DTag distinguishes named sub-lists of one kind; "" is the kind's
	// single root list.
	DTag string

	// Title is the display name published with a named sub-list.
	Title string

	// EncryptPrivate enables the encrypted private partition.
	EncryptPrivate bool

	// ItemID extracts the stable identity of an item.
	ItemID func(v T) string

	// ToWireTags encodes one item as wire tags.
	ToWireTags func(v T) []nostr.Tag

	// FromWireTags decodes all items it recognizes from an event's tags,
	// stamping each with the supplied timestamp.
	FromWireTags func(tags []nostr.Tag, at time.Time) []Item[T]
}

// parameterizedReplaceable reports whether the schema's kind carries its
// list identity in a d-tag.
func (s Schema[T]) parameterizedReplaceable() bool {
	return s.Kind >= 30000 && s.Kind < 40000
}
