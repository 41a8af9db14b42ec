package listsync

import (
	"time"

	"github.com/lumora-app/listsync/internal/nostr"
)

// Wire kinds for the stock list types.
const (
	KindMuteList    = 10000
	KindFollowSet   = 30000
	KindBookmarkSet = 30003
)

// Contact references another account, with an optional relay hint and a
// local petname.
type Contact struct {
	PubKey    string
	RelayHint string
	Petname   string
}

// Bookmark references an event.
type Bookmark struct {
	EventID   string
	RelayHint string
}

func contactToTag(c Contact) []nostr.Tag {
	tag := nostr.Tag{"p", c.PubKey}
	if c.RelayHint != "" || c.Petname != "" {
		tag = append(tag, c.RelayHint)
	}
	if c.Petname != "" {
		tag = append(tag, c.Petname)
	}
	return []nostr.Tag{tag}
}

func contactsFromTags(tags []nostr.Tag, at time.Time) []Item[Contact] {
	var items []Item[Contact]
	for _, t := range tags {
		if t.Type() != "p" || t.Value() == "" {
			continue
		}
		c := Contact{PubKey: t[1]}
		if len(t) > 2 {
			c.RelayHint = t[2]
		}
		if len(t) > 3 {
			c.Petname = t[3]
		}
		items = append(items, Item[Contact]{Value: c, AddedAt: at})
	}
	return items
}

// FollowSetSchema describes a named, curated set of followed accounts.
func FollowSetSchema(dTag, title string) Schema[Contact] {
	return Schema[Contact]{
		Name:         "follow set",
		StorageKey:   "follow-set-" + dTag,
		Kind:         KindFollowSet,
		DTag:         dTag,
		Title:        title,
		ItemID:       func(c Contact) string { return c.PubKey },
		ToWireTags:   contactToTag,
		FromWireTags: contactsFromTags,
	}
}

// MuteListSchema describes the account's single mute list. Muted accounts
// are sensitive, so its private partition is encrypted.
func MuteListSchema() Schema[Contact] {
	return Schema[Contact]{
		Name:           "mute list",
		StorageKey:     "mute-list",
		Kind:           KindMuteList,
		EncryptPrivate: true,
		ItemID:         func(c Contact) string { return c.PubKey },
		ToWireTags:     contactToTag,
		FromWireTags:   contactsFromTags,
	}
}

// BookmarkSetSchema describes a named bookmark set.
func BookmarkSetSchema(dTag, title string) Schema[Bookmark] {
	return Schema[Bookmark]{
		Name:           "bookmark set",
		StorageKey:     "bookmark-set-" + dTag,
		Kind:           KindBookmarkSet,
		DTag:           dTag,
		Title:          title,
		EncryptPrivate: true,
		ItemID:         func(b Bookmark) string { return b.EventID },
		ToWireTags: func(b Bookmark) []nostr.Tag {
			tag := nostr.Tag{"e", b.EventID}
			if b.RelayHint != "" {
				tag = append(tag, b.RelayHint)
			}
			return []nostr.Tag{tag}
		},
		FromWireTags: func(tags []nostr.Tag, at time.Time) []Item[Bookmark] {
			var items []Item[Bookmark]
			for _, t := range tags {
				if t.Type() != "e" || t.Value() == "" {
					continue
				}
				b := Bookmark{EventID: t[1]}
				if len(t) > 2 {
					b.RelayHint = t[2]
				}
				items = append(items, Item[Bookmark]{Value: b, AddedAt: at})
			}
			return items
		},
	}
}
