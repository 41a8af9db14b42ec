package listsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lumora-app/listsync/internal/accounts"
	"github.com/lumora-app/listsync/internal/common"
	"github.com/lumora-app/listsync/internal/logging"
	"github.com/lumora-app/listsync/internal/nostr"
)

// FetchResult is what the network tier produced for one cycle. It is an
// observation, never an authority: an item missing here is not evidence the
// item was removed.
type FetchResult[T any] struct {
	Items []Item[T]

	// Found reports whether any relay returned an event for the list at
	// all. When false the merge must not disturb locally-held state.
	Found bool

	// CouldNotDecrypt is set when the list carried a private partition
	// this device lacks the key material for; OpaquePrivate then holds
	// the ciphertext byte-for-byte for re-publication.
	CouldNotDecrypt bool
	OpaquePrivate   []byte
}

// NetworkTier is the remote tier as seen by the orchestrator.
type NetworkTier[T any] interface {
	Fetch(ctx context.Context) (FetchResult[T], error)
	Publish(ctx context.Context, snap Snapshot[T]) error
}

// NetworkAdapter maps a list schema onto the relay pool: one list is one
// replaceable event keyed by (author, kind, d-tag).
type NetworkAdapter[T any] struct {
	schema  Schema[T]
	account *accounts.Account
	pool    *nostr.Pool
	clock   clockwork.Clock
	log     logging.Logger
}

func NewNetworkAdapter[T any](schema Schema[T], account *accounts.Account, pool *nostr.Pool, clock clockwork.Clock, log logging.Logger) *NetworkAdapter[T] {
	return &NetworkAdapter[T]{
		schema:  schema,
		account: account,
		pool:    pool,
		clock:   clock,
		log:     log.With("list", schema.StorageKey),
	}
}

// Fetch queries every relay and unions the items they returned, newest
// event first, deduplicated by item id. Per-relay failures were already
// absorbed by the pool.
func (n *NetworkAdapter[T]) Fetch(ctx context.Context) (FetchResult[T], error) {
	var res FetchResult[T]

	filter := nostr.Filter{
		Kinds:   []int{n.schema.Kind},
		Authors: []string{n.account.PubKey},
	}
	if n.schema.parameterizedReplaceable() {
		filter.DTags = []string{n.schema.DTag}
	}

	events, err := n.pool.FetchAll(ctx, filter)
	if err != nil {
		return res, err
	}
	if len(events) == 0 {
		return res, nil
	}
	res.Found = true

	// Events arrive newest-first; first sighting of an id wins.
	seen := make(map[string]struct{})
	for _, ev := range events {
		at := time.Unix(ev.CreatedAt, 0).UTC()
		for _, it := range n.schema.FromWireTags(ev.Tags, at) {
			id := n.schema.ItemID(it.Value)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			res.Items = append(res.Items, it)
		}
	}

	// The private partition rides on the newest event's content.
	content := events[0].Content
	if content == "" {
		return res, nil
	}

	if n.account.Cipher == nil {
		res.CouldNotDecrypt = true
		res.OpaquePrivate = []byte(content)
		return res, nil
	}

	at := time.Unix(events[0].CreatedAt, 0).UTC()
	private, err := DeserializePrivate(n.schema, content, n.account.Cipher, at)
	if err != nil {
		if !errors.Is(err, common.ErrDecryptFailed) {
			return res, err
		}
		n.log.Warn(ctx, "private partition not decryptable on this device, keeping ciphertext", "err", err)
		res.CouldNotDecrypt = true
		res.OpaquePrivate = []byte(content)
		return res, nil
	}

	for _, it := range private {
		id := n.schema.ItemID(it.Value)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		res.Items = append(res.Items, it)
	}
	return res, nil
}

// Publish replaces the list's event on every reachable relay. There is no
// partial or delta publish: the event carries the full public partition as
// tags and the full private partition (or the opaque pass-through blob) as
// content.
func (n *NetworkAdapter[T]) Publish(ctx context.Context, snap Snapshot[T]) error {
	public, private := Partition(snap.Items)

	var tags []nostr.Tag
	if n.schema.parameterizedReplaceable() {
		tags = append(tags, nostr.Tag{"d", n.schema.DTag})
	}
	if n.schema.Title != "" {
		tags = append(tags, nostr.Tag{"title", n.schema.Title})
	}

	encryptable := n.schema.EncryptPrivate && n.account.Cipher != nil
	for _, it := range public {
		tags = append(tags, n.schema.ToWireTags(it.Value)...)
	}
	if !encryptable {
		// Lists without an encrypted partition publish everything as
		// plain tags.
		for _, it := range private {
			tags = append(tags, n.schema.ToWireTags(it.Value)...)
		}
	}

	var content string
	switch {
	case snap.OpaquePrivate != nil:
		// Mixed-client handling: another device's private partition is
		// re-emitted exactly as fetched.
		content = string(snap.OpaquePrivate)
	case encryptable && len(private) > 0:
		var err error
		content, err = SerializePrivate(n.schema, private, n.account.Cipher)
		if err != nil {
			return fmt.Errorf("serialize private partition: %w", err)
		}
	}

	ev := nostr.Event{
		CreatedAt: n.clock.Now().Unix(),
		Kind:      n.schema.Kind,
		Tags:      tags,
		Content:   content,
	}
	if err := ev.Finalize(n.account.Signer); err != nil {
		return err
	}

	n.log.Debug(ctx, "publishing list event", "kind", ev.Kind, "items", len(snap.Items))
	return n.pool.PublishAll(ctx, ev)
}
