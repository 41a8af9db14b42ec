// Package nostr implements the relay wire protocol used by the network
// tier: replaceable events, subscription filters and a websocket relay
// client with bounded-concurrency fan-out across a relay set.
package nostr

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/lumora-app/listsync/internal/cryptox"
)

// Tag is one event tag: a type followed by positional values,
// e.g. ["p", "<pubkey>", "<relay hint>", "<petname>"].
type Tag []string

// Type returns the tag type (the first element) or "".
func (t Tag) Type() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Value returns the tag's primary value (the second element) or "".
func (t Tag) Value() string {
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

// Event is one signed protocol event. A list maps to a single replaceable
// event keyed by (PubKey, Kind, d-tag); publishing with a later CreatedAt
// fully replaces the previous event for that key.
type Event struct {
	ID        string `json:"id"`
	PubKey    string `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Kind      int    `json:"kind"`
	Tags      []Tag  `json:"tags"`
	Content   string `json:"content"`
	Sig       string `json:"sig"`
}

// DTag returns the value of the event's "d" tag, or "" for kinds whose
// single root list is keyed by the empty d-tag.
func (e *Event) DTag() string {
	return e.TagValue("d")
}

// TagValue returns the primary value of the first tag of the given type.
func (e *Event) TagValue(typ string) string {
	for _, t := range e.Tags {
		if t.Type() == typ {
			return t.Value()
		}
	}
	return ""
}

// canonical returns the serialization the event ID and signature are
// computed over: [0, pubkey, created_at, kind, tags, content].
func (e *Event) canonical() ([]byte, error) {
	tags := e.Tags
	if tags == nil {
		tags = []Tag{}
	}
	return json.Marshal([]any{0, e.PubKey, e.CreatedAt, e.Kind, tags, e.Content})
}

// Finalize computes the event ID and signs the event with the account's
// signer. PubKey is taken from the signer.
func (e *Event) Finalize(signer cryptox.Signer) error {
	e.PubKey = signer.PublicKey()

	payload, err := e.canonical()
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	sum := sha256.Sum256(payload)
	e.ID = hex.EncodeToString(sum[:])

	sig, err := signer.Sign(payload)
	if err != nil {
		return fmt.Errorf("sign event: %w", err)
	}
	e.Sig = hex.EncodeToString(sig)
	return nil
}

// ReplaceableKey identifies the slot a replaceable event occupies.
func (e *Event) ReplaceableKey() string {
	return fmt.Sprintf("%s/%d/%s", e.PubKey, e.Kind, e.DTag())
}
