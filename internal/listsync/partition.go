package listsync

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lumora-app/listsync/internal/common"
	"github.com/lumora-app/listsync/internal/cryptox"
	"github.com/lumora-app/listsync/internal/nostr"
)

// Partition splits items into their public and private subsets, preserving
// relative order within each.
func Partition[T any](items []Item[T]) (public, private []Item[T]) {
	for _, it := range items {
		if it.Private {
			private = append(private, it)
		} else {
			public = append(public, it)
		}
	}
	return public, private
}

// SerializePrivate encodes the private items as a JSON tag array, encrypts
// it with the account's cipher and returns the base64 content string other
// clients of the protocol expect.
func SerializePrivate[T any](s Schema[T], items []Item[T], cipher cryptox.Cipher) (string, error) {
	tags := make([]nostr.Tag, 0, len(items))
	for _, it := range items {
		tags = append(tags, s.ToWireTags(it.Value)...)
	}

	plaintext, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode private tags: %w", err)
	}

	ciphertext, err := cipher.Encrypt(plaintext)
	if err != nil {
		return "", fmt.Errorf("encrypt private partition: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DeserializePrivate reverses SerializePrivate. Failures decode or decrypt
// report common.ErrDecryptFailed so the caller can keep the content as an
// opaque pass-through blob instead of aborting the fetch.
func DeserializePrivate[T any](s Schema[T], content string, cipher cryptox.Cipher, at time.Time) ([]Item[T], error) {
	ciphertext, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("%w: content is not base64", common.ErrDecryptFailed)
	}

	plaintext, err := cipher.Decrypt(ciphertext)
	if err != nil {
		return nil, err
	}

	var tags []nostr.Tag
	if err := json.Unmarshal(plaintext, &tags); err != nil {
		return nil, fmt.Errorf("%w: plaintext is not a tag array", common.ErrDecryptFailed)
	}

	items := s.FromWireTags(tags, at)
	for i := range items {
		items[i].Private = true
	}
	return items, nil
}
