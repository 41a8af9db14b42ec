// Package common defines shared constants and sentinel errors used across
// the sync engine. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Storage-level errors. A durable-tier failure aborts the whole
	// synchronization call for that list.
	ErrStorage = errors.New("durable storage unavailable")

	// ErrNotAuthenticated is returned before any I/O when no active
	// account is available.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrDecryptFailed marks an undecryptable private partition. It is
	// never fatal to a fetch; the ciphertext is carried through opaquely.
	ErrDecryptFailed = errors.New("decryption failed")

	// ErrNotFound is returned by lookups for folders, items or accounts
	// that do not exist.
	ErrNotFound = errors.New("not found")
)

// RelayError wraps a failure against a single relay. Relay errors are
// recovered locally: the relay is excluded from the fetch union and the
// error is logged, never propagated to the caller.
type RelayError struct {
	URL string
	Err error
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay %s: %v", e.URL, e.Err)
}

func (e *RelayError) Unwrap() error { return e.Err }
