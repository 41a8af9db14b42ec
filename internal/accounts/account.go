// Package accounts models the locally known accounts and the explicit
// per-account registry that replaces any process-wide singleton state.
package accounts

import (
	"fmt"
	"sync"

	"github.com/lumora-app/listsync/internal/common"
	"github.com/lumora-app/listsync/internal/cryptox"
)

// Account is one identity the client can act as. Key material stays behind
// the opaque Signer/Cipher capabilities.
type Account struct {
	// PubKey is the hex-encoded public key identifying the account.
	PubKey string

	// Relays is the account's configured relay set.
	Relays []string

	Signer cryptox.Signer
	Cipher cryptox.Cipher
}

// Registry holds every account known to the running process and tracks the
// active one. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	accounts map[string]*Account
	active   string
}

func NewRegistry() *Registry {
	return &Registry{accounts: make(map[string]*Account)}
}

// Put registers or replaces an account.
func (r *Registry) Put(a *Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.PubKey] = a
}

// Get returns the account with the given public key.
func (r *Registry) Get(pubKey string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[pubKey]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", pubKey, common.ErrNotFound)
	}
	return a, nil
}

// SetActive marks an already-registered account as the active one.
func (r *Registry) SetActive(pubKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[pubKey]; !ok {
		return fmt.Errorf("account %s: %w", pubKey, common.ErrNotFound)
	}
	r.active = pubKey
	return nil
}

// ClearActive deactivates the current account. The account itself stays
// registered.
func (r *Registry) ClearActive() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = ""
}

// Active returns the active account, or common.ErrNotAuthenticated when no
// account has been activated. Callers check this before any tier I/O.
func (r *Registry) Active() (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == "" {
		return nil, common.ErrNotAuthenticated
	}
	return r.accounts[r.active], nil
}
