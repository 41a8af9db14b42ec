package cli

import (
	"context"
	"fmt"

	"github.com/lumora-app/listsync/internal/accounts"
	"github.com/lumora-app/listsync/internal/cryptox"
)

// Login prompts for the account's secret key, derives the signing and
// encryption capabilities from it and activates the account. Key material
// never leaves the cryptox types.
func (a *App) Login(ctx context.Context) error {
	secret, err := GetSecret(a.out, "Enter secret key")
	if err != nil {
		return err
	}
	if len(secret) == 0 {
		fmt.Fprintln(a.out, "No key entered.")
		return nil
	}
	defer wipe(secret)

	signer := cryptox.NewDevSigner(secret)
	pubKey := signer.PublicKey()
	cipher := cryptox.NewAESGCMCipher(cryptox.DeriveKey(secret, []byte(pubKey)))

	a.accounts.Put(&accounts.Account{
		PubKey: pubKey,
		Relays: a.config.Relays,
		Signer: signer,
		Cipher: cipher,
	})
	if err := a.accounts.SetActive(pubKey); err != nil {
		return err
	}

	a.startRefresher(ctx)
	fmt.Fprintf(a.out, "Logged in as %s\n", shortKey(pubKey))
	return nil
}

// Logout deactivates the account. Cached snapshots stay in the session
// store, namespaced under the account's key, so switching back is cheap.
func (a *App) Logout(ctx context.Context) error {
	a.stopRefresher()
	a.accounts.ClearActive()
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func shortKey(pubKey string) string {
	if len(pubKey) <= 12 {
		return pubKey
	}
	return pubKey[:8] + "…" + pubKey[len(pubKey)-4:]
}
