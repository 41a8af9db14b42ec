// Package cryptox defines the opaque cryptographic capabilities consumed by
// the sync engine: signing list events and encrypting/decrypting the private
// partition of a list. The engine never inspects key material; the desktop
// shell injects whatever implementations the active account provides.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/lumora-app/listsync/internal/common"
	"golang.org/x/crypto/argon2"
)

// Signer produces a signature over a canonical event payload.
type Signer interface {
	Sign(payload []byte) ([]byte, error)

	// PublicKey returns the hex-encoded public key the signatures
	// verify against. It doubles as the account identity.
	PublicKey() string
}

// Cipher encrypts and decrypts the private partition of a list.
//
// Decrypt failures must be reported as common.ErrDecryptFailed so the merge
// engine can carry the ciphertext through opaquely instead of aborting.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// DeriveKey stretches an account secret into a 32-byte AES key with
// argon2id. The salt is stable per account.
func DeriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}

// AESGCMCipher is the default Cipher: AES-256-GCM with a random 12-byte
// nonce prepended to the ciphertext.
type AESGCMCipher struct {
	key []byte
}

func NewAESGCMCipher(key []byte) *AESGCMCipher {
	return &AESGCMCipher{key: key}
}

func (c *AESGCMCipher) Encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (c *AESGCMCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < aesgcm.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext too short", common.ErrDecryptFailed)
	}
	nonce, sealed := ciphertext[:aesgcm.NonceSize()], ciphertext[aesgcm.NonceSize():]

	plaintext, err := aesgcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptFailed, err)
	}
	return plaintext, nil
}

// DevSigner is a deterministic Signer for tests and local development. Real
// deployments inject the shell's hardware- or keystore-backed signer; the
// engine treats both as the same opaque capability.
type DevSigner struct {
	secret []byte
	pub    string
}

func NewDevSigner(secret []byte) *DevSigner {
	pub := sha256.Sum256(append([]byte("pub:"), secret...))
	return &DevSigner{secret: secret, pub: hex.EncodeToString(pub[:])}
}

func (s *DevSigner) Sign(payload []byte) ([]byte, error) {
	mac := sha256.New()
	mac.Write(s.secret)
	mac.Write(payload)
	return mac.Sum(nil), nil
}

func (s *DevSigner) PublicKey() string { return s.pub }
