package keyring

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/nous-sync/nse/pkg/privatetier"
)

// KeyHandle wraps key material without exposing it through String() or
// Format() — the zero value prints as an empty struct and %v/%s on a
// populated handle never leaks bytes. Reveal() is the one escape hatch to
// the raw bytes.
type KeyHandle struct {
	key []byte
}

// Format implements fmt.Formatter: every verb prints "{}", never the key
// bytes.
func (k KeyHandle) Format(f fmt.State, verb rune) {
	_, _ = io.WriteString(f, "{}")
}

// Reveal returns the underlying key bytes.
func (k KeyHandle) Reveal() []byte {
	return k.key
}

// Zero reports whether the handle holds no key material.
func (k KeyHandle) Zero() bool {
	return len(k.key) == 0
}

// MasterKeyFromSecret derives the namespace master key from a
// passkey-backed secret (never itself persisted) and a per-namespace
// salt. The master key lives only in this handle's memory for the
// lifetime of the process; nothing in this package ever writes it to
// disk or a log.
func MasterKeyFromSecret(secret, salt []byte) (KeyHandle, error) {
	reader := hkdf.New(sha256.New, secret, salt, []byte("nous-master"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return KeyHandle{}, err
	}
	return KeyHandle{key: key}, nil
}

// SubKey derives one of the three fixed sub-keys (content/embedding/
// metadata) from this master key for a given rotation salt.
func (k KeyHandle) SubKey(salt []byte, info string) (KeyHandle, error) {
	sub, err := privatetier.DeriveSubKey(k.key, salt, info)
	if err != nil {
		return KeyHandle{}, err
	}
	return KeyHandle{key: sub}, nil
}
