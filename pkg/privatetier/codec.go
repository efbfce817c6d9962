// Package privatetier implements the Private-tier encryption codec: HKDF
// sub-key derivation and AEAD encode/decode with the content checksum
// bound into the associated data so a tampered ciphertext or a swapped
// checksum both fail authentication rather than silently decrypting.
package privatetier

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/nous-sync/nse/pkg/errs"
)

// SubKeyInfo strings are the fixed HKDF "info" parameters for each of the
// three sub-keys derived from a namespace's master key.
const (
	InfoContent   = "nous-content"
	InfoEmbedding = "nous-embedding"
	InfoMetadata  = "nous-metadata"
)

const (
	keySize   = chacha20poly1305.KeySize
	nonceSize = chacha20poly1305.NonceSizeX
)

// DeriveSubKey derives a 256-bit sub-key from master using HKDF-SHA-256
// with the given salt and fixed info string.
func DeriveSubKey(master, salt []byte, info string) ([]byte, error) {
	reader := hkdf.New(sha256.New, master, salt, []byte(info))
	key := make([]byte, keySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("privatetier: derive sub-key: %w", err)
	}
	return key, nil
}

// Checksum returns the hex-encoded SHA-256 digest of plaintext, used both
// as the on-device integrity check and as part of the AEAD associated
// data binding a ciphertext to the checksum it was encrypted under.
func Checksum(plaintext []byte) string {
	sum := sha256.Sum256(plaintext)
	return hex.EncodeToString(sum[:])
}

// Encrypted is the result of Encode: ciphertext, the nonce used, and the
// checksum the ciphertext's associated data was bound to.
type Encrypted struct {
	Ciphertext []byte
	Nonce      []byte
	Checksum   string
}

// Encode authenticates and encrypts plaintext under subKey, binding
// checksum into the associated data so that decrypting with a mismatched
// checksum fails closed.
func Encode(subKey, plaintext []byte) (*Encrypted, error) {
	aead, err := chacha20poly1305.NewX(subKey)
	if err != nil {
		return nil, fmt.Errorf("privatetier: new aead: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("privatetier: generate nonce: %w", err)
	}

	checksum := Checksum(plaintext)
	ciphertext := aead.Seal(nil, nonce, plaintext, []byte(checksum))

	return &Encrypted{Ciphertext: ciphertext, Nonce: nonce, Checksum: checksum}, nil
}

// Decode authenticates and decrypts ciphertext under subKey. checksum
// must be the same value Encode produced; a mismatch (tampered checksum
// field, corrupted ciphertext, or wrong key) is reported as a SyncError
// of kind IntegrityError via the AEAD authentication failure.
func Decode(subKey, nonce, ciphertext []byte, checksum string) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(subKey)
	if err != nil {
		return nil, fmt.Errorf("privatetier: new aead: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(checksum))
	if err != nil {
		return nil, errs.NewIntegrityError("")
	}

	if Checksum(plaintext) != checksum {
		return nil, errs.NewIntegrityError("")
	}

	return plaintext, nil
}
