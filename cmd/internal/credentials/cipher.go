package credentials

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrKeyMissing  = errors.New("credentials: encryption key missing")
	ErrKeyBadSize  = errors.New("credentials: encryption key must be 32 bytes")
	ErrSealedShort = errors.New("credentials: sealed blob too short")
)

// BlobCipher seals credential blobs at rest with XChaCha20-Poly1305.
// The nonce is prepended to the ciphertext.
type BlobCipher struct {
	key []byte
}

// NewBlobCipher builds a cipher from a base64-encoded 32-byte key.
func NewBlobCipher(keyB64 string) (*BlobCipher, error) {
	keyB64 = strings.TrimSpace(keyB64)
	if keyB64 == "" {
		return nil, ErrKeyMissing
	}
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return nil, fmt.Errorf("credentials: decode key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrKeyBadSize
	}
	return &BlobCipher{key: key}, nil
}

// Seal encrypts a plaintext blob. Sealing nil yields nil.
func (c *BlobCipher) Seal(plain []byte) ([]byte, error) {
	if c == nil || len(plain) == 0 {
		return nil, nil
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plain, nil), nil
}

// Open decrypts a sealed blob produced by Seal.
func (c *BlobCipher) Open(sealed []byte) ([]byte, error) {
	if c == nil || len(sealed) == 0 {
		return nil, nil
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, ErrSealedShort
	}
	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, ct, nil)
}
