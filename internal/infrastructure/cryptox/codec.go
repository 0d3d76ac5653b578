// Package cryptox provides the authenticated symmetric codec used for delete
// tokens and encrypted request parameters.
package cryptox

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/garyjia/driveindex/internal/domain/entity"
)

// MinSecretLength is the shortest accepted server secret
const MinSecretLength = 16

const keyInfo = "driveindex signed codec v1"

var encoding = base64.RawURLEncoding

// SignedCodec seals arbitrary bytes into URL-safe tokens with
// XChaCha20-Poly1305. Tokens are base64url(nonce || ciphertext) and never
// contain '.'.
type SignedCodec struct {
	aead cipher.AEAD
}

// NewSignedCodec derives the codec key from secret with HKDF-SHA256
func NewSignedCodec(secret string) (*SignedCodec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("secret must be at least %d bytes", MinSecretLength)
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return &SignedCodec{aead: aead}, nil
}

// Encode seals plain with a fresh random nonce
func (c *SignedCodec) Encode(plain []byte) (string, error) {
	nonceSize := c.aead.NonceSize()
	nonce := make([]byte, nonceSize, nonceSize+len(plain)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, plain, nil)
	return encoding.EncodeToString(sealed), nil
}

// Decode opens a token produced by Encode. Every failure wraps entity.ErrDecode.
func (c *SignedCodec) Decode(token string) ([]byte, error) {
	raw, err := encoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: not base64url", entity.ErrDecode)
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize+c.aead.Overhead() {
		return nil, fmt.Errorf("%w: token too short", entity.ErrDecode)
	}

	plain, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", entity.ErrDecode)
	}

	return plain, nil
}

// EncodeString is Encode for string payloads
func (c *SignedCodec) EncodeString(s string) (string, error) {
	return c.Encode([]byte(s))
}

// DecodeString is Decode for string payloads
func (c *SignedCodec) DecodeString(token string) (string, error) {
	plain, err := c.Decode(token)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
