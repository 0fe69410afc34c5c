// Package envelope seals relay payloads with AES-256-GCM.
//
// Wire form: base64 standard encoding (padded) of nonce(12) || ciphertext||tag.
// No associated data is bound to the ciphertext.
package envelope

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	KeySize   = 32
	NonceSize = 12
)

// Codec is safe for concurrent use; the key never changes after construction.
type Codec struct {
	aead cipher.AEAD
}

// ParseKey decodes a 64 hex character key.
func ParseKey(hexKey string) ([]byte, error) {
	hexKey = strings.TrimSpace(hexKey)
	if hexKey == "" {
		return nil, fmt.Errorf("%w: encryption key is missing", errors.ErrConfiguration)
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: encryption key is not hex: %v", errors.ErrConfiguration, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: encryption key must be %d bytes, got %d",
			errors.ErrConfiguration, KeySize, len(key))
	}
	return key, nil
}

func NewCodec(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: encryption key must be %d bytes, got %d",
			errors.ErrConfiguration, KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrConfiguration, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrConfiguration, err)
	}
	return &Codec{aead: aead}, nil
}

// NewCodecFromHex is ParseKey followed by NewCodec.
func NewCodecFromHex(hexKey string) (*Codec, error) {
	key, err := ParseKey(hexKey)
	if err != nil {
		return nil, err
	}
	return NewCodec(key)
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce generation failed: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens an envelope produced by Encrypt with the same key.
func (c *Codec) Decrypt(envelope string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrFormat, err)
	}
	if len(raw) < NonceSize {
		return "", fmt.Errorf("%w: envelope shorter than nonce (%d bytes)", errors.ErrFormat, len(raw))
	}
	nonce, ciphertext := raw[:NonceSize], raw[NonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.ErrAuthentication
	}
	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("%w: plaintext is not valid UTF-8", errors.ErrFormat)
	}
	return string(plaintext), nil
}

// Seal validates, serializes and encrypts a payload.
func (c *Codec) Seal(p domain.Payload) (string, error) {
	raw, err := p.Marshal()
	if err != nil {
		return "", err
	}
	return c.Encrypt(raw)
}

// Open decrypts and parses a payload.
func (c *Codec) Open(envelope string) (domain.Payload, error) {
	raw, err := c.Decrypt(envelope)
	if err != nil {
		return domain.Payload{}, err
	}
	return domain.ParsePayload(raw)
}
