package repository

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const sealedPrefix = "sb1:"

// Sealer protects account secrets at rest.
type Sealer interface {
	Seal(plain string) (string, error)
	Open(stored string) (string, error)
}

// PlainSealer stores secrets as-is.
type PlainSealer struct{}

func (PlainSealer) Seal(plain string) (string, error)  { return plain, nil }
func (PlainSealer) Open(stored string) (string, error) { return stored, nil }

// SecretBox seals secrets with NaCl secretbox. Stored values without the
// sb1: prefix are returned unchanged, so plaintext rows keep working.
type SecretBox struct {
	key [32]byte
}

// NewSecretBox parses a 32-byte key given as hex or standard base64.
func NewSecretBox(encodedKey string) (*SecretBox, error) {
	raw, err := decodeKey(strings.TrimSpace(encodedKey))
	if err != nil {
		return nil, err
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("secret key must be 32 bytes, got %d", len(raw))
	}
	sb := &SecretBox{}
	copy(sb.key[:], raw)
	return sb, nil
}

func decodeKey(s string) ([]byte, error) {
	if b, err := hex.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return nil, errors.New("secret key must be hex or base64 encoded")
}

func (s *SecretBox) Seal(plain string) (string, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plain), &nonce, &s.key)
	return sealedPrefix + base64.StdEncoding.EncodeToString(box), nil
}

func (s *SecretBox) Open(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("decode sealed secret: %w", err)
	}
	if len(raw) < 24+secretbox.Overhead {
		return "", errors.New("sealed secret too short")
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &s.key)
	if !ok {
		return "", errors.New("sealed secret failed authentication")
	}
	return string(plain), nil
}
