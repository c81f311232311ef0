package securestore

import (
	"context"

	"github.com/ericfisherdev/trackersync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SecretCipher = (*StaticKeyCipher)(nil)

// StaticKeyCipher seals secrets with a key supplied by configuration
// (TRACKERSYNC_SECRET_KEY). It is always available.
type StaticKeyCipher struct {
	key []byte
}

// NewStaticKeyCipher creates a cipher from a 32-byte key.
func NewStaticKeyCipher(key []byte) (*StaticKeyCipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	return &StaticKeyCipher{key: append([]byte(nil), key...)}, nil
}

// Available always reports true.
func (c *StaticKeyCipher) Available(_ context.Context) bool {
	return true
}

// Encrypt seals plaintext with the configured key.
func (c *StaticKeyCipher) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	return seal(c.key, plaintext)
}

// Decrypt opens a blob produced by Encrypt.
func (c *StaticKeyCipher) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	return open(c.key, ciphertext)
}
