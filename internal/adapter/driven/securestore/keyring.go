package securestore

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/ericfisherdev/trackersync/internal/domain/port/driven"
)

// Keyring entry holding the master key.
const (
	KeyringService = "trackersync"
	KeyringUser    = "master-key"
)

// Compile-time interface satisfaction check.
var _ driven.SecretCipher = (*KeyringCipher)(nil)

// KeyringCipher seals secrets under a master key kept in the OS keyring
// (macOS Keychain, Secret Service, Windows Credential Manager). The key is
// generated and stored on first use and cached for the process lifetime.
type KeyringCipher struct {
	service string
	user    string

	mu  sync.Mutex
	key []byte
}

// NewKeyringCipher creates a cipher bound to the default keyring entry.
func NewKeyringCipher() *KeyringCipher {
	return &KeyringCipher{service: KeyringService, user: KeyringUser}
}

// Available reports whether the master key can be loaded or created.
func (c *KeyringCipher) Available(_ context.Context) bool {
	if _, err := c.masterKey(); err != nil {
		slog.Warn("os keyring unavailable", "error", err)
		return false
	}
	return true
}

// Encrypt seals plaintext with the master key.
func (c *KeyringCipher) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	key, err := c.masterKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", driven.ErrSecurityUnavailable, err)
	}
	return seal(key, plaintext)
}

// Decrypt opens a blob produced by Encrypt.
func (c *KeyringCipher) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	key, err := c.masterKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", driven.ErrSecurityUnavailable, err)
	}
	return open(key, ciphertext)
}

func (c *KeyringCipher) masterKey() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key != nil {
		return c.key, nil
	}

	encoded, err := keyring.Get(c.service, c.user)
	switch {
	case err == nil:
		key, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil || len(key) != KeySize {
			return nil, fmt.Errorf("keyring entry %s/%s: %w", c.service, c.user, ErrInvalidKey)
		}
		c.key = key
		return key, nil
	case errors.Is(err, keyring.ErrNotFound):
		key := make([]byte, KeySize)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return nil, fmt.Errorf("generate master key: %w", err)
		}
		if err := keyring.Set(c.service, c.user, base64.StdEncoding.EncodeToString(key)); err != nil {
			return nil, fmt.Errorf("store master key: %w", err)
		}
		slog.Info("generated credential master key", "service", c.service)
		c.key = key
		return key, nil
	default:
		return nil, fmt.Errorf("read master key: %w", err)
	}
}
