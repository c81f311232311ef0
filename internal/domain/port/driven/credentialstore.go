package driven

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
)

// Vault errors. They wrap the model error kinds so the command layer can
// classify them without knowing about the vault.
var (
	// ErrSecurityUnavailable is returned when the platform secure storage
	// capability is absent and the plaintext override is not set.
	ErrSecurityUnavailable = fmt.Errorf("%w: secure storage unavailable", model.ErrSecurity)

	// ErrFallbackDisabled is returned when a plaintext-tagged credential is
	// read after the plaintext override has been turned off.
	ErrFallbackDisabled = fmt.Errorf("%w: plaintext credential fallback disabled", model.ErrSecurity)

	// ErrCredentialNotFound is returned when no credential exists for a ref.
	ErrCredentialNotFound = fmt.Errorf("%w: credential", model.ErrNotFound)
)

// SecretCipher is the platform secure-storage capability used by the
// credential vault. Implementations hold their key outside the local store.
type SecretCipher interface {
	// Available reports whether Encrypt and Decrypt can currently succeed.
	Available(ctx context.Context) bool
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// SettingsStore is the generic key/value settings table. Credential blobs
// are stored here under "credential:<ref>".
type SettingsStore interface {
	// Get returns the value and true, or ("", false, nil) when the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
