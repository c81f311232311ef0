package application

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
	"github.com/ericfisherdev/trackersync/internal/domain/port/driven"
)

// Stored credential value tags.
const (
	encryptedTag = "enc:v1:"
	plaintextTag = "plain:v1:"
)

// CredentialVault stores remote credentials in the settings table under an
// indirection key. Values are sealed by the platform cipher; a distinctly
// tagged plaintext value is written only when the plaintext override is set.
type CredentialVault struct {
	cipher         driven.SecretCipher
	settings       driven.SettingsStore
	allowPlaintext bool
}

// NewCredentialVault creates a vault. cipher may be nil when no platform
// secure storage exists.
func NewCredentialVault(cipher driven.SecretCipher, settings driven.SettingsStore, allowPlaintext bool) *CredentialVault {
	return &CredentialVault{
		cipher:         cipher,
		settings:       settings,
		allowPlaintext: allowPlaintext,
	}
}

func credentialKey(ref string) string {
	return "credential:" + ref
}

func (v *CredentialVault) cipherAvailable(ctx context.Context) bool {
	return v.cipher != nil && v.cipher.Available(ctx)
}

// Store seals secret and writes it under ref, replacing any previous value.
func (v *CredentialVault) Store(ctx context.Context, ref, secret string) error {
	if ref == "" {
		return fmt.Errorf("%w: credential ref is required", model.ErrValidation)
	}
	if secret == "" {
		return fmt.Errorf("%w: credential is required", model.ErrValidation)
	}

	var value string
	switch {
	case v.cipherAvailable(ctx):
		sealed, err := v.cipher.Encrypt(ctx, []byte(secret))
		if err != nil {
			return fmt.Errorf("encrypt credential: %w", err)
		}
		value = encryptedTag + base64.StdEncoding.EncodeToString(sealed)
	case v.allowPlaintext:
		slog.Warn("secure storage unavailable, storing plaintext credential", "ref", ref)
		value = plaintextTag + secret
	default:
		return driven.ErrSecurityUnavailable
	}

	if err := v.settings.Set(ctx, credentialKey(ref), value); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

// Read returns the secret stored under ref.
func (v *CredentialVault) Read(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("%w: credential ref is required", model.ErrValidation)
	}

	value, ok, err := v.settings.Get(ctx, credentialKey(ref))
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	if !ok {
		return "", driven.ErrCredentialNotFound
	}

	switch {
	case strings.HasPrefix(value, plaintextTag):
		if !v.allowPlaintext {
			return "", driven.ErrFallbackDisabled
		}
		return strings.TrimPrefix(value, plaintextTag), nil
	case strings.HasPrefix(value, encryptedTag):
		if !v.cipherAvailable(ctx) {
			return "", driven.ErrSecurityUnavailable
		}
		sealed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, encryptedTag))
		if err != nil {
			return "", fmt.Errorf("%w: malformed credential blob", model.ErrSecurity)
		}
		plain, err := v.cipher.Decrypt(ctx, sealed)
		if err != nil {
			return "", fmt.Errorf("%w: decrypt credential: %v", model.ErrSecurity, err)
		}
		return string(plain), nil
	default:
		return "", fmt.Errorf("%w: unrecognized credential format", model.ErrSecurity)
	}
}

// Delete removes the credential under ref. Deleting an absent ref is not an error.
func (v *CredentialVault) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	if err := v.settings.Delete(ctx, credentialKey(ref)); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
