package app

import (
	"errors"

	"courier/cmd/internal/credentials"
)

// ValidateSecurityConfig enforces courier's security policy at startup.
//
// Fail-fast is intentional: silently storing credential blobs in plaintext
// under a policy that demands encryption is unacceptable.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireCredentialsKey {
		return nil
	}

	if cfg.CredentialsKey == "" {
		return errors.New("security policy: COURIER_REQUIRE_CREDENTIALS_KEY=true but COURIER_CREDENTIALS_KEY is missing")
	}
	if _, err := credentials.NewBlobCipher(cfg.CredentialsKey); err != nil {
		if errors.Is(err, credentials.ErrKeyBadSize) {
			return errors.New("security policy: COURIER_CREDENTIALS_KEY must decode to 32 bytes")
		}
		return err
	}
	return nil
}
