package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/rehab/internal/constants"
)

var (
	// ErrNotFound is returned when no credentials are found in the keyring
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Secret names one credential slot in the OS keyring
type Secret string

const (
	SecretDatabase Secret = constants.DefaultKeyringUser
	SecretOpenAI   Secret = constants.OpenAIKeyringUser
	SecretJWT      Secret = constants.JWTKeyringUser
)

// ParseSecret maps the user-facing names accepted by the CLI to a Secret
func ParseSecret(name string) (Secret, error) {
	switch name {
	case "database", "db", string(SecretDatabase):
		return SecretDatabase, nil
	case "openai", string(SecretOpenAI):
		return SecretOpenAI, nil
	case "jwt", string(SecretJWT):
		return SecretJWT, nil
	}
	return "", fmt.Errorf("unknown secret %q (use database, openai, or jwt)", name)
}

// Get retrieves a secret from the OS keyring.
// Returns ErrNotFound if nothing is stored under that name.
func Get(secret Secret) (string, error) {
	value, err := keyring.Get(constants.AppName, string(secret))
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return value, nil
}

// Set stores a secret in the OS keyring.
func Set(secret Secret, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", secret)
	}
	if err := keyring.Set(constants.AppName, string(secret), value); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

// Delete removes a secret from the OS keyring.
func Delete(secret Secret) error {
	if err := keyring.Delete(constants.AppName, string(secret)); err != nil {
		if err == keyring.ErrNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}

// Lookup returns the stored secret or "" when it is missing or the keyring is unavailable.
func Lookup(secret Secret) string {
	value, err := Get(secret)
	if err != nil {
		return ""
	}
	return value
}

// GetConnectionString retrieves the database connection string from the OS keyring.
func GetConnectionString() (string, error) { return Get(SecretDatabase) }

// SetConnectionString stores the database connection string in the OS keyring.
func SetConnectionString(connStr string) error { return Set(SecretDatabase, connStr) }

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check and may not catch all failure scenarios.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || err == keyring.ErrNotFound
}
