package storage

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const secretFileName = "secret"

// PlaceholderSecret is written on first run when no secret exists yet.
const PlaceholderSecret = "secret"

// ErrEmptySecret indicates the secret file exists but holds no token.
var ErrEmptySecret = errors.New("secret is empty")

// LoadSecret returns the trigger secret, creating the secret file with
// PlaceholderSecret if it does not exist. Surrounding whitespace, such as the
// newline an editor appends, is not part of the secret.
func (store *Store) LoadSecret() (string, error) {
	secretPath := store.path(secretFileName)

	rawData, err := os.ReadFile(secretPath)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(store.dir, 0o700); err != nil {
			return "", fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(secretPath, []byte(PlaceholderSecret), 0o600); err != nil {
			return "", fmt.Errorf("write secret file: %w", err)
		}
		return PlaceholderSecret, nil
	}
	if err != nil {
		return "", fmt.Errorf("read secret file: %w", err)
	}

	secret := strings.TrimSpace(string(rawData))
	if secret == "" {
		return "", ErrEmptySecret
	}
	return secret, nil
}

// SecretPath returns where the secret is stored.
func (store *Store) SecretPath() string {
	return store.path(secretFileName)
}
