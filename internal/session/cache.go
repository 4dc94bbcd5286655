// Package session caches verified login sessions in the OS keyring so a
// smoke-tested session pair can be inspected later without a fresh login.
package session

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/systmms/authstack/internal/logging"
)

// service is the keyring service name all cached sessions live under.
const service = "authstack"

// ErrNotCached reports that no session is cached for the identifier.
var ErrNotCached = errors.New("no cached session")

// Save stores the session pair for an identifier, replacing any previous
// one.
func Save(identifier string, pair logging.Secret) error {
	if identifier == "" {
		return fmt.Errorf("cannot cache a session without an identifier")
	}
	if err := keyring.Set(service, identifier, pair.Reveal()); err != nil {
		return fmt.Errorf("store session for %s: %w", identifier, err)
	}
	return nil
}

// Load returns the cached session pair for an identifier.
func Load(identifier string) (logging.Secret, error) {
	pair, err := keyring.Get(service, identifier)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotCached
		}
		return "", fmt.Errorf("read session for %s: %w", identifier, err)
	}
	return logging.Secret(pair), nil
}
