package deploy

import (
	"crypto/rand"
	"fmt"

	"github.com/systmms/authstack/internal/secure"
)

// secretLength is the length of every generated per-run secret.
const secretLength = 32

// secretCharset deliberately stays alphanumeric: values built from it never
// need quoting in YAML, a URL, or a SQL literal.
const secretCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewSecret generates a fresh 32-character random secret sealed in a
// Credential. Callers get a new value on every call; nothing is persisted
// or reused between runs.
func NewSecret() (*secure.Credential, error) {
	buf := make([]byte, secretLength)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}

	for i := range buf {
		buf[i] = secretCharset[buf[i]%byte(len(secretCharset))]
	}

	return secure.NewCredential(buf), nil
}
