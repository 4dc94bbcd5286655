package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Credential holds one sensitive value (a password, a generated secret, a
// DSN) in an encrypted memguard enclave between the step that obtains it
// and the step that consumes it.
//
// Note: memguard.Enclave doesn't have a direct Destroy method. Instead, we
// track the enclave and rely on memguard.Purge() for cleanup at process
// exit; the encrypted data is safe even without explicit destruction.
type Credential struct {
	enclave *memguard.Enclave
	mu      sync.RWMutex
	// destroyed allows idempotent Destroy() calls and prevents use after
	// destroy
	destroyed bool
}

// NewCredential seals value into a protected memory region. The enclave:
//   - Encrypts the data using XSalsa20Poly1305
//   - Attempts to mlock the memory to prevent swapping
//   - Sets up guard pages for overflow detection
//
// memguard wipes the source slice, so callers must not reuse value.
func NewCredential(value []byte) *Credential {
	return &Credential{
		enclave: memguard.NewEnclave(value),
	}
}

// Open decrypts and returns the credential in a locked buffer. The caller
// MUST call Destroy() on the returned LockedBuffer when done to wipe the
// plaintext from memory. Most call sites should prefer Use.
func (c *Credential) Open() (*memguard.LockedBuffer, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.destroyed {
		// Return an empty locked buffer if already destroyed
		return memguard.NewBufferFromBytes([]byte{}), nil
	}

	return c.enclave.Open()
}

// Use opens the credential, passes the plaintext to fn, and wipes the
// decrypted copy before returning. fn must not retain the slice.
func (c *Credential) Use(fn func(plain []byte) error) error {
	locked, err := c.Open()
	if err != nil {
		return err
	}
	defer locked.Destroy()

	return fn(locked.Bytes())
}

// Destroy marks this Credential as destroyed and prevents further use.
// Idempotent; after Destroy(), Open() returns an empty buffer.
//
// For complete cleanup of all memguard data at process exit, call
// memguard.Purge() in a defer statement in main().
func (c *Credential) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return
	}

	c.enclave = nil
	c.destroyed = true
}
