// Package secure provides memory-safe handling of credentials in flight.
//
// The deployment runbook holds several short-lived secrets between steps:
// the database engine's administrative password read back from the cluster,
// the per-run role passwords, and the generated service secrets. This
// package wraps the memguard library so those values are:
//
//   - Encrypted at rest in memory (XSalsa20Poly1305)
//   - Protected from swapping via mlock
//   - Securely wiped when no longer needed
//   - Protected from buffer overflow via guard pages
//
// # Usage
//
// Seal a credential as soon as it is obtained:
//
//	cred := secure.NewCredential(passwordBytes)
//	defer cred.Destroy()
//
//	// At the single point the plaintext is needed:
//	err := cred.Use(func(plain []byte) error {
//	    dsn = postgres.DSN(role, string(plain), host, port, db)
//	    return nil
//	})
//
// # Platform Behavior
//
// Memory locking behavior varies by platform:
//
//   - Linux: Requires RLIMIT_MEMLOCK to be set appropriately
//   - macOS: Works out of the box
//   - Windows: Uses VirtualLock
//
// If mlock is unavailable or fails, the package continues with standard Go
// memory (graceful degradation).
//
// # Security Guarantees
//
// This package provides defense-in-depth against memory-based attacks:
//
//   - Core dumps will not contain plaintext secrets
//   - Secrets won't be swapped to disk
//   - Memory is overwritten with zeros on destruction
//   - Guard pages detect buffer overflows
//
// It does NOT protect against:
//
//   - Attackers with root access to the running process
//   - Hardware-level attacks (cold boot, DMA)
//   - Spectre/Meltdown side-channel attacks
package secure
