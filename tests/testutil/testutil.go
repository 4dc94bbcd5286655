// Package testutil provides shared helpers for the runbook's tests.
//
// The logger writes to the process streams directly, so tests that assert
// on output capture os.Stdout/os.Stderr around the call under test. The
// redaction assertions encode the security contract every log line must
// honor: secret material never appears in clear, the [REDACTED] marker
// appears in its place.
package testutil

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

// CaptureStdout runs fn and returns everything it wrote to stdout.
//
// Tests using this helper cannot run in parallel: it swaps the global
// os.Stdout for the duration of fn.
func CaptureStdout(fn func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// CaptureStderr runs fn and returns everything it wrote to stderr.
//
// Tests using this helper cannot run in parallel: it swaps the global
// os.Stderr for the duration of fn.
func CaptureStderr(fn func()) string {
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	fn()

	_ = w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// AssertSecretRedacted verifies that a secret value does not appear in output.
//
// It checks both directions of the redaction contract: the secret value is
// absent and the [REDACTED] marker is present in its place.
//
// Example usage:
//
//	output := testutil.CaptureStdout(func() {
//	    logger.Info("admin password: %s", logging.Secret("pw"))
//	})
//	testutil.AssertSecretRedacted(t, output, "pw")
func AssertSecretRedacted(t *testing.T, output, secretValue string) {
	t.Helper()

	assert.NotContains(t, output, secretValue,
		"Secret value %q should be redacted, but appears in output", secretValue)
	assert.Contains(t, output, "[REDACTED]",
		"Expected [REDACTED] marker when secret is used")
}

// AssertNoSecretLeak verifies that multiple secret values are all redacted
// in output. Useful when a single log line carries several credentials
// (admin password, service passwords, DSNs).
func AssertNoSecretLeak(t *testing.T, output string, secrets []string) {
	t.Helper()

	for _, secret := range secrets {
		assert.NotContains(t, output, secret,
			"Secret %q should be redacted, but appears in output", secret)
	}

	assert.Contains(t, output, "[REDACTED]",
		"Expected at least one [REDACTED] marker in output")
}
