package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/authstack/internal/errors"
	"github.com/systmms/authstack/internal/logging"
)

// TestUserErrorFormatting verifies UserError displays properly
func TestUserErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.UserError{
		Message:    "Operation failed",
		Details:    "Connection timeout",
		Suggestion: "Check network connectivity",
	}

	errMsg := err.Error()

	assert.Contains(t, errMsg, "Operation failed")
	assert.Contains(t, errMsg, "Connection timeout")
	assert.Contains(t, errMsg, "Check network connectivity")
	assert.Contains(t, errMsg, "💡")
}

// TestConfigErrorFormatting verifies ConfigError displays with context
func TestConfigErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.ConfigError{
		Field:      "endpoints.identity",
		Value:      "invalid-url",
		Message:    "Invalid URL format",
		Suggestion: "Use format: https://hostname",
	}

	errMsg := err.Error()

	assert.Contains(t, errMsg, "endpoints.identity")
	assert.Contains(t, errMsg, "invalid-url")
	assert.Contains(t, errMsg, "Invalid URL format")
	assert.Contains(t, errMsg, "https://hostname")
}

// TestPreconditionErrorFormatting verifies PreconditionError names the
// resource and carries remediation text
func TestPreconditionErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.PreconditionError{
		Resource:    "secret/core-postgres-superuser",
		Namespace:   "core",
		Message:     "not found",
		Remediation: "run `setup-core` first",
	}

	errMsg := err.Error()

	assert.Contains(t, errMsg, "secret/core-postgres-superuser")
	assert.Contains(t, errMsg, "namespace 'core'")
	assert.Contains(t, errMsg, "not found")
	assert.Contains(t, errMsg, "run `setup-core` first")
}

// TestClusterErrorWithSecretRedaction verifies cluster errors redact secrets when properly wrapped
// TODO: This test is currently skipped because errors.ClusterError doesn't propagate
// logging.Secret redaction through error wrapping. Requires error package enhancement.
func TestClusterErrorWithSecretRedaction(t *testing.T) {
	t.Skip("Requires error package to implement secret redaction in wrapped errors")
	t.Parallel()

	secretValue := "api-key-super-secret-123"

	// Create base error with secret (using logging.Secret ensures redaction)
	baseErr := fmt.Errorf("authentication failed with key: %s", logging.Secret(secretValue))

	// Wrap in cluster error
	clusterErr := errors.ClusterError("apply secret", baseErr)

	errMsg := clusterErr.Error()

	// Should contain operation context
	assert.Contains(t, errMsg, "cluster error")
	assert.Contains(t, errMsg, "apply secret")

	// Because baseErr used logging.Secret, the error chain will contain [REDACTED]
	assert.Contains(t, errMsg, "[REDACTED]", "Secret should be redacted in error chain")

	// Should NOT contain actual secret
	assert.NotContains(t, errMsg, secretValue, "Actual secret value must not appear")
}

// TestClusterErrorSuggestions verifies cluster-specific error suggestions
func TestClusterErrorSuggestions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name               string
		errorMsg           string
		expectedSuggestion string
	}{
		{
			name:               "connection_refused",
			errorMsg:           "dial tcp 127.0.0.1:6443: connection refused",
			expectedSuggestion: "kubectl cluster-info",
		},
		{
			name:               "unauthorized",
			errorMsg:           "Unauthorized",
			expectedSuggestion: "kubectl config use-context",
		},
		{
			name:               "release_not_found",
			errorMsg:           "release: not found",
			expectedSuggestion: "fresh install",
		},
		{
			name:               "wait_timeout",
			errorMsg:           "timed out waiting for the condition",
			expectedSuggestion: "--timeout",
		},
		{
			name:               "generic_timeout",
			errorMsg:           "context deadline exceeded (timeout)",
			expectedSuggestion: "timed out",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			baseErr := fmt.Errorf("%s", tt.errorMsg)
			clusterErr := errors.ClusterError("install release", baseErr)

			errMsg := clusterErr.Error()
			assert.Contains(t, errMsg, tt.expectedSuggestion)
		})
	}
}

// TestIsRetryable verifies retryable error detection
func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		errorMsg  string
		retryable bool
	}{
		{"timeout", "operation timeout", true},
		{"rate_limit", "rate limit exceeded", true},
		{"throttling", "ThrottlingException", true},
		{"connection_reset", "connection reset by peer", true},
		{"broken_pipe", "broken pipe", true},
		{"not_found", "resource not found", false},
		{"invalid_config", "invalid configuration", false},
		{"nil_error", "", false}, // nil error case
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var err error
			if tt.errorMsg != "" {
				err = fmt.Errorf("%s", tt.errorMsg)
			}

			result := errors.IsRetryable(err)
			assert.Equal(t, tt.retryable, result)
		})
	}
}

// TestSimplifyError verifies error simplification for common cases
func TestSimplifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		inputError    error
		expectedType  string
		expectedInMsg string
	}{
		{
			name:          "yaml_error",
			inputError:    fmt.Errorf("yaml: line 5: mapping values are not allowed"),
			expectedType:  "ConfigError",
			expectedInMsg: "Invalid YAML",
		},
		{
			name:          "json_error",
			inputError:    fmt.Errorf("json: invalid character"),
			expectedType:  "ConfigError",
			expectedInMsg: "Invalid JSON",
		},
		{
			name:          "permission_denied",
			inputError:    fmt.Errorf("permission denied"),
			expectedType:  "UserError",
			expectedInMsg: "Permission denied",
		},
		{
			name:          "file_not_found",
			inputError:    fmt.Errorf("no such file or directory"),
			expectedType:  "UserError",
			expectedInMsg: "not found",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			simplified := errors.SimplifyError(tt.inputError)

			errMsg := simplified.Error()
			assert.Contains(t, errMsg, tt.expectedInMsg)

			// Check error type
			switch tt.expectedType {
			case "ConfigError":
				_, ok := simplified.(errors.ConfigError)
				assert.True(t, ok, "Should be ConfigError type")
			case "UserError":
				_, ok := simplified.(errors.UserError)
				assert.True(t, ok, "Should be UserError type")
			}
		})
	}
}

// TestSimplifyErrorKeepsPreconditionError verifies precondition errors pass through untouched
func TestSimplifyErrorKeepsPreconditionError(t *testing.T) {
	t.Parallel()

	orig := errors.PreconditionError{
		Resource:    "pod/core-postgres-0",
		Namespace:   "core",
		Message:     "phase is Pending",
		Remediation: "run `setup-core` first",
	}

	simplified := errors.SimplifyError(orig)
	assert.Equal(t, orig, simplified)
}

// TestUserErrorUnwrap verifies error unwrapping works correctly
func TestUserErrorUnwrap(t *testing.T) {
	t.Parallel()

	baseErr := fmt.Errorf("base error")
	userErr := errors.UserError{
		Message: "wrapped error",
		Err:     baseErr,
	}

	unwrapped := userErr.Unwrap()
	assert.Equal(t, baseErr, unwrapped)
}

// TestNilErrorHandling verifies nil errors are handled gracefully
func TestNilErrorHandling(t *testing.T) {
	t.Parallel()

	// IsRetryable with nil
	assert.False(t, errors.IsRetryable(nil))

	// SimplifyError with nil
	assert.Nil(t, errors.SimplifyError(nil))
}
