package errors

import (
	"errors"
	"fmt"
	"strings"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// PreconditionError represents a failed runbook precondition. Remediation
// names the action that establishes the missing resource.
type PreconditionError struct {
	Resource    string
	Namespace   string
	Message     string
	Remediation string
}

func (e PreconditionError) Error() string {
	msg := fmt.Sprintf("Precondition failed for %s", e.Resource)
	if e.Namespace != "" {
		msg += fmt.Sprintf(" in namespace '%s'", e.Namespace)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Remediation != "" {
		msg += "\n  💡 " + e.Remediation
	}

	return msg
}

// ClusterError enhances cluster and release errors with context
func ClusterError(operation string, err error) error {
	suggestion := getClusterSuggestion(err)

	return UserError{
		Message:    fmt.Sprintf("cluster error during %s", operation),
		Suggestion: suggestion,
		Err:        err,
	}
}

// getClusterSuggestion returns helpful suggestions based on the error text
func getClusterSuggestion(err error) string {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Check that the cluster is reachable and the kubeconfig points at it: 'kubectl cluster-info'"
	}
	if strings.Contains(errStr, "Unauthorized") || strings.Contains(errStr, "credentials") {
		return "Refresh your cluster credentials or switch context: 'kubectl config use-context <name>'"
	}
	if strings.Contains(errStr, "forbidden") || strings.Contains(errStr, "cannot") && strings.Contains(errStr, "resource") {
		return "Your cluster user lacks RBAC permissions for this resource. Ask a cluster admin to grant them"
	}
	if strings.Contains(errStr, "release: not found") {
		return "The release does not exist yet. A fresh install will create it on the next run"
	}
	if strings.Contains(errStr, "timed out waiting") {
		return "The release did not become ready in time. Inspect pods with 'kubectl get pods' and raise --timeout if they are still progressing"
	}
	if strings.Contains(errStr, "timeout") {
		return "The operation timed out. Check your network connection and try again"
	}

	return ""
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	retryablePatterns := []string{
		"timeout",
		"temporary failure",
		"connection reset",
		"broken pipe",
		"rate limit",
		"throttling",
		"too many requests",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(strings.ToLower(errStr), pattern) {
			return true
		}
	}

	return false
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	// Already a user-friendly error
	if _, ok := err.(UserError); ok {
		return err
	}
	if _, ok := err.(ConfigError); ok {
		return err
	}
	if _, ok := err.(PreconditionError); ok {
		return err
	}

	// Simplify common technical errors
	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "json:") {
		return ConfigError{
			Message:    "Invalid JSON format",
			Suggestion: "Validate your JSON at https://jsonlint.com/",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	// Return original error if we can't simplify it
	return err
}
