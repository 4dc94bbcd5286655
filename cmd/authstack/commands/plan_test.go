package commands

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanCommand_TableOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	output := captureOutput(t, NewPlanCommand(cfg), nil)

	// Every step appears, in runbook order.
	steps := []string{
		"preflight", "namespace", "database", "dsn-secrets",
		"identity", "oauth", "permission", "gateway-crds", "gateway", "access-rules",
	}
	last := -1
	for _, step := range steps {
		idx := strings.Index(output, step)
		require.GreaterOrEqual(t, idx, 0, "step %s missing from output", step)
		assert.Greater(t, idx, last, "step %s out of order", step)
		last = idx
	}

	assert.Contains(t, output, "Total steps: 10")
	assert.Contains(t, output, "release/auth/auth-kratos")
}

func TestPlanCommand_JSONOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	output := captureOutput(t, NewPlanCommand(cfg), []string{"--json"})

	var result struct {
		Steps []struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Requires    []string `json:"requires"`
			Produces    []string `json:"produces"`
		} `json:"steps"`
		Summary struct {
			TotalSteps int `json:"total_steps"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &result))

	assert.Equal(t, 10, result.Summary.TotalSteps)
	assert.Equal(t, "preflight", result.Steps[0].Name)
	assert.Equal(t, "access-rules", result.Steps[9].Name)

	// The identity step consumes the DSN secret the dsn-secrets step wrote.
	var identityRequires []string
	for _, step := range result.Steps {
		if step.Name == "identity" {
			identityRequires = step.Requires
		}
	}
	assert.Contains(t, identityRequires, "secret/auth/kratos-dsn")
}

func TestPlanCommand_MissingConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Path = dir + "/missing.yaml"

	cmd := NewPlanCommand(cfg)
	cmd.SetArgs([]string{})
	cmd.SilenceUsage = true
	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}
