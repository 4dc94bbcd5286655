package deploy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlanOrder(t *testing.T) {
	t.Parallel()

	plan := BuildPlan(testDefinition(t.TempDir()))

	names := make([]string, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		names = append(names, step.Name)
	}
	assert.Equal(t, []string{
		StepPreflight,
		StepNamespace,
		StepDatabase,
		StepDSNSecrets,
		StepIdentity,
		StepOAuth,
		StepPermission,
		StepGatewayCRDs,
		StepGateway,
		StepAccessRules,
	}, names)
}

func TestBuildPlanValidates(t *testing.T) {
	t.Parallel()

	plan := BuildPlan(testDefinition(t.TempDir()))
	assert.NoError(t, plan.Validate())
}

func TestPlanValidateRejectsReorderedSteps(t *testing.T) {
	t.Parallel()

	plan := BuildPlan(testDefinition(t.TempDir()))

	// Swapping identity and oauth breaks the release dependency chain:
	// oauth requires the identity release.
	plan.Steps[4], plan.Steps[5] = plan.Steps[5], plan.Steps[4]

	err := plan.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "release/auth/auth-kratos")
	assert.Contains(t, err.Error(), "no earlier step produces")
}

func TestPlanValidate(t *testing.T) {
	t.Parallel()

	noop := func(ctx context.Context, env *Env) error { return nil }

	tests := []struct {
		name    string
		plan    *Plan
		wantErr string
	}{
		{
			name: "unnamed step",
			plan: &Plan{Steps: []Step{
				{Run: noop},
			}},
			wantErr: "step 1 has no name",
		},
		{
			name: "duplicate name",
			plan: &Plan{Steps: []Step{
				{Name: "one", Run: noop},
				{Name: "one", Run: noop},
			}},
			wantErr: `duplicate step name "one"`,
		},
		{
			name: "missing run function",
			plan: &Plan{Steps: []Step{
				{Name: "one"},
			}},
			wantErr: `step "one" has no run function`,
		},
		{
			name: "unmet requirement",
			plan: &Plan{Steps: []Step{
				{Name: "one", Run: noop, Requires: []Resource{{Kind: "secret", Namespace: "auth", Name: "kratos-dsn"}}},
			}},
			wantErr: `step "one" requires secret/auth/kratos-dsn`,
		},
		{
			name: "requirement met by earlier step",
			plan: &Plan{Steps: []Step{
				{Name: "one", Run: noop, Produces: []Resource{{Kind: "namespace", Name: "auth"}}},
				{Name: "two", Run: noop, Requires: []Resource{{Kind: "namespace", Name: "auth"}}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResourceString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		resource Resource
		want     string
	}{
		{"cluster scoped", Resource{Kind: "namespace", Name: "auth"}, "namespace/auth"},
		{"namespaced", Resource{Kind: "secret", Namespace: "auth", Name: "kratos-dsn"}, "secret/auth/kratos-dsn"},
		{"crd", Resource{Kind: "crd", Name: GatewayRuleCRD}, "crd/rules.oathkeeper.ory.sh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.resource.String())
		})
	}
}
