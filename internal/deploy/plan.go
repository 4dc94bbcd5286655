// Package deploy implements the deployment runbook: an explicit ordered
// plan of named steps that converges a cluster to a working authentication
// stack. Steps talk to the cluster and the package manager exclusively
// through the capability interfaces in pkg/cluster and pkg/release, so the
// whole runbook runs against fakes in tests.
package deploy

import (
	"context"
	"fmt"

	"github.com/systmms/authstack/internal/config"
)

// Step names, in plan order. Metrics labels and tests refer to these.
const (
	StepPreflight   = "preflight"
	StepNamespace   = "namespace"
	StepDatabase    = "database"
	StepDSNSecrets  = "dsn-secrets"
	StepIdentity    = "identity"
	StepOAuth       = "oauth"
	StepPermission  = "permission"
	StepGatewayCRDs = "gateway-crds"
	StepGateway     = "gateway"
	StepAccessRules = "access-rules"
)

// DSN secrets written for the service charts, and the key inside each.
const (
	SecretKratosDSN = "kratos-dsn"
	SecretHydraDSN  = "hydra-dsn"
	dsnKey          = "dsn"
)

// GatewayRuleCRD is the CustomResourceDefinition access rules are instances
// of. The gateway step refuses to run before it exists.
const GatewayRuleCRD = "rules.oathkeeper.ory.sh"

// Resource identifies one cluster-level thing a step needs or creates.
// Namespace is empty for cluster-scoped kinds (namespace, crd).
type Resource struct {
	Kind      string // "namespace", "secret", "release", "crd", "workload"
	Namespace string
	Name      string
}

// String renders kind/[namespace/]name, the form used in Validate errors.
func (r Resource) String() string {
	if r.Namespace == "" {
		return r.Kind + "/" + r.Name
	}
	return r.Kind + "/" + r.Namespace + "/" + r.Name
}

// Step is one named unit of the runbook.
type Step struct {
	Name        string
	Description string

	// Requires lists resources that must exist before the step runs. Each
	// one must be produced (or verified) by an earlier step; Validate
	// enforces this, which is what pins the step order.
	Requires []Resource

	// Produces lists resources the step creates, updates, or verifies.
	Produces []Resource

	Run func(ctx context.Context, env *Env) error
}

// Plan is the ordered runbook.
type Plan struct {
	Steps []Step
}

// BuildPlan assembles the fixed deployment plan for a configuration. The
// step order is a hard invariant: identity before oauth before permission
// before gateway, encoded as release dependencies between the steps.
func BuildPlan(def *config.Definition) *Plan {
	core := def.Core
	ns := def.Namespace

	namespaceRes := Resource{Kind: "namespace", Name: ns}
	databaseRes := Resource{Kind: "release", Namespace: ns, Name: def.DatabaseReleaseName()}
	kratosRes := Resource{Kind: "release", Namespace: ns, Name: def.ReleaseName(config.ComponentKratos)}
	hydraRes := Resource{Kind: "release", Namespace: ns, Name: def.ReleaseName(config.ComponentHydra)}
	ketoRes := Resource{Kind: "release", Namespace: ns, Name: def.ReleaseName(config.ComponentKeto)}
	oathkeeperRes := Resource{Kind: "release", Namespace: ns, Name: def.ReleaseName(config.ComponentOathkeeper)}
	crdRes := Resource{Kind: "crd", Name: GatewayRuleCRD}
	kratosDSNRes := Resource{Kind: "secret", Namespace: ns, Name: SecretKratosDSN}
	hydraDSNRes := Resource{Kind: "secret", Namespace: ns, Name: SecretHydraDSN}

	preflightProduces := []Resource{
		{Kind: "workload", Namespace: core.Namespace, Name: core.DatabasePod},
	}
	for _, secret := range core.RequiredSecrets {
		preflightProduces = append(preflightProduces, Resource{
			Kind: "secret", Namespace: core.Namespace, Name: secret,
		})
	}

	return &Plan{Steps: []Step{
		{
			Name:        StepPreflight,
			Description: fmt.Sprintf("Verify core prerequisites in namespace %s", core.Namespace),
			Produces:    preflightProduces,
			Run:         runPreflight,
		},
		{
			Name:        StepNamespace,
			Description: fmt.Sprintf("Ensure namespace %s exists", ns),
			Produces:    []Resource{namespaceRes},
			Run:         runNamespace,
		},
		{
			Name:        StepDatabase,
			Description: fmt.Sprintf("Provision Postgres release %s", def.DatabaseReleaseName()),
			Requires:    []Resource{namespaceRes},
			Produces: []Resource{
				databaseRes,
				{Kind: "secret", Namespace: ns, Name: def.AdminSecretName()},
			},
			Run: runDatabase,
		},
		{
			Name:        StepDSNSecrets,
			Description: "Write service DSN secrets",
			Requires:    []Resource{namespaceRes, databaseRes},
			Produces:    []Resource{kratosDSNRes, hydraDSNRes},
			Run:         runDSNSecrets,
		},
		{
			Name:        StepIdentity,
			Description: fmt.Sprintf("Install identity service (%s)", def.ReleaseName(config.ComponentKratos)),
			Requires:    []Resource{namespaceRes, kratosDSNRes},
			Produces:    []Resource{kratosRes},
			Run:         runIdentity,
		},
		{
			Name:        StepOAuth,
			Description: fmt.Sprintf("Install OAuth service (%s)", def.ReleaseName(config.ComponentHydra)),
			Requires:    []Resource{namespaceRes, hydraDSNRes, kratosRes},
			Produces:    []Resource{hydraRes},
			Run:         runOAuth,
		},
		{
			Name:        StepPermission,
			Description: fmt.Sprintf("Install permission service (%s)", def.ReleaseName(config.ComponentKeto)),
			Requires:    []Resource{namespaceRes, hydraRes},
			Produces:    []Resource{ketoRes},
			Run:         runPermission,
		},
		{
			Name:        StepGatewayCRDs,
			Description: fmt.Sprintf("Ensure CRD %s", GatewayRuleCRD),
			Produces:    []Resource{crdRes},
			Run:         runGatewayCRDs,
		},
		{
			Name:        StepGateway,
			Description: fmt.Sprintf("Install gateway (%s)", def.ReleaseName(config.ComponentOathkeeper)),
			Requires:    []Resource{namespaceRes, crdRes, ketoRes},
			Produces:    []Resource{oathkeeperRes},
			Run:         runGateway,
		},
		{
			Name:        StepAccessRules,
			Description: fmt.Sprintf("Apply access rules from %s", def.RulesDir),
			Requires:    []Resource{crdRes, oathkeeperRes},
			Run:         runAccessRules,
		},
	}}
}

// Validate checks that the plan is runnable: names are unique, every step
// has a run function, and every required resource is produced by an earlier
// step.
func (p *Plan) Validate() error {
	produced := map[string]bool{}
	names := map[string]bool{}

	for i, step := range p.Steps {
		if step.Name == "" {
			return fmt.Errorf("step %d has no name", i+1)
		}
		if names[step.Name] {
			return fmt.Errorf("duplicate step name %q", step.Name)
		}
		names[step.Name] = true

		if step.Run == nil {
			return fmt.Errorf("step %q has no run function", step.Name)
		}

		for _, req := range step.Requires {
			if !produced[req.String()] {
				return fmt.Errorf("step %q requires %s, which no earlier step produces", step.Name, req)
			}
		}
		for _, prod := range step.Produces {
			produced[prod.String()] = true
		}
	}
	return nil
}
