package deploy

import (
	"context"
	"fmt"
	"strings"

	aserrors "github.com/systmms/authstack/internal/errors"
	"github.com/systmms/authstack/pkg/cluster"
)

// coreRemediation is the fix for any failed core precondition: this tool
// deliberately does not provision the core namespace itself.
const coreRemediation = "run `setup-core` first"

// CheckResult is one preflight check outcome, shaped both for the preflight
// command's table and for error aggregation.
type CheckResult struct {
	Name        string // short check name, e.g. "core database pod"
	Resource    string // kind/name, e.g. "pod/core-postgres-0"
	Passed      bool
	Message     string // failure detail, empty when passed
	Remediation string // empty when passed
}

// Preflight runs every precondition check and returns all results. It does
// not stop at the first failure, so callers can report the complete list of
// what is missing in one pass.
func Preflight(ctx context.Context, env *Env) []CheckResult {
	core := env.Def.Core
	results := make([]CheckResult, 0, 1+len(core.RequiredSecrets))

	pod := CheckResult{
		Name:     "core database pod",
		Resource: "pod/" + core.DatabasePod,
	}
	phase, err := env.Cluster.PodPhase(ctx, core.Namespace, core.DatabasePod)
	switch {
	case cluster.IsNotFound(err):
		pod.Message = fmt.Sprintf("pod %s not found in namespace %s", core.DatabasePod, core.Namespace)
	case err != nil:
		pod.Message = fmt.Sprintf("reading pod %s: %v", core.DatabasePod, err)
	case phase != "Running":
		pod.Message = fmt.Sprintf("pod %s is %s, want Running", core.DatabasePod, phase)
	default:
		pod.Passed = true
	}
	if !pod.Passed {
		pod.Remediation = coreRemediation
	}
	results = append(results, pod)

	for _, name := range core.RequiredSecrets {
		check := CheckResult{
			Name:     "required secret " + name,
			Resource: "secret/" + name,
		}
		_, err := env.Cluster.GetSecret(ctx, core.Namespace, name)
		switch {
		case cluster.IsNotFound(err):
			check.Message = fmt.Sprintf("secret %s not found in namespace %s", name, core.Namespace)
		case err != nil:
			check.Message = fmt.Sprintf("reading secret %s: %v", name, err)
		default:
			check.Passed = true
		}
		if !check.Passed {
			check.Remediation = coreRemediation
		}
		results = append(results, check)
	}

	return results
}

// PreflightError folds failed checks into a single PreconditionError, or
// nil when everything passed. With several failures the message lists each
// one so the operator fixes them all in one go.
func PreflightError(namespace string, results []CheckResult) error {
	var failed []CheckResult
	for _, res := range results {
		if !res.Passed {
			failed = append(failed, res)
		}
	}
	if len(failed) == 0 {
		return nil
	}

	if len(failed) == 1 {
		return aserrors.PreconditionError{
			Resource:    failed[0].Resource,
			Namespace:   namespace,
			Message:     failed[0].Message,
			Remediation: failed[0].Remediation,
		}
	}

	messages := make([]string, 0, len(failed))
	for _, res := range failed {
		messages = append(messages, res.Message)
	}
	return aserrors.PreconditionError{
		Resource:    "core prerequisites",
		Namespace:   namespace,
		Message:     strings.Join(messages, "; "),
		Remediation: coreRemediation,
	}
}

func runPreflight(ctx context.Context, env *Env) error {
	results := Preflight(ctx, env)
	for _, res := range results {
		if res.Passed {
			env.Log.Info("%s: ok", res.Name)
		}
	}
	return PreflightError(env.Def.Core.Namespace, results)
}

func runNamespace(ctx context.Context, env *Env) error {
	ns := env.Def.Namespace

	exists, err := env.Cluster.NamespaceExists(ctx, ns)
	if err != nil {
		return aserrors.ClusterError("checking namespace "+ns, err)
	}
	if exists {
		env.Log.Info("Namespace %s already exists", ns)
		return nil
	}

	if err := env.Cluster.CreateNamespace(ctx, ns); err != nil {
		return aserrors.ClusterError("creating namespace "+ns, err)
	}
	env.Log.Info("Namespace %s created", ns)
	return nil
}
