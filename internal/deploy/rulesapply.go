package deploy

import (
	"context"
	"fmt"
	"path/filepath"

	aserrors "github.com/systmms/authstack/internal/errors"
	"github.com/systmms/authstack/pkg/cluster"
)

// EnsureGatewayCRDs runs the gateway-crds step standalone, for the rules
// command.
func EnsureGatewayCRDs(ctx context.Context, env *Env) error {
	return runGatewayCRDs(ctx, env)
}

// ApplyAccessRules runs the access-rules step standalone, for the rules
// command.
func ApplyAccessRules(ctx context.Context, env *Env) error {
	return runAccessRules(ctx, env)
}

// runGatewayCRDs ensures the access-rule CRD is installed: present is a
// no-op, absent applies the configured manifest. A missing manifest file is
// fatal because the gateway cannot function without the CRD.
func runGatewayCRDs(ctx context.Context, env *Env) error {
	def := env.Def

	installed, err := env.Cluster.HasCRD(ctx, GatewayRuleCRD)
	if err != nil {
		return aserrors.ClusterError("checking gateway CRD", err)
	}
	if installed {
		env.Log.Info("CRD %s already installed", GatewayRuleCRD)
		return nil
	}

	docs, err := cluster.ParseManifestFile(def.CRDManifest)
	if err != nil {
		return aserrors.UserError{
			Message:    fmt.Sprintf("cannot load CRD manifest %s", def.CRDManifest),
			Details:    err.Error(),
			Suggestion: "Run 'authstack init' to scaffold the manifest, or fix the crdManifest path",
			Err:        err,
		}
	}

	if err := env.Cluster.ApplyManifests(ctx, def.Namespace, docs); err != nil {
		return aserrors.ClusterError("applying gateway CRD", err)
	}
	env.Log.Info("CRD %s installed", GatewayRuleCRD)
	return nil
}

// runAccessRules applies every rule manifest from the rules directory in
// one batch. An empty or missing directory is a warning, not a failure: a
// stack with no routes yet is a valid state.
func runAccessRules(ctx context.Context, env *Env) error {
	def := env.Def

	files, err := filepath.Glob(filepath.Join(def.RulesDir, "*.yaml"))
	if err != nil {
		return fmt.Errorf("scan rules directory %s: %w", def.RulesDir, err)
	}
	if len(files) == 0 {
		env.Log.Warn("No access rules found in %s; the gateway starts without routes", def.RulesDir)
		return nil
	}

	var docs []cluster.Manifest
	for _, file := range files {
		parsed, err := cluster.ParseManifestFile(file)
		if err != nil {
			return aserrors.UserError{
				Message:    fmt.Sprintf("cannot parse access rule %s", file),
				Details:    err.Error(),
				Suggestion: "Fix the YAML or remove the file from the rules directory",
				Err:        err,
			}
		}
		docs = append(docs, parsed...)
	}

	if err := env.Cluster.ApplyManifests(ctx, def.Namespace, docs); err != nil {
		return aserrors.ClusterError("applying access rules", err)
	}
	env.Log.Info("Applied %d access rule manifest(s) from %d file(s)", len(docs), len(files))
	return nil
}
