package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/systmms/authstack/internal/config"
	"github.com/systmms/authstack/internal/deploy"
	aserrors "github.com/systmms/authstack/internal/errors"
	"github.com/systmms/authstack/internal/postgres"
	"github.com/systmms/authstack/pkg/cluster"
)

func NewPreflightCommand(cfg *config.Config) *cobra.Command {
	var deep bool

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check the core prerequisites without deploying",
		Long: `Verify that the deployment runbook can run.

This command checks:
- The core database pod exists and is Running
- Every required secret exists in the core namespace

Use --deep to also validate the DSN secrets written by a previous deploy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration
			cfg.Logger.Info("Checking authstack configuration...")
			if err := cfg.Load(); err != nil {
				cfg.Logger.Error("Configuration error: %v", err)
				return fmt.Errorf("failed to load config: %w", err)
			}
			def := cfg.Definition

			cl, err := newCluster(cfg)
			if err != nil {
				return aserrors.ClusterError("connecting to the cluster", err)
			}

			ctx := context.Background()
			env := deploy.NewEnv(def, cl, nil, cfg.Logger)
			defer env.Close()

			results := deploy.Preflight(ctx, env)
			if deep {
				results = append(results, deepChecks(ctx, cfg, cl)...)
			}

			displayCheckResults(results)

			passed := 0
			for _, res := range results {
				if res.Passed {
					passed++
				}
			}
			fmt.Printf("\nSummary: %d/%d checks passed\n", passed, len(results))

			if passed < len(results) {
				return fmt.Errorf("some prerequisites are missing")
			}

			cfg.Logger.Info("All prerequisites in place. Run 'authstack deploy' to proceed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&deep, "deep", false, "Also validate the DSN secrets of a previous deploy")

	return cmd
}

// deepChecks validates the DSN secrets a previous deploy wrote into the
// target namespace. A missing secret is not a failure: the first deploy has
// simply not happened yet.
func deepChecks(ctx context.Context, cfg *config.Config, cl cluster.Interface) []deploy.CheckResult {
	def := cfg.Definition
	var results []deploy.CheckResult

	for _, name := range []string{deploy.SecretKratosDSN, deploy.SecretHydraDSN} {
		data, err := cl.GetSecret(ctx, def.Namespace, name)
		if cluster.IsNotFound(err) {
			cfg.Logger.Info("Secret %s/%s not present yet (no previous deploy)", def.Namespace, name)
			continue
		}

		check := deploy.CheckResult{
			Name:     "DSN secret " + name,
			Resource: "secret/" + name,
		}
		switch {
		case err != nil:
			check.Message = fmt.Sprintf("reading secret %s: %v", name, err)
			check.Remediation = "check cluster connectivity and RBAC"
		case len(data["dsn"]) == 0:
			check.Message = fmt.Sprintf("secret %s has no dsn key", name)
			check.Remediation = "re-run `authstack deploy` to regenerate the DSN secrets"
		default:
			if _, parseErr := postgres.ParseDSN(string(data["dsn"])); parseErr != nil {
				check.Message = fmt.Sprintf("secret %s holds a malformed DSN: %v", name, parseErr)
				check.Remediation = "re-run `authstack deploy` to regenerate the DSN secrets"
			} else {
				check.Passed = true
			}
		}
		results = append(results, check)
	}

	return results
}

// displayCheckResults shows the check outcomes in a formatted table
func displayCheckResults(results []deploy.CheckResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "CHECK\tRESOURCE\tSTATUS\tREMEDIATION\n")
	_, _ = fmt.Fprintf(w, "-----\t--------\t------\t-----------\n")

	for _, res := range results {
		status := "✓ ok"
		detail := "-"
		if !res.Passed {
			status = "✗ " + res.Message
			detail = res.Remediation
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", res.Name, res.Resource, status, detail)
	}

	_ = w.Flush()
}
