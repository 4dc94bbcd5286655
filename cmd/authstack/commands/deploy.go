package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/systmms/authstack/internal/config"
	"github.com/systmms/authstack/internal/deploy"
	aserrors "github.com/systmms/authstack/internal/errors"
)

func NewDeployCommand(cfg *config.Config) *cobra.Command {
	var (
		timeout     time.Duration
		dryRun      bool
		metricsPort int
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Run the full deployment runbook",
		Long: `Deploy the authentication stack into the target namespace.

The runbook runs a fixed sequence of steps: verify core prerequisites,
ensure the namespace, provision Postgres with per-service roles, write the
DSN secrets, install the identity, OAuth, permission and gateway services in
order, ensure the gateway CRDs, and apply the access rules. Each install
blocks until the release is ready or the timeout elapses; the first failure
aborts the remainder.

Re-running deploy is safe: releases are upgraded in place and generated
secrets are rotated.

Examples:
  authstack deploy
  authstack deploy --dry-run          # print the plan, execute nothing
  authstack deploy --timeout 10m      # slower clusters
  authstack deploy --metrics-port 9930`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration
			if err := cfg.Load(); err != nil {
				return err
			}
			def := cfg.Definition

			if cmd.Flags().Changed("timeout") {
				if timeout <= 0 {
					return aserrors.UserError{
						Message:    fmt.Sprintf("invalid --timeout %s", timeout),
						Suggestion: "Use a positive duration such as 5m or 300s",
					}
				}
				def.InstallTimeout = timeout.String()
			}

			plan := deploy.BuildPlan(def)
			if err := plan.Validate(); err != nil {
				return fmt.Errorf("internal plan error: %w", err)
			}

			if dryRun {
				cfg.Logger.Info("Dry run: no changes will be made")
				return outputPlanTable(plan)
			}

			cl, err := newCluster(cfg)
			if err != nil {
				return aserrors.ClusterError("connecting to the cluster", err)
			}
			installer, err := newInstaller(cfg)
			if err != nil {
				return aserrors.ClusterError("initializing the package manager", err)
			}

			ctx := context.Background()
			metrics := deploy.NewMetrics()

			// The metrics server only runs for the duration of the deploy;
			// scrape it from a sidecar or a CI collector.
			server := deploy.NewMetricsServer(metricsPort, metrics, cfg.Logger)
			if err := server.Start(); err != nil {
				return err
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Stop(stopCtx)
			}()

			env := deploy.NewEnv(def, cl, installer, cfg.Logger)
			defer env.Close()

			runner := deploy.NewRunner(cfg.Logger, metrics)
			result, runErr := runner.Execute(ctx, plan, env)

			if result != nil {
				printDeploySummary(cfg, result)
			}
			if runErr != nil {
				return runErr
			}

			cfg.Logger.Info("Authentication stack deployed to namespace %s", def.Namespace)
			cfg.Logger.Info("Next: run 'authstack login-test --identifier <email>' once an identity exists")
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-release wait timeout (default: installTimeout from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the plan without executing it")
	cmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "Serve Prometheus metrics on this port during the run (0 to disable)")

	return cmd
}

// printDeploySummary prints the per-step outcome table after a run.
func printDeploySummary(cfg *config.Config, result *deploy.Result) {
	fmt.Println()
	for _, step := range result.Steps {
		switch step.Status {
		case deploy.StatusSuccess:
			cfg.Logger.Info("%-14s %s", step.Name, step.Duration.Round(time.Millisecond))
		case deploy.StatusFailed:
			cfg.Logger.Error("%-14s failed after %s", step.Name, step.Duration.Round(time.Millisecond))
		case deploy.StatusSkipped:
			cfg.Logger.Warn("%-14s skipped", step.Name)
		}
	}
	fmt.Printf("\nSummary: %d/%d steps succeeded in %s\n",
		result.Succeeded(), len(result.Steps), result.Duration.Round(time.Millisecond))
}
