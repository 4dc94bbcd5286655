package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/systmms/authstack/internal/config"
	"github.com/systmms/authstack/internal/deploy"
	aserrors "github.com/systmms/authstack/internal/errors"
)

func NewRulesCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Ensure the gateway CRDs and re-apply the access rules",
		Long: `Apply the gateway access rules without a full deploy.

The gateway CRD is installed first if it is missing, then every *.yaml file
in the rules directory is applied in one batch. An empty or missing rules
directory is a warning, not an error: the gateway simply keeps its current
routes.

Use this after editing rule manifests; a full 'authstack deploy' is only
needed when services or their configuration change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration
			if err := cfg.Load(); err != nil {
				return err
			}

			cl, err := newCluster(cfg)
			if err != nil {
				return aserrors.ClusterError("connecting to the cluster", err)
			}

			ctx := context.Background()
			env := deploy.NewEnv(cfg.Definition, cl, nil, cfg.Logger)
			defer env.Close()

			if err := deploy.EnsureGatewayCRDs(ctx, env); err != nil {
				return err
			}
			return deploy.ApplyAccessRules(ctx, env)
		},
	}

	return cmd
}
