package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/authstack/cmd/authstack/commands"
	"github.com/systmms/authstack/internal/config"
	"github.com/systmms/authstack/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile  string
		kubeconfig  string
		kubeContext string
		noColor     bool
		debug       bool
	)

	// Create config placeholder
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "authstack",
		Short: "Deploy and smoke-test an Ory authentication stack on Kubernetes",
		Long: `authstack stands up an authentication stack (Kratos identity, Hydra OAuth2,
Keto permissions, Oathkeeper gateway) in a Kubernetes cluster, provisions its
Postgres databases and connection secrets, applies gateway access rules, and
exercises the deployed login API end to end.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger with parsed flags
			logger := logging.New(debug, noColor)

			// Update config with parsed values
			cfg.Path = configFile
			cfg.KubeConfig = kubeconfig
			cfg.KubeContext = kubeContext
			cfg.Logger = logger
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "authstack.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&kubeconfig, "kubeconfig", "", "Path to the kubeconfig file (default: standard loading rules)")
	rootCmd.PersistentFlags().StringVar(&kubeContext, "kube-context", "", "Kubeconfig context to use (default: current context)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	// Add commands
	rootCmd.AddCommand(
		commands.NewInitCommand(cfg),
		commands.NewPlanCommand(cfg),
		commands.NewDeployCommand(cfg),
		commands.NewPreflightCommand(cfg),
		commands.NewRulesCommand(cfg),
		commands.NewLoginTestCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd.Execute()
}
