package commands

import (
	"github.com/systmms/authstack/internal/config"
	"github.com/systmms/authstack/pkg/cluster"
	"github.com/systmms/authstack/pkg/release"
)

// Capability constructors. Package variables so command tests can swap in
// fakes without a cluster behind them.
var (
	newCluster = func(cfg *config.Config) (cluster.Interface, error) {
		return cluster.NewClient(cfg.KubeConfig, cfg.KubeContext)
	}

	newInstaller = func(cfg *config.Config) (release.Installer, error) {
		return release.NewHelmInstaller(cfg.KubeConfig, cfg.KubeContext, cfg.Logger)
	}
)
