package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/cli/values"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/registry"
	"helm.sh/helm/v3/pkg/storage/driver"

	"github.com/systmms/authstack/internal/logging"
)

// HelmInstaller implements Installer on the Helm v3 SDK. One action
// configuration is initialized per target namespace and reused across calls.
type HelmInstaller struct {
	kubeconfig  string
	kubeContext string
	settings    *cli.EnvSettings
	registry    *registry.Client
	logger      *logging.Logger

	mu      sync.Mutex
	configs map[string]*action.Configuration
}

// NewHelmInstaller builds a HelmInstaller. Empty kubeconfig or kubeContext
// fall back to Helm's environment defaults. No cluster connection is made
// until the first release operation.
func NewHelmInstaller(kubeconfig, kubeContext string, logger *logging.Logger) (*HelmInstaller, error) {
	settings := cli.New()
	if kubeconfig != "" {
		settings.KubeConfig = kubeconfig
	}
	if kubeContext != "" {
		settings.KubeContext = kubeContext
	}

	registryClient, err := registry.NewClient(
		registry.ClientOptEnableCache(true),
		registry.ClientOptWriter(io.Discard),
		registry.ClientOptCredentialsFile(settings.RegistryConfig),
	)
	if err != nil {
		return nil, fmt.Errorf("build registry client: %w", err)
	}

	return &HelmInstaller{
		kubeconfig:  kubeconfig,
		kubeContext: kubeContext,
		settings:    settings,
		registry:    registryClient,
		logger:      logger,
		configs:     map[string]*action.Configuration{},
	}, nil
}

// configFor returns the action configuration for a namespace, initializing
// it on first use.
func (h *HelmInstaller) configFor(namespace string) (*action.Configuration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cfg, ok := h.configs[namespace]; ok {
		return cfg, nil
	}

	// Each namespace needs its own EnvSettings because the REST client
	// getter memoizes the namespace it was created with.
	settings := cli.New()
	if h.kubeconfig != "" {
		settings.KubeConfig = h.kubeconfig
	}
	if h.kubeContext != "" {
		settings.KubeContext = h.kubeContext
	}
	settings.SetNamespace(namespace)

	cfg := new(action.Configuration)
	if err := cfg.Init(settings.RESTClientGetter(), namespace, os.Getenv("HELM_DRIVER"), h.logger.Debug); err != nil {
		return nil, fmt.Errorf("init helm configuration for namespace %s: %w", namespace, err)
	}
	cfg.RegistryClient = h.registry

	h.configs[namespace] = cfg
	return cfg, nil
}

// InstallOrUpgrade implements Installer.
func (h *HelmInstaller) InstallOrUpgrade(ctx context.Context, rel Release) error {
	cfg, err := h.configFor(rel.Namespace)
	if err != nil {
		return err
	}

	vals, err := h.mergeValues(rel)
	if err != nil {
		return err
	}

	exists, err := h.releaseExists(cfg, rel.Name)
	if err != nil {
		return fmt.Errorf("check history of release %s: %w", rel.Name, err)
	}

	if exists {
		return h.upgrade(ctx, cfg, rel, vals)
	}
	return h.install(ctx, cfg, rel, vals)
}

// Uninstall implements Installer.
func (h *HelmInstaller) Uninstall(ctx context.Context, name, namespace string) error {
	cfg, err := h.configFor(namespace)
	if err != nil {
		return err
	}

	uninstall := action.NewUninstall(cfg)
	if _, err := uninstall.Run(name); err != nil {
		if errors.Is(err, driver.ErrReleaseNotFound) {
			return nil
		}
		return fmt.Errorf("uninstall release %s: %w", name, err)
	}
	h.logger.Debug("uninstalled release %s from namespace %s", name, namespace)
	return nil
}

// releaseExists reports whether the release has any history in its
// namespace, which is how install is told apart from upgrade.
func (h *HelmInstaller) releaseExists(cfg *action.Configuration, name string) (bool, error) {
	history := action.NewHistory(cfg)
	history.Max = 1
	_, err := history.Run(name)
	if errors.Is(err, driver.ErrReleaseNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// mergeValues assembles the effective values map: overlay files first,
// then Set overrides, later entries winning.
func (h *HelmInstaller) mergeValues(rel Release) (map[string]interface{}, error) {
	opts := &values.Options{
		ValueFiles: rel.ValuesFiles,
		Values:     rel.Set,
	}
	vals, err := opts.MergeValues(getter.All(h.settings))
	if err != nil {
		return nil, fmt.Errorf("merge values for release %s: %w", rel.Name, err)
	}
	return vals, nil
}

func (h *HelmInstaller) install(ctx context.Context, cfg *action.Configuration, rel Release, vals map[string]interface{}) error {
	install := action.NewInstall(cfg)
	install.ReleaseName = rel.Name
	install.Namespace = rel.Namespace
	install.Wait = rel.Wait
	install.Timeout = rel.Timeout
	install.ChartPathOptions.Version = rel.Version
	install.SetRegistryClient(h.registry)

	chrt, err := h.loadChart(&install.ChartPathOptions, rel.Chart)
	if err != nil {
		return err
	}

	h.logger.Debug("installing release %s (chart %s) into namespace %s", rel.Name, rel.Chart, rel.Namespace)
	if _, err := install.RunWithContext(ctx, chrt, vals); err != nil {
		return fmt.Errorf("install release %s: %w", rel.Name, err)
	}
	return nil
}

func (h *HelmInstaller) upgrade(ctx context.Context, cfg *action.Configuration, rel Release, vals map[string]interface{}) error {
	upgrade := action.NewUpgrade(cfg)
	upgrade.Namespace = rel.Namespace
	upgrade.Wait = rel.Wait
	upgrade.Timeout = rel.Timeout
	upgrade.ChartPathOptions.Version = rel.Version
	upgrade.SetRegistryClient(h.registry)

	chrt, err := h.loadChart(&upgrade.ChartPathOptions, rel.Chart)
	if err != nil {
		return err
	}

	h.logger.Debug("upgrading release %s (chart %s) in namespace %s", rel.Name, rel.Chart, rel.Namespace)
	if _, err := upgrade.RunWithContext(ctx, rel.Name, chrt, vals); err != nil {
		return fmt.Errorf("upgrade release %s: %w", rel.Name, err)
	}
	return nil
}

// loadChart resolves a chart reference (repo, OCI, or local path) to a
// loaded chart.
func (h *HelmInstaller) loadChart(cpo *action.ChartPathOptions, chartRef string) (*chart.Chart, error) {
	path, err := cpo.LocateChart(chartRef, h.settings)
	if err != nil {
		return nil, fmt.Errorf("locate chart %s: %w", chartRef, err)
	}

	chrt, err := loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load chart %s: %w", chartRef, err)
	}

	if req := chrt.Metadata.Dependencies; req != nil {
		if err := action.CheckDependencies(chrt, req); err != nil {
			return nil, fmt.Errorf("chart %s has unmet dependencies: %w", chartRef, err)
		}
	}
	return chrt, nil
}
