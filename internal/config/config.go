package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	aserrors "github.com/systmms/authstack/internal/errors"
	"github.com/systmms/authstack/internal/logging"
	"gopkg.in/yaml.v3"
)

// Component names of the managed releases. Chart and overlay maps are keyed
// by these names; release names are derived from them via ReleaseName.
const (
	ComponentPostgres   = "postgres"
	ComponentKratos     = "kratos"
	ComponentHydra      = "hydra"
	ComponentKeto       = "keto"
	ComponentOathkeeper = "oathkeeper"
)

// EnvReleasePrefix overrides releasePrefix from the environment.
const EnvReleasePrefix = "AUTHSTACK_RELEASE_PREFIX"

const defaultInstallTimeout = 5 * time.Minute

// Config holds the runtime configuration
type Config struct {
	Path        string
	KubeConfig  string
	KubeContext string
	Logger      *logging.Logger
	Definition  *Definition
}

// Definition represents the authstack.yaml structure
type Definition struct {
	Version       int                    `yaml:"version"`
	Core          CoreConfig             `yaml:"core"`
	Namespace     string                 `yaml:"namespace"`
	ReleasePrefix string                 `yaml:"releasePrefix"`
	Endpoints     Endpoints              `yaml:"endpoints"`
	Database      DatabaseConfig         `yaml:"database"`
	Charts        map[string]ChartConfig `yaml:"charts,omitempty"`
	Values        map[string]string      `yaml:"values,omitempty"`
	SMTPSecret    string                 `yaml:"smtpSecret"`
	RulesDir      string                 `yaml:"rulesDir"`
	CRDManifest   string                 `yaml:"crdManifest"`
	// InstallTimeout is a Go duration string ("5m", "300s") applied to
	// every install-or-upgrade wait. Use WaitTimeout to read it.
	InstallTimeout string `yaml:"installTimeout"`
}

// CoreConfig describes the platform-owned namespace the auth stack builds on
type CoreConfig struct {
	Namespace       string   `yaml:"namespace"`
	DatabasePod     string   `yaml:"databasePod"`
	RequiredSecrets []string `yaml:"requiredSecrets"`
}

// Endpoints are the public base URLs of the deployed services
type Endpoints struct {
	Identity string `yaml:"identity"`
	OAuth    string `yaml:"oauth"`
	Gateway  string `yaml:"gateway"`
}

// DatabaseConfig controls the provisioned Postgres release
type DatabaseConfig struct {
	Chart          string `yaml:"chart"`
	ChartVersion   string `yaml:"chartVersion,omitempty"`
	AdminSecret    string `yaml:"adminSecret,omitempty"`
	AdminSecretKey string `yaml:"adminSecretKey"`
	Host           string `yaml:"host,omitempty"`
	Port           int    `yaml:"port"`
}

// ChartConfig names the chart backing a component release
type ChartConfig struct {
	Chart   string `yaml:"chart"`
	Version string `yaml:"version,omitempty"`
}

// Load reads, validates and defaults the authstack.yaml file
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return aserrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Run 'authstack init' to create a new configuration file",
			}
		}
		return aserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	// Structural validation against the embedded schema catches typos
	// (unknown keys, wrong types) before unmarshalling.
	if err := validateSchema(data); err != nil {
		return err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return aserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	if def.Version != 0 {
		return aserrors.ConfigError{
			Field:      "version",
			Value:      def.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your authstack.yaml file",
		}
	}

	def.applyDefaults()

	if prefix := os.Getenv(EnvReleasePrefix); prefix != "" {
		def.ReleasePrefix = prefix
	}

	if err := def.Validate(); err != nil {
		return err
	}

	c.Definition = &def
	return nil
}

// applyDefaults fills every unset field with its documented default
func (d *Definition) applyDefaults() {
	if d.Core.Namespace == "" {
		d.Core.Namespace = "core"
	}
	if d.Core.DatabasePod == "" {
		d.Core.DatabasePod = "core-postgres-0"
	}
	if len(d.Core.RequiredSecrets) == 0 {
		d.Core.RequiredSecrets = []string{"core-postgres-superuser"}
	}
	if d.Namespace == "" {
		d.Namespace = "auth"
	}
	if d.ReleasePrefix == "" {
		d.ReleasePrefix = "auth"
	}
	if d.Database.Chart == "" {
		d.Database.Chart = "oci://registry-1.docker.io/bitnamicharts/postgresql"
	}
	if d.Database.AdminSecretKey == "" {
		d.Database.AdminSecretKey = "postgres-password"
	}
	if d.Database.Port == 0 {
		d.Database.Port = 5432
	}
	if d.Charts == nil {
		d.Charts = map[string]ChartConfig{}
	}
	for component, chart := range map[string]string{
		ComponentKratos:     "ory/kratos",
		ComponentHydra:      "ory/hydra",
		ComponentKeto:       "ory/keto",
		ComponentOathkeeper: "ory/oathkeeper",
	} {
		if _, ok := d.Charts[component]; !ok {
			d.Charts[component] = ChartConfig{Chart: chart}
		}
	}
	if d.Values == nil {
		d.Values = map[string]string{
			ComponentKratos:     "values/kratos.yaml",
			ComponentHydra:      "values/hydra.yaml",
			ComponentOathkeeper: "values/oathkeeper.yaml",
		}
	}
	if d.SMTPSecret == "" {
		d.SMTPSecret = "core-smtp"
	}
	if d.RulesDir == "" {
		d.RulesDir = "rules"
	}
	if d.CRDManifest == "" {
		d.CRDManifest = "manifests/oathkeeper-crds.yaml"
	}
	if d.InstallTimeout == "" {
		d.InstallTimeout = defaultInstallTimeout.String()
	}
}

// Validate applies the semantic checks the schema cannot express
func (d *Definition) Validate() error {
	for field, value := range map[string]string{
		"endpoints.identity": d.Endpoints.Identity,
		"endpoints.oauth":    d.Endpoints.OAuth,
		"endpoints.gateway":  d.Endpoints.Gateway,
	} {
		if value == "" {
			return aserrors.ConfigError{
				Field:      field,
				Message:    "endpoint URL is required",
				Suggestion: "Set the public URL, e.g. https://id.example.com",
			}
		}
		u, err := url.Parse(value)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return aserrors.ConfigError{
				Field:      field,
				Value:      value,
				Message:    "not a valid absolute URL",
				Suggestion: "Use the form https://host[:port]",
			}
		}
	}

	if d.Database.Port < 1 || d.Database.Port > 65535 {
		return aserrors.ConfigError{
			Field:      "database.port",
			Value:      d.Database.Port,
			Message:    "port out of range",
			Suggestion: "Use a TCP port between 1 and 65535 (Postgres default is 5432)",
		}
	}

	if _, err := time.ParseDuration(d.InstallTimeout); err != nil {
		return aserrors.ConfigError{
			Field:      "installTimeout",
			Value:      d.InstallTimeout,
			Message:    "not a valid duration",
			Suggestion: "Use a Go duration string such as '5m' or '300s'",
		}
	}

	for _, component := range []string{ComponentKratos, ComponentHydra, ComponentOathkeeper} {
		if d.Values[component] == "" {
			return aserrors.ConfigError{
				Field:      "values." + component,
				Message:    "overlay file path is required",
				Suggestion: fmt.Sprintf("Point it at the %s values overlay, e.g. values/%s.yaml", component, component),
			}
		}
	}

	return nil
}

// ReleaseName derives the release name for a component from the prefix
func (d *Definition) ReleaseName(component string) string {
	return d.ReleasePrefix + "-" + component
}

// DatabaseReleaseName is the name of the provisioned Postgres release
func (d *Definition) DatabaseReleaseName() string {
	return d.ReleaseName(ComponentPostgres)
}

// DatabaseHost is the in-cluster hostname services reach Postgres on
func (d *Definition) DatabaseHost() string {
	if d.Database.Host != "" {
		return d.Database.Host
	}
	return fmt.Sprintf("%s-postgresql.%s.svc.cluster.local", d.DatabaseReleaseName(), d.Namespace)
}

// AdminSecretName is the secret the database chart writes its admin password to
func (d *Definition) AdminSecretName() string {
	if d.Database.AdminSecret != "" {
		return d.Database.AdminSecret
	}
	return d.DatabaseReleaseName() + "-postgresql"
}

// WaitTimeout returns the parsed install wait timeout
func (d *Definition) WaitTimeout() time.Duration {
	t, err := time.ParseDuration(d.InstallTimeout)
	if err != nil || t <= 0 {
		return defaultInstallTimeout
	}
	return t
}

// ChartFor returns the chart reference for a component
func (d *Definition) ChartFor(component string) ChartConfig {
	if component == ComponentPostgres {
		return ChartConfig{Chart: d.Database.Chart, Version: d.Database.ChartVersion}
	}
	return d.Charts[component]
}

// OverlayFor returns the values overlay path for a component, if one is
// configured. Components without an overlay install from chart defaults.
func (d *Definition) OverlayFor(component string) (string, bool) {
	path, ok := d.Values[component]
	if !ok || path == "" {
		return "", false
	}
	return path, true
}
