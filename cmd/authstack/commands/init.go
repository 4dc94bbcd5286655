package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/systmms/authstack/internal/config"
)

const exampleConfig = `version: 0

# Namespace owned by the platform install. The deploy aborts unless the
# database pod is Running and every required secret exists there.
core:
  namespace: core
  databasePod: core-postgres-0
  requiredSecrets:
    - core-postgres-superuser

# Target namespace for the authentication stack. Created if absent.
namespace: auth

# Release names are <releasePrefix>-<component>, e.g. auth-kratos.
# Override with the AUTHSTACK_RELEASE_PREFIX environment variable.
releasePrefix: auth

# Public URLs of the deployed services.
endpoints:
  identity: https://id.example.com
  oauth: https://oauth.example.com
  gateway: https://www.example.com

# The provisioned Postgres release. The chart generates an admin password
# into <release>-postgresql on first install; authstack reads it back.
database:
  chart: oci://registry-1.docker.io/bitnamicharts/postgresql
  # chartVersion: "16.4.5"   # empty = latest
  port: 5432

# Charts backing each service release. Pin versions for reproducible runs.
charts:
  kratos:
    chart: ory/kratos
  hydra:
    chart: ory/hydra
  keto:
    chart: ory/keto
  oathkeeper:
    chart: ory/oathkeeper

# Values overlays merged under authstack's generated overrides. Keto
# intentionally has none; it runs from chart defaults plus overrides.
values:
  kratos: values/kratos.yaml
  hydra: values/hydra.yaml
  oathkeeper: values/oathkeeper.yaml

# Optional secret holding the courier SMTP connection URI (key:
# connection-uri). Missing is a warning; mail delivery stays off.
smtpSecret: courier-smtp

# Directory of gateway access-rule manifests, applied as one batch.
rulesDir: rules

# Manifest installing the gateway CRDs when the cluster lacks them.
crdManifest: manifests/oathkeeper-crds.yaml

# Per-release wait timeout for installs and upgrades.
installTimeout: 5m
`

const kratosOverlay = `# Starter overlay for the identity service (Kratos).
# The DSN, cookie secret, cipher secret and courier SMTP URI are injected
# by authstack at install time; do not set them here.
kratos:
  config:
    selfservice:
      default_browser_return_url: https://www.example.com/
      methods:
        password:
          enabled: true
    identity:
      default_schema_id: default
      schemas:
        - id: default
          url: base64://eyIkaWQiOiJkZWZhdWx0In0=
`

const hydraOverlay = `# Starter overlay for the OAuth2 service (Hydra).
# The DSN, system secret, cookie secret and issuer URL are injected by
# authstack at install time; do not set them here.
hydra:
  config:
    urls:
      consent: https://www.example.com/consent
      login: https://www.example.com/login
    strategies:
      access_token: jwt
`

const oathkeeperOverlay = `# Starter overlay for the gateway (Oathkeeper).
oathkeeper:
  config:
    authenticators:
      anonymous:
        enabled: true
      cookie_session:
        enabled: true
        config:
          check_session_url: http://auth-kratos-public/sessions/whoami
          preserve_path: true
    authorizers:
      allow:
        enabled: true
    mutators:
      noop:
        enabled: true
maester:
  enabled: true
`

const exampleRule = `# Example gateway access rule: allow unauthenticated health checks.
apiVersion: oathkeeper.ory.sh/v1alpha1
kind: Rule
metadata:
  name: allow-health
spec:
  match:
    url: https://www.example.com/health
    methods:
      - GET
  authenticators:
    - handler: anonymous
  authorizer:
    handler: allow
  mutators:
    - handler: noop
`

const manifestsNote = `The deploy expects the gateway CustomResourceDefinitions in
oathkeeper-crds.yaml in this directory. Vendor them from the oathkeeper
chart's crds/ directory (or the oathkeeper-maester chart) at the version
you deploy, so cluster upgrades stay reviewable.
`

func NewInitCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new authstack configuration",
		Long:  "Create an authstack.yaml file with a commented example configuration plus starter values overlays and an example access rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Check if authstack.yaml already exists
			if _, err := os.Stat(cfg.Path); err == nil {
				return fmt.Errorf("%s already exists. Remove it first if you want to reinitialize", cfg.Path)
			}

			// Write the config file
			if err := os.WriteFile(cfg.Path, []byte(exampleConfig), 0644); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			// Scaffold the overlay, rule and manifest files next to it
			root := filepath.Dir(cfg.Path)
			scaffold := []struct {
				path    string
				content string
			}{
				{filepath.Join("values", "kratos.yaml"), kratosOverlay},
				{filepath.Join("values", "hydra.yaml"), hydraOverlay},
				{filepath.Join("values", "oathkeeper.yaml"), oathkeeperOverlay},
				{filepath.Join("rules", "allow-health.yaml"), exampleRule},
				{filepath.Join("manifests", "README"), manifestsNote},
			}
			for _, file := range scaffold {
				path := filepath.Join(root, file.path)
				if _, err := os.Stat(path); err == nil {
					cfg.Logger.Warn("Keeping existing %s", path)
					continue
				}
				if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
					return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
				}
				if err := os.WriteFile(path, []byte(file.content), 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}
			}

			cfg.Logger.Info("Created %s with starter overlays and an example access rule", cfg.Path)
			cfg.Logger.Info("Next steps:")
			cfg.Logger.Info("  1. Edit %s: set your endpoints, namespaces and chart versions", cfg.Path)
			cfg.Logger.Info("  2. Vendor the gateway CRDs into manifests/oathkeeper-crds.yaml (see manifests/README)")
			cfg.Logger.Info("  3. Run 'authstack preflight' to verify the core prerequisites")
			cfg.Logger.Info("  4. Run 'authstack deploy' to stand up the stack")

			return nil
		},
	}

	return cmd
}
