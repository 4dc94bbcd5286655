package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	aserrors "github.com/systmms/authstack/internal/errors"
	"github.com/systmms/authstack/internal/logging"
)

// writeConfig writes a config file into a temp dir and returns a Config
// pointed at it
func writeConfig(t *testing.T, content string) *Config {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "authstack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	return &Config{
		Path:   path,
		Logger: logging.New(false, true),
	}
}

const minimalConfig = `version: 0
endpoints:
  identity: https://id.example.com
  oauth: https://oauth.example.com
  gateway: https://www.example.com
`

func TestLoadMinimalConfigAppliesDefaults(t *testing.T) {
	cfg := writeConfig(t, minimalConfig)

	require.NoError(t, cfg.Load())
	def := cfg.Definition

	assert.Equal(t, "core", def.Core.Namespace)
	assert.Equal(t, "core-postgres-0", def.Core.DatabasePod)
	assert.Equal(t, []string{"core-postgres-superuser"}, def.Core.RequiredSecrets)
	assert.Equal(t, "auth", def.Namespace)
	assert.Equal(t, "auth", def.ReleasePrefix)
	assert.Equal(t, "oci://registry-1.docker.io/bitnamicharts/postgresql", def.Database.Chart)
	assert.Equal(t, "postgres-password", def.Database.AdminSecretKey)
	assert.Equal(t, 5432, def.Database.Port)
	assert.Equal(t, "core-smtp", def.SMTPSecret)
	assert.Equal(t, "rules", def.RulesDir)
	assert.Equal(t, "manifests/oathkeeper-crds.yaml", def.CRDManifest)
	assert.Equal(t, 5*time.Minute, def.WaitTimeout())

	// Every service component gets a default chart
	assert.Equal(t, "ory/kratos", def.Charts[ComponentKratos].Chart)
	assert.Equal(t, "ory/hydra", def.Charts[ComponentHydra].Chart)
	assert.Equal(t, "ory/keto", def.Charts[ComponentKeto].Chart)
	assert.Equal(t, "ory/oathkeeper", def.Charts[ComponentOathkeeper].Chart)

	// Overlays default for all services except keto
	for _, component := range []string{ComponentKratos, ComponentHydra, ComponentOathkeeper} {
		path, ok := def.OverlayFor(component)
		assert.True(t, ok, "expected overlay for %s", component)
		assert.Equal(t, "values/"+component+".yaml", path)
	}
	_, ok := def.OverlayFor(ComponentKeto)
	assert.False(t, ok, "keto must not have a default overlay")
}

func TestLoadFullConfig(t *testing.T) {
	cfg := writeConfig(t, `version: 0
core:
  namespace: platform
  databasePod: platform-db-0
  requiredSecrets:
    - platform-db-superuser
    - platform-smtp
namespace: identity
releasePrefix: idp
endpoints:
  identity: https://id.corp.example
  oauth: https://oauth.corp.example
  gateway: https://www.corp.example
database:
  chart: charts/postgresql
  chartVersion: 16.4.2
  adminSecret: idp-db-admin
  adminSecretKey: password
  host: db.internal
  port: 5433
charts:
  kratos:
    chart: ory/kratos
    version: 0.48.0
values:
  kratos: overlays/kratos.yaml
  hydra: overlays/hydra.yaml
  oathkeeper: overlays/oathkeeper.yaml
smtpSecret: platform-smtp
rulesDir: access-rules
crdManifest: crds/oathkeeper.yaml
installTimeout: 10m
`)

	require.NoError(t, cfg.Load())
	def := cfg.Definition

	assert.Equal(t, "platform", def.Core.Namespace)
	assert.Equal(t, []string{"platform-db-superuser", "platform-smtp"}, def.Core.RequiredSecrets)
	assert.Equal(t, "idp", def.ReleasePrefix)
	assert.Equal(t, "idp-postgres", def.DatabaseReleaseName())
	assert.Equal(t, "db.internal", def.DatabaseHost())
	assert.Equal(t, "idp-db-admin", def.AdminSecretName())
	assert.Equal(t, 5433, def.Database.Port)
	assert.Equal(t, 10*time.Minute, def.WaitTimeout())
	assert.Equal(t, "0.48.0", def.ChartFor(ComponentKratos).Version)
	assert.Equal(t, "charts/postgresql", def.ChartFor(ComponentPostgres).Chart)
	assert.Equal(t, "16.4.2", def.ChartFor(ComponentPostgres).Version)
}

func TestLoadMissingFile(t *testing.T) {
	cfg := &Config{
		Path:   filepath.Join(t.TempDir(), "does-not-exist.yaml"),
		Logger: logging.New(false, true),
	}

	err := cfg.Load()
	require.Error(t, err)

	var cfgErr aserrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Suggestion, "authstack init")
}

func TestLoadInvalidYAML(t *testing.T) {
	cfg := writeConfig(t, "version: 0\n  bad indentation: [")

	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YAML")
}

func TestLoadUnsupportedVersion(t *testing.T) {
	cfg := writeConfig(t, `version: 3
endpoints:
  identity: https://id.example.com
  oauth: https://oauth.example.com
  gateway: https://www.example.com
`)

	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
}

func TestLoadRejectsUnknownTopLevelKey(t *testing.T) {
	cfg := writeConfig(t, minimalConfig+"rulzDir: rules\n")

	err := cfg.Load()
	require.Error(t, err)

	var cfgErr aserrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "expected structure")
}

func TestLoadRejectsWrongFieldType(t *testing.T) {
	cfg := writeConfig(t, `version: 0
endpoints:
  identity: https://id.example.com
  oauth: https://oauth.example.com
  gateway: https://www.example.com
database:
  port: "not-a-number"
`)

	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected structure")
}

func TestReleasePrefixEnvOverride(t *testing.T) {
	t.Setenv(EnvReleasePrefix, "staging")

	cfg := writeConfig(t, minimalConfig)
	require.NoError(t, cfg.Load())

	assert.Equal(t, "staging", cfg.Definition.ReleasePrefix)
	assert.Equal(t, "staging-kratos", cfg.Definition.ReleaseName(ComponentKratos))
	assert.Equal(t, "staging-postgres", cfg.Definition.DatabaseReleaseName())
}

func TestValidateRequiresEndpoints(t *testing.T) {
	cfg := writeConfig(t, `version: 0
endpoints:
  identity: https://id.example.com
  oauth: https://oauth.example.com
`)

	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoints.gateway")
}

func TestValidateRejectsRelativeEndpoint(t *testing.T) {
	cfg := writeConfig(t, `version: 0
endpoints:
  identity: id.example.com
  oauth: https://oauth.example.com
  gateway: https://www.example.com
`)

	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absolute URL")
}

func TestValidateRejectsBadTimeout(t *testing.T) {
	cfg := writeConfig(t, minimalConfig+"installTimeout: soon\n")

	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "installTimeout")
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := writeConfig(t, `version: 0
endpoints:
  identity: https://id.example.com
  oauth: https://oauth.example.com
  gateway: https://www.example.com
database:
  port: 70000
`)

	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.port")
}

func TestValidateRejectsEmptyOverlayPath(t *testing.T) {
	cfg := writeConfig(t, minimalConfig+`values:
  kratos: values/kratos.yaml
  hydra: values/hydra.yaml
`)

	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "values.oathkeeper")
}

func TestDerivedNames(t *testing.T) {
	cfg := writeConfig(t, minimalConfig)
	require.NoError(t, cfg.Load())
	def := cfg.Definition

	assert.Equal(t, "auth-postgres", def.DatabaseReleaseName())
	assert.Equal(t, "auth-postgres-postgresql", def.AdminSecretName())
	assert.Equal(t, "auth-postgres-postgresql.auth.svc.cluster.local", def.DatabaseHost())
	assert.Equal(t, "auth-oathkeeper", def.ReleaseName(ComponentOathkeeper))
}
