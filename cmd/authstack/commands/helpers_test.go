package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"github.com/systmms/authstack/internal/config"
	"github.com/systmms/authstack/internal/logging"
	"github.com/systmms/authstack/pkg/cluster"
	"github.com/systmms/authstack/pkg/release"
	"github.com/systmms/authstack/tests/testutil"
)

// withFakeCluster swaps the cluster constructor for the duration of a test.
// Tests using it must not run in parallel.
func withFakeCluster(t *testing.T, fake cluster.Interface) {
	t.Helper()

	orig := newCluster
	newCluster = func(cfg *config.Config) (cluster.Interface, error) {
		return fake, nil
	}
	t.Cleanup(func() { newCluster = orig })
}

// withFakeInstaller swaps the installer constructor for the duration of a
// test.
func withFakeInstaller(t *testing.T, fake release.Installer) {
	t.Helper()

	orig := newInstaller
	newInstaller = func(cfg *config.Config) (release.Installer, error) {
		return fake, nil
	}
	t.Cleanup(func() { newInstaller = orig })
}

// testConfig writes a minimal valid authstack.yaml rooted at dir and
// returns a Config pointing at it. Overlay files, the CRD manifest and the
// rules directory all live under dir.
func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()

	content := `version: 0
core:
  namespace: core
  databasePod: core-postgres-0
  requiredSecrets:
    - core-postgres-superuser
namespace: auth
releasePrefix: auth
endpoints:
  identity: https://id.example.com
  oauth: https://oauth.example.com
  gateway: https://www.example.com
values:
  kratos: ` + filepath.Join(dir, "values", "kratos.yaml") + `
  hydra: ` + filepath.Join(dir, "values", "hydra.yaml") + `
  oathkeeper: ` + filepath.Join(dir, "values", "oathkeeper.yaml") + `
rulesDir: ` + filepath.Join(dir, "rules") + `
crdManifest: ` + filepath.Join(dir, "manifests", "oathkeeper-crds.yaml") + `
`
	configPath := filepath.Join(dir, "authstack.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	return &config.Config{
		Path:   configPath,
		Logger: logging.New(false, true),
	}
}

// writeTestOverlays creates the three overlay files the config points at.
func writeTestOverlays(t *testing.T, dir string) {
	t.Helper()
	for _, name := range []string{"kratos.yaml", "hydra.yaml", "oathkeeper.yaml"} {
		path := filepath.Join(dir, "values", name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("# test overlay\n"), 0o600))
	}
}

const testCRDManifest = `apiVersion: apiextensions.k8s.io/v1
kind: CustomResourceDefinition
metadata:
  name: rules.oathkeeper.ory.sh
spec:
  group: oathkeeper.ory.sh
  names:
    kind: Rule
    plural: rules
  scope: Namespaced
`

// writeTestCRDManifest creates the CRD manifest the config points at.
func writeTestCRDManifest(t *testing.T, dir string) {
	t.Helper()
	path := filepath.Join(dir, "manifests", "oathkeeper-crds.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(testCRDManifest), 0o600))
}

// writeTestRule creates one access-rule manifest in the rules directory.
func writeTestRule(t *testing.T, dir, filename, ruleName string) {
	t.Helper()
	doc := `apiVersion: oathkeeper.ory.sh/v1alpha1
kind: Rule
metadata:
  name: ` + ruleName + `
spec:
  match:
    url: https://www.example.com/` + ruleName + `
    methods: ["GET"]
  authenticators:
    - handler: anonymous
  authorizer:
    handler: allow
`
	rulesDir := filepath.Join(dir, "rules")
	require.NoError(t, os.MkdirAll(rulesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(rulesDir, filename), []byte(doc), 0o600))
}

func captureOutput(t *testing.T, cmd *cobra.Command, args []string) string {
	t.Helper()

	// The slice is never nil: a nil slice makes cobra fall back to
	// os.Args, which carries go test flags.
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)

	var err error
	output := testutil.CaptureStdout(func() {
		err = cmd.Execute()
	})

	require.NoError(t, err)
	return output
}
