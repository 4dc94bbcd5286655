// Package release abstracts the chart package manager behind a small
// capability interface. The deployment runbook talks to Installer only;
// the production implementation drives Helm, and tests substitute a
// recording fake.
package release

import (
	"context"
	"time"
)

// Release describes one managed chart release: what to install, where, and
// how its values are assembled.
type Release struct {
	// Name is the release name, e.g. "auth-kratos".
	Name string

	// Chart is the chart reference: a repo URL chart, an oci:// reference,
	// or a local path.
	Chart string

	// Version pins the chart version. Empty means latest.
	Version string

	// Namespace is the target namespace. It must already exist.
	Namespace string

	// ValuesFiles are overlay files merged in order, later files winning.
	ValuesFiles []string

	// Set holds key=value overrides applied after ValuesFiles. Values that
	// must not touch disk (generated secrets, DSNs) travel here.
	Set []string

	// Wait blocks until the release's workloads report ready.
	Wait bool

	// Timeout bounds the install or upgrade, including the wait.
	Timeout time.Duration
}

// Installer installs, upgrades, and removes chart releases.
type Installer interface {
	// InstallOrUpgrade converges the named release to the given chart and
	// values: a fresh install when the release has no history, an upgrade
	// otherwise.
	InstallOrUpgrade(ctx context.Context, rel Release) error

	// Uninstall removes a release. Removing a release that does not exist
	// is not an error.
	Uninstall(ctx context.Context, name, namespace string) error
}
