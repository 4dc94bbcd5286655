package fakes

import (
	"context"
	"sync"

	"github.com/systmms/authstack/pkg/release"
)

// FakeInstaller is a manual fake implementation of release.Installer.
//
// It records every InstallOrUpgrade call in order, including the full
// Release value (values files, Set overrides, wait and timeout), so tests
// can assert both the sequence of installs and the exact values each
// release was given. Failures are configured per release name; a configured
// failure is still recorded as an attempt, mirroring a real install that
// starts and then fails.
//
// Example usage:
//
//	installer := fakes.NewFakeInstaller().
//	    WithError("auth-kratos", errors.New("timed out waiting for the condition"))
//	// Run steps, then:
//	//   installer.ReleaseNames() == []string{"auth-postgres", "auth-kratos"}
type FakeInstaller struct {
	releases   []release.Release
	uninstalls []string
	failOn     map[string]error
	callCount  map[string]int

	mu sync.Mutex
}

// NewFakeInstaller creates an empty FakeInstaller.
func NewFakeInstaller() *FakeInstaller {
	return &FakeInstaller{
		failOn:    make(map[string]error),
		callCount: make(map[string]int),
	}
}

// WithError configures InstallOrUpgrade to fail for a specific release name.
//
// Fluent API for simulating install failures.
func (f *FakeInstaller) WithError(releaseName string, err error) *FakeInstaller {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failOn[releaseName] = err
	return f
}

// InstallOrUpgrade implements release.Installer.
func (f *FakeInstaller) InstallOrUpgrade(ctx context.Context, rel release.Release) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.callCount["InstallOrUpgrade"]++
	f.releases = append(f.releases, rel)

	if err, ok := f.failOn[rel.Name]; ok {
		return err
	}
	return nil
}

// Uninstall implements release.Installer.
func (f *FakeInstaller) Uninstall(ctx context.Context, name, namespace string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.callCount["Uninstall"]++
	f.uninstalls = append(f.uninstalls, name)

	if err, ok := f.failOn[name]; ok {
		return err
	}
	return nil
}

// Releases returns every recorded InstallOrUpgrade call, in order.
func (f *FakeInstaller) Releases() []release.Release {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]release.Release, len(f.releases))
	copy(out, f.releases)
	return out
}

// ReleaseNames returns the recorded release names, in order.
func (f *FakeInstaller) ReleaseNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	names := make([]string, 0, len(f.releases))
	for _, rel := range f.releases {
		names = append(names, rel.Name)
	}
	return names
}

// ReleaseByName returns the last recorded release with the given name, or
// false if it was never installed.
func (f *FakeInstaller) ReleaseByName(name string) (release.Release, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.releases) - 1; i >= 0; i-- {
		if f.releases[i].Name == name {
			return f.releases[i], true
		}
	}
	return release.Release{}, false
}

// Uninstalls returns the recorded Uninstall release names, in order.
func (f *FakeInstaller) Uninstalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.uninstalls))
	copy(out, f.uninstalls)
	return out
}

// GetCallCount returns the number of times a method was called.
func (f *FakeInstaller) GetCallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.callCount[method]
}
