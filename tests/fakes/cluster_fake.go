package fakes

import (
	"context"
	"fmt"
	"sync"

	"github.com/systmms/authstack/pkg/cluster"
)

// FakeCluster is a manual fake implementation of the cluster.Interface.
//
// It stores pods, secrets, namespaces, and CRDs in memory and can be
// configured to return specific errors. Every method call is recorded so
// tests can assert how many times an effect happened (for example, that an
// idempotent re-run performed zero CreateNamespace calls) and exactly which
// manifests were applied per batch.
//
// Example usage:
//
//	fake := fakes.NewFakeCluster().
//	    WithPod("core", "core-postgres-0", "Running").
//	    WithNamespace("auth").
//	    WithError("ApplySecret", errors.New("forbidden"))
type FakeCluster struct {
	pods       map[string]string            // "ns/name" -> phase
	secrets    map[string]map[string][]byte // "ns/name" -> data
	namespaces map[string]bool
	crds       map[string]bool

	// Behavior control
	failOn map[string]error // method or "method:ns/name" -> error

	// Call tracking
	callCount        map[string]int
	createdNamespaces []string
	appliedSecrets    []string            // "ns/name" in apply order
	manifestBatches   [][]cluster.Manifest

	mu sync.RWMutex
}

// NewFakeCluster creates an empty FakeCluster.
//
// The cluster starts with no objects. Use the builder methods to seed pods,
// secrets, namespaces, and CRDs.
func NewFakeCluster() *FakeCluster {
	return &FakeCluster{
		pods:       make(map[string]string),
		secrets:    make(map[string]map[string][]byte),
		namespaces: make(map[string]bool),
		crds:       make(map[string]bool),
		failOn:     make(map[string]error),
		callCount:  make(map[string]int),
	}
}

func key(namespace, name string) string {
	return namespace + "/" + name
}

// WithPod seeds a pod with the given phase.
//
// Fluent API for configuring test data.
func (f *FakeCluster) WithPod(namespace, name, phase string) *FakeCluster {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pods[key(namespace, name)] = phase
	return f
}

// WithSecret seeds a secret.
//
// Fluent API for configuring test data.
func (f *FakeCluster) WithSecret(namespace, name string, data map[string][]byte) *FakeCluster {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.secrets[key(namespace, name)] = data
	return f
}

// WithNamespace seeds an existing namespace.
//
// Fluent API for configuring test data.
func (f *FakeCluster) WithNamespace(name string) *FakeCluster {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.namespaces[name] = true
	return f
}

// WithCRD seeds an installed CustomResourceDefinition.
//
// Fluent API for configuring test data.
func (f *FakeCluster) WithCRD(name string) *FakeCluster {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.crds[name] = true
	return f
}

// WithError configures an error return.
//
// The key is either a method name ("ApplySecret") to fail every call, or
// "method:ns/name" to fail only for that object.
func (f *FakeCluster) WithError(methodOrKey string, err error) *FakeCluster {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failOn[methodOrKey] = err
	return f
}

// errorFor looks up a configured error, most specific key first.
func (f *FakeCluster) errorFor(method, objectKey string) error {
	if err, ok := f.failOn[method+":"+objectKey]; ok {
		return err
	}
	return f.failOn[method]
}

// PodPhase implements cluster.Interface.
func (f *FakeCluster) PodPhase(ctx context.Context, namespace, name string) (string, error) {
	f.trackCall("PodPhase")

	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := f.errorFor("PodPhase", key(namespace, name)); err != nil {
		return "", err
	}

	phase, ok := f.pods[key(namespace, name)]
	if !ok {
		return "", cluster.NotFoundError{Kind: "pod", Namespace: namespace, Name: name}
	}
	return phase, nil
}

// GetSecret implements cluster.Interface.
func (f *FakeCluster) GetSecret(ctx context.Context, namespace, name string) (map[string][]byte, error) {
	f.trackCall("GetSecret")

	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := f.errorFor("GetSecret", key(namespace, name)); err != nil {
		return nil, err
	}

	data, ok := f.secrets[key(namespace, name)]
	if !ok {
		return nil, cluster.NotFoundError{Kind: "secret", Namespace: namespace, Name: name}
	}
	return data, nil
}

// ApplySecret implements cluster.Interface. Applied secrets become readable
// through GetSecret, mirroring the create-or-update semantics of the real
// client.
func (f *FakeCluster) ApplySecret(ctx context.Context, namespace, name string, data map[string][]byte) error {
	f.trackCall("ApplySecret")

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.errorFor("ApplySecret", key(namespace, name)); err != nil {
		return err
	}

	f.secrets[key(namespace, name)] = data
	f.appliedSecrets = append(f.appliedSecrets, key(namespace, name))
	return nil
}

// NamespaceExists implements cluster.Interface.
func (f *FakeCluster) NamespaceExists(ctx context.Context, name string) (bool, error) {
	f.trackCall("NamespaceExists")

	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := f.errorFor("NamespaceExists", name); err != nil {
		return false, err
	}
	return f.namespaces[name], nil
}

// CreateNamespace implements cluster.Interface.
func (f *FakeCluster) CreateNamespace(ctx context.Context, name string) error {
	f.trackCall("CreateNamespace")

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.errorFor("CreateNamespace", name); err != nil {
		return err
	}
	if f.namespaces[name] {
		return fmt.Errorf("namespace %s already exists", name)
	}

	f.namespaces[name] = true
	f.createdNamespaces = append(f.createdNamespaces, name)
	return nil
}

// HasCRD implements cluster.Interface.
func (f *FakeCluster) HasCRD(ctx context.Context, name string) (bool, error) {
	f.trackCall("HasCRD")

	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := f.errorFor("HasCRD", name); err != nil {
		return false, err
	}
	return f.crds[name], nil
}

// ApplyManifests implements cluster.Interface. Each call is recorded as one
// batch; applied CRDs become visible to HasCRD.
func (f *FakeCluster) ApplyManifests(ctx context.Context, defaultNamespace string, docs []cluster.Manifest) error {
	f.trackCall("ApplyManifests")

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failOn["ApplyManifests"]; err != nil {
		return err
	}

	batch := make([]cluster.Manifest, len(docs))
	copy(batch, docs)
	f.manifestBatches = append(f.manifestBatches, batch)

	for _, doc := range docs {
		if doc.Object.GetKind() == "CustomResourceDefinition" {
			f.crds[doc.Object.GetName()] = true
		}
	}
	return nil
}

// GetCallCount returns the number of times a method was called.
//
// Useful for verifying that certain operations occurred (or did not occur)
// in tests. Method names match the cluster.Interface method names.
func (f *FakeCluster) GetCallCount(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.callCount[method]
}

// CreatedNamespaces returns the namespaces created, in order.
func (f *FakeCluster) CreatedNamespaces() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]string, len(f.createdNamespaces))
	copy(out, f.createdNamespaces)
	return out
}

// AppliedSecrets returns the "ns/name" keys passed to ApplySecret, in order.
func (f *FakeCluster) AppliedSecrets() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]string, len(f.appliedSecrets))
	copy(out, f.appliedSecrets)
	return out
}

// SecretData returns the current data of a seeded or applied secret.
func (f *FakeCluster) SecretData(namespace, name string) map[string][]byte {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.secrets[key(namespace, name)]
}

// ManifestBatches returns the recorded ApplyManifests batches: one slice of
// manifests per call.
func (f *FakeCluster) ManifestBatches() [][]cluster.Manifest {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([][]cluster.Manifest, len(f.manifestBatches))
	copy(out, f.manifestBatches)
	return out
}

// trackCall increments the call counter for a method.
func (f *FakeCluster) trackCall(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.callCount[method]++
}
