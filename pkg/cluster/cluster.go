// Package cluster defines the capability interface the deployment runbook
// uses to talk to a Kubernetes cluster.
//
// Every cluster effect the runbook performs — reading pod phases, reading
// and writing secrets, ensuring namespaces, checking custom resource
// definitions, applying manifests — goes through the Interface defined
// here. The production implementation (Client, in kube.go) is backed by
// the official client libraries; tests substitute an in-repo fake.
//
// Keeping the interface narrow keeps fakes honest: each method corresponds
// to one observable cluster effect, so tests can assert exactly which
// effects a step produced.
//
// # Error Handling
//
// Implementations must return NotFoundError (not a generic error) when a
// requested object does not exist, so callers can distinguish absence from
// failure. All methods must support context cancellation.
package cluster

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	yamlutil "k8s.io/apimachinery/pkg/util/yaml"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Interface is the narrow cluster capability consumed by the runbook.
//
// Implementations must be safe for concurrent use; the runbook itself runs
// steps sequentially but commands may probe the cluster while a deploy is
// in flight.
type Interface interface {
	// PodPhase returns the phase of a pod ("Pending", "Running", ...).
	// Returns NotFoundError if the pod does not exist.
	PodPhase(ctx context.Context, namespace, name string) (string, error)

	// GetSecret returns the data of a secret.
	// Returns NotFoundError if the secret does not exist.
	GetSecret(ctx context.Context, namespace, name string) (map[string][]byte, error)

	// ApplySecret creates the secret or replaces its data if it exists.
	// Values may contain generated credentials; implementations must never
	// log them.
	ApplySecret(ctx context.Context, namespace, name string, data map[string][]byte) error

	// NamespaceExists reports whether the namespace exists.
	NamespaceExists(ctx context.Context, name string) (bool, error)

	// CreateNamespace creates the namespace.
	CreateNamespace(ctx context.Context, name string) error

	// HasCRD reports whether a CustomResourceDefinition with the given
	// metadata.name (e.g. "rules.oathkeeper.ory.sh") is installed.
	HasCRD(ctx context.Context, name string) (bool, error)

	// ApplyManifests applies all docs in one batch. Namespaced objects
	// without an explicit namespace land in defaultNamespace. The call is
	// idempotent: existing objects are updated in place.
	ApplyManifests(ctx context.Context, defaultNamespace string, docs []Manifest) error
}

// NotFoundError indicates that a requested cluster object does not exist.
type NotFoundError struct {
	Kind      string
	Namespace string
	Name      string
}

// Error implements the error interface.
func (e NotFoundError) Error() string {
	if e.Namespace == "" {
		return e.Kind + " not found: " + e.Name
	}
	return e.Kind + " not found: " + e.Namespace + "/" + e.Name
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(NotFoundError)
	return ok
}

// Manifest is one decoded Kubernetes object together with the file it was
// read from, kept for error messages.
type Manifest struct {
	Object *unstructured.Unstructured
	Source string
}

// ParseManifests splits a (possibly multi-document) YAML stream into
// Manifests. Empty documents and comment-only documents are skipped.
func ParseManifests(source string, r io.Reader) ([]Manifest, error) {
	var docs []Manifest

	decoder := yamlutil.NewYAMLOrJSONDecoder(bufio.NewReader(r), 4096)
	for i := 0; ; i++ {
		obj := map[string]interface{}{}
		if err := decoder.Decode(&obj); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("parse %s (document %d): %w", source, i+1, err)
		}
		if len(obj) == 0 {
			continue
		}

		u := &unstructured.Unstructured{Object: obj}
		if u.GetKind() == "" || u.GetAPIVersion() == "" {
			return nil, fmt.Errorf("parse %s (document %d): missing apiVersion or kind", source, i+1)
		}
		docs = append(docs, Manifest{Object: u, Source: source})
	}

	return docs, nil
}

// ParseManifestFile reads and splits one manifest file.
func ParseManifestFile(path string) ([]Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseManifests(path, bytes.NewReader(data))
}
