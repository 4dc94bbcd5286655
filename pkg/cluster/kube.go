package cluster

import (
	"context"
	"encoding/json"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
)

// FieldManager identifies this tool in server-side apply operations.
const FieldManager = "authstack"

var crdGVR = schema.GroupVersionResource{
	Group:    "apiextensions.k8s.io",
	Version:  "v1",
	Resource: "customresourcedefinitions",
}

// Client implements Interface against a real cluster using the typed and
// dynamic clients.
type Client struct {
	clientset kubernetes.Interface
	dynamic   dynamic.Interface
	// newMapper is rebuilt per ApplyManifests call so resources whose CRDs
	// were installed earlier in the same run are discoverable.
	newMapper func() (meta.RESTMapper, error)
}

// NewClient builds a Client from a kubeconfig path and context name. Empty
// values fall back to the standard loading rules (KUBECONFIG, ~/.kube/config)
// and the current context.
func NewClient(kubeconfig, kubeContext string) (*Client, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		loadingRules.ExplicitPath = kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: kubeContext}

	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("build clientset: %w", err)
	}

	dyn, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("build dynamic client: %w", err)
	}

	dc, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("build discovery client: %w", err)
	}

	return &Client{
		clientset: clientset,
		dynamic:   dyn,
		newMapper: func() (meta.RESTMapper, error) {
			groupResources, err := restmapper.GetAPIGroupResources(dc)
			if err != nil {
				return nil, fmt.Errorf("discover API groups: %w", err)
			}
			return restmapper.NewDiscoveryRESTMapper(groupResources), nil
		},
	}, nil
}

// newClientWith wires explicit clients, used by tests.
func newClientWith(clientset kubernetes.Interface, dyn dynamic.Interface, newMapper func() (meta.RESTMapper, error)) *Client {
	return &Client{clientset: clientset, dynamic: dyn, newMapper: newMapper}
}

// PodPhase implements Interface.
func (c *Client) PodPhase(ctx context.Context, namespace, name string) (string, error) {
	pod, err := c.clientset.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if k8serrors.IsNotFound(err) {
		return "", NotFoundError{Kind: "pod", Namespace: namespace, Name: name}
	}
	if err != nil {
		return "", fmt.Errorf("get pod %s/%s: %w", namespace, name, err)
	}
	return string(pod.Status.Phase), nil
}

// GetSecret implements Interface.
func (c *Client) GetSecret(ctx context.Context, namespace, name string) (map[string][]byte, error) {
	secret, err := c.clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if k8serrors.IsNotFound(err) {
		return nil, NotFoundError{Kind: "secret", Namespace: namespace, Name: name}
	}
	if err != nil {
		return nil, fmt.Errorf("get secret %s/%s: %w", namespace, name, err)
	}
	return secret.Data, nil
}

// ApplySecret implements Interface. The secret is created if absent,
// otherwise its data is replaced wholesale.
func (c *Client) ApplySecret(ctx context.Context, namespace, name string, data map[string][]byte) error {
	secrets := c.clientset.CoreV1().Secrets(namespace)

	existing, err := secrets.Get(ctx, name, metav1.GetOptions{})
	if k8serrors.IsNotFound(err) {
		_, err = secrets.Create(ctx, &corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{
				Name:      name,
				Namespace: namespace,
			},
			Type: corev1.SecretTypeOpaque,
			Data: data,
		}, metav1.CreateOptions{FieldManager: FieldManager})
		if err != nil {
			return fmt.Errorf("create secret %s/%s: %w", namespace, name, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("get secret %s/%s: %w", namespace, name, err)
	}

	existing.Data = data
	if _, err := secrets.Update(ctx, existing, metav1.UpdateOptions{FieldManager: FieldManager}); err != nil {
		return fmt.Errorf("update secret %s/%s: %w", namespace, name, err)
	}
	return nil
}

// NamespaceExists implements Interface.
func (c *Client) NamespaceExists(ctx context.Context, name string) (bool, error) {
	_, err := c.clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if k8serrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get namespace %s: %w", name, err)
	}
	return true, nil
}

// CreateNamespace implements Interface.
func (c *Client) CreateNamespace(ctx context.Context, name string) error {
	_, err := c.clientset.CoreV1().Namespaces().Create(ctx, &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: name},
	}, metav1.CreateOptions{FieldManager: FieldManager})
	if err != nil {
		return fmt.Errorf("create namespace %s: %w", name, err)
	}
	return nil
}

// HasCRD implements Interface.
func (c *Client) HasCRD(ctx context.Context, name string) (bool, error) {
	_, err := c.dynamic.Resource(crdGVR).Get(ctx, name, metav1.GetOptions{})
	if k8serrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get crd %s: %w", name, err)
	}
	return true, nil
}

// ApplyManifests implements Interface using server-side apply, which covers
// both create and update in one idempotent call per object.
func (c *Client) ApplyManifests(ctx context.Context, defaultNamespace string, docs []Manifest) error {
	mapper, err := c.newMapper()
	if err != nil {
		return err
	}

	force := true
	for _, doc := range docs {
		gvk := doc.Object.GroupVersionKind()
		mapping, err := mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
		if err != nil {
			return fmt.Errorf("apply %s: no mapping for %s: %w", doc.Source, gvk, err)
		}

		var ri dynamic.ResourceInterface
		if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
			namespace := doc.Object.GetNamespace()
			if namespace == "" {
				namespace = defaultNamespace
			}
			ri = c.dynamic.Resource(mapping.Resource).Namespace(namespace)
		} else {
			ri = c.dynamic.Resource(mapping.Resource)
		}

		data, err := json.Marshal(doc.Object.Object)
		if err != nil {
			return fmt.Errorf("apply %s: encode %s: %w", doc.Source, doc.Object.GetName(), err)
		}

		_, err = ri.Patch(ctx, doc.Object.GetName(), types.ApplyPatchType, data, metav1.PatchOptions{
			FieldManager: FieldManager,
			Force:        &force,
		})
		if err != nil {
			return fmt.Errorf("apply %s: %s %q: %w", doc.Source, gvk.Kind, doc.Object.GetName(), err)
		}
	}

	return nil
}
