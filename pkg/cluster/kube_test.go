package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	k8sfake "k8s.io/client-go/kubernetes/fake"
)

func newTestClient(objects ...runtime.Object) *Client {
	return newClientWith(k8sfake.NewSimpleClientset(objects...), nil, nil)
}

func TestPodPhase(t *testing.T) {
	client := newTestClient(&corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "core-postgres-0", Namespace: "core"},
		Status:     corev1.PodStatus{Phase: corev1.PodRunning},
	})

	phase, err := client.PodPhase(context.Background(), "core", "core-postgres-0")
	require.NoError(t, err)
	assert.Equal(t, "Running", phase)
}

func TestPodPhaseNotFound(t *testing.T) {
	client := newTestClient()

	_, err := client.PodPhase(context.Background(), "core", "core-postgres-0")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "pod not found: core/core-postgres-0")
}

func TestGetSecret(t *testing.T) {
	client := newTestClient(&corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: "core-postgres-superuser", Namespace: "core"},
		Data:       map[string][]byte{"password": []byte("hunter2")},
	})

	data, err := client.GetSecret(context.Background(), "core", "core-postgres-superuser")
	require.NoError(t, err)
	assert.Equal(t, []byte("hunter2"), data["password"])
}

func TestGetSecretNotFound(t *testing.T) {
	client := newTestClient()

	_, err := client.GetSecret(context.Background(), "core", "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestApplySecretCreatesWhenAbsent(t *testing.T) {
	fake := k8sfake.NewSimpleClientset()
	client := newClientWith(fake, nil, nil)

	err := client.ApplySecret(context.Background(), "auth", "kratos-dsn", map[string][]byte{
		"dsn": []byte("postgres://kratos:pw@host:5432/kratos?sslmode=disable"),
	})
	require.NoError(t, err)

	secret, err := fake.CoreV1().Secrets("auth").Get(context.Background(), "kratos-dsn", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, corev1.SecretTypeOpaque, secret.Type)
	assert.Contains(t, string(secret.Data["dsn"]), "sslmode=disable")
}

func TestApplySecretReplacesExistingData(t *testing.T) {
	fake := k8sfake.NewSimpleClientset(&corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: "kratos-dsn", Namespace: "auth"},
		Type:       corev1.SecretTypeOpaque,
		Data: map[string][]byte{
			"dsn":   []byte("postgres://old"),
			"stale": []byte("leftover"),
		},
	})
	client := newClientWith(fake, nil, nil)

	err := client.ApplySecret(context.Background(), "auth", "kratos-dsn", map[string][]byte{
		"dsn": []byte("postgres://new"),
	})
	require.NoError(t, err)

	secret, err := fake.CoreV1().Secrets("auth").Get(context.Background(), "kratos-dsn", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, []byte("postgres://new"), secret.Data["dsn"])
	assert.NotContains(t, secret.Data, "stale")
}

func TestNamespaceExists(t *testing.T) {
	client := newTestClient(&corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: "auth"},
	})

	exists, err := client.NamespaceExists(context.Background(), "auth")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = client.NamespaceExists(context.Background(), "staging")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateNamespace(t *testing.T) {
	fake := k8sfake.NewSimpleClientset()
	client := newClientWith(fake, nil, nil)

	require.NoError(t, client.CreateNamespace(context.Background(), "auth"))

	_, err := fake.CoreV1().Namespaces().Get(context.Background(), "auth", metav1.GetOptions{})
	assert.NoError(t, err)
}

func TestHasCRD(t *testing.T) {
	scheme := runtime.NewScheme()
	listKinds := map[schema.GroupVersionResource]string{
		crdGVR: "CustomResourceDefinitionList",
	}

	crd := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "apiextensions.k8s.io/v1",
		"kind":       "CustomResourceDefinition",
		"metadata":   map[string]interface{}{"name": "rules.oathkeeper.ory.sh"},
	}}

	tests := []struct {
		name    string
		objects []runtime.Object
		crdName string
		want    bool
	}{
		{
			name:    "present",
			objects: []runtime.Object{crd},
			crdName: "rules.oathkeeper.ory.sh",
			want:    true,
		},
		{
			name:    "absent",
			objects: nil,
			crdName: "rules.oathkeeper.ory.sh",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, listKinds, tt.objects...)
			client := newClientWith(nil, dyn, nil)

			got, err := client.HasCRD(context.Background(), tt.crdName)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
