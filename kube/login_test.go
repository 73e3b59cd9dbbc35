/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package kube

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardikabs/kubeclientcore/internal/connctx"
	"github.com/ardikabs/kubeclientcore/internal/vault"
)

const testKubeconfig = `
apiVersion: v1
kind: Config
current-context: dev
clusters:
- name: dev-cluster
  cluster:
    server: https://dev.example.com:6443
    certificate-authority-data: ZGV2LWNh
contexts:
- name: dev
  context:
    cluster: dev-cluster
    user: dev-user
    namespace: dev-ns
users:
- name: dev-user
  user:
    token: dev-token
`

func writeTestKubeconfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(testKubeconfig), 0o600))
	return path
}

func TestDiscoverFromExplicitPathBypassesDiscoveryOrder(t *testing.T) {
	path := writeTestKubeconfig(t)

	info, providerID, err := Discover(context.Background(), &KubeConfig{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "kubeconfig:"+path, providerID)
	assert.Equal(t, "https://dev.example.com:6443", info.ServerInfo.Server)
	assert.Equal(t, "dev-ns", info.DefaultNamespace)
	assert.Equal(t, "Bearer", info.ClientInfo.Scheme)
	assert.Equal(t, "dev-token", info.ClientInfo.Token)
}

func TestDiscoverUsesKubeconfigEnvWhenNoPathAndNotInCluster(t *testing.T) {
	t.Setenv("KUBERNETES_SERVICE_HOST", "")
	t.Setenv("KUBERNETES_SERVICE_PORT", "")
	path := writeTestKubeconfig(t)
	t.Setenv("KUBECONFIG", path)

	info, providerID, err := Discover(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "kubeconfig:env", providerID)
	assert.Equal(t, "https://dev.example.com:6443", info.ServerInfo.Server)
}

func TestDiscoverRejectsUnknownContext(t *testing.T) {
	path := writeTestKubeconfig(t)
	_, _, err := Discover(context.Background(), &KubeConfig{Path: path, ContextName: "missing"})
	require.Error(t, err)
}

func TestLoginRegistersProviderInVault(t *testing.T) {
	path := writeTestKubeconfig(t)
	v := vault.New[*connctx.Context](logr.Discard())

	providerID, err := Login(context.Background(), v, &KubeConfig{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "kubeconfig:"+path, providerID)
}

func TestDiscoverFallsBackToContextNameFromEnv(t *testing.T) {
	path := writeTestKubeconfig(t)
	t.Setenv("KUBECLIENTCORE_KUBECONFIG_CONTEXT", "missing")

	_, _, err := Discover(context.Background(), &KubeConfig{Path: path})
	require.Error(t, err)
}

func TestDiscoverAppliesInsecureSkipTLSVerifyOverride(t *testing.T) {
	path := writeTestKubeconfig(t)
	t.Setenv("KUBECLIENTCORE_INSECURE_SKIP_TLS_VERIFY", "true")

	info, _, err := Discover(context.Background(), &KubeConfig{Path: path})
	require.NoError(t, err)
	assert.True(t, info.ServerInfo.InsecureSkipTLSVerify)
}

func TestProcessVaultReturnsSameInstanceForSameName(t *testing.T) {
	v1 := ProcessVault("test-vault-name", logr.Discard())
	v2 := ProcessVault("test-vault-name", logr.Discard())
	assert.Same(t, v1, v2)
}

func TestLoginDefaultRegistersInProcessDefaultVault(t *testing.T) {
	path := writeTestKubeconfig(t)

	providerID, err := LoginDefault(context.Background(), &KubeConfig{Path: path}, logr.Discard())
	require.NoError(t, err)
	assert.Equal(t, "kubeconfig:"+path, providerID)
	assert.Same(t, ProcessVault("default", logr.Discard()), ProcessVault("", logr.Discard()))
}
