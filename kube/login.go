/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

// Package kube is the high-level surface of the module: the CRUD facade
// and the credential discovery / login orchestrator, built on top of the
// lower-level pkg/ and internal/ packages.
package kube

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-logr/logr"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"

	"github.com/ardikabs/kubeclientcore/internal/config"
	"github.com/ardikabs/kubeclientcore/internal/connctx"
	"github.com/ardikabs/kubeclientcore/internal/vault"
	"github.com/ardikabs/kubeclientcore/pkg/apierror"
	"github.com/ardikabs/kubeclientcore/pkg/connection"
)

const (
	inClusterTokenPath     = "/var/run/secrets/kubernetes.io/serviceaccount/token"
	inClusterCAPath        = "/var/run/secrets/kubernetes.io/serviceaccount/ca.crt"
	inClusterNamespacePath = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"
)

// KubeConfig selects which kubeconfig to use and which of its contexts.
// The zero value runs full discovery: in-cluster service account, then
// $KUBECONFIG, then ~/.kube/config.
type KubeConfig struct {
	// Path, when set, is loaded directly and discovery is skipped.
	Path string
	// ContextName selects a context other than the kubeconfig's
	// current-context. Ignored for in-cluster discovery (it has no
	// concept of contexts).
	ContextName string
}

// Discover resolves credentials in priority order: (1) in-cluster service
// account, (2) $KUBECONFIG, (3) ~/.kube/config. When kc.Path is set, that
// file is loaded directly instead of running discovery.
func Discover(ctx context.Context, kc *KubeConfig) (*connection.Info, string, error) {
	if kc != nil && kc.Path != "" {
		info, err := fromKubeconfigFile(kc.Path, resolveContextName(kc))
		if err != nil {
			return nil, "", &apierror.LoginError{ProviderID: "kubeconfig:" + kc.Path, Err: err}
		}
		return info, "kubeconfig:" + kc.Path, nil
	}

	if info, err := fromInCluster(); err == nil {
		return info, "in-cluster", nil
	}

	if path := os.Getenv("KUBECONFIG"); path != "" {
		info, err := fromKubeconfigFile(path, resolveContextName(kc))
		if err != nil {
			return nil, "", &apierror.LoginError{ProviderID: "kubeconfig:$KUBECONFIG", Err: err}
		}
		return info, "kubeconfig:env", nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, "", &apierror.LoginError{ProviderID: "kubeconfig:default", Err: fmt.Errorf("resolve home directory: %w", err)}
	}
	info, err := fromKubeconfigFile(filepath.Join(home, ".kube", "config"), resolveContextName(kc))
	if err != nil {
		return nil, "", &apierror.LoginError{ProviderID: "kubeconfig:default", Err: err}
	}
	return info, "kubeconfig:default", nil
}

// resolveContextName returns kc's explicit context, falling back to
// KUBECLIENTCORE_KUBECONFIG_CONTEXT so a deployment can pin a context
// without threading a KubeConfig value through every Discover call site.
func resolveContextName(kc *KubeConfig) string {
	if kc != nil && kc.ContextName != "" {
		return kc.ContextName
	}
	return config.GetString("KUBECLIENTCORE_KUBECONFIG_CONTEXT", "")
}

func fromInCluster() (*connection.Info, error) {
	host, port := os.Getenv("KUBERNETES_SERVICE_HOST"), os.Getenv("KUBERNETES_SERVICE_PORT")
	if host == "" || port == "" {
		return nil, fmt.Errorf("not running in-cluster: KUBERNETES_SERVICE_HOST/_PORT unset")
	}

	token, err := os.ReadFile(inClusterTokenPath)
	if err != nil {
		return nil, fmt.Errorf("read service account token: %w", err)
	}
	ca, err := os.ReadFile(inClusterCAPath)
	if err != nil {
		return nil, fmt.Errorf("read service account CA: %w", err)
	}
	namespace, _ := os.ReadFile(inClusterNamespacePath)

	info := &connection.Info{
		ServerInfo: connection.ServerInfo{
			Server:                   "https://" + host + ":" + port,
			CertificateAuthorityData: ca,
		},
		ClientInfo: connection.ClientAuthInfo{
			Scheme: "Bearer",
			Token:  string(token),
		},
		DefaultNamespace: string(namespace),
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}
	return info, nil
}

func fromKubeconfigFile(path, contextName string) (*connection.Info, error) {
	cfg, err := clientcmd.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig %q: %w", path, err)
	}
	return fromClientcmdConfig(cfg, contextName)
}

func fromClientcmdConfig(cfg *clientcmdapi.Config, contextName string) (*connection.Info, error) {
	if contextName == "" {
		contextName = cfg.CurrentContext
	}
	if contextName == "" {
		return nil, fmt.Errorf("kubeconfig has no current-context and none was specified")
	}
	kctx, ok := cfg.Contexts[contextName]
	if !ok {
		return nil, fmt.Errorf("kubeconfig has no context %q", contextName)
	}
	cluster, ok := cfg.Clusters[kctx.Cluster]
	if !ok {
		return nil, fmt.Errorf("kubeconfig context %q references unknown cluster %q", contextName, kctx.Cluster)
	}
	authInfo := cfg.AuthInfos[kctx.AuthInfo]

	info := &connection.Info{
		ServerInfo: connection.ServerInfo{
			Server:                   cluster.Server,
			CertificateAuthority:     cluster.CertificateAuthority,
			CertificateAuthorityData: cluster.CertificateAuthorityData,
			InsecureSkipTLSVerify:    cluster.InsecureSkipTLSVerify || config.GetBool("KUBECLIENTCORE_INSECURE_SKIP_TLS_VERIFY", false),
		},
		DefaultNamespace: kctx.Namespace,
	}

	if authInfo != nil {
		info.ClientInfo = clientAuthFromKubeconfig(authInfo)
	}

	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("kubeconfig context %q: %w", contextName, err)
	}
	return info, nil
}

func clientAuthFromKubeconfig(a *clientcmdapi.AuthInfo) connection.ClientAuthInfo {
	auth := connection.ClientAuthInfo{
		Username:              a.Username,
		Password:              a.Password,
		ClientCertificate:     a.ClientCertificate,
		ClientCertificateData: a.ClientCertificateData,
		ClientKey:             a.ClientKey,
		ClientKeyData:         a.ClientKeyData,
	}
	switch {
	case a.Token != "":
		auth.Scheme = "Bearer"
		auth.Token = a.Token
	case a.TokenFile != "":
		if data, err := os.ReadFile(a.TokenFile); err == nil {
			auth.Scheme = "Bearer"
			auth.Token = string(data)
		}
	}
	return auth
}

var (
	processVaultsMu sync.Mutex
	processVaults   = map[string]*vault.Vault[*connctx.Context]{}
)

// ProcessVault returns the process-wide vault registered under name,
// creating it on first use. name defaults to "default". This is the opt-in
// convenience the design favors dependency injection over: most callers
// should construct and hold their own *vault.Vault instead.
func ProcessVault(name string, log logr.Logger) *vault.Vault[*connctx.Context] {
	if name == "" {
		name = "default"
	}
	processVaultsMu.Lock()
	defer processVaultsMu.Unlock()
	if v, ok := processVaults[name]; ok {
		return v
	}
	v := vault.New[*connctx.Context](log)
	processVaults[name] = v
	return v
}

// Login runs Discover and registers the result as a credential source in
// v under the returned provider id. Each subsequent call through v that
// needs to re-authenticate invokes Discover again, picking up rotated
// tokens or regenerated kubeconfigs.
func Login(ctx context.Context, v *vault.Vault[*connctx.Context], kc *KubeConfig) (providerID string, err error) {
	_, providerID, err = Discover(ctx, kc)
	if err != nil {
		return "", err
	}
	v.Register(providerID, func(ctx context.Context) (*connection.Info, error) {
		info, _, err := Discover(ctx, kc)
		return info, err
	})
	return providerID, nil
}

// LoginDefault runs Login against the process-wide "default" vault,
// recording the discovered credentials as the default target for callers
// that never construct a vault of their own. Callers that want the
// credentials scoped to an explicitly owned vault use Login directly.
func LoginDefault(ctx context.Context, kc *KubeConfig, log logr.Logger) (providerID string, err error) {
	return Login(ctx, ProcessVault("default", log), kc)
}
