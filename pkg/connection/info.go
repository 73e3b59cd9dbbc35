/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

// Package connection holds the materialized-credential data model shared
// between the credential vault and the connection context: ConnectionInfo,
// its server/client-auth sub-structures, and the CredentialKey identity
// used to invalidate a specific source.
package connection

import "fmt"

// ServerInfo describes the API server endpoint and its TLS trust material.
// CertificateAuthority (a path) and CertificateAuthorityData (raw bytes)
// are mutually exclusive.
type ServerInfo struct {
	Server                   string
	CertificateAuthority     string
	CertificateAuthorityData []byte
	InsecureSkipTLSVerify    bool
}

// ClientAuthInfo carries exactly one form of client authentication:
// (Scheme+Token), bearer Token alone, Basic (Username/Password), or a
// client certificate (ClientCertificate[Data] paired with
// ClientKey[Data]).
type ClientAuthInfo struct {
	Scheme   string
	Token    string
	Username string
	Password string

	ClientCertificate     string
	ClientCertificateData []byte
	ClientKey             string
	ClientKeyData         []byte
}

// Info is the materialized credential bundle a provider supplies.
type Info struct {
	ServerInfo       ServerInfo
	ClientInfo       ClientAuthInfo
	DefaultNamespace string
}

// Validate enforces the path/data mutual-exclusion invariant for every
// XOR-paired field. A violation is a fatal login error: kube.Discover
// wraps a failing kubeconfig in an apierror.LoginError, while
// connctx.New returns it as a plain wrapped error.
func (i *Info) Validate() error {
	if i.ServerInfo.CertificateAuthority != "" && len(i.ServerInfo.CertificateAuthorityData) > 0 {
		return fmt.Errorf("both certificate authority path and data are set; need only one")
	}
	if i.ClientInfo.ClientCertificate != "" && len(i.ClientInfo.ClientCertificateData) > 0 {
		return fmt.Errorf("both client certificate path and data are set; need only one")
	}
	if i.ClientInfo.ClientKey != "" && len(i.ClientInfo.ClientKeyData) > 0 {
		return fmt.Errorf("both client key path and data are set; need only one")
	}
	return nil
}

// Key identifies a specific credential source for invalidation:
// (providerID, credentialFingerprint).
type Key struct {
	ProviderID  string
	Fingerprint string
}

// Fingerprint derives a stable fingerprint for a ConnectionInfo, used to
// detect when a provider's re-login produced materially different
// credentials (and thus a distinct Key) versus the same ones.
func Fingerprint(info *Info) string {
	return fmt.Sprintf("%s|%s|%s|%x|%x",
		info.ServerInfo.Server,
		info.ClientInfo.Scheme,
		info.ClientInfo.Username,
		sum(info.ClientInfo.Token),
		sum(string(info.ClientInfo.ClientCertificateData)),
	)
}

func sum(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
