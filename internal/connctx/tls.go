/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package connctx

import (
	"crypto/tls"
	"fmt"

	"k8s.io/client-go/transport"

	"github.com/ardikabs/kubeclientcore/pkg/connection"
)

// buildTLSConfig validates the path/data XOR invariants, materializes any
// *Data field to a temp file, and builds a *tls.Config using
// client-go/transport's PEM/cert-pool loading rather than hand-rolling it.
func buildTLSConfig(info *connection.Info, tmp *tempFiles) (*tls.Config, error) {
	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("invalid connection info: %w", err)
	}

	cfg := transport.TLSConfig{
		ServerName: "",
		Insecure:   info.ServerInfo.InsecureSkipTLSVerify,
	}

	switch {
	case info.ServerInfo.CertificateAuthority != "":
		cfg.CAFile = info.ServerInfo.CertificateAuthority
	case len(info.ServerInfo.CertificateAuthorityData) > 0:
		path, err := tmp.materialize(info.ServerInfo.CertificateAuthorityData)
		if err != nil {
			return nil, fmt.Errorf("materialize CA data: %w", err)
		}
		cfg.CAFile = path
	}

	client := info.ClientInfo
	switch {
	case client.ClientCertificate != "" && client.ClientKey != "":
		cfg.CertFile = client.ClientCertificate
		cfg.KeyFile = client.ClientKey
	case len(client.ClientCertificateData) > 0 && len(client.ClientKeyData) > 0:
		certPath, err := tmp.materialize(client.ClientCertificateData)
		if err != nil {
			return nil, fmt.Errorf("materialize client certificate data: %w", err)
		}
		keyPath, err := tmp.materialize(client.ClientKeyData)
		if err != nil {
			return nil, fmt.Errorf("materialize client key data: %w", err)
		}
		cfg.CertFile = certPath
		cfg.KeyFile = keyPath
	}

	tlsConfig, err := transport.TLSConfigFor(&transport.Config{TLS: cfg})
	if err != nil {
		return nil, fmt.Errorf("build tls config: %w", err)
	}
	return tlsConfig, nil
}

// buildHeaders assembles the default Authorization and User-Agent headers
// per the construction rules: scheme+token, bearer-token-alone, or
// scheme-alone. Basic auth is not part of these headers; New builds it
// separately and Do applies it.
func buildHeaders(info *connection.Info) map[string]string {
	headers := map[string]string{"User-Agent": userAgent}

	c := info.ClientInfo
	switch {
	case c.Scheme != "" && c.Token != "":
		headers["Authorization"] = c.Scheme + " " + c.Token
	case c.Token != "":
		headers["Authorization"] = "Bearer " + c.Token
	case c.Scheme != "":
		headers["Authorization"] = c.Scheme
	}

	return headers
}

const userAgent = "ardikabs/kubeclientcore"
