/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

// Package metrics is the optional Prometheus instrumentation set shared by
// the REST client and the credential vault. Unlike a long-running service,
// this module is embedded in arbitrary callers, so metrics are registered
// on a caller-supplied prometheus.Registerer rather than the global
// default registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the full set of counters and histograms the core exposes.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	VaultLoginsTotal *prometheus.CounterVec
}

// New constructs the metric set and registers it on reg, unless reg is
// nil, in which case the metrics exist but are never scraped.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "restclient_requests_total",
			Help: "Total REST calls made by the client, labeled by method and outcome.",
		}, []string{"method", "outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "restclient_request_duration_seconds",
			Help:    "REST call latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		VaultLoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_logins_total",
			Help: "Total credential provider login attempts, labeled by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.VaultLoginsTotal)
	}
	return m
}
