/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package restclient

import (
	"net/http"
	"time"

	"github.com/ardikabs/kubeclientcore/internal/config"
)

// BackoffFunc computes the delay before retry attempt n (1-indexed).
type BackoffFunc func(attempt int) time.Duration

// ProcessingConfig controls timeout, retry count, and which outcomes are
// retried.
type ProcessingConfig struct {
	HTTPTimeout   time.Duration
	BackoffLimit  int
	Backoff       BackoffFunc
	RetryStatuses map[int]bool
}

// DefaultProcessingConfig is the baseline call behavior: 30s timeout and
// no retries, with a small retryable-status set ready for callers that
// raise BackoffLimit.
func DefaultProcessingConfig() ProcessingConfig {
	return ProcessingConfig{
		HTTPTimeout:  config.GetDuration("KUBECLIENTCORE_HTTP_TIMEOUT", 30*time.Second),
		BackoffLimit: config.GetInt("KUBECLIENTCORE_BACKOFF_LIMIT", 0),
		Backoff:      ConstantBackoff(1 * time.Second),
		RetryStatuses: map[int]bool{
			http.StatusTooManyRequests:    true,
			http.StatusServiceUnavailable: true,
			http.StatusBadGateway:         true,
			http.StatusGatewayTimeout:     true,
		},
	}
}

// withDefaults fills in the defaults for any field the caller left unset,
// without clobbering the fields they did set.
func (p ProcessingConfig) withDefaults() ProcessingConfig {
	def := DefaultProcessingConfig()
	if p.HTTPTimeout == 0 {
		p.HTTPTimeout = def.HTTPTimeout
	}
	if p.BackoffLimit == 0 {
		p.BackoffLimit = def.BackoffLimit
	}
	if p.Backoff == nil {
		p.Backoff = def.Backoff
	}
	if p.RetryStatuses == nil {
		p.RetryStatuses = def.RetryStatuses
	}
	return p
}

// ConstantBackoff returns a BackoffFunc that always waits d.
func ConstantBackoff(d time.Duration) BackoffFunc {
	return func(attempt int) time.Duration { return d }
}

func (p ProcessingConfig) shouldRetryStatus(status int) bool {
	return p.RetryStatuses != nil && p.RetryStatuses[status]
}

// LoggingConfig controls what the REST client logs per call.
type LoggingConfig struct {
	OnSuccess        bool
	RequestBody      bool
	ResponseBody     bool
	NotErrorStatuses map[int]bool
	ErrorsAsCritical bool
}

// isNotError reports whether a response status should be logged at info
// level: success statuses always, plus whatever the caller whitelisted in
// NotErrorStatuses.
func (l LoggingConfig) isNotError(status int) bool {
	if status < 400 {
		return true
	}
	return l.NotErrorStatuses != nil && l.NotErrorStatuses[status]
}

// shouldReturnAsException reports whether status is in the caller's
// returnApiExceptions whitelist, meaning the call should resolve to an
// *apierror.Envelope value rather than an error.
func shouldReturnAsException(status int, whitelist []int) bool {
	for _, s := range whitelist {
		if s == status {
			return true
		}
	}
	return false
}
