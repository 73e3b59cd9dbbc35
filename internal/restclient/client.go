/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

// Package restclient is the single choke-point for outbound HTTP: URL
// assembly, query parameter serialization, the vault-driven
// re-authentication loop, retry/backoff, and error classification.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/ardikabs/kubeclientcore/internal/connctx"
	"github.com/ardikabs/kubeclientcore/internal/metrics"
	"github.com/ardikabs/kubeclientcore/internal/vault"
	"github.com/ardikabs/kubeclientcore/pkg/apierror"
	"github.com/ardikabs/kubeclientcore/pkg/resource"
)

// Client is the REST client. It holds no long-lived connection state of
// its own; every call borrows a Context from the vault for its duration.
type Client struct {
	V          *vault.Vault[*connctx.Context]
	Factory    vault.ContextFactory[*connctx.Context]
	Log        logr.Logger
	Metrics    *metrics.Metrics
	SessionKey string
}

// Call is a single REST invocation's inputs.
type Call struct {
	Method              string
	Descriptor          *resource.Descriptor
	Namespace           string
	Name                string
	Query               QueryParams
	Body                interface{} // already-encoded JSON tree, or nil
	ContentType         string
	Processing          ProcessingConfig
	Logging             LoggingConfig
	ReturnAPIExceptions []int
}

// Result is what a call resolves to: either a decoded JSON tree body, or
// (when the status is in ReturnAPIExceptions) an error envelope standing
// in for a raised error.
type Result struct {
	StatusCode int
	Body       interface{}
	Envelope   *apierror.Envelope
}

// Do executes call, looping over the vault's credential candidates,
// retrying on 401 with the next candidate and on configured statuses
// with backoff, and classifying non-2xx responses into the error
// taxonomy.
//
// A 403 does not invalidate credentials; it is remembered per provider
// and re-raised once the iteration has cycled back to that provider
// without any candidate succeeding in between.
func (c *Client) Do(ctx context.Context, call Call) (*Result, error) {
	path, err := call.Descriptor.Path(call.Namespace, call.Name)
	if err != nil {
		return nil, fmt.Errorf("build path: %w", err)
	}

	bodyBytes, err := encodeBody(call.Body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	fp := newFingerprint(call.Method, path, call.Query, bodyBytes)

	sessionKey := c.SessionKey
	if sessionKey == "" {
		sessionKey = "default"
	}

	vaultCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	candidates, errs := c.V.Extended(vaultCtx, sessionKey, c.Factory)

	forbiddenByProvider := make(map[string]error)
	for cand := range candidates {
		if prev, ok := forbiddenByProvider[cand.Key.ProviderID]; ok {
			return nil, prev
		}

		result, retryErr := c.doWithRetry(ctx, cand, call, fp, bodyBytes)
		switch {
		case retryErr == nil:
			return result, nil
		case apierror.IsKind(retryErr, apierror.KindUnauthorized),
			apierror.IsKind(retryErr, apierror.KindContextClosed):
			_ = c.V.Invalidate(cand.Key, retryErr)
			continue
		case apierror.IsKind(retryErr, apierror.KindForbidden):
			forbiddenByProvider[cand.Key.ProviderID] = retryErr
			continue
		default:
			return nil, retryErr
		}
	}

	if err := <-errs; err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("no credential candidate succeeded")
}

func (c *Client) doWithRetry(ctx context.Context, cand vault.Candidate[*connctx.Context], call Call, fp fingerprint, bodyBytes []byte) (*Result, error) {
	proc := call.Processing.withDefaults()

	var lastErr error
	for attempt := 0; attempt <= proc.BackoffLimit; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(proc.Backoff(attempt)):
			}
		}

		result, err := c.doOnceWithTimeout(ctx, cand, call, fp, bodyBytes, proc.HTTPTimeout)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var env *apierror.Envelope
		if !asEnvelope(err, &env) {
			return nil, err
		}
		switch env.Kind {
		case apierror.KindUnauthorized, apierror.KindForbidden, apierror.KindContextClosed:
			return nil, err
		}
		if !proc.shouldRetryStatus(env.HTTPStatus) {
			return nil, err
		}
	}
	return nil, lastErr
}

// doOnceWithTimeout bounds a single attempt to httpTimeout. Each retry
// attempt gets a fresh httpTimeout, and the retry loop's backoff waits are
// not counted against it.
func (c *Client) doOnceWithTimeout(ctx context.Context, cand vault.Candidate[*connctx.Context], call Call, fp fingerprint, bodyBytes []byte, httpTimeout time.Duration) (*Result, error) {
	if httpTimeout <= 0 {
		return c.doOnce(ctx, cand, call, fp, bodyBytes)
	}
	callCtx, cancel := context.WithTimeout(ctx, httpTimeout)
	defer cancel()
	return c.doOnce(callCtx, cand, call, fp, bodyBytes)
}

func (c *Client) doOnce(ctx context.Context, cand vault.Candidate[*connctx.Context], call Call, fp fingerprint, bodyBytes []byte) (*Result, error) {
	url := cand.Ctx.Server + fp.Path
	q := call.Query.Encode()
	if len(q) > 0 {
		url += "?" + q.Encode()
	}

	var bodyReader io.Reader
	if bodyBytes != nil {
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if call.ContentType != "" {
		req.Header.Set("Content-Type", call.ContentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := cand.Ctx.Do(ctx, req)
	if err != nil {
		if cand.Ctx.Closed() {
			return nil, &apierror.Envelope{Kind: apierror.KindContextClosed}
		}
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	c.recordMetrics(call.Method, resp.StatusCode, time.Since(start))
	c.logResult(call, fp, resp.StatusCode, bodyBytes, respBody)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var tree interface{}
		if len(respBody) > 0 {
			if err := json.Unmarshal(respBody, &tree); err != nil {
				return nil, fmt.Errorf("decode response body: %w", err)
			}
		}
		return &Result{StatusCode: resp.StatusCode, Body: tree}, nil
	}

	env := apierror.FromResponse(resp.StatusCode, respBody, decodeStatus)
	if shouldReturnAsException(resp.StatusCode, call.ReturnAPIExceptions) {
		return &Result{StatusCode: resp.StatusCode, Envelope: env}, nil
	}
	return nil, env
}

func (c *Client) logResult(call Call, fp fingerprint, status int, reqBody, respBody []byte) {
	fields := []interface{}{"request", fp.ID, "method", call.Method, "path", fp.Path, "status", status}
	if call.Logging.RequestBody && len(reqBody) > 0 {
		fields = append(fields, "requestBody", string(reqBody))
	}
	if call.Logging.ResponseBody && len(respBody) > 0 {
		fields = append(fields, "responseBody", string(respBody))
	}

	switch {
	case status >= 400 && !call.Logging.isNotError(status):
		msg := "request failed"
		if call.Logging.ErrorsAsCritical {
			msg = "request failed (critical)"
		}
		c.Log.Error(nil, msg, fields...)
	case call.Logging.OnSuccess:
		c.Log.V(1).Info("request succeeded", fields...)
	}
}

func (c *Client) recordMetrics(method string, status int, elapsed time.Duration) {
	if c.Metrics == nil {
		return
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	c.Metrics.RequestsTotal.WithLabelValues(method, outcome).Inc()
	c.Metrics.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func encodeBody(body interface{}) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	return json.Marshal(body)
}

func decodeStatus(body []byte) (*metav1.Status, error) {
	var st metav1.Status
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, err
	}
	if st.Kind != "" && st.Kind != "Status" {
		return nil, fmt.Errorf("not a Status body")
	}
	return &st, nil
}

func asEnvelope(err error, target **apierror.Envelope) bool {
	env, ok := err.(*apierror.Envelope)
	if !ok {
		return false
	}
	*target = env
	return true
}

// ContentTypeForPatch maps a patch strategy string to its wire
// Content-Type.
func ContentTypeForPatch(strategy string) string {
	switch strategy {
	case "strategic":
		return "application/strategic-merge-patch+json"
	case "merge":
		return "application/merge-patch+json"
	case "json":
		return "application/json-patch+json"
	}
	return "application/json"
}

// JoinPath is a small helper for descriptors that need to append a
// sub-resource (e.g. /status) to an otherwise-built path.
func JoinPath(base, sub string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(sub, "/")
}
