/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

// Package apierror classifies Kubernetes API responses into a small error
// taxonomy and carries the decoded Status details along with the raw
// response body for callers that need more than the classification.
package apierror

import (
	"errors"
	"fmt"
	"net/http"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Kind is the coarse classification of an API error.
type Kind string

const (
	KindBadRequest         Kind = "BadRequest"
	KindUnauthorized       Kind = "Unauthorized"
	KindForbidden          Kind = "Forbidden"
	KindNotFound           Kind = "NotFound"
	KindConflict           Kind = "Conflict"
	KindInvalid            Kind = "Invalid"
	KindServerError        Kind = "ServerError"
	KindServiceUnavailable Kind = "ServiceUnavailable"
	KindContextClosed      Kind = "ContextClosed"
	KindLoginError         Kind = "LoginError"
)

// Envelope is a classified API error carrying whatever Status detail the
// server returned.
type Envelope struct {
	Kind       Kind
	HTTPStatus int
	Reason     string
	Message    string
	Details    *metav1.StatusDetails
	Raw        []byte
}

// IsForbidden reports whether e classifies as a Forbidden (403) error, so
// internal/vault can refuse to invalidate credentials over it.
func (e *Envelope) IsForbidden() bool { return e.Kind == KindForbidden }

func (e *Envelope) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("%s (status %d)", e.Kind, e.HTTPStatus)
}

// ClassifyStatus maps an HTTP status code to an Envelope Kind per the
// error-classification table: 400, 401, 403, 404, 409, 422, 503, and any
// other 5xx.
func ClassifyStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusUnprocessableEntity:
		return KindInvalid
	case http.StatusServiceUnavailable:
		return KindServiceUnavailable
	}
	if status >= 500 {
		return KindServerError
	}
	return KindServerError
}

// FromResponse builds an Envelope from an HTTP status and response body,
// decoding the body as a metav1.Status when possible to populate Reason,
// Message, and Details.
func FromResponse(status int, body []byte, decodeStatus func([]byte) (*metav1.Status, error)) *Envelope {
	env := &Envelope{
		Kind:       ClassifyStatus(status),
		HTTPStatus: status,
		Raw:        body,
	}
	if decodeStatus == nil || len(body) == 0 {
		return env
	}
	st, err := decodeStatus(body)
	if err != nil || st == nil {
		return env
	}
	env.Reason = string(st.Reason)
	env.Message = st.Message
	env.Details = st.Details
	return env
}

// FromStatus builds an Envelope directly from an already-decoded
// metav1.Status, for callers (such as the watch reader) that receive a
// Status as an in-band stream event rather than an HTTP response body.
func FromStatus(st *metav1.Status) *Envelope {
	status := int(st.Code)
	return &Envelope{
		Kind:       ClassifyStatus(status),
		HTTPStatus: status,
		Reason:     string(st.Reason),
		Message:    st.Message,
		Details:    st.Details,
	}
}

// Sentinel errors for conditions that never carry a server-decoded envelope.
var (
	ErrContextClosed = errors.New("connection context is closed")
	ErrLogin         = errors.New("login failed")
)

// LoginError wraps a failure to produce a usable ConnectionInfo from a
// credential provider (malformed credentials, conflicting path/data forms,
// or a transport failure talking to the provider itself).
type LoginError struct {
	ProviderID string
	Err        error
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login failed for provider %q: %v", e.ProviderID, e.Err)
}

func (e *LoginError) Unwrap() error { return e.Err }

func (e *LoginError) Is(target error) bool { return target == ErrLogin }

// IsKind reports whether err is an *Envelope of the given kind.
func IsKind(err error, kind Kind) bool {
	var env *Envelope
	if errors.As(err, &env) {
		return env.Kind == kind
	}
	return false
}
