/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package apierror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func TestClassifyStatus(t *testing.T) {
	cases := map[int]Kind{
		400: KindBadRequest,
		401: KindUnauthorized,
		403: KindForbidden,
		404: KindNotFound,
		409: KindConflict,
		422: KindInvalid,
		503: KindServiceUnavailable,
		500: KindServerError,
		502: KindServerError,
	}
	for status, want := range cases {
		assert.Equal(t, want, ClassifyStatus(status))
	}
}

func TestFromResponseDecodesStatusBody(t *testing.T) {
	body := []byte(`{"kind":"Status","reason":"NotFound","message":"configmaps \"x\" not found"}`)
	decode := func(b []byte) (*metav1.Status, error) {
		return &metav1.Status{TypeMeta: metav1.TypeMeta{Kind: "Status"}, Reason: "NotFound", Message: `configmaps "x" not found`}, nil
	}
	env := FromResponse(404, body, decode)
	assert.Equal(t, KindNotFound, env.Kind)
	assert.Equal(t, 404, env.HTTPStatus)
	assert.Equal(t, "NotFound", env.Reason)
	assert.Contains(t, env.Error(), "NotFound")
}

func TestFromResponseWithoutDecoder(t *testing.T) {
	env := FromResponse(500, []byte("boom"), nil)
	assert.Equal(t, KindServerError, env.Kind)
	assert.Equal(t, []byte("boom"), env.Raw)
}

func TestFromStatus(t *testing.T) {
	st := &metav1.Status{Code: 410, Reason: "Expired", Message: "resourceVersion too old"}
	env := FromStatus(st)
	assert.Equal(t, KindServerError, env.Kind)
	assert.Equal(t, 410, env.HTTPStatus)
	assert.Equal(t, "Expired", env.Reason)
}

func TestIsKind(t *testing.T) {
	err := error(&Envelope{Kind: KindForbidden, HTTPStatus: 403})
	assert.True(t, IsKind(err, KindForbidden))
	assert.False(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(errors.New("plain"), KindForbidden))
}

func TestLoginErrorUnwrapAndIs(t *testing.T) {
	inner := errors.New("bad cert")
	lerr := &LoginError{ProviderID: "in-cluster", Err: inner}
	assert.ErrorIs(t, lerr, ErrLogin)
	require.ErrorIs(t, lerr, inner)
	assert.Contains(t, lerr.Error(), "in-cluster")
}
