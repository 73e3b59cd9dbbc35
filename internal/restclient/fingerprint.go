/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package restclient

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// fingerprint identifies one request for logging: a per-call random id
// plus (method, path, query, bodyHash). It is never cached or used for
// routing.
type fingerprint struct {
	ID       string
	Method   string
	Path     string
	Query    string
	BodyHash string
}

func newFingerprint(method, path string, query QueryParams, body []byte) fingerprint {
	fp := fingerprint{
		ID:     uuid.NewString(),
		Method: method,
		Path:   path,
		Query:  query.Encode().Encode(),
	}
	if len(body) > 0 {
		sum := sha256.Sum256(body)
		fp.BodyHash = hex.EncodeToString(sum[:8])
	}
	return fp
}
