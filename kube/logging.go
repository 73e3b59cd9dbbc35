/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package kube

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
)

// NewProductionLogger builds a logr.Logger backed by zap's production
// configuration (JSON encoding, info level, sampling), the same backend
// the vault, connection context, REST client, and watch reader all accept
// but none of them construct themselves. Callers that have their own
// logr.Logger already (from a controller-runtime manager, say) should pass
// that in instead; this exists for standalone use of the package.
//
// The returned sync func flushes zap's buffered writer and should be
// deferred by the caller.
func NewProductionLogger() (logr.Logger, func(), error) {
	zapLog, err := zap.NewProduction()
	if err != nil {
		return logr.Logger{}, nil, fmt.Errorf("initialize zap logger: %w", err)
	}
	return zapr.NewLogger(zapLog), func() { _ = zapLog.Sync() }, nil
}
