/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

// Package vault implements the credential vault: a registry of named
// credential providers, each producing a ConnectionInfo on demand, with
// per-provider login serialization and a re-authentication iteration
// protocol that the REST client drives on every call.
package vault

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/ardikabs/kubeclientcore/internal/metrics"
	"github.com/ardikabs/kubeclientcore/pkg/connection"
)

// SourceFunc produces a fresh ConnectionInfo for a provider, or fails
// with a login error.
type SourceFunc func(ctx context.Context) (*connection.Info, error)

// Closer is implemented by the live context type T bound to a provider's
// credentials; Close is called when the vault invalidates the pair.
type Closer interface {
	Close() error
}

// ContextFactory builds a live context of type T from a freshly logged-in
// ConnectionInfo.
type ContextFactory[T Closer] func(info *connection.Info) (T, error)

type providerState[T Closer] struct {
	// mu serializes logins and context builds: at most one source call
	// per provider is ever in flight; concurrent consumers share the
	// cached result.
	mu sync.Mutex

	providerID string
	source     SourceFunc

	info *connection.Info
	// contexts is keyed by contextKey so the same ConnectionInfo can back
	// distinct logical pools (e.g. per RBAC identity).
	contexts map[string]T
}

// Vault owns a set of credential sources and, for each, zero or one live
// ConnectionInfo plus any ContextFactory-built contexts keyed by
// contextKey.
type Vault[T Closer] struct {
	log logr.Logger

	// RetryBackoff paces re-login attempts once every provider has
	// failed in the same Extended iteration. Defaults to 500ms.
	RetryBackoff time.Duration

	// Metrics, when set, receives a vault_logins_total increment per
	// login attempt, labeled by provider and outcome.
	Metrics *metrics.Metrics

	mu        sync.RWMutex
	order     []string
	providers map[string]*providerState[T]

	emptyMu sync.Mutex
	emptyCh chan struct{}
}

// New returns an empty vault. log defaults to a discard logger when the
// zero value is passed.
func New[T Closer](log logr.Logger) *Vault[T] {
	return &Vault[T]{
		log:       log.WithName("vault"),
		providers: make(map[string]*providerState[T]),
		emptyCh:   make(chan struct{}),
	}
}

// Register adds a credential source under providerID. Registration order
// is iteration order for Extended. Re-registering an existing providerID
// replaces its source and closes any contexts built from the old one,
// keeping the original iteration slot.
func (v *Vault[T]) Register(providerID string, source SourceFunc) {
	v.mu.Lock()
	old, exists := v.providers[providerID]
	if !exists {
		v.order = append(v.order, providerID)
	}
	v.providers[providerID] = &providerState[T]{
		providerID: providerID,
		source:     source,
		contexts:   make(map[string]T),
	}
	v.mu.Unlock()

	if exists {
		old.mu.Lock()
		for ck, c := range old.contexts {
			_ = c.Close()
			delete(old.contexts, ck)
		}
		old.info = nil
		old.mu.Unlock()
	}
}

// Candidate is one yielded (key, info, ctx) triple from Extended.
type Candidate[T Closer] struct {
	Key  connection.Key
	Info *connection.Info
	Ctx  T
}

// Extended iterates over providers in registration order, logging in (at
// most once concurrently per provider) and building/caching a context of
// type T under contextKey, skipping any provider whose most recent login
// failed. If every provider fails, Extended blocks until either a
// provider's next login succeeds or ctx is cancelled.
//
// Extended is the only point at which re-authentication is triggered;
// callers must never call a provider's source function directly.
func (v *Vault[T]) Extended(ctx context.Context, contextKey string, factory ContextFactory[T]) (<-chan Candidate[T], <-chan error) {
	out := make(chan Candidate[T])
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		for {
			v.mu.RLock()
			order := append([]string(nil), v.order...)
			v.mu.RUnlock()

			produced := false

			for _, providerID := range order {
				select {
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				default:
				}

				v.mu.RLock()
				ps := v.providers[providerID]
				v.mu.RUnlock()

				info, cctx, err := v.loginAndBuild(ctx, providerID, ps, contextKey, factory)
				if err != nil {
					v.log.V(1).Info("provider login failed, skipping", "provider", providerID, "error", err)
					continue
				}

				fp := connection.Fingerprint(info)
				key := connection.Key{ProviderID: providerID, Fingerprint: fp}

				select {
				case out <- Candidate[T]{Key: key, Info: info, Ctx: cctx}:
					produced = true
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}

			if produced {
				continue
			}
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case <-v.retrySignal():
			}
		}
	}()

	return out, errs
}

// retrySignal paces re-login attempts when every provider has just
// failed, so a vault with no reachable provider doesn't spin the CPU.
func (v *Vault[T]) retrySignal() <-chan struct{} {
	ch := make(chan struct{}, 1)
	go func() {
		time.Sleep(v.retryBackoff())
		ch <- struct{}{}
	}()
	return ch
}

func (v *Vault[T]) recordLogin(providerID, outcome string) {
	if v.Metrics == nil {
		return
	}
	v.Metrics.VaultLoginsTotal.WithLabelValues(providerID, outcome).Inc()
}

func (v *Vault[T]) retryBackoff() time.Duration {
	if v.RetryBackoff > 0 {
		return v.RetryBackoff
	}
	return 500 * time.Millisecond
}

func (v *Vault[T]) loginAndBuild(ctx context.Context, providerID string, ps *providerState[T], contextKey string, factory ContextFactory[T]) (*connection.Info, T, error) {
	var zero T

	ps.mu.Lock()
	if ps.info == nil {
		info, err := ps.source(ctx)
		if err != nil {
			ps.mu.Unlock()
			v.recordLogin(providerID, "failure")
			return nil, zero, fmt.Errorf("provider %q login: %w", ps.providerID, err)
		}
		ps.info = info
		v.recordLogin(providerID, "success")
		v.resetEmptySignal()
	}
	info := ps.info

	cctx, ok := ps.contexts[contextKey]
	if !ok {
		built, err := factory(info)
		if err != nil {
			ps.mu.Unlock()
			return nil, zero, fmt.Errorf("provider %q build context: %w", ps.providerID, err)
		}
		ps.contexts[contextKey] = built
		cctx = built
	}
	ps.mu.Unlock()

	return info, cctx, nil
}

// Invalidate discards the (key, info) pair, closes every cached context
// for that provider, and clears the cached ConnectionInfo so the next
// Extended iteration re-logs in. A Forbidden exc is a no-op: 403 is an
// authorization outcome, not an invalidation signal, and the credentials
// stay live.
func (v *Vault[T]) Invalidate(key connection.Key, exc error) error {
	if isForbidden(exc) {
		return nil
	}

	v.mu.RLock()
	ps, ok := v.providers[key.ProviderID]
	v.mu.RUnlock()
	if !ok {
		return nil
	}

	ps.mu.Lock()
	var firstErr error
	for ck, c := range ps.contexts {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(ps.contexts, ck)
	}
	ps.info = nil
	ps.mu.Unlock()

	if v.allEmpty() {
		v.signalEmpty()
	}
	return firstErr
}

func isForbidden(err error) bool {
	type forbidden interface{ IsForbidden() bool }
	f, ok := err.(forbidden)
	return ok && f.IsForbidden()
}

func (v *Vault[T]) allEmpty() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, ps := range v.providers {
		ps.mu.Lock()
		live := ps.info != nil
		ps.mu.Unlock()
		if live {
			return false
		}
	}
	return true
}

func (v *Vault[T]) signalEmpty() {
	v.emptyMu.Lock()
	defer v.emptyMu.Unlock()
	select {
	case <-v.emptyCh:
	default:
		close(v.emptyCh)
	}
}

// resetEmptySignal replaces the emptiness channel with a fresh, open one
// if it was previously closed, so a vault that becomes non-empty again
// after a WaitForEmptiness wakeup doesn't report empty forever.
func (v *Vault[T]) resetEmptySignal() {
	v.emptyMu.Lock()
	defer v.emptyMu.Unlock()
	select {
	case <-v.emptyCh:
		v.emptyCh = make(chan struct{})
	default:
	}
}

func (v *Vault[T]) emptySignal() <-chan struct{} {
	v.emptyMu.Lock()
	defer v.emptyMu.Unlock()
	return v.emptyCh
}

// WaitForEmptiness blocks until no provider holds a live ConnectionInfo,
// or ctx is cancelled.
func (v *Vault[T]) WaitForEmptiness(ctx context.Context) error {
	if v.allEmpty() {
		return nil
	}
	select {
	case <-v.emptySignal():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
