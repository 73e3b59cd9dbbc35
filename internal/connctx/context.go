/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

// Package connctx implements the per-cluster connection context: TLS and
// auth-header construction from a ConnectionInfo, a pool of W×S sessions
// addressed by round-robin, and disposal that guarantees temp-file
// cleanup.
//
// The pool is a flat address book over persistent keep-alive HTTP
// clients rather than one goroutine pinned per worker; the user-visible
// contract (round-robin dispatch, no ordering guarantee across
// addresses) is identical either way, since Go's scheduler already
// multiplexes blocking calls across OS threads.
package connctx

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/ardikabs/kubeclientcore/internal/config"
	"github.com/ardikabs/kubeclientcore/pkg/connection"
)

// Session is a single HTTP client with keep-alive connections, one
// address in the Context's flat address book.
type Session struct {
	HTTP *retryablehttp.Client
}

// Options configures the pool shape and session construction.
type Options struct {
	Workers           int // W
	SessionsPerWorker int // S
	Log               logr.Logger
	// SessionFactory, when set, overrides the default retryablehttp
	// session construction (used by tests to inject a fake transport).
	SessionFactory func(tlsConfig *tls.Config, headers map[string]string, basicAuth *BasicAuth) *Session
}

// BasicAuth carries HTTP Basic credentials, built when both username and
// password are present. Do applies them only to a request that has no
// Authorization header yet, so they are not sent when the context also
// has a scheme or token header.
type BasicAuth struct {
	Username string
	Password string
}

// Context is the connection context: TLS material (possibly
// materialized to temp files), the server and default namespace of the
// ConnectionInfo it was built from, headers, and a session pool. Its zero
// value is not usable; construct with New.
type Context struct {
	Server           string
	DefaultNamespace string

	headers   map[string]string
	basicAuth *BasicAuth

	sessions []*Session // flat W*S address book

	rrMu      sync.Mutex
	rrCounter uint64

	tmp *tempFiles

	closedMu sync.Mutex
	closed   bool

	log logr.Logger
}

const (
	defaultWorkers           = 1
	defaultSessionsPerWorker = 4
)

// New builds a Context from a ConnectionInfo: validates path/data
// exclusivity, materializes any *Data field to temp files, builds the TLS
// configuration and default headers, then populates a W×S session pool.
func New(info *connection.Info, opts Options) (*Context, error) {
	if info == nil {
		return nil, fmt.Errorf("connection info is required")
	}

	tmp := newTempFiles()

	tlsConfig, err := buildTLSConfig(info, tmp)
	if err != nil {
		tmp.purge()
		return nil, err
	}

	headers := buildHeaders(info)

	var basicAuth *BasicAuth
	if info.ClientInfo.Username != "" && info.ClientInfo.Password != "" {
		basicAuth = &BasicAuth{Username: info.ClientInfo.Username, Password: info.ClientInfo.Password}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = config.GetInt("KUBECLIENTCORE_WORKERS", defaultWorkers)
	}
	perWorker := opts.SessionsPerWorker
	if perWorker <= 0 {
		perWorker = config.GetInt("KUBECLIENTCORE_SESSIONS_PER_WORKER", defaultSessionsPerWorker)
	}

	factory := opts.SessionFactory
	if factory == nil {
		factory = defaultSessionFactory
	}

	total := workers * perWorker
	sessions := make([]*Session, 0, total)
	for i := 0; i < total; i++ {
		sessions = append(sessions, factory(tlsConfig, headers, basicAuth))
	}

	log := opts.Log
	return &Context{
		Server:           info.ServerInfo.Server,
		DefaultNamespace: info.DefaultNamespace,
		headers:          headers,
		basicAuth:        basicAuth,
		sessions:         sessions,
		tmp:              tmp,
		log:              log.WithName("connctx"),
	}, nil
}

func defaultSessionFactory(tlsConfig *tls.Config, headers map[string]string, basicAuth *BasicAuth) *Session {
	transport := &http.Transport{
		TLSClientConfig:   tlsConfig,
		ForceAttemptHTTP2: true,
	}
	httpClient := &http.Client{Transport: transport}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = httpClient
	rc.Logger = nil
	rc.RetryMax = 0 // retry policy lives in internal/restclient, not here

	return &Session{HTTP: rc}
}

// Do executes req on the next round-robin session, applying the
// context's default headers and basic auth (when configured) before
// send. Returns ErrClosed if the context has been disposed.
//
// Do picks a session with its own round-robin slot on every call; calling
// Do again from within a response callback or body read of an earlier Do
// on the same Context is undefined: the address book gives no ordering
// or session-affinity guarantee across nested calls.
func (c *Context) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.Closed() {
		return nil, ErrClosed
	}

	session := c.choose()
	for k, v := range c.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	if c.basicAuth != nil && req.Header.Get("Authorization") == "" {
		req.SetBasicAuth(c.basicAuth.Username, c.basicAuth.Password)
	}

	rreq, err := retryablehttp.FromRequest(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("build retryable request: %w", err)
	}
	return session.HTTP.Do(rreq)
}

func (c *Context) choose() *Session {
	c.rrMu.Lock()
	idx := c.rrCounter % uint64(len(c.sessions))
	c.rrCounter++
	c.rrMu.Unlock()
	return c.sessions[idx]
}

// Closed reports whether the context has been disposed.
func (c *Context) Closed() bool {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()
	return c.closed
}

// Close halts the pool and deletes every temp file this context created.
// Subsequent Do calls fail with ErrClosed. Close is idempotent.
func (c *Context) Close() error {
	c.closedMu.Lock()
	if c.closed {
		c.closedMu.Unlock()
		return nil
	}
	c.closed = true
	c.closedMu.Unlock()

	for _, s := range c.sessions {
		s.HTTP.HTTPClient.CloseIdleConnections()
	}
	c.tmp.purge()
	return nil
}
