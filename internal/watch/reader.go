/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package watch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/ardikabs/kubeclientcore/internal/connctx"
	"github.com/ardikabs/kubeclientcore/internal/restclient"
	"github.com/ardikabs/kubeclientcore/internal/vault"
	"github.com/ardikabs/kubeclientcore/pkg/apierror"
	"github.com/ardikabs/kubeclientcore/pkg/resource"
)

// maxGoneBeforeRelist is how many consecutive 410 Gone responses the
// reader tolerates, carrying the stale resourceVersion forward, before it
// gives up on resumption and resets the cursor for a full relist.
const maxGoneBeforeRelist = 1

// maxScanTokenSize bounds a single watch line; the API server's objects
// are not expected to exceed this, but a larger object fails loudly
// rather than silently truncating.
const maxScanTokenSize = 16 * 1024 * 1024

// Options configures a single Watch call.
type Options struct {
	Log logr.Logger
	// RetryStatuses lists HTTP-equivalent statuses (from a stream ERROR
	// event's Status.Code) that should trigger a reconnect instead of
	// terminating the stream.
	RetryStatuses map[int]bool
	SessionKey    string
	// ReconnectBackoff paces reconnect attempts after a clean stream end
	// or transient failure, so a server that closes the stream
	// immediately doesn't spin the reader at full CPU. Defaults to 1s.
	ReconnectBackoff time.Duration
}

func (o Options) reconnectBackoff() time.Duration {
	if o.ReconnectBackoff > 0 {
		return o.ReconnectBackoff
	}
	return time.Second
}

// Reader drives watch streams through the vault's re-authentication loop,
// the same way the REST client does for single calls.
type Reader struct {
	V       *vault.Vault[*connctx.Context]
	Factory vault.ContextFactory[*connctx.Context]
}

// Watch opens a streaming connection for descriptor/cursor and returns a
// channel of decoded events plus an error channel that receives exactly
// one terminal error (ctx.Err() when ctx is cancelled). The reader
// reconnects transparently on connection drop or 410 Gone; callers see a
// single logical stream. Cancelling ctx closes the underlying response,
// sends the terminal error, and closes the event channel; the error
// channel itself is never closed.
func (r *Reader) Watch(ctx context.Context, descriptor *resource.Descriptor, codec resource.Codec, cursor *Cursor, query restclient.QueryParams, opts Options) (<-chan Event, <-chan error) {
	out := make(chan Event)
	errs := make(chan error, 1)

	log := opts.Log
	sessionKey := opts.SessionKey
	if sessionKey == "" {
		sessionKey = "default"
	}

	go func() {
		defer close(out)

		goneCount := 0
		for {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			default:
			}

			cand, err := nextCandidate(ctx, r.V, r.Factory, sessionKey)
			if err != nil {
				errs <- err
				return
			}

			path, err := descriptor.Path(cursor.Namespace, "")
			if err != nil {
				errs <- err
				return
			}

			q := query
			q.Watch = true
			q.AllowWatchBookmarks = true
			q.ResourceVersion = cursor.LastResourceVersion
			if cursor.LabelSelector != "" {
				q.LabelSelector = cursor.LabelSelector
			}
			if cursor.FieldSelector != "" {
				q.FieldSelector = cursor.FieldSelector
			}

			url := cand.Ctx.Server + path
			if v := q.Encode(); len(v) > 0 {
				url += "?" + v.Encode()
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				errs <- fmt.Errorf("build watch request: %w", err)
				return
			}
			req.Header.Set("Accept", "application/json")

			resp, err := cand.Ctx.Do(ctx, req)
			if err != nil {
				if ctx.Err() != nil {
					errs <- ctx.Err()
					return
				}
				log.V(1).Info("watch connection failed, reconnecting", "error", err)
				if werr := sleepOrDone(ctx, opts.reconnectBackoff()); werr != nil {
					errs <- werr
					return
				}
				continue // transient network failure: reconnect with the same cursor
			}

			if resp.StatusCode == http.StatusGone {
				resp.Body.Close()
				goneCount++
				if goneCount > maxGoneBeforeRelist {
					log.Info("watch cursor expired repeatedly, relisting", "resourceVersion", cursor.LastResourceVersion)
					cursor.Reset()
					goneCount = 0
				}
				if werr := sleepOrDone(ctx, opts.reconnectBackoff()); werr != nil {
					errs <- werr
					return
				}
				continue
			}
			if resp.StatusCode == http.StatusUnauthorized {
				resp.Body.Close()
				_ = r.V.Invalidate(cand.Key, &apierror.Envelope{Kind: apierror.KindUnauthorized, HTTPStatus: resp.StatusCode})
				continue
			}
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, int64(maxScanTokenSize)))
				resp.Body.Close()
				errs <- apierror.FromResponse(resp.StatusCode, body, decodeStatus)
				return
			}
			goneCount = 0

			terminal, err := r.stream(ctx, resp, codec, cursor, out, opts)
			resp.Body.Close()
			if terminal {
				errs <- err
				return
			}
			if err != nil {
				log.V(1).Info("watch stream ended, reconnecting", "error", err)
			}
			if werr := sleepOrDone(ctx, opts.reconnectBackoff()); werr != nil {
				errs <- werr
				return
			}
			// Non-terminal: loop and reconnect using the advanced cursor.
		}
	}()

	return out, errs
}

// stream reads lines from resp until EOF, cancellation, or a terminal
// ERROR event. It returns terminal=true when the caller should stop
// reconnecting (cancellation, or an unrecoverable ERROR event).
func (r *Reader) stream(ctx context.Context, resp *http.Response, codec resource.Codec, cursor *Cursor, out chan<- Event, opts Options) (bool, error) {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var raw rawEvent
		if err := json.Unmarshal(line, &raw); err != nil {
			return false, fmt.Errorf("decode watch line: %w", err)
		}

		var meta objectMeta
		_ = json.Unmarshal(raw.Object, &meta)

		switch raw.Type {
		case ErrorEvent:
			var st metav1.Status
			if err := json.Unmarshal(raw.Object, &st); err != nil {
				return true, fmt.Errorf("decode watch error status: %w", err)
			}
			env := apierror.FromStatus(&st)
			if opts.RetryStatuses != nil && opts.RetryStatuses[env.HTTPStatus] {
				select {
				case out <- Event{Type: ErrorEvent, Err: env}:
				case <-ctx.Done():
					return true, ctx.Err()
				}
				return false, env // reconnect
			}
			select {
			case out <- Event{Type: ErrorEvent, Err: env}:
			case <-ctx.Done():
			}
			return true, env

		case Bookmark:
			cursor.Advance(meta.Metadata.ResourceVersion)
			cursor.BookmarkSeen = true
			select {
			case out <- Event{Type: Bookmark, ResourceVersion: meta.Metadata.ResourceVersion}:
			case <-ctx.Done():
				return true, ctx.Err()
			}

		default:
			var tree interface{}
			if err := json.Unmarshal(raw.Object, &tree); err != nil {
				return false, fmt.Errorf("decode watch object: %w", err)
			}
			decoded, err := codec.Decode(tree)
			if err != nil {
				return false, fmt.Errorf("decode watch object via codec: %w", err)
			}
			cursor.Advance(meta.Metadata.ResourceVersion)
			select {
			case out <- Event{Type: raw.Type, Object: decoded, ResourceVersion: meta.Metadata.ResourceVersion}:
			case <-ctx.Done():
				return true, ctx.Err()
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return false, err
	}
	return false, nil // clean EOF: reconnect
}

func nextCandidate(ctx context.Context, v *vault.Vault[*connctx.Context], factory vault.ContextFactory[*connctx.Context], sessionKey string) (vault.Candidate[*connctx.Context], error) {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	candidates, errs := v.Extended(cctx, sessionKey, factory)
	select {
	case cand, ok := <-candidates:
		if !ok {
			return vault.Candidate[*connctx.Context]{}, <-errs
		}
		return cand, nil
	case err := <-errs:
		return vault.Candidate[*connctx.Context]{}, err
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func decodeStatus(body []byte) (*metav1.Status, error) {
	var st metav1.Status
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
