/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package watch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/go-logr/logr"

	"github.com/ardikabs/kubeclientcore/internal/connctx"
	"github.com/ardikabs/kubeclientcore/internal/restclient"
	"github.com/ardikabs/kubeclientcore/internal/vault"
	"github.com/ardikabs/kubeclientcore/pkg/connection"
)

// buildReconnectTestReader wires a Reader against serverURL without the
// *testing.T dependency newTestReader (in reader_test.go) carries, since
// Ginkgo specs run under GinkgoT(), not *testing.T.
func buildReconnectTestReader(serverURL string) *Reader {
	v := vault.New[*connctx.Context](logr.Discard())
	v.Register("test", func(ctx context.Context) (*connection.Info, error) {
		return &connection.Info{ServerInfo: connection.ServerInfo{Server: serverURL, InsecureSkipTLSVerify: true}}, nil
	})
	factory := func(info *connection.Info) (*connctx.Context, error) {
		return connctx.New(info, connctx.Options{Log: logr.Discard()})
	}
	return &Reader{V: v, Factory: factory}
}

func TestReconnectSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Watch Reconnect Suite")
}

// longLivedCodec round-trips objects as plain JSON trees, same as the
// passthroughCodec used by the table tests in reader_test.go; duplicated
// here so the suite has no compile-time dependency on that file's types.
type longLivedCodec struct{}

func (longLivedCodec) Encode(v interface{}) (interface{}, error) { return v, nil }
func (longLivedCodec) Decode(tree interface{}) (interface{}, error) { return tree, nil }

var _ = Describe("watch stream reconnection", func() {
	var cancel context.CancelFunc

	AfterEach(func() {
		if cancel != nil {
			cancel()
		}
	})

	It("keeps delivering events across a dropped connection, resuming from the last cursor", func() {
		var connections int32

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&connections, 1)
			flusher := w.(http.Flusher)

			if n == 1 {
				fmt.Fprintln(w, `{"type":"ADDED","object":{"metadata":{"name":"a","resourceVersion":"1"}}}`)
				flusher.Flush()
				return // connection drops without explicit error, forcing a reconnect
			}

			Expect(r.URL.Query().Get("resourceVersion")).To(Equal("1"))
			fmt.Fprintln(w, `{"type":"MODIFIED","object":{"metadata":{"name":"a","resourceVersion":"2"}}}`)
			flusher.Flush()
			<-r.Context().Done()
		}))
		defer srv.Close()

		reader := buildReconnectTestReader(srv.URL)
		cursor := &Cursor{}

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		defer cancel() // runs before srv.Close, so the blocked handler can return

		events, errs := reader.Watch(ctx, testWatchDescriptor(), longLivedCodec{}, cursor, restclient.QueryParams{},
			Options{Log: logr.Discard(), ReconnectBackoff: 10 * time.Millisecond})

		var seen []EventType
		Eventually(func() []EventType {
			select {
			case e := <-events:
				seen = append(seen, e.Type)
			case err := <-errs:
				Fail(fmt.Sprintf("unexpected terminal error: %v", err))
			default:
			}
			return seen
		}, 2*time.Second, 10*time.Millisecond).Should(Equal([]EventType{Added, Modified}))

		Expect(cursor.LastResourceVersion).To(Equal("2"))
		Expect(atomic.LoadInt32(&connections)).To(BeNumerically(">=", 2))
	})

	It("relists after a second consecutive 410 Gone, dropping the stale cursor", func() {
		var goneResponses int32

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.LoadInt32(&goneResponses) < 2 {
				atomic.AddInt32(&goneResponses, 1)
				w.WriteHeader(http.StatusGone)
				return
			}
			Expect(r.URL.Query().Get("resourceVersion")).To(BeEmpty())
			flusher := w.(http.Flusher)
			fmt.Fprintln(w, `{"type":"ADDED","object":{"metadata":{"name":"relisted","resourceVersion":"100"}}}`)
			flusher.Flush()
			<-r.Context().Done()
		}))
		defer srv.Close()

		reader := buildReconnectTestReader(srv.URL)
		cursor := &Cursor{LastResourceVersion: "50"}

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		defer cancel() // runs before srv.Close, so the blocked handler can return

		events, errs := reader.Watch(ctx, testWatchDescriptor(), longLivedCodec{}, cursor, restclient.QueryParams{},
			Options{Log: logr.Discard(), ReconnectBackoff: 10 * time.Millisecond})

		Eventually(func() EventType {
			select {
			case e := <-events:
				return e.Type
			case err := <-errs:
				Fail(fmt.Sprintf("unexpected terminal error: %v", err))
			default:
			}
			return ""
		}, 2*time.Second, 10*time.Millisecond).Should(Equal(Added))

		Expect(cursor.LastResourceVersion).To(Equal("100"))
	})
})
