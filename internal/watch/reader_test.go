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
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/ardikabs/kubeclientcore/internal/connctx"
	"github.com/ardikabs/kubeclientcore/internal/restclient"
	"github.com/ardikabs/kubeclientcore/internal/vault"
	"github.com/ardikabs/kubeclientcore/pkg/connection"
	"github.com/ardikabs/kubeclientcore/pkg/resource"
)

type passthroughCodec struct{}

func (passthroughCodec) Encode(v interface{}) (interface{}, error) { return v, nil }
func (passthroughCodec) Decode(tree interface{}) (interface{}, error) { return tree, nil }

func newTestReader(t *testing.T, serverURL string) *Reader {
	t.Helper()
	v := vault.New[*connctx.Context](logr.Discard())
	v.Register("test", func(ctx context.Context) (*connection.Info, error) {
		return &connection.Info{ServerInfo: connection.ServerInfo{Server: serverURL, InsecureSkipTLSVerify: true}}, nil
	})
	factory := func(info *connection.Info) (*connctx.Context, error) {
		return connctx.New(info, connctx.Options{Log: logr.Discard()})
	}
	return &Reader{V: v, Factory: factory}
}

func testWatchDescriptor() *resource.Descriptor {
	return &resource.Descriptor{
		GVK:             schema.GroupVersionKind{Version: "v1", Kind: "Pod"},
		APIPathTemplate: "/api/v1/pods",
	}
}

func TestWatchEmitsAddedModifiedDeleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"type":"ADDED","object":{"metadata":{"name":"a","resourceVersion":"1"}}}`)
		flusher.Flush()
		fmt.Fprintln(w, `{"type":"MODIFIED","object":{"metadata":{"name":"a","resourceVersion":"2"}}}`)
		flusher.Flush()
		fmt.Fprintln(w, `{"type":"DELETED","object":{"metadata":{"name":"a","resourceVersion":"3"}}}`)
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	r := newTestReader(t, srv.URL)
	cursor := &Cursor{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, errs := r.Watch(ctx, testWatchDescriptor(), passthroughCodec{}, cursor, restclient.QueryParams{}, Options{Log: logr.Discard(), ReconnectBackoff: 10 * time.Millisecond})

	var got []EventType
	for i := 0; i < 3; i++ {
		select {
		case e := <-events:
			got = append(got, e.Type)
		case err := <-errs:
			t.Fatalf("unexpected terminal error: %v", err)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
	cancel()

	assert.Equal(t, []EventType{Added, Modified, Deleted}, got)
	assert.Equal(t, "3", cursor.LastResourceVersion)
}

func TestWatchBookmarkAdvancesCursorWithoutDecodedObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"type":"BOOKMARK","object":{"metadata":{"resourceVersion":"42"}}}`)
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	r := newTestReader(t, srv.URL)
	cursor := &Cursor{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _ := r.Watch(ctx, testWatchDescriptor(), passthroughCodec{}, cursor, restclient.QueryParams{}, Options{Log: logr.Discard(), ReconnectBackoff: 10 * time.Millisecond})

	select {
	case e := <-events:
		assert.Equal(t, Bookmark, e.Type)
		assert.Nil(t, e.Object)
		assert.Equal(t, "42", e.ResourceVersion)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bookmark")
	}
	cancel()
	assert.Equal(t, "42", cursor.LastResourceVersion)
}

func TestWatchErrorEventTerminatesWithoutRetryStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"type":"ERROR","object":{"kind":"Status","code":500,"reason":"InternalError","message":"boom"}}`)
		flusher.Flush()
	}))
	defer srv.Close()

	r := newTestReader(t, srv.URL)
	cursor := &Cursor{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, errs := r.Watch(ctx, testWatchDescriptor(), passthroughCodec{}, cursor, restclient.QueryParams{}, Options{Log: logr.Discard(), ReconnectBackoff: 10 * time.Millisecond})

	select {
	case e := <-events:
		require.Equal(t, ErrorEvent, e.Type)
		require.NotNil(t, e.Err)
		assert.Equal(t, 500, e.Err.HTTPStatus)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error event")
	}

	select {
	case err := <-errs:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for terminal error")
	}
}

func TestWatchResumesWithStoredResourceVersionOn410(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusGone)
			return
		}
		assert.Equal(t, "5", r.URL.Query().Get("resourceVersion"))
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"type":"ADDED","object":{"metadata":{"name":"a","resourceVersion":"6"}}}`)
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	r := newTestReader(t, srv.URL)
	cursor := &Cursor{LastResourceVersion: "5"}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _ := r.Watch(ctx, testWatchDescriptor(), passthroughCodec{}, cursor, restclient.QueryParams{}, Options{Log: logr.Discard(), ReconnectBackoff: 10 * time.Millisecond})

	select {
	case e := <-events:
		assert.Equal(t, Added, e.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event after 410 resume")
	}
	cancel()
	assert.GreaterOrEqual(t, attempts, 2)
}
