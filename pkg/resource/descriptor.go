/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

// Package resource is the opaque typed-record contract: resource
// descriptors carry identity and REST shape, the codec registry turns a
// generic JSON tree into a typed value and back.
package resource

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"k8s.io/apimachinery/pkg/runtime/schema"
)

// PatchKind is one of the patch strategies a descriptor may support.
type PatchKind string

const (
	PatchJSON      PatchKind = "json"
	PatchMerge     PatchKind = "merge"
	PatchStrategic PatchKind = "strategic"
	PatchApply     PatchKind = "apply"
)

// MergeKeys maps a dot-separated field path (the descriptor's own
// convention, e.g. "spec.containers") to the strategic-merge-patch merge key
// for that array field, mirroring the OpenAPI extension
// x-kubernetes-patch-merge-key.
type MergeKeys map[string]string

// ReplaceFields lists field paths whose array value is always replaced
// wholesale under a strategic-merge-patch, rather than merged by key.
type ReplaceFields map[string]bool

// Descriptor is the static metadata of a resource kind.
type Descriptor struct {
	GVK                 schema.GroupVersionKind
	Plural              string
	Namespaced          bool
	APIPathTemplate     string
	SupportedPatchKinds map[PatchKind]bool
	MergeKeys           MergeKeys
	ReplaceFields       ReplaceFields
}

// SupportsPatch reports whether the descriptor lists kind among its
// supported patch strategies.
func (d *Descriptor) SupportsPatch(kind PatchKind) bool {
	return d.SupportedPatchKinds[kind]
}

// Path renders the REST path for this descriptor, substituting
// {namespace} when the resource is namespaced and appending /{name} when
// name is non-empty.
func (d *Descriptor) Path(namespace, name string) (string, error) {
	path := d.APIPathTemplate
	if d.Namespaced {
		if namespace == "" {
			return "", fmt.Errorf("resource %s is namespaced but no namespace was supplied", d.GVK)
		}
		path = strings.ReplaceAll(path, "{namespace}", namespace)
	}
	if name != "" {
		path = strings.TrimSuffix(path, "/") + "/" + name
	}
	return path, nil
}

// Codec converts between a typed value and a generic JSON tree
// (map[string]interface{}/[]interface{}/scalars, exactly what
// encoding/json.Unmarshal produces into an interface{}).
type Codec interface {
	Encode(value interface{}) (interface{}, error)
	Decode(tree interface{}) (interface{}, error)
}

// jsonCodec is the fallback codec for unknown (apiVersion, kind) pairs: it
// round-trips through encoding/json, preserving every field it doesn't
// understand because it doesn't understand any of them.
type jsonCodec struct{}

func (jsonCodec) Encode(value interface{}) (interface{}, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var tree interface{}
	if err := json.Unmarshal(b, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func (jsonCodec) Decode(tree interface{}) (interface{}, error) {
	return tree, nil
}

// Registry maps (apiVersion, kind) to a Descriptor and Codec. Unknown
// kinds fall back to the generic JSON codec so that diffing and patching
// remain meaningful against resource kinds the registry doesn't know
// about yet.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]*Descriptor
	codecs      map[string]Codec
	fallback    Codec
}

// NewRegistry returns an empty registry using the generic JSON codec as
// its fallback for unregistered kinds.
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[string]*Descriptor),
		codecs:      make(map[string]Codec),
		fallback:    jsonCodec{},
	}
}

func key(apiVersion, kind string) string {
	return apiVersion + "/" + kind
}

// Register associates a descriptor and codec with (apiVersion, kind).
func (r *Registry) Register(apiVersion, kind string, d *Descriptor, c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(apiVersion, kind)
	r.descriptors[k] = d
	if c != nil {
		r.codecs[k] = c
	}
}

// Descriptor returns the descriptor registered for (apiVersion, kind), or
// false if none was registered.
func (r *Registry) Descriptor(apiVersion, kind string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[key(apiVersion, kind)]
	return d, ok
}

// Codec returns the codec registered for (apiVersion, kind), falling back
// to the generic JSON-tree codec when none was registered.
func (r *Registry) Codec(apiVersion, kind string) Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.codecs[key(apiVersion, kind)]; ok {
		return c
	}
	return r.fallback
}
