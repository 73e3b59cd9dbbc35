/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package kube

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ardikabs/kubeclientcore/internal/restclient"
	"github.com/ardikabs/kubeclientcore/internal/watch"
	"github.com/ardikabs/kubeclientcore/pkg/apierror"
	"github.com/ardikabs/kubeclientcore/pkg/jsonpatch"
	"github.com/ardikabs/kubeclientcore/pkg/resource"
	"github.com/ardikabs/kubeclientcore/pkg/strategicmerge"
)

// Facade is the high-level CRUD surface: get/create/update/delete/
// createOrUpdate/watch, each assembling a restclient.Call and decoding
// the result through the resource registry's codec.
type Facade struct {
	RC       *restclient.Client
	Registry *resource.Registry
}

func (f *Facade) codec(d *resource.Descriptor) resource.Codec {
	return f.Registry.Codec(d.GVK.GroupVersion().String(), d.GVK.Kind)
}

func (f *Facade) listCodec(d *resource.Descriptor) resource.Codec {
	return f.Registry.Codec(d.GVK.GroupVersion().String(), d.GVK.Kind+"List")
}

// GetOptions configures a Get call.
type GetOptions struct {
	Namespace           string
	Name                string
	Query               restclient.QueryParams
	Processing          restclient.ProcessingConfig
	Logging             restclient.LoggingConfig
	ReturnAPIExceptions []int
}

// Get issues a GET. Without Name it decodes a list response through the
// descriptor's list codec; with Name it decodes a single resource.
func (f *Facade) Get(ctx context.Context, d *resource.Descriptor, opts GetOptions) (interface{}, *apierror.Envelope, error) {
	result, err := f.RC.Do(ctx, restclient.Call{
		Method:              http.MethodGet,
		Descriptor:          d,
		Namespace:           opts.Namespace,
		Name:                opts.Name,
		Query:               opts.Query,
		Processing:          opts.Processing,
		Logging:             opts.Logging,
		ReturnAPIExceptions: opts.ReturnAPIExceptions,
	})
	if err != nil {
		return nil, nil, err
	}
	if result.Envelope != nil {
		return nil, result.Envelope, nil
	}

	codec := f.codec(d)
	if opts.Name == "" {
		codec = f.listCodec(d)
	}
	decoded, err := codec.Decode(result.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("decode response: %w", err)
	}
	return decoded, nil, nil
}

// CreateOptions configures a Create call.
type CreateOptions struct {
	Namespace           string
	Query               restclient.QueryParams
	Processing          restclient.ProcessingConfig
	Logging             restclient.LoggingConfig
	ReturnAPIExceptions []int
}

// Create issues a POST to the collection URL with obj as the encoded body.
func (f *Facade) Create(ctx context.Context, d *resource.Descriptor, obj interface{}, opts CreateOptions) (interface{}, *apierror.Envelope, error) {
	codec := f.codec(d)
	tree, err := codec.Encode(obj)
	if err != nil {
		return nil, nil, fmt.Errorf("encode resource: %w", err)
	}

	result, err := f.RC.Do(ctx, restclient.Call{
		Method:              http.MethodPost,
		Descriptor:          d,
		Namespace:           opts.Namespace,
		Query:               opts.Query,
		Body:                tree,
		ContentType:         "application/json",
		Processing:          opts.Processing,
		Logging:             opts.Logging,
		ReturnAPIExceptions: opts.ReturnAPIExceptions,
	})
	if err != nil {
		return nil, nil, err
	}
	if result.Envelope != nil {
		return nil, result.Envelope, nil
	}

	decoded, err := codec.Decode(result.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("decode response: %w", err)
	}
	return decoded, nil, nil
}

// UpdateOptions configures an Update call and selects its patch strategy.
type UpdateOptions struct {
	Namespace string
	Name      string

	// BuiltFromLatest, when set, is the last fetched instance of the
	// resource; its presence is what unlocks strategic-merge and
	// JSON-Patch dispatch over a plain merge-patch fallback.
	BuiltFromLatest interface{}
	// Paths restricts a strategic-merge-patch to these dotted field
	// paths. Ignored for the other strategies.
	Paths []string
	// Force issues a PUT instead of any patch strategy. obj must carry
	// metadata.resourceVersion in this case.
	Force bool
	// IgnoreListConflicts skips the test-operation guards that a
	// JSON-Patch update would otherwise prepend for array-element
	// mutations.
	IgnoreListConflicts bool

	Query               restclient.QueryParams
	Processing          restclient.ProcessingConfig
	Logging             restclient.LoggingConfig
	ReturnAPIExceptions []int
}

// Update is the patch dispatcher: force PUT, else strategic-merge-patch
// when BuiltFromLatest is set and the descriptor supports it, else
// JSON-Patch when BuiltFromLatest is set, else merge-patch.
func (f *Facade) Update(ctx context.Context, d *resource.Descriptor, obj interface{}, opts UpdateOptions) (interface{}, *apierror.Envelope, error) {
	codec := f.codec(d)
	newTree, err := codec.Encode(obj)
	if err != nil {
		return nil, nil, fmt.Errorf("encode resource: %w", err)
	}

	method := http.MethodPatch
	var contentType string
	var body interface{}

	switch {
	case opts.Force:
		if resourceVersionOf(newTree) == "" {
			return nil, nil, fmt.Errorf("force update requires metadata.resourceVersion on the resource")
		}
		method = http.MethodPut
		contentType = "application/json"
		body = newTree

	case opts.BuiltFromLatest != nil && d.SupportsPatch(resource.PatchStrategic):
		oldTree, err := codec.Encode(opts.BuiltFromLatest)
		if err != nil {
			return nil, nil, fmt.Errorf("encode builtFromLatest: %w", err)
		}
		oldMap, oldOK := oldTree.(map[string]interface{})
		newMap, newOK := newTree.(map[string]interface{})
		if !oldOK || !newOK {
			return nil, nil, fmt.Errorf("strategic-merge-patch requires object-shaped resources")
		}
		body = strategicmerge.Plan(oldMap, newMap, d, opts.Paths)
		contentType = restclient.ContentTypeForPatch("strategic")

	case opts.BuiltFromLatest != nil:
		oldTree, err := codec.Encode(opts.BuiltFromLatest)
		if err != nil {
			return nil, nil, fmt.Errorf("encode builtFromLatest: %w", err)
		}
		ops := jsonpatch.Diff(oldTree, newTree)
		if !opts.IgnoreListConflicts {
			ops = withListConflictGuards(oldTree, ops)
		}
		body = ops
		contentType = restclient.ContentTypeForPatch("json")

	default:
		body = newTree
		contentType = restclient.ContentTypeForPatch("merge")
	}

	result, err := f.RC.Do(ctx, restclient.Call{
		Method:              method,
		Descriptor:          d,
		Namespace:           opts.Namespace,
		Name:                opts.Name,
		Query:               opts.Query,
		Body:                body,
		ContentType:         contentType,
		Processing:          opts.Processing,
		Logging:             opts.Logging,
		ReturnAPIExceptions: opts.ReturnAPIExceptions,
	})
	if err != nil {
		return nil, nil, err
	}
	if result.Envelope != nil {
		return nil, result.Envelope, nil
	}

	decoded, err := codec.Decode(result.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("decode response: %w", err)
	}
	return decoded, nil, nil
}

// withListConflictGuards prepends a "test" operation before every op that
// replaces or removes an existing array element, asserting the element's
// value as of oldTree. A concurrent edit to that same slot fails the test
// and the whole patch is rejected instead of silently clobbering it.
func withListConflictGuards(oldTree interface{}, ops []jsonpatch.Operation) []jsonpatch.Operation {
	guarded := make([]jsonpatch.Operation, 0, len(ops))
	for _, op := range ops {
		if op.Op == jsonpatch.OpReplace || op.Op == jsonpatch.OpRemove {
			if pathTargetsArrayElement(oldTree, op.Path) {
				if val, ok := lookupPointer(oldTree, op.Path); ok {
					guarded = append(guarded, jsonpatch.Operation{Op: jsonpatch.OpTest, Path: op.Path, Value: val})
				}
			}
		}
		guarded = append(guarded, op)
	}
	return guarded
}

func pathTargetsArrayElement(tree interface{}, path string) bool {
	tokens, isRoot, err := jsonpatch.ParsePointer(path)
	if err != nil || isRoot || len(tokens) == 0 {
		return false
	}
	parent, ok := navigate(tree, tokens[:len(tokens)-1])
	if !ok {
		return false
	}
	_, isArr := parent.([]interface{})
	return isArr
}

func lookupPointer(tree interface{}, path string) (interface{}, bool) {
	tokens, isRoot, err := jsonpatch.ParsePointer(path)
	if err != nil {
		return nil, false
	}
	if isRoot {
		return tree, true
	}
	return navigate(tree, tokens)
}

func resourceVersionOf(tree interface{}) string {
	rv, ok := lookupPointer(tree, "/metadata/resourceVersion")
	if !ok {
		return ""
	}
	s, _ := rv.(string)
	return s
}

func navigate(tree interface{}, tokens []string) (interface{}, bool) {
	cur := tree
	for _, t := range tokens {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[t]
			if !ok {
				return nil, false
			}
			cur = v
		case []interface{}:
			idx, err := strconv.Atoi(t)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// DeleteOptions configures a Delete call.
type DeleteOptions struct {
	Namespace           string
	Name                string
	Query               restclient.QueryParams
	Processing          restclient.ProcessingConfig
	Logging             restclient.LoggingConfig
	ReturnAPIExceptions []int
}

// Delete issues a DELETE. When ReturnAPIExceptions contains 404, a missing
// resource resolves to an error envelope rather than an error.
func (f *Facade) Delete(ctx context.Context, d *resource.Descriptor, opts DeleteOptions) (*apierror.Envelope, error) {
	result, err := f.RC.Do(ctx, restclient.Call{
		Method:              http.MethodDelete,
		Descriptor:          d,
		Namespace:           opts.Namespace,
		Name:                opts.Name,
		Query:               opts.Query,
		Processing:          opts.Processing,
		Logging:             opts.Logging,
		ReturnAPIExceptions: opts.ReturnAPIExceptions,
	})
	if err != nil {
		return nil, err
	}
	return result.Envelope, nil
}

// CreateOrUpdateOptions configures a CreateOrUpdate call. Name must match
// the resource's metadata.name so a conflict recovery can re-GET it.
type CreateOrUpdateOptions struct {
	Namespace  string
	Name       string
	Query      restclient.QueryParams
	Processing restclient.ProcessingConfig
	Logging    restclient.LoggingConfig
}

// CreateOrUpdate POSTs obj; on a 409 Conflict it re-GETs the existing
// instance, merges the caller's fields onto the fetched copy, and falls
// through to Update with BuiltFromLatest set to the fetched copy, so the
// caller's fields land as a patch instead of failing.
func (f *Facade) CreateOrUpdate(ctx context.Context, d *resource.Descriptor, obj interface{}, opts CreateOrUpdateOptions) (interface{}, error) {
	created, env, err := f.Create(ctx, d, obj, CreateOptions{
		Namespace:           opts.Namespace,
		Query:               opts.Query,
		Processing:          opts.Processing,
		Logging:             opts.Logging,
		ReturnAPIExceptions: []int{http.StatusConflict},
	})
	if err != nil {
		return nil, err
	}
	if env == nil {
		return created, nil
	}
	if env.Kind != apierror.KindConflict {
		return nil, env
	}

	fetched, fetchEnv, err := f.Get(ctx, d, GetOptions{
		Namespace:  opts.Namespace,
		Name:       opts.Name,
		Processing: opts.Processing,
		Logging:    opts.Logging,
	})
	if err != nil {
		return nil, fmt.Errorf("createOrUpdate: re-get after conflict: %w", err)
	}
	if fetchEnv != nil {
		return nil, fetchEnv
	}

	merged, err := f.mergeOntoFetched(d, fetched, obj)
	if err != nil {
		return nil, fmt.Errorf("createOrUpdate: merge onto fetched: %w", err)
	}

	updated, updateEnv, err := f.Update(ctx, d, merged, UpdateOptions{
		Namespace:       opts.Namespace,
		Name:            opts.Name,
		BuiltFromLatest: fetched,
		Query:           opts.Query,
		Processing:      opts.Processing,
		Logging:         opts.Logging,
	})
	if err != nil {
		return nil, err
	}
	if updateEnv != nil {
		return nil, updateEnv
	}
	return updated, nil
}

// mergeOntoFetched overlays the caller's fields on the fetched instance:
// objects merge recursively with the caller's values winning, everything
// else (arrays, scalars) is taken from the caller wholesale. The result is
// decoded back through the codec so Update sees the same shape it would
// from any other caller.
func (f *Facade) mergeOntoFetched(d *resource.Descriptor, fetched, obj interface{}) (interface{}, error) {
	codec := f.codec(d)
	fetchedTree, err := codec.Encode(fetched)
	if err != nil {
		return nil, fmt.Errorf("encode fetched: %w", err)
	}
	objTree, err := codec.Encode(obj)
	if err != nil {
		return nil, fmt.Errorf("encode resource: %w", err)
	}
	return codec.Decode(mergeTrees(fetchedTree, objTree))
}

func mergeTrees(base, overlay interface{}) interface{} {
	baseMap, baseOK := base.(map[string]interface{})
	overlayMap, overlayOK := overlay.(map[string]interface{})
	if !baseOK || !overlayOK {
		return overlay
	}
	out := make(map[string]interface{}, len(baseMap)+len(overlayMap))
	for k, v := range baseMap {
		out[k] = v
	}
	for k, v := range overlayMap {
		if existing, ok := out[k]; ok {
			out[k] = mergeTrees(existing, v)
			continue
		}
		out[k] = v
	}
	return out
}

// WatchOptions configures a Watch call.
type WatchOptions struct {
	Namespace     string
	Cursor        *watch.Cursor
	Query         restclient.QueryParams
	ReaderOptions watch.Options
}

// Watch delegates to the streaming reader, reusing the facade's vault and
// context factory so watch connections share re-authentication with every
// other call.
func (f *Facade) Watch(ctx context.Context, d *resource.Descriptor, opts WatchOptions) (<-chan watch.Event, <-chan error) {
	cursor := opts.Cursor
	if cursor == nil {
		cursor = &watch.Cursor{}
	}
	if opts.Namespace != "" {
		cursor.Namespace = opts.Namespace
	}

	readerOpts := opts.ReaderOptions
	if readerOpts.Log.GetSink() == nil {
		readerOpts.Log = f.RC.Log
	}
	if readerOpts.SessionKey == "" {
		readerOpts.SessionKey = f.RC.SessionKey
	}

	reader := &watch.Reader{V: f.RC.V, Factory: f.RC.Factory}
	return reader.Watch(ctx, d, f.codec(d), cursor, opts.Query, readerOpts)
}
