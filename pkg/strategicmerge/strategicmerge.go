/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

// Package strategicmerge computes Kubernetes strategic-merge-patch
// payloads using per-field merge-key metadata from a resource descriptor,
// with optional scoping to a caller-chosen set of field paths.
package strategicmerge

import (
	"reflect"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/ardikabs/kubeclientcore/pkg/resource"
)

const deleteDirective = "$patch"
const deleteValue = "delete"

// Plan computes the strategic-merge-patch body transforming old into new,
// using d's merge-key and replace-field metadata. paths, when non-empty,
// restricts the patch to edits whose dotted field path is a prefix of, or
// descendant of, at least one entry in paths.
func Plan(old, new map[string]interface{}, d *resource.Descriptor, paths []string) map[string]interface{} {
	result := diffObject("", old, new, d)
	if len(paths) == 0 {
		return result
	}
	return scope(result, paths)
}

func diffObject(prefix string, old, new map[string]interface{}, d *resource.Descriptor) map[string]interface{} {
	out := make(map[string]interface{})
	keys := lo.Uniq(append(lo.Keys(old), lo.Keys(new)...))
	sort.Strings(keys)

	for _, k := range keys {
		fieldPath := joinDot(prefix, k)
		oldVal, oldOK := old[k]
		newVal, newOK := new[k]

		switch {
		case oldOK && !newOK:
			out[k] = nil
		case !oldOK && newOK:
			out[k] = newVal
		case equalJSON(oldVal, newVal):
			// unchanged, omit
		default:
			merged, changed := diffField(fieldPath, oldVal, newVal, d)
			if changed {
				out[k] = merged
			}
		}
	}
	return out
}

func diffField(fieldPath string, oldVal, newVal interface{}, d *resource.Descriptor) (interface{}, bool) {
	oldMap, oldIsMap := oldVal.(map[string]interface{})
	newMap, newIsMap := newVal.(map[string]interface{})
	if oldIsMap && newIsMap {
		sub := diffObject(fieldPath, oldMap, newMap, d)
		return sub, len(sub) > 0
	}

	oldArr, oldIsArr := oldVal.([]interface{})
	newArr, newIsArr := newVal.([]interface{})
	if oldIsArr && newIsArr {
		return diffArray(fieldPath, oldArr, newArr, d)
	}

	return newVal, true
}

// diffArray merges by the descriptor's merge key when declared for
// fieldPath, replaces wholesale when the descriptor marks the field for
// replacement, and otherwise falls back to wholesale replacement (the
// only safe default for an array of scalars or an array whose merge key
// isn't declared).
func diffArray(fieldPath string, old, new []interface{}, d *resource.Descriptor) (interface{}, bool) {
	if d != nil && d.ReplaceFields[fieldPath] {
		return new, true
	}

	mergeKey := ""
	if d != nil {
		mergeKey = d.MergeKeys[fieldPath]
	}
	if mergeKey == "" {
		return new, true
	}

	oldByKey := indexByKey(old, mergeKey)
	newByKey := indexByKey(new, mergeKey)

	var upserts []interface{}
	for _, nv := range new {
		nm, ok := nv.(map[string]interface{})
		if !ok {
			continue
		}
		kv, ok := nm[mergeKey]
		if !ok {
			upserts = append(upserts, nv)
			continue
		}
		if ov, ok := oldByKey[kv]; ok {
			if om, isMap := ov.(map[string]interface{}); isMap {
				patch := diffObject(fieldPath, om, nm, d)
				patch[mergeKey] = kv
				if len(patch) > 1 || !equalJSON(om, nm) {
					upserts = append(upserts, patch)
				}
				continue
			}
		}
		upserts = append(upserts, nv)
	}

	for k := range oldByKey {
		if _, stillPresent := newByKey[k]; !stillPresent {
			upserts = append(upserts, map[string]interface{}{mergeKey: k, deleteDirective: deleteValue})
		}
	}

	return upserts, len(upserts) > 0
}

func indexByKey(items []interface{}, mergeKey string) map[interface{}]interface{} {
	idx := make(map[interface{}]interface{}, len(items))
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		if kv, ok := m[mergeKey]; ok {
			idx[kv] = it
		}
	}
	return idx
}

func joinDot(prefix, field string) string {
	if prefix == "" {
		return field
	}
	return prefix + "." + field
}

func equalJSON(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}

// scope restricts patch to edits whose field path is a prefix of, or
// descendant of, at least one entry in paths. Paths use dotted-field
// notation matching joinDot's output (callers resolve typed field
// references to this form before calling Plan).
func scope(patch map[string]interface{}, paths []string) map[string]interface{} {
	return scopeObject("", patch, paths)
}

func scopeObject(prefix string, obj map[string]interface{}, paths []string) map[string]interface{} {
	out := make(map[string]interface{})
	for k, v := range obj {
		fieldPath := joinDot(prefix, k)
		if !pathRelevant(fieldPath, paths) {
			continue
		}
		if sub, ok := v.(map[string]interface{}); ok && !exactMatch(fieldPath, paths) {
			scoped := scopeObject(fieldPath, sub, paths)
			if len(scoped) > 0 {
				out[k] = scoped
			}
			continue
		}
		out[k] = v
	}
	return out
}

func pathRelevant(fieldPath string, paths []string) bool {
	for _, p := range paths {
		if fieldPath == p || strings.HasPrefix(p, fieldPath+".") || strings.HasPrefix(fieldPath, p+".") {
			return true
		}
	}
	return false
}

func exactMatch(fieldPath string, paths []string) bool {
	for _, p := range paths {
		if fieldPath == p {
			return true
		}
	}
	return false
}
