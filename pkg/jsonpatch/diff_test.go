/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package jsonpatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertPatchTransforms(t *testing.T, old, new interface{}) {
	t.Helper()
	ops := Diff(old, new)
	result, err := Apply(old, ops)
	require.NoError(t, err, "patch failed to apply: %+v", ops)
	assert.Equal(t, new, result, "patch did not transform old into new: %+v", ops)
}

func TestDiffScalarsReplace(t *testing.T) {
	assertPatchTransforms(t, 1.0, 2.0)
	assertPatchTransforms(t, "a", "b")
	assertPatchTransforms(t, true, false)
	assertPatchTransforms(t, nil, 0.0)
}

func TestDiffDictAddRemoveReplace(t *testing.T) {
	old := map[string]interface{}{"a": 1.0, "b": 2.0}
	new := map[string]interface{}{"b": 3.0, "c": 4.0}
	assertPatchTransforms(t, old, new)
}

func TestDiffNestedDicts(t *testing.T) {
	old := map[string]interface{}{
		"a": map[string]interface{}{"x": 1.0, "y": 2.0},
		"b": map[string]interface{}{"z": 3.0},
	}
	new := map[string]interface{}{
		"a": map[string]interface{}{"x": 1.0, "y": 99.0},
		"b": map[string]interface{}{"z": 3.0, "t": 4.0},
	}
	assertPatchTransforms(t, old, new)
}

func TestDiffListSimple(t *testing.T) {
	old := []interface{}{1.0, 2.0, 3.0, 4.0}
	new := []interface{}{1.0, 99.0, 3.0, 4.0, 5.0}
	assertPatchTransforms(t, old, new)
}

func TestDiffListReplacements(t *testing.T) {
	old := []interface{}{
		map[string]interface{}{"k": 1.0},
		map[string]interface{}{"k": 2.0},
		map[string]interface{}{"k": 3.0},
	}
	new := []interface{}{
		map[string]interface{}{"k": 1.0},
		map[string]interface{}{"k": 20.0},
		map[string]interface{}{"k": 30.0},
	}
	assertPatchTransforms(t, old, new)
}

func TestDiffListInsertDelete(t *testing.T) {
	old := []interface{}{"a", "b", "c", "d"}
	new := []interface{}{"a", "c", "e"}
	assertPatchTransforms(t, old, new)
}

func TestDiffTypeChangeAtRoot(t *testing.T) {
	old := map[string]interface{}{"a": 1.0}
	new := []interface{}{map[string]interface{}{"a": 1.0}}
	assertPatchTransforms(t, old, new)
}

func TestDiffMixedComplex(t *testing.T) {
	old := map[string]interface{}{
		"name": "doc",
		"tags": []interface{}{"x", "y", "z"},
		"meta": map[string]interface{}{
			"a":      1.0,
			"nested": map[string]interface{}{"v": []interface{}{1.0, 2.0, 3.0}},
		},
	}
	new := map[string]interface{}{
		"name": "doc2",
		"tags": []interface{}{"x", "z", "w"},
		"meta": map[string]interface{}{
			"a":      2.0,
			"nested": map[string]interface{}{"v": []interface{}{1.0, 3.0, 4.0}, "extra": true},
		},
	}
	assertPatchTransforms(t, old, new)
}

func TestDiffPointerEscaping(t *testing.T) {
	old := map[string]interface{}{"a/b": map[string]interface{}{"t~n": 1.0}}
	new := map[string]interface{}{"a/b": map[string]interface{}{"t~n": 2.0}, "plain": 0.0}
	assertPatchTransforms(t, old, new)

	assert.Equal(t, "a~1b", EscapeToken("a/b"))
	assert.Equal(t, "t~0n", EscapeToken("t~n"))
}

func TestDiffIdempotence(t *testing.T) {
	doc := map[string]interface{}{"a": []interface{}{1.0, 2.0, 3.0}, "b": map[string]interface{}{"c": 1.0}}
	ops := Diff(doc, doc)
	assert.Empty(t, ops)
	after, err := Apply(doc, ops)
	require.NoError(t, err)
	assert.Equal(t, doc, after)
}

func TestDiffEdgeArrayToScalar(t *testing.T) {
	old := map[string]interface{}{"a": []interface{}{1.0, 2.0, 3.0}}
	new := map[string]interface{}{"a": "str"}
	assertPatchTransforms(t, old, new)
}

func TestDiffEdgeScalarToObject(t *testing.T) {
	old := "x"
	new := map[string]interface{}{"x": 1.0}
	assertPatchTransforms(t, old, new)
}
