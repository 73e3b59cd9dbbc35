/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package jsonpatch

import "reflect"

func isObject(v interface{}) bool {
	_, ok := v.(map[string]interface{})
	return ok
}

// deepEqual compares two JSON-tree values structurally. reflect.DeepEqual
// is safe here: every leaf type produced by encoding/json (string, float64,
// bool, nil) and every container type (map[string]interface{},
// []interface{}) has well-defined equality.
func deepEqual(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}

// deepCopyJSON returns a structural copy of a JSON tree so that Diff/Apply
// never hand back structures aliased with caller-owned inputs.
func deepCopyJSON(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, vv := range t {
			m[k] = deepCopyJSON(vv)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, vv := range t {
			s[i] = deepCopyJSON(vv)
		}
		return s
	default:
		return v
	}
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	nm := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		nm[k] = v
	}
	return nm
}

func copySlice(s []interface{}) []interface{} {
	ns := make([]interface{}, len(s))
	copy(ns, s)
	return ns
}
