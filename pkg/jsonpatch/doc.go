/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

// Package jsonpatch implements RFC 6901 JSON Pointer encoding and an
// RFC 6902 JSON Patch engine: it both computes a minimal patch between two
// JSON trees and applies a patch to produce a new tree.
//
// A "JSON tree" here is whatever encoding/json.Unmarshal produces into an
// interface{}: map[string]interface{}, []interface{}, string, float64,
// bool, or nil. Diff and Apply never mutate their inputs.
package jsonpatch
