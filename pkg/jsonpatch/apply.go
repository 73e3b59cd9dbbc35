/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package jsonpatch

import "strconv"

// Op names recognized by Apply.
const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
	OpMove    = "move"
	OpCopy    = "copy"
	OpTest    = "test"
)

// Operation is a single RFC 6902 patch operation.
type Operation struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	From  string      `json:"from,omitempty"`
	Value interface{} `json:"value,omitempty"`
}

// Apply applies a sequence of patch operations to doc, returning the
// resulting tree. doc is never mutated; Apply operates on copy-on-write
// snapshots of every container it descends through.
func Apply(doc interface{}, ops []Operation) (interface{}, error) {
	result := deepCopyJSON(doc)
	for _, op := range ops {
		var err error
		switch op.Op {
		case OpAdd:
			result, err = applyAdd(result, op.Path, op.Value)
		case OpRemove:
			result, err = applyRemove(result, op.Path)
		case OpReplace:
			result, err = applyReplace(result, op.Path, op.Value)
		case OpMove:
			result, err = applyMove(result, op.From, op.Path)
		case OpCopy:
			result, err = applyCopy(result, op.From, op.Path)
		case OpTest:
			err = applyTest(result, op.Path, op.Value)
		default:
			return nil, &UnsupportedOpError{Op: op.Op}
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func applyAdd(doc interface{}, path string, value interface{}) (interface{}, error) {
	tokens, isRoot, err := ParsePointer(path)
	if err != nil {
		return nil, err
	}
	if isRoot {
		return deepCopyJSON(value), nil
	}
	return setPath(doc, tokens, "add", func(parent interface{}, last string) (interface{}, error) {
		return insertAt(parent, last, value, "add")
	})
}

func applyRemove(doc interface{}, path string) (interface{}, error) {
	tokens, isRoot, err := ParsePointer(path)
	if err != nil {
		return nil, err
	}
	if isRoot {
		return nil, pointerErrorf("cannot remove root document")
	}
	return setPath(doc, tokens, "remove", func(parent interface{}, last string) (interface{}, error) {
		return removeAt(parent, last, "remove")
	})
}

func applyReplace(doc interface{}, path string, value interface{}) (interface{}, error) {
	tokens, isRoot, err := ParsePointer(path)
	if err != nil {
		return nil, err
	}
	if isRoot {
		return deepCopyJSON(value), nil
	}
	return setPath(doc, tokens, "replace", func(parent interface{}, last string) (interface{}, error) {
		return replaceAt(parent, last, value, "replace")
	})
}

func applyMove(doc interface{}, from, path string) (interface{}, error) {
	fromTokens, fromIsRoot, err := ParsePointer(from)
	if err != nil {
		return nil, err
	}
	if fromIsRoot {
		return nil, pointerErrorf("cannot move from root document")
	}
	value, err := getValue(doc, fromTokens, "move", "source")
	if err != nil {
		return nil, err
	}

	afterRemove, err := setPath(doc, fromTokens, "move", func(parent interface{}, last string) (interface{}, error) {
		return removeAt(parent, last, "move")
	})
	if err != nil {
		return nil, err
	}

	pathTokens, pathIsRoot, err := ParsePointer(path)
	if err != nil {
		return nil, err
	}
	if pathIsRoot {
		return deepCopyJSON(value), nil
	}

	pathTokens = adjustMoveDestination(fromTokens, pathTokens)
	return setPath(afterRemove, pathTokens, "move", func(parent interface{}, last string) (interface{}, error) {
		return insertAt(parent, last, value, "move")
	})
}

// adjustMoveDestination implements the same-array index adjustment: moving
// an element out of an array shifts every later index in that same array
// left by one, so a destination index past the source must be decremented.
func adjustMoveDestination(fromTokens, pathTokens []string) []string {
	if len(fromTokens) != len(pathTokens) || len(fromTokens) == 0 {
		return pathTokens
	}
	n := len(fromTokens)
	for i := 0; i < n-1; i++ {
		if fromTokens[i] != pathTokens[i] {
			return pathTokens
		}
	}
	fromIdx, errFrom := strconv.Atoi(fromTokens[n-1])
	pathIdx, errPath := strconv.Atoi(pathTokens[n-1])
	if errFrom != nil || errPath != nil {
		return pathTokens
	}
	if pathIdx <= fromIdx {
		return pathTokens
	}
	adjusted := make([]string, n)
	copy(adjusted, pathTokens)
	adjusted[n-1] = strconv.Itoa(pathIdx - 1)
	return adjusted
}

func applyCopy(doc interface{}, from, path string) (interface{}, error) {
	fromTokens, fromIsRoot, err := ParsePointer(from)
	if err != nil {
		return nil, err
	}
	var value interface{}
	if fromIsRoot {
		value = doc
	} else {
		value, err = getValue(doc, fromTokens, "copy", "source")
		if err != nil {
			return nil, err
		}
	}

	pathTokens, pathIsRoot, err := ParsePointer(path)
	if err != nil {
		return nil, err
	}
	if pathIsRoot {
		return deepCopyJSON(value), nil
	}
	return setPath(doc, pathTokens, "copy", func(parent interface{}, last string) (interface{}, error) {
		return insertAt(parent, last, value, "copy")
	})
}

func applyTest(doc interface{}, path string, value interface{}) error {
	tokens, isRoot, err := ParsePointer(path)
	if err != nil {
		return err
	}
	var actual interface{}
	if isRoot {
		actual = doc
	} else {
		actual, err = getValue(doc, tokens, "test", "target")
		if err != nil {
			return err
		}
	}
	if !deepEqual(actual, value) {
		return &TestFailedError{Path: path, Expected: value, Actual: actual}
	}
	return nil
}

// setPath performs a copy-on-write update: it navigates tokens[:-1] from
// node, invokes op on the direct parent container and the final token, and
// rebuilds every container along the path with the new child spliced in.
func setPath(node interface{}, tokens []string, label string, op func(parent interface{}, last string) (interface{}, error)) (interface{}, error) {
	if len(tokens) == 1 {
		return op(node, tokens[0])
	}
	head, rest := tokens[0], tokens[1:]
	child, err := descendForWrite(node, head, label)
	if err != nil {
		return nil, err
	}
	newChild, err := setPath(child, rest, label, op)
	if err != nil {
		return nil, err
	}
	return withChild(node, head, newChild, label)
}

func descendForWrite(node interface{}, token string, label string) (interface{}, error) {
	switch p := node.(type) {
	case map[string]interface{}:
		v, ok := p[token]
		if !ok {
			return nil, pointerErrorf("Invalid %s target: path segment %q not found", label, token)
		}
		return v, nil
	case []interface{}:
		if token == "-" {
			return nil, pointerErrorf("Invalid %s target: '-' cannot be traversed", label)
		}
		idx, err := strconv.Atoi(token)
		if err != nil {
			return nil, pointerErrorf("Invalid array index: %q", token)
		}
		if idx < 0 || idx >= len(p) {
			return nil, pointerErrorf("Invalid %s target: index %d out of range", label, idx)
		}
		return p[idx], nil
	default:
		return nil, pointerErrorf("Invalid %s target: parent is not a container", label)
	}
}

func withChild(node interface{}, token string, newChild interface{}, label string) (interface{}, error) {
	switch p := node.(type) {
	case map[string]interface{}:
		m := copyMap(p)
		m[token] = newChild
		return m, nil
	case []interface{}:
		idx, err := strconv.Atoi(token)
		if err != nil || idx < 0 || idx >= len(p) {
			return nil, pointerErrorf("Invalid %s target: index %q out of range", label, token)
		}
		ns := copySlice(p)
		ns[idx] = newChild
		return ns, nil
	default:
		return nil, pointerErrorf("Invalid %s target: parent is not a container", label)
	}
}

// getValue reads, without mutating, the value at tokens relative to node.
// label and kind ("source" or "target") control the error message when the
// path cannot be resolved.
func getValue(node interface{}, tokens []string, label, kind string) (interface{}, error) {
	cur := node
	for _, t := range tokens {
		next, err := descendForRead(cur, t)
		if err != nil {
			return nil, pointerErrorf("Invalid %s %s: %s", label, kind, err.Error())
		}
		cur = next
	}
	return cur, nil
}

func descendForRead(node interface{}, token string) (interface{}, error) {
	switch p := node.(type) {
	case map[string]interface{}:
		v, ok := p[token]
		if !ok {
			return nil, pointerErrorf("path segment %q not found", token)
		}
		return v, nil
	case []interface{}:
		if token == "-" {
			return nil, pointerErrorf("'-' is not a valid read index")
		}
		idx, err := strconv.Atoi(token)
		if err != nil {
			return nil, pointerErrorf("Invalid array index: %q", token)
		}
		if idx < 0 || idx >= len(p) {
			return nil, pointerErrorf("index %d out of range", idx)
		}
		return p[idx], nil
	default:
		return nil, pointerErrorf("parent is not a container")
	}
}

// insertAt implements "add"-shaped insertion: it is used directly by "add"
// and, with a different error label, by the insertion half of "move" and
// "copy".
func insertAt(parent interface{}, last string, value interface{}, label string) (interface{}, error) {
	switch p := parent.(type) {
	case map[string]interface{}:
		m := copyMap(p)
		m[last] = deepCopyJSON(value)
		return m, nil
	case []interface{}:
		if last == "-" {
			ns := copySlice(p)
			return append(ns, deepCopyJSON(value)), nil
		}
		idx, err := strconv.Atoi(last)
		if err != nil {
			return nil, pointerErrorf("Invalid array index: %q", last)
		}
		if idx < 0 || idx > len(p) {
			return nil, pointerErrorf("Invalid %s target: index %d out of range", label, idx)
		}
		ns := make([]interface{}, 0, len(p)+1)
		ns = append(ns, p[:idx]...)
		ns = append(ns, deepCopyJSON(value))
		ns = append(ns, p[idx:]...)
		return ns, nil
	default:
		return nil, pointerErrorf("Invalid %s target: parent is not a container", label)
	}
}

func removeAt(parent interface{}, last string, label string) (interface{}, error) {
	switch p := parent.(type) {
	case map[string]interface{}:
		if _, ok := p[last]; !ok {
			return p, nil
		}
		m := copyMap(p)
		delete(m, last)
		return m, nil
	case []interface{}:
		if last == "-" {
			return nil, pointerErrorf("Invalid %s target: '-' not allowed", label)
		}
		idx, err := strconv.Atoi(last)
		if err != nil {
			return nil, pointerErrorf("Invalid array index: %q", last)
		}
		if idx < 0 || idx >= len(p) {
			return nil, pointerErrorf("Invalid %s target: index %d out of range", label, idx)
		}
		ns := make([]interface{}, 0, len(p)-1)
		ns = append(ns, p[:idx]...)
		ns = append(ns, p[idx+1:]...)
		return ns, nil
	default:
		return nil, pointerErrorf("Invalid %s target: parent is not a container", label)
	}
}

func replaceAt(parent interface{}, last string, value interface{}, label string) (interface{}, error) {
	switch p := parent.(type) {
	case map[string]interface{}:
		m := copyMap(p)
		m[last] = deepCopyJSON(value)
		return m, nil
	case []interface{}:
		if last == "-" {
			return nil, pointerErrorf("Invalid %s target: '-' not allowed", label)
		}
		idx, err := strconv.Atoi(last)
		if err != nil {
			return nil, pointerErrorf("Invalid array index: %q", last)
		}
		if idx < 0 || idx >= len(p) {
			return nil, pointerErrorf("Invalid %s target: index %d out of range", label, idx)
		}
		ns := copySlice(p)
		ns[idx] = deepCopyJSON(value)
		return ns, nil
	default:
		return nil, pointerErrorf("Invalid %s target: parent is not a container", label)
	}
}
