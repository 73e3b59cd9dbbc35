/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package jsonpatch

import (
	"sort"
	"strconv"

	"github.com/samber/lo"
)

// Diff computes a minimal sequence of RFC 6902 operations that transforms
// old into new. Object members are compared key by key in sorted order for
// deterministic output; arrays of equal length prefer an in-place replace of
// mismatched elements, lowering churn over a full longest-common-subsequence
// diff, which is reserved for arrays whose lengths differ.
func Diff(old, new interface{}) []Operation {
	return diffAt("", old, new)
}

func diffAt(path string, old, new interface{}) []Operation {
	if deepEqual(old, new) {
		return nil
	}
	if isObject(old) && isObject(new) {
		return diffObject(path, old.(map[string]interface{}), new.(map[string]interface{}))
	}
	oldArr, oldIsArr := old.([]interface{})
	newArr, newIsArr := new.([]interface{})
	if oldIsArr && newIsArr {
		return diffArray(path, oldArr, newArr)
	}
	return []Operation{{Op: OpReplace, Path: rootOrPath(path), Value: deepCopyJSON(new)}}
}

func diffObject(path string, old, new map[string]interface{}) []Operation {
	keys := lo.Uniq(append(lo.Keys(old), lo.Keys(new)...))
	sort.Strings(keys)

	var ops []Operation
	for _, k := range keys {
		oldVal, oldOk := old[k]
		newVal, newOk := new[k]
		childPath := joinPath(path, k)
		switch {
		case oldOk && !newOk:
			ops = append(ops, Operation{Op: OpRemove, Path: childPath})
		case !oldOk && newOk:
			ops = append(ops, Operation{Op: OpAdd, Path: childPath, Value: deepCopyJSON(newVal)})
		default:
			ops = append(ops, diffAt(childPath, oldVal, newVal)...)
		}
	}
	return ops
}

func diffArray(path string, old, new []interface{}) []Operation {
	if len(old) == len(new) {
		var ops []Operation
		for i := range old {
			childPath := joinPath(path, strconv.Itoa(i))
			if isObject(old[i]) && isObject(new[i]) {
				ops = append(ops, diffAt(childPath, old[i], new[i])...)
				continue
			}
			if !deepEqual(old[i], new[i]) {
				ops = append(ops, Operation{Op: OpReplace, Path: childPath, Value: deepCopyJSON(new[i])})
			}
		}
		return ops
	}
	return diffArrayLCS(path, old, new)
}

// diffArrayLCS handles arrays whose lengths differ by computing the longest
// common subsequence of elements (by deep equality) and emitting removals
// for old elements absent from the LCS, then insertions for new elements
// absent from it. Removals are issued in descending original-index order so
// earlier removals never invalidate later indices; insertions track the
// array's evolving length via a running position counter.
func diffArrayLCS(path string, old, new []interface{}) []Operation {
	pairs := lcsPairs(old, new)

	keepOld := make(map[int]bool, len(pairs))
	for _, p := range pairs {
		keepOld[p[0]] = true
	}

	var ops []Operation
	for i := len(old) - 1; i >= 0; i-- {
		if !keepOld[i] {
			ops = append(ops, Operation{Op: OpRemove, Path: joinPath(path, strconv.Itoa(i))})
		}
	}

	position := 0
	pairIdx := 0
	for j := 0; j < len(new); j++ {
		if pairIdx < len(pairs) && pairs[pairIdx][1] == j {
			pairIdx++
			position++
			continue
		}
		ops = append(ops, Operation{Op: OpAdd, Path: joinPath(path, strconv.Itoa(position)), Value: deepCopyJSON(new[j])})
		position++
	}
	return ops
}

// lcsPairs returns, as (oldIndex, newIndex) pairs in increasing order on
// both indices, the longest common subsequence of old and new under deep
// equality.
func lcsPairs(old, new []interface{}) [][2]int {
	n, m := len(old), len(new)
	table := make([][]int, n+1)
	for i := range table {
		table[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if deepEqual(old[i], new[j]) {
				table[i][j] = table[i+1][j+1] + 1
			} else if table[i+1][j] >= table[i][j+1] {
				table[i][j] = table[i+1][j]
			} else {
				table[i][j] = table[i][j+1]
			}
		}
	}

	var pairs [][2]int
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case deepEqual(old[i], new[j]):
			pairs = append(pairs, [2]int{i, j})
			i++
			j++
		case table[i+1][j] >= table[i][j+1]:
			i++
		default:
			j++
		}
	}
	return pairs
}

