/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package restclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelSelectorSerialization(t *testing.T) {
	sel := LabelSelector{
		MatchLabels: map[string]string{"app": "nginx"},
		MatchExpressions: []LabelSelectorRequirement{
			{Key: "env", Operator: OpIn, Values: []string{"prod", "staging"}},
			{Key: "debug", Operator: OpDoesNotExist},
		},
	}
	assert.Equal(t, "app=nginx,env in (prod,staging),!debug", sel.String())
}

func TestLabelSelectorMatchLabelsSortedByKey(t *testing.T) {
	sel := LabelSelector{MatchLabels: map[string]string{"z": "1", "a": "2"}}
	assert.Equal(t, "a=2,z=1", sel.String())
}

func TestFieldSelectorSerialization(t *testing.T) {
	sel := FieldSelector{Requirements: []FieldSelectorRequirement{
		{Field: "metadata.name", Operator: FieldEquals, Value: "web"},
		{Field: "status.phase", Operator: FieldNotEquals, Value: "Running"},
	}}
	assert.Equal(t, "metadata.name=web,status.phase!=Running", sel.String())
}

func TestQueryParamsEncode(t *testing.T) {
	q := QueryParams{Watch: true, AllowWatchBookmarks: true, ResourceVersion: "100"}
	v := q.Encode()
	assert.Equal(t, "true", v.Get("watch"))
	assert.Equal(t, "true", v.Get("allowWatchBookmarks"))
	assert.Equal(t, "100", v.Get("resourceVersion"))
}
