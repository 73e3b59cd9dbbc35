/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package strategicmerge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ardikabs/kubeclientcore/pkg/resource"
)

func TestPlanScopedConfigMapData(t *testing.T) {
	old := map[string]interface{}{
		"data": map[string]interface{}{
			"database": "host=staging.db",
			"cache":    "redis://staging",
		},
	}
	new := map[string]interface{}{
		"data": map[string]interface{}{
			"database": "host=production.db",
			"cache":    "redis://staging",
		},
	}
	patch := Plan(old, new, &resource.Descriptor{}, []string{"data.database"})
	assert.Equal(t, map[string]interface{}{
		"data": map[string]interface{}{"database": "host=production.db"},
	}, patch)
}

func TestPlanMergeByKey(t *testing.T) {
	d := &resource.Descriptor{
		MergeKeys: resource.MergeKeys{"spec.containers": "name"},
	}
	old := map[string]interface{}{
		"spec": map[string]interface{}{
			"containers": []interface{}{
				map[string]interface{}{"name": "app", "image": "app:1.0"},
				map[string]interface{}{"name": "sidecar", "image": "sidecar:1.0"},
			},
		},
	}
	new := map[string]interface{}{
		"spec": map[string]interface{}{
			"containers": []interface{}{
				map[string]interface{}{"name": "app", "image": "app:2.0"},
				map[string]interface{}{"name": "sidecar", "image": "sidecar:1.0"},
			},
		},
	}
	patch := Plan(old, new, d, nil)
	spec := patch["spec"].(map[string]interface{})
	containers := spec["containers"].([]interface{})
	assert.Len(t, containers, 1)
	assert.Equal(t, map[string]interface{}{"name": "app", "image": "app:2.0"}, containers[0])
}

func TestPlanDeletedKeyBecomesNull(t *testing.T) {
	old := map[string]interface{}{"data": map[string]interface{}{"a": "1", "b": "2"}}
	new := map[string]interface{}{"data": map[string]interface{}{"a": "1"}}
	patch := Plan(old, new, &resource.Descriptor{}, nil)
	data := patch["data"].(map[string]interface{})
	assert.Nil(t, data["b"])
	_, stillHasA := data["a"]
	assert.False(t, stillHasA)
}

func TestPlanNoop(t *testing.T) {
	doc := map[string]interface{}{"data": map[string]interface{}{"a": "1"}}
	patch := Plan(doc, doc, &resource.Descriptor{}, nil)
	assert.Empty(t, patch)
}
