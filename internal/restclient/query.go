/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package restclient

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// SelectorOperator is one of the recognized label-selector expression
// operators.
type SelectorOperator string

const (
	OpIn           SelectorOperator = "In"
	OpNotIn        SelectorOperator = "NotIn"
	OpExists       SelectorOperator = "Exists"
	OpDoesNotExist SelectorOperator = "DoesNotExist"
)

// LabelSelectorRequirement is a typed label-selector expression, an
// alternative to hand-writing the serialized string form.
type LabelSelectorRequirement struct {
	Key      string
	Operator SelectorOperator
	Values   []string
}

// LabelSelector composes equality matches (MatchLabels) with expression
// requirements (MatchExpressions) into the serialized selector string
// the API server expects.
type LabelSelector struct {
	MatchLabels      map[string]string
	MatchExpressions []LabelSelectorRequirement
}

// String serializes the selector: matchLabels sorted by key, then
// expressions in input order, joined by commas.
func (s LabelSelector) String() string {
	var parts []string

	keys := make([]string, 0, len(s.MatchLabels))
	for k := range s.MatchLabels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, s.MatchLabels[k]))
	}

	for _, expr := range s.MatchExpressions {
		switch expr.Operator {
		case OpIn:
			parts = append(parts, fmt.Sprintf("%s in (%s)", expr.Key, strings.Join(expr.Values, ",")))
		case OpNotIn:
			parts = append(parts, fmt.Sprintf("%s notin (%s)", expr.Key, strings.Join(expr.Values, ",")))
		case OpExists:
			parts = append(parts, expr.Key)
		case OpDoesNotExist:
			parts = append(parts, "!"+expr.Key)
		}
	}

	return strings.Join(parts, ",")
}

// FieldSelectorOperator is one of the recognized field-selector
// comparison operators.
type FieldSelectorOperator string

const (
	FieldEquals    FieldSelectorOperator = "="
	FieldNotEquals FieldSelectorOperator = "!="
)

// FieldSelectorRequirement is a typed field-selector comparison.
type FieldSelectorRequirement struct {
	Field    string
	Operator FieldSelectorOperator
	Value    string
}

// FieldSelector composes field comparisons into the `field op value`
// serialized form, joined by commas.
type FieldSelector struct {
	Requirements []FieldSelectorRequirement
}

func (s FieldSelector) String() string {
	parts := make([]string, 0, len(s.Requirements))
	for _, r := range s.Requirements {
		parts = append(parts, fmt.Sprintf("%s%s%s", r.Field, r.Operator, r.Value))
	}
	return strings.Join(parts, ",")
}

// PropagationPolicy is one of the recognized delete propagation policies.
type PropagationPolicy string

const (
	PropagationForeground PropagationPolicy = "Foreground"
	PropagationBackground PropagationPolicy = "Background"
	PropagationOrphan     PropagationPolicy = "Orphan"
)

// QueryParams is every recognized query option for a call.
type QueryParams struct {
	Pretty              string
	Continue            string
	Limit               int64
	ResourceVersion     string
	TimeoutSeconds      int64
	Watch               bool
	AllowWatchBookmarks bool
	GracePeriodSeconds  *int64
	PropagationPolicy   PropagationPolicy
	DryRunAll           bool
	FieldManager        string
	Force               bool
	FieldSelector       string
	LabelSelector       string
}

// Encode renders the non-zero fields of q as a url.Values.
func (q QueryParams) Encode() url.Values {
	v := url.Values{}
	if q.Pretty != "" {
		v.Set("pretty", q.Pretty)
	}
	if q.Continue != "" {
		v.Set("continue", q.Continue)
	}
	if q.Limit > 0 {
		v.Set("limit", fmt.Sprintf("%d", q.Limit))
	}
	if q.ResourceVersion != "" {
		v.Set("resourceVersion", q.ResourceVersion)
	}
	if q.TimeoutSeconds > 0 {
		v.Set("timeoutSeconds", fmt.Sprintf("%d", q.TimeoutSeconds))
	}
	if q.Watch {
		v.Set("watch", "true")
	}
	if q.AllowWatchBookmarks {
		v.Set("allowWatchBookmarks", "true")
	}
	if q.GracePeriodSeconds != nil {
		v.Set("gracePeriodSeconds", fmt.Sprintf("%d", *q.GracePeriodSeconds))
	}
	if q.PropagationPolicy != "" {
		v.Set("propagationPolicy", string(q.PropagationPolicy))
	}
	if q.DryRunAll {
		v.Set("dryRun", "All")
	}
	if q.FieldManager != "" {
		v.Set("fieldManager", q.FieldManager)
	}
	if q.Force {
		v.Set("force", "true")
	}
	if q.FieldSelector != "" {
		v.Set("fieldSelector", q.FieldSelector)
	}
	if q.LabelSelector != "" {
		v.Set("labelSelector", q.LabelSelector)
	}
	return v
}
