/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package watch

import (
	"encoding/json"

	"github.com/ardikabs/kubeclientcore/pkg/apierror"
)

// Event is one decoded line of a watch stream.
type Event struct {
	Type            EventType
	Object          interface{} // decoded via the resource codec; nil for BOOKMARK and ERROR
	ResourceVersion string
	Err             *apierror.Envelope // set only when Type == ErrorEvent
}

// rawEvent is the wire shape of a single watch line: {"type": "...",
// "object": {...}}.
type rawEvent struct {
	Type   EventType       `json:"type"`
	Object json.RawMessage `json:"object"`
}

// objectMeta extracts just enough of a resource's metadata to advance the
// cursor without a full codec decode; used for BOOKMARK events and to pull
// resourceVersion out of every event uniformly.
type objectMeta struct {
	Metadata struct {
		ResourceVersion string `json:"resourceVersion"`
	} `json:"metadata"`
}
