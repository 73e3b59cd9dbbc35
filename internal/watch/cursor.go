/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

// Package watch implements the streaming watch reader: chunked
// newline-delimited JSON event decoding, resourceVersion cursor tracking,
// and reconnect-on-drop with relist-on-repeated-410 semantics.
package watch

// EventType is one of the recognized watch event kinds.
type EventType string

const (
	Added      EventType = "ADDED"
	Modified   EventType = "MODIFIED"
	Deleted    EventType = "DELETED"
	Bookmark   EventType = "BOOKMARK"
	ErrorEvent EventType = "ERROR"
)

// Cursor is the caller-owned resumption state for one watch stream.
type Cursor struct {
	APIVersion          string
	Kind                string
	Namespace           string
	LabelSelector       string
	FieldSelector       string
	LastResourceVersion string
	BookmarkSeen        bool
}

// Reset clears the resourceVersion, forcing the next connection to do a
// full relist. Used after repeated 410 Gone responses.
func (c *Cursor) Reset() {
	c.LastResourceVersion = ""
	c.BookmarkSeen = false
}

// Advance records rv as the latest observed resourceVersion, provided it
// is non-empty; the core treats resourceVersion as an opaque token, not a
// numeric one, so "latest" here means "last seen", per stream order.
func (c *Cursor) Advance(rv string) {
	if rv == "" {
		return
	}
	c.LastResourceVersion = rv
}
