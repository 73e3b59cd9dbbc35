/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package connctx

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// tempFiles materializes raw credential bytes to uniquely suffixed
// temporary files on first request, and removes every file it created
// when purged. One tempFiles belongs to exactly one Context.
type tempFiles struct {
	mu     sync.Mutex
	suffix string
	paths  map[string]string // hex-encoded content -> path, content never re-written twice
	dir    string
}

func newTempFiles() *tempFiles {
	return &tempFiles{
		suffix: "_" + uuid.NewString(),
		paths:  make(map[string]string),
		dir:    os.TempDir(),
	}
}

// materialize writes content to a new temp file (or reuses the one
// already created for identical content within this context) and returns
// its path.
func (t *tempFiles) materialize(content []byte) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := fmt.Sprintf("%x", content)
	if path, ok := t.paths[key]; ok {
		return path, nil
	}

	f, err := os.CreateTemp(t.dir, "kubeclientcore"+t.suffix+"-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(content); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}

	path := f.Name()
	t.paths[key] = path
	return path, nil
}

// purge removes every file this tempFiles created. Safe to call more than
// once; already-missing files are ignored.
func (t *tempFiles) purge() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, path := range t.paths {
		_ = os.Remove(filepath.Clean(path))
	}
	t.paths = make(map[string]string)
}
