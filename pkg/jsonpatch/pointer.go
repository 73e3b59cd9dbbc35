/*
Copyright 2026 Ardika Saputro.
Licensed under the Apache License, Version 2.0.
*/

package jsonpatch

import "strings"

// EscapeToken escapes a single reference token per RFC 6901: "~" becomes
// "~0" and "/" becomes "~1", in that order.
func EscapeToken(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	token = strings.ReplaceAll(token, "/", "~1")
	return token
}

// UnescapeToken reverses EscapeToken: "~1" decodes to "/" and "~0" decodes
// to "~". Order matters and is the reverse of escaping.
func UnescapeToken(token string) string {
	token = strings.ReplaceAll(token, "~1", "/")
	token = strings.ReplaceAll(token, "~0", "~")
	return token
}

// EncodePointer joins reference tokens into an RFC 6901 pointer string. An
// empty token list encodes to "/", the root pointer.
func EncodePointer(tokens []string) string {
	if len(tokens) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, t := range tokens {
		b.WriteByte('/')
		b.WriteString(EscapeToken(t))
	}
	return b.String()
}

// ParsePointer decodes an RFC 6901 pointer string into its reference
// tokens. It rejects empty input and input that does not start with a
// leading slash. The root pointer "/" parses to isRoot=true with no
// tokens.
func ParsePointer(pointer string) (tokens []string, isRoot bool, err error) {
	if pointer == "" {
		return nil, false, pointerErrorf("empty JSON pointer")
	}
	if pointer[0] != '/' {
		return nil, false, pointerErrorf("JSON pointer must start with '/': %q", pointer)
	}
	if pointer == "/" {
		return nil, true, nil
	}
	parts := strings.Split(pointer[1:], "/")
	tokens = make([]string, len(parts))
	for i, p := range parts {
		tokens[i] = UnescapeToken(p)
	}
	return tokens, false, nil
}

// joinPath appends an already-unescaped token to a pointer-path-so-far,
// escaping it in the process. An empty base is treated as root.
func joinPath(base, token string) string {
	if base == "/" {
		base = ""
	}
	return base + "/" + EscapeToken(token)
}

func rootOrPath(path string) string {
	if path == "" {
		return "/"
	}
	return path
}
