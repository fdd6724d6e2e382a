// Package microjson reads single fields out of raw JSON text without building
// a document tree.
//
// The readers locate the first textual occurrence of a quoted key and inspect
// the bytes right after it. They do not validate the document, decode escape
// sequences, or understand arrays. Returned strings are sub-slices of the
// input, so reads do not allocate.
package microjson

import (
	"strconv"
	"strings"
)

// String returns the raw text between the quotes of the string value stored
// under key. Escape sequences are returned undecoded. Only the first
// occurrence of key is considered.
func String(json, key string) (string, bool) {
	rest, ok := valueAfter(json, key)
	if !ok || len(rest) == 0 || rest[0] != '"' {
		return "", false
	}
	end := closingQuote(rest, 1)
	if end < 0 {
		return "", false
	}
	return rest[1:end], true
}

// Int parses the base-10 integer stored under key. Quoted values and values
// without a leading digit (after an optional sign) are rejected.
func Int(json, key string) (int64, bool) {
	rest, ok := valueAfter(json, key)
	if !ok || len(rest) == 0 {
		return 0, false
	}
	n := 0
	if rest[0] == '-' || rest[0] == '+' {
		n = 1
	}
	start := n
	for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
		n++
	}
	if n == start {
		return 0, false
	}
	v, err := strconv.ParseInt(rest[:n], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Object returns the object value stored under key, from its opening brace
// through the matching closing brace. Braces inside string values do not
// affect the depth count.
func Object(json, key string) (string, bool) {
	rest, ok := valueAfter(json, key)
	if !ok || len(rest) == 0 || rest[0] != '{' {
		return "", false
	}
	depth := 0
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '"':
			end := closingQuote(rest, i+1)
			if end < 0 {
				return "", false
			}
			i = end
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return rest[:i+1], true
			}
		}
	}
	return "", false
}

// StringPath resolves a dotted path such as "a.b.c": every segment but the
// last narrows the search to that object, the last is read with String.
func StringPath(json, path string) (string, bool) {
	if path == "" {
		return "", false
	}
	scope := json
	for {
		seg, tail, more := strings.Cut(path, ".")
		if !more {
			return String(scope, seg)
		}
		obj, ok := Object(scope, seg)
		if !ok {
			return "", false
		}
		scope, path = obj, tail
	}
}

// valueAfter finds the first `"key"` and returns the text starting at its
// value: the key must be followed by ':' and optional whitespace.
func valueAfter(json, key string) (string, bool) {
	if key == "" {
		return "", false
	}
	needle := `"` + key + `"`
	idx := strings.Index(json, needle)
	if idx < 0 {
		return "", false
	}
	rest := json[idx+len(needle):]
	if len(rest) == 0 || rest[0] != ':' {
		return "", false
	}
	return strings.TrimLeft(rest[1:], " \t\r\n"), true
}

// closingQuote returns the index of the unescaped '"' at or after from.
func closingQuote(s string, from int) int {
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}
