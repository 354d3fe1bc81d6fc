package flatten

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a flattened path: either an object key or an
// array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// KeySegment returns an object-key segment.
func KeySegment(key string) Segment {
	return Segment{Key: key}
}

// IndexSegment returns an array-index segment.
func IndexSegment(i int) Segment {
	return Segment{Index: i, IsIndex: true}
}

func (s Segment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Key
}

// needsQuoting reports whether a key cannot be written in the bare
// dot-separated form without becoming ambiguous.
func needsQuoting(key string) bool {
	if key == "" {
		return true
	}
	if key[0] >= '0' && key[0] <= '9' {
		return true
	}
	return strings.ContainsAny(key, ".[]'\\")
}

func quoteKey(key string) string {
	var b strings.Builder
	b.WriteString("['")
	for _, r := range key {
		if r == '\'' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteString("']")
	return b.String()
}

// AppendKey extends path with an object-key segment using the
// documented convention: bare keys joined with ".", keys containing
// separator characters (or empty, or digit-leading) bracket-quoted as
// ['key'] with backslash escapes for ' and \.
func AppendKey(path, key string) string {
	if needsQuoting(key) {
		return path + quoteKey(key)
	}
	if path == "" {
		return key
	}
	return path + "." + key
}

// AppendIndex extends path with an array-index segment, written [i].
func AppendIndex(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

// JoinPath renders a segment chain using the path convention.
func JoinPath(segs []Segment) string {
	var path string
	for _, s := range segs {
		if s.IsIndex {
			path = AppendIndex(path, s.Index)
		} else {
			path = AppendKey(path, s.Key)
		}
	}
	return path
}

// ParsePath splits a flattened path back into segments. It is the
// exact inverse of JoinPath for any path JoinPath can produce.
func ParsePath(path string) ([]Segment, error) {
	var segs []Segment
	i := 0
	for i < len(path) {
		switch path[i] {
		case '.':
			i++
			if i >= len(path) {
				return nil, fmt.Errorf("path %q: trailing separator", path)
			}
			if path[i] == '.' || path[i] == '[' {
				return nil, fmt.Errorf("path %q: empty segment at offset %d", path, i)
			}
		case '[':
			if i+1 < len(path) && path[i+1] == '\'' {
				key, next, err := parseQuotedKey(path, i+2)
				if err != nil {
					return nil, err
				}
				segs = append(segs, KeySegment(key))
				i = next
				continue
			}
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("path %q: unterminated index at offset %d", path, i)
			}
			n, err := strconv.Atoi(path[i+1 : i+end])
			if err != nil {
				return nil, fmt.Errorf("path %q: bad index at offset %d: %w", path, i, err)
			}
			segs = append(segs, IndexSegment(n))
			i += end + 1
		default:
			end := strings.IndexAny(path[i:], ".[")
			switch {
			case end < 0:
				segs = append(segs, KeySegment(path[i:]))
				i = len(path)
			case end == 0:
				return nil, fmt.Errorf("path %q: empty segment at offset %d", path, i)
			default:
				segs = append(segs, KeySegment(path[i:i+end]))
				i += end
			}
		}
	}
	return segs, nil
}

// parseQuotedKey reads the body of a ['...'] segment starting just
// after the opening quote. Returns the key and the offset past "']".
func parseQuotedKey(path string, start int) (string, int, error) {
	var b strings.Builder
	i := start
	for i < len(path) {
		c := path[i]
		switch c {
		case '\\':
			if i+1 >= len(path) {
				return "", 0, fmt.Errorf("path %q: dangling escape", path)
			}
			b.WriteByte(path[i+1])
			i += 2
		case '\'':
			if i+1 >= len(path) || path[i+1] != ']' {
				return "", 0, fmt.Errorf("path %q: expected ] after closing quote at offset %d", path, i)
			}
			return b.String(), i + 2, nil
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", 0, fmt.Errorf("path %q: unterminated quoted key", path)
}
