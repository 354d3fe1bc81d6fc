// Package flatten converts nested JSON view documents to and from an
// ordered path/value representation.
//
// Every leaf of the source document becomes one entry whose path
// encodes the traversal from the root: object keys joined with ".",
// array indices written "[i]", and keys containing separator
// characters bracket-quoted as ['key']. Empty objects and arrays are
// carried as empty-container leaf entries so the transform is exactly
// invertible. The path convention is consumed by golden-file tooling
// and must not change without a compatibility note.
package flatten

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/ohler55/ojg/oj"
)

// InputError reports a source document that could not be read or
// parsed. Processing of other documents in a batch is unaffected.
type InputError struct {
	Source string
	Err    error
}

func (e *InputError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("invalid input document: %v", e.Err)
	}
	return fmt.Sprintf("invalid input document %s: %v", e.Source, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// Entry is one flattened leaf: a path and its value. Value is a
// string, int64, float64, bool, nil, or an empty map[string]any /
// []any standing in for an empty container.
type Entry struct {
	Path  string
	Value any
}

// Document is an ordered path-to-value mapping. Paths are unique;
// iteration order is document order (or sorted-key order when built
// from an already-parsed value).
type Document struct {
	entries []Entry
	index   map[string]int
}

func newDocument() *Document {
	return &Document{index: make(map[string]int)}
}

func (d *Document) add(path string, value any) {
	if i, ok := d.index[path]; ok {
		d.entries[i].Value = value
		return
	}
	d.index[path] = len(d.entries)
	d.entries = append(d.entries, Entry{Path: path, Value: value})
}

// Len returns the number of flattened entries.
func (d *Document) Len() int { return len(d.entries) }

// Get returns the value at path.
func (d *Document) Get(path string) (any, bool) {
	i, ok := d.index[path]
	if !ok {
		return nil, false
	}
	return d.entries[i].Value, true
}

// Entries returns the flattened entries in order. The slice is shared;
// callers must not modify it.
func (d *Document) Entries() []Entry { return d.entries }

// Walk visits every entry in order.
func (d *Document) Walk(fn func(path string, value any)) {
	for _, e := range d.entries {
		fn(e.Path, e.Value)
	}
}

// Equal reports whether two documents have identical entries in
// identical order. Used by the lint engine to detect cache hits.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	if len(d.entries) != len(other.entries) {
		return false
	}
	for i, e := range d.entries {
		o := other.entries[i]
		if e.Path != o.Path || !leafEqual(e.Value, o.Value) {
			return false
		}
	}
	return true
}

func leafEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		return ok && len(av) == 0 && len(bv) == 0
	case []any:
		bv, ok := b.([]any)
		return ok && len(av) == 0 && len(bv) == 0
	default:
		return a == b
	}
}

// JSON renders the document as a sorted-key JSON object, the format
// written to flattened.json debug artifacts.
func (d *Document) JSON() string {
	m := make(map[string]any, len(d.entries))
	for _, e := range d.entries {
		m[e.Path] = e.Value
	}
	return oj.JSON(m, &oj.Options{Sort: true, Indent: 2})
}

// FlattenFile reads and flattens a JSON document from disk.
func FlattenFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &InputError{Source: path, Err: err}
	}
	doc, err := FlattenBytes(data)
	if err != nil {
		return nil, &InputError{Source: path, Err: err}
	}
	return doc, nil
}

// FlattenBytes flattens raw JSON, preserving document order. The
// token-level walk is what keeps object members in source order;
// parsing into Go maps first would lose it.
func FlattenBytes(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	doc := newDocument()
	if err := walkTokens(dec, "", doc); err != nil {
		return nil, &InputError{Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &InputError{Err: fmt.Errorf("trailing data after document")}
	}
	return doc, nil
}

func walkTokens(dec *json.Decoder, path string, doc *Document) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			empty := true
			for dec.More() {
				empty = false
				keyTok, err := dec.Token()
				if err != nil {
					return err
				}
				key, ok := keyTok.(string)
				if !ok {
					return fmt.Errorf("object key is not a string")
				}
				if err := walkTokens(dec, AppendKey(path, key), doc); err != nil {
					return err
				}
			}
			if _, err := dec.Token(); err != nil { // closing }
				return err
			}
			if empty {
				doc.add(path, map[string]any{})
			}
		case '[':
			i := 0
			for dec.More() {
				if err := walkTokens(dec, AppendIndex(path, i), doc); err != nil {
					return err
				}
				i++
			}
			if _, err := dec.Token(); err != nil { // closing ]
				return err
			}
			if i == 0 {
				doc.add(path, []any{})
			}
		default:
			return fmt.Errorf("unexpected delimiter %v", t)
		}
	case json.Number:
		doc.add(path, normalizeNumber(t))
	case string, bool, nil:
		doc.add(path, t)
	default:
		return fmt.Errorf("unexpected token %v", tok)
	}
	return nil
}

// normalizeNumber keeps integers as int64 and everything else as
// float64, matching how the rest of the tool (and ojg) represent JSON
// numbers.
func normalizeNumber(n json.Number) any {
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return i
	}
	f, _ := n.Float64()
	return f
}

// Flatten flattens an already-parsed JSON value. Object keys are
// visited in sorted order so the result is deterministic.
func Flatten(value any) *Document {
	doc := newDocument()
	flattenValue(value, "", doc)
	return doc
}

func flattenValue(value any, path string, doc *Document) {
	switch v := value.(type) {
	case map[string]any:
		if len(v) == 0 {
			doc.add(path, map[string]any{})
			return
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenValue(v[k], AppendKey(path, k), doc)
		}
	case []any:
		if len(v) == 0 {
			doc.add(path, []any{})
			return
		}
		for i, item := range v {
			flattenValue(item, AppendIndex(path, i), doc)
		}
	case json.Number:
		doc.add(path, normalizeNumber(v))
	case int:
		doc.add(path, int64(v))
	default:
		doc.add(path, v)
	}
}

// Unflatten reconstructs the nested document. It is the exact inverse
// of FlattenBytes/Flatten regardless of entry order.
func (d *Document) Unflatten() (any, error) {
	var root any
	for _, e := range d.entries {
		segs, err := ParsePath(e.Path)
		if err != nil {
			return nil, err
		}
		root, err = setPath(root, segs, e.Value, e.Path)
		if err != nil {
			return nil, err
		}
	}
	return root, nil
}

func setPath(container any, segs []Segment, value any, path string) (any, error) {
	if len(segs) == 0 {
		if container != nil {
			return nil, fmt.Errorf("conflicting entries at %q", path)
		}
		return value, nil
	}
	seg := segs[0]
	if seg.IsIndex {
		arr, ok := container.([]any)
		if container != nil && !ok {
			return nil, fmt.Errorf("path %q indexes into a non-array", path)
		}
		for len(arr) <= seg.Index {
			arr = append(arr, nil)
		}
		child, err := setPath(arr[seg.Index], segs[1:], value, path)
		if err != nil {
			return nil, err
		}
		arr[seg.Index] = child
		return arr, nil
	}
	obj, ok := container.(map[string]any)
	if container == nil {
		obj = make(map[string]any)
	} else if !ok {
		return nil, fmt.Errorf("path %q keys into a non-object", path)
	}
	child, err := setPath(obj[seg.Key], segs[1:], value, path)
	if err != nil {
		return nil, err
	}
	obj[seg.Key] = child
	return obj, nil
}
