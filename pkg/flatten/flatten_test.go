package flatten_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perspective-labs/viewlint/pkg/flatten"
)

func TestFlattenBytesDocumentOrder(t *testing.T) {
	src := `{"zeta": 1, "alpha": {"b": true, "a": null}, "items": ["x", 2.5]}`

	doc, err := flatten.FlattenBytes([]byte(src))
	require.NoError(t, err)

	var paths []string
	doc.Walk(func(path string, _ any) {
		paths = append(paths, path)
	})

	// Entries come out in source order, not sorted order.
	assert.Equal(t, []string{"zeta", "alpha.b", "alpha.a", "items[0]", "items[1]"}, paths)

	v, ok := doc.Get("zeta")
	require.True(t, ok)
	assert.Equal(t, int64(1), v)

	v, ok = doc.Get("items[1]")
	require.True(t, ok)
	assert.Equal(t, 2.5, v)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"scalars", `{"s": "text", "i": 42, "f": 3.14, "b": false, "n": null}`},
		{"nested objects", `{"a": {"b": {"c": {"d": "deep"}}}}`},
		{"arrays", `{"list": [1, 2, 3], "nested": [[1], [2, [3]]]}`},
		{"empty object", `{}`},
		{"empty array", `[]`},
		{"empty containers inside", `{"a": {}, "b": [], "c": {"d": []}}`},
		{"array of objects", `[{"x": 1}, {"y": 2}]`},
		{"top-level scalar", `"just a string"`},
		{"keys needing quoting", `{"a.b": 1, "c[0]": 2, "d'e": 3, "": 4, "7up": 5}`},
		{"mixed", `{"root": {"children": [{"meta": {"name": "Button"}, "props": {}}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := flatten.FlattenBytes([]byte(tt.src))
			require.NoError(t, err)

			got, err := doc.Unflatten()
			require.NoError(t, err)

			want := parseJSON(t, tt.src)
			assert.Equal(t, want, got)
		})
	}
}

func TestFlattenSortsParsedValues(t *testing.T) {
	value := map[string]any{
		"b": int64(2),
		"a": int64(1),
	}
	doc := flatten.Flatten(value)

	var paths []string
	doc.Walk(func(path string, _ any) {
		paths = append(paths, path)
	})
	assert.Equal(t, []string{"a", "b"}, paths)
}

func TestFlattenBytesErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"not JSON", `{{{{`},
		{"trailing garbage", `{"a": 1} extra`},
		{"truncated", `{"a": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := flatten.FlattenBytes([]byte(tt.src))
			require.Error(t, err)
			var inputErr *flatten.InputError
			assert.ErrorAs(t, err, &inputErr)
		})
	}
}

func TestFlattenFileMissing(t *testing.T) {
	_, err := flatten.FlattenFile("testdata/does-not-exist.json")
	require.Error(t, err)
	var inputErr *flatten.InputError
	assert.ErrorAs(t, err, &inputErr)
}

func TestDocumentEqual(t *testing.T) {
	a, err := flatten.FlattenBytes([]byte(`{"x": 1, "y": [true]}`))
	require.NoError(t, err)
	b, err := flatten.FlattenBytes([]byte(`{"x": 1, "y": [true]}`))
	require.NoError(t, err)
	c, err := flatten.FlattenBytes([]byte(`{"x": 2, "y": [true]}`))
	require.NoError(t, err)
	d, err := flatten.FlattenBytes([]byte(`{"y": [true], "x": 1}`))
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	// Same content in a different document order is a different snapshot.
	assert.False(t, a.Equal(d))
}

func TestParsePathInvertsJoin(t *testing.T) {
	segs := []flatten.Segment{
		flatten.KeySegment("root"),
		flatten.KeySegment("children"),
		flatten.IndexSegment(3),
		flatten.KeySegment("weird.key['x']"),
		flatten.KeySegment("plain"),
	}
	path := flatten.JoinPath(segs)
	parsed, err := flatten.ParsePath(path)
	require.NoError(t, err)
	assert.Equal(t, segs, parsed)
}

func TestParsePathErrors(t *testing.T) {
	tests := []string{
		"a[",
		"a[x]",
		"a['unterminated",
		"a.",
		"a..b",
		"a.[0]",
	}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			_, err := flatten.ParsePath(path)
			assert.Error(t, err)
		})
	}
}

// parseJSON mirrors the number normalization used by the flattener:
// integers as int64, decimals as float64.
func parseJSON(t *testing.T, src string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(src))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return normalize(v)
}

func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalize(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalize(item)
		}
		return val
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	default:
		return v
	}
}
