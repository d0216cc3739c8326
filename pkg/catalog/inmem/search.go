package inmem

import (
	"context"
	"reflect"
	"strings"

	"github.com/canopy-data/canopy/pkg/entry"
	"github.com/canopy-data/canopy/pkg/query"
	"github.com/canopy-data/canopy/pkg/registry"
)

// Translator executes one query kind against a tree, returning the narrowed
// view.
type Translator func(ctx context.Context, q entry.Query, t *Tree) (*Tree, error)

func defaultTranslators() *registry.Registry[reflect.Type, Translator] {
	r := registry.New[reflect.Type, Translator]()
	r.Put(reflect.TypeOf(query.FullText{}), fullTextSearch)
	r.Put(reflect.TypeOf(query.KeyLookup{}), keyLookup)
	return r
}

// fullTextSearch keeps entries whose metadata shares at least one whole word
// with the query text. Matching is case-insensitive unless the query says
// otherwise, lowering both sides.
func fullTextSearch(_ context.Context, q entry.Query, t *Tree) (*Tree, error) {
	ft := q.(query.FullText)
	normalize := strings.ToLower
	if ft.CaseSensitive {
		normalize = func(s string) string { return s }
	}
	queryWords := make(map[string]bool)
	for _, word := range strings.Fields(normalize(ft.Text)) {
		queryWords[word] = true
	}

	var matched []string
	for _, key := range t.keys {
		if metadataMatches(metadataOf(t.entries[key]), queryWords, normalize) {
			matched = append(matched, key)
		}
	}
	return t.variation(matched, t.principal), nil
}

// keyLookup narrows to the single entry stored under the queried key, or to
// an empty view when it is absent.
func keyLookup(_ context.Context, q entry.Query, t *Tree) (*Tree, error) {
	kl := q.(query.KeyLookup)
	if _, ok := t.entries[kl.Key]; !ok {
		return t.variation(nil, t.principal), nil
	}
	return t.variation([]string{kl.Key}, t.principal), nil
}

func metadataMatches(metadata map[string]any, queryWords map[string]bool, normalize func(string) string) bool {
	for _, s := range walkStringValues(metadata) {
		for _, word := range strings.Fields(normalize(s)) {
			if queryWords[word] {
				return true
			}
		}
	}
	return false
}

func metadataOf(e entry.Entry) map[string]any {
	switch v := e.(type) {
	case entry.Catalog:
		return v.Metadata()
	case entry.Reader:
		return v.Metadata()
	default:
		return nil
	}
}

// walkStringValues collects the strings reachable in a metadata mapping:
// string values directly, map values recursively, and string elements of
// lists without descending into nested non-string elements.
func walkStringValues(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case map[string]any:
		var out []string
		for _, item := range v {
			out = append(out, walkStringValues(item)...)
		}
		return out
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
