// Package query defines the typed search predicates that narrow catalogs and
// the parsing of filter request parameters into them.
//
// Queries are value objects. Catalogs decide how to execute them, so a query
// type carries no behavior beyond its fields; new kinds are added by
// registering a name and a constructor in a Registry.
package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/canopy-data/canopy/pkg/entry"
	"github.com/canopy-data/canopy/pkg/registry"
)

var (
	// ErrUnknownQuery is returned when a filter names an unregistered query
	ErrUnknownQuery = errors.New("unknown query")
	// ErrInvalidArgs is returned when filter parameters do not satisfy a query constructor
	ErrInvalidArgs = errors.New("invalid query arguments")
)

// Registered names of the built-in queries.
const (
	NameFullText  = "fulltext"
	NameKeyLookup = "lookup"
)

// FullText matches entries whose metadata contains any whole word of Text.
type FullText struct {
	Text          string
	CaseSensitive bool
}

// KeyLookup matches the single entry stored under Key, if present.
type KeyLookup struct {
	Key string
}

// Constructor builds a typed query from the string fields collected for it.
type Constructor func(fields map[string]string) (entry.Query, error)

// Registry maps query names to constructors.
type Registry = registry.Registry[string, Constructor]

// NewRegistry creates an empty query registry.
func NewRegistry() *Registry {
	return registry.New[string, Constructor]()
}

// DefaultRegistry creates a registry with the built-in queries registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Put(NameFullText, newFullText)
	r.Put(NameKeyLookup, newKeyLookup)
	return r
}

func newFullText(fields map[string]string) (entry.Query, error) {
	var q FullText
	for field, value := range fields {
		switch field {
		case "text":
			q.Text = value
		case "case_sensitive":
			v, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("%w: case_sensitive must be a boolean, got %q", ErrInvalidArgs, value)
			}
			q.CaseSensitive = v
		default:
			return nil, fmt.Errorf("%w: %s has no field %q", ErrInvalidArgs, NameFullText, field)
		}
	}
	if q.Text == "" {
		return nil, fmt.Errorf("%w: %s requires field %q", ErrInvalidArgs, NameFullText, "text")
	}
	return q, nil
}

func newKeyLookup(fields map[string]string) (entry.Query, error) {
	var q KeyLookup
	for field, value := range fields {
		switch field {
		case "key":
			q.Key = value
		default:
			return nil, fmt.Errorf("%w: %s has no field %q", ErrInvalidArgs, NameKeyLookup, field)
		}
	}
	if q.Key == "" {
		return nil, fmt.Errorf("%w: %s requires field %q", ErrInvalidArgs, NameKeyLookup, "key")
	}
	return q, nil
}

// Apply narrows catalog by each query in order. The queries AND together, so
// order does not change the final result set.
func Apply(ctx context.Context, catalog entry.Catalog, queries []entry.Query) (entry.Catalog, error) {
	for _, q := range queries {
		narrowed, err := catalog.Search(ctx, q)
		if err != nil {
			return nil, err
		}
		catalog = narrowed
	}
	return catalog, nil
}
