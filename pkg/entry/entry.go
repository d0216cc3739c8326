// Package entry defines the catalog/reader node model served by Canopy.
//
// Every node in the served tree is an Entry: either a Catalog, which contains
// named child entries, or a Reader, which exposes structured data. Capability
// is determined by which interface a value implements, not by a type tag, so
// any object satisfying one of the interfaces can be mounted.
package entry

import (
	"context"
	"errors"
)

var (
	// ErrNoSuchEntry is returned when a path does not resolve to an entry
	ErrNoSuchEntry = errors.New("no such entry")
	// ErrWrongCapability is returned when an entry exists but does not support the requested operation
	ErrWrongCapability = errors.New("entry does not support the requested operation")
)

// Query is a typed search predicate applied to narrow a Catalog. Concrete
// query kinds are defined in the query package; catalog implementations
// dispatch on the dynamic type.
type Query any

// Entry is a node in the served tree. Concrete values implement Catalog or
// Reader; use Classify to branch on capability.
type Entry any

// Item is one (key, entry) pair produced by catalog iteration.
type Item struct {
	Key   string
	Entry Entry
}

// Catalog is implemented by entries containing named children. Iteration
// order must be stable across calls for a given catalog value.
type Catalog interface {
	// Metadata returns the catalog's metadata mapping.
	Metadata() map[string]any

	// Get returns the child registered under key, or an error wrapping
	// ErrNoSuchEntry when the key is absent.
	Get(ctx context.Context, key string) (Entry, error)

	// Keys returns child keys in iteration order, starting at offset. A
	// negative limit means all remaining keys.
	Keys(ctx context.Context, offset, limit int) ([]string, error)

	// Items returns (key, entry) pairs in iteration order, starting at
	// offset. A negative limit means all remaining items.
	Items(ctx context.Context, offset, limit int) ([]Item, error)

	// Search returns a catalog narrowed to the entries matching q.
	Search(ctx context.Context, q Query) (Catalog, error)

	// Len returns the number of children. Implementations backed by
	// expensive storage may return an approximation.
	Len(ctx context.Context) (int, error)
}

// Reader is implemented by leaf entries exposing structured data.
type Reader interface {
	// Metadata returns the reader's metadata mapping.
	Metadata() map[string]any

	// Container names the structure family of the data, such as "array"
	// or "dataframe".
	Container() string

	// Structure describes the shape and type of the data without
	// materializing it.
	Structure(ctx context.Context) (any, error)

	// Read materializes the data.
	Read(ctx context.Context) (any, error)
}

// ClientTypeHinter is implemented by entries that suggest a specialized
// client-side wrapper type. The hint is advisory and opaque to the server.
type ClientTypeHinter interface {
	ClientTypeHint() string
}

// Scoped is implemented by catalogs that can narrow themselves to the
// entries a principal may see. Catalogs without the capability serve the
// full tree to every principal.
type Scoped interface {
	ScopedTo(principal string) Catalog
}

// Kind is the capability classification of an Entry.
type Kind int

const (
	// KindUnknown marks values implementing neither capability interface.
	KindUnknown Kind = iota
	// KindCatalog marks entries with catalog capability.
	KindCatalog
	// KindReader marks entries with reader capability.
	KindReader
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindCatalog:
		return "catalog"
	case KindReader:
		return "reader"
	default:
		return "unknown"
	}
}

// Classify reports which capability e exposes. A value implementing both
// interfaces classifies as a catalog.
func Classify(e Entry) Kind {
	switch e.(type) {
	case Catalog:
		return KindCatalog
	case Reader:
		return KindReader
	default:
		return KindUnknown
	}
}

// PageSlice clamps an offset/limit window onto keys the way a slice
// expression would: out-of-range offsets yield an empty page, and a negative
// limit extends to the end. Catalog implementations share it so Keys and
// Items paginate identically everywhere.
func PageSlice(keys []string, offset, limit int) []string {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(keys) {
		return []string{}
	}
	end := len(keys)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	return keys[offset:end]
}
