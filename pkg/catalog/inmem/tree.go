// Package inmem provides the map-backed catalog. A Tree holds named entries
// in insertion order, answers queries through a per-tree translator registry,
// and can be narrowed to the view a principal is allowed to see.
package inmem

import (
	"context"
	"fmt"
	"reflect"

	"github.com/canopy-data/canopy/pkg/entry"
	"github.com/canopy-data/canopy/pkg/registry"
)

// Tree is an in-memory catalog. The zero value is not usable; construct with
// New. Narrowing operations return new views sharing the same entries, so a
// Tree is safe for concurrent readers once built.
type Tree struct {
	metadata    map[string]any
	keys        []string
	entries     map[string]entry.Entry
	translators *registry.Registry[reflect.Type, Translator]
	policy      AccessPolicy
	principal   string
}

// Option configures a Tree during construction.
type Option func(*Tree)

// WithMetadata attaches a metadata mapping to the tree.
func WithMetadata(metadata map[string]any) Option {
	return func(t *Tree) {
		t.metadata = metadata
	}
}

// WithAccessPolicy installs the policy consulted by ScopedTo.
func WithAccessPolicy(policy AccessPolicy) Option {
	return func(t *Tree) {
		t.policy = policy
	}
}

// WithTranslator registers a translator for the query kind of sample,
// replacing a default registration for the same kind.
func WithTranslator(sample entry.Query, fn Translator) Option {
	return func(t *Tree) {
		t.translators.Put(reflect.TypeOf(sample), fn)
	}
}

// New builds a Tree from items, preserving their order for iteration.
// Duplicate keys are an error. The built-in query translators are installed
// before options run.
func New(items []entry.Item, opts ...Option) (*Tree, error) {
	t := &Tree{
		metadata:    map[string]any{},
		keys:        make([]string, 0, len(items)),
		entries:     make(map[string]entry.Entry, len(items)),
		translators: defaultTranslators(),
	}
	for _, item := range items {
		if _, exists := t.entries[item.Key]; exists {
			return nil, fmt.Errorf("duplicate key %q", item.Key)
		}
		t.keys = append(t.keys, item.Key)
		t.entries[item.Key] = item.Entry
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// variation returns a view with the given keys, sharing everything else.
func (t *Tree) variation(keys []string, principal string) *Tree {
	return &Tree{
		metadata:    t.metadata,
		keys:        keys,
		entries:     t.entries,
		translators: t.translators,
		policy:      t.policy,
		principal:   principal,
	}
}

// Metadata returns the tree's metadata mapping.
func (t *Tree) Metadata() map[string]any {
	return t.metadata
}

// Get returns the child stored under key.
func (t *Tree) Get(_ context.Context, key string) (entry.Entry, error) {
	e, ok := t.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entry.ErrNoSuchEntry, key)
	}
	return e, nil
}

// Keys returns child keys in insertion order, starting at offset. A negative
// limit means all remaining keys.
func (t *Tree) Keys(_ context.Context, offset, limit int) ([]string, error) {
	return entry.PageSlice(t.keys, offset, limit), nil
}

// Items returns (key, entry) pairs in insertion order, starting at offset. A
// negative limit means all remaining items.
func (t *Tree) Items(_ context.Context, offset, limit int) ([]entry.Item, error) {
	keys := entry.PageSlice(t.keys, offset, limit)
	items := make([]entry.Item, len(keys))
	for i, key := range keys {
		items[i] = entry.Item{Key: key, Entry: t.entries[key]}
	}
	return items, nil
}

// Len returns the number of children.
func (t *Tree) Len(context.Context) (int, error) {
	return len(t.keys), nil
}

// Search returns a view narrowed to the entries matching q, using the
// translator registered for q's kind.
func (t *Tree) Search(ctx context.Context, q entry.Query) (entry.Catalog, error) {
	translator, err := t.translators.Lookup(reflect.TypeOf(q))
	if err != nil {
		return nil, fmt.Errorf("no search support for query type %T", q)
	}
	narrowed, err := translator(ctx, q, t)
	if err != nil {
		return nil, err
	}
	return narrowed, nil
}

// ScopedTo returns the view of the tree that principal may see, applying the
// access policy if one is installed. Without a policy the view is the whole
// tree, tagged with the principal.
func (t *Tree) ScopedTo(principal string) entry.Catalog {
	if t.policy == nil {
		return t.variation(t.keys, principal)
	}
	return t.variation(t.policy.FilterKeys(principal, t.keys), principal)
}

// Principal returns the identity this view is scoped to, or the empty string
// for an unscoped tree.
func (t *Tree) Principal() string {
	return t.principal
}
