// Package registry provides the generic key-to-handler mapping shared by the
// query, serialization, and compression subsystems.
//
// Registries are populated while the server is constructed from configuration
// and are read-only once requests are being served. Under that discipline no
// locking is needed; post-startup mutation is not supported.
package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey is returned when registering a key that is already present
	ErrDuplicateKey = errors.New("key already registered")
	// ErrNotFound is returned when looking up a key with no registration
	ErrNotFound = errors.New("key not registered")
)

// Registry maps stable keys to handlers. An alias redirects lookups to
// whatever is registered under its canonical key at lookup time, so aliases
// may be declared before their targets.
type Registry[K comparable, V any] struct {
	entries map[K]V
	aliases map[K]K
	order   []K
}

// New creates an empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
		aliases: make(map[K]K),
	}
}

// Register adds value under key, failing with ErrDuplicateKey if the key is
// already registered.
func (r *Registry[K, V]) Register(key K, value V) error {
	if _, exists := r.entries[key]; exists {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, key)
	}
	r.entries[key] = value
	r.order = append(r.order, key)
	return nil
}

// Put adds value under key, overwriting any previous registration. It exists
// for configuration-driven re-registration, where a later document replaces a
// built-in handler.
func (r *Registry[K, V]) Put(key K, value V) {
	if _, exists := r.entries[key]; !exists {
		r.order = append(r.order, key)
	}
	r.entries[key] = value
}

// RegisterAlias redirects lookups of alias to canonical. The target is
// resolved at lookup time, not captured here, so the canonical key need not
// be registered yet. Re-declaring an alias overwrites the previous target.
func (r *Registry[K, V]) RegisterAlias(alias, canonical K) {
	r.aliases[alias] = canonical
}

// Lookup returns the value registered under key, resolving one alias hop
// first. It fails with ErrNotFound when neither a registration nor a resolved
// alias target exists.
func (r *Registry[K, V]) Lookup(key K) (V, error) {
	if canonical, ok := r.aliases[key]; ok {
		key = canonical
	}
	value, ok := r.entries[key]
	if !ok {
		var zero V
		return zero, fmt.Errorf("%w: %v", ErrNotFound, key)
	}
	return value, nil
}

// Resolve maps key through the alias table without looking up a value. Keys
// that are not aliases are returned unchanged.
func (r *Registry[K, V]) Resolve(key K) K {
	if canonical, ok := r.aliases[key]; ok {
		return canonical
	}
	return key
}

// Keys returns the canonical keys matching predicate in registration order.
// A nil predicate matches every key.
func (r *Registry[K, V]) Keys(predicate func(K) bool) []K {
	keys := make([]K, 0, len(r.order))
	for _, key := range r.order {
		if predicate == nil || predicate(key) {
			keys = append(keys, key)
		}
	}
	return keys
}

// Aliases returns a copy of the alias table.
func (r *Registry[K, V]) Aliases() map[K]K {
	out := make(map[K]K, len(r.aliases))
	for alias, canonical := range r.aliases {
		out[alias] = canonical
	}
	return out
}
