// Package service provides the catalog traversal logic behind the API
// routes. It resolves paths against the served tree, narrows the tree to
// the requesting principal, and projects entries into wire resources.
package service

import (
	"context"

	"github.com/canopy-data/canopy/pkg/resource"
	"github.com/canopy-data/canopy/pkg/structure"
)

// CatalogService defines the read operations the HTTP layer exposes.
type CatalogService interface {
	// CheckReadiness reports whether the served tree can answer requests.
	CheckReadiness(ctx context.Context) error

	// GetMetadata returns the wire resource for the entry at a path.
	GetMetadata(ctx context.Context, opts ...Option[GetMetadataOptions]) (resource.Resource, error)

	// ListEntries returns one window of a catalog's children, after
	// applying any search queries.
	ListEntries(ctx context.Context, opts ...Option[ListEntriesOptions]) (*Listing, error)

	// ReadArrayBlock reads a single chunk of an array entry.
	ReadArrayBlock(ctx context.Context, opts ...Option[ReadArrayOptions]) (*structure.Array, error)

	// ReadArrayFull reads a whole array entry, optionally sliced.
	ReadArrayFull(ctx context.Context, opts ...Option[ReadArrayOptions]) (*structure.Array, error)

	// ReadTable reads a whole tabular entry.
	ReadTable(ctx context.Context, opts ...Option[ReadTableOptions]) (*structure.DataFrame, error)
}

// Listing is one window of catalog children plus the total number of
// children the catalog holds after queries were applied.
type Listing struct {
	Resources []resource.Resource
	Count     int
}
