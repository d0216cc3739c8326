package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/canopy-data/canopy/pkg/entry"
	"github.com/canopy-data/canopy/pkg/paginate"
	"github.com/canopy-data/canopy/pkg/query"
	"github.com/canopy-data/canopy/pkg/resource"
	"github.com/canopy-data/canopy/pkg/structure"
)

// TreeService serves a single root entry, typically the catalog a
// configuration assembled.
type TreeService struct {
	root entry.Entry
}

var _ CatalogService = (*TreeService)(nil)

// NewTreeService creates a service that answers requests against root.
func NewTreeService(root entry.Entry) *TreeService {
	return &TreeService{root: root}
}

// CheckReadiness reports whether the root can enumerate its children.
func (s *TreeService) CheckReadiness(ctx context.Context) error {
	if catalog, ok := s.root.(entry.Catalog); ok {
		if _, err := catalog.Len(ctx); err != nil {
			return fmt.Errorf("root catalog is not ready: %w", err)
		}
	}
	return nil
}

// GetMetadata returns the wire resource for the entry at a path.
func (s *TreeService) GetMetadata(ctx context.Context, opts ...Option[GetMetadataOptions]) (resource.Resource, error) {
	options := GetMetadataOptions{Fields: resource.AllFields()}
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return resource.Resource{}, err
		}
	}

	e, err := s.resolve(ctx, options.Principal, options.Path)
	if err != nil {
		return resource.Resource{}, err
	}
	return resource.Build(ctx, lastSegment(options.Path), e, options.Fields)
}

// ListEntries returns one window of a catalog's children, after applying
// any search queries. When no fields are requested the children are not
// materialized and only their keys are returned.
func (s *TreeService) ListEntries(ctx context.Context, opts ...Option[ListEntriesOptions]) (*Listing, error) {
	options := ListEntriesOptions{Fields: resource.AllFields(), Limit: paginate.DefaultLimit}
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return nil, err
		}
	}

	e, err := s.resolve(ctx, options.Principal, options.Path)
	if err != nil {
		return nil, err
	}
	catalog, ok := e.(entry.Catalog)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a catalog", entry.ErrWrongCapability, displayPath(options.Path))
	}

	narrowed, err := query.Apply(ctx, catalog, options.Queries)
	if err != nil {
		return nil, err
	}
	count, err := narrowed.Len(ctx)
	if err != nil {
		return nil, err
	}

	listing := &Listing{Count: count}
	if options.Fields.Empty() {
		keys, err := narrowed.Keys(ctx, options.Offset, options.Limit)
		if err != nil {
			return nil, err
		}
		listing.Resources = make([]resource.Resource, 0, len(keys))
		for _, key := range keys {
			res, err := resource.Build(ctx, key, nil, options.Fields)
			if err != nil {
				return nil, err
			}
			listing.Resources = append(listing.Resources, res)
		}
		return listing, nil
	}

	items, err := narrowed.Items(ctx, options.Offset, options.Limit)
	if err != nil {
		return nil, err
	}
	listing.Resources = make([]resource.Resource, 0, len(items))
	for _, item := range items {
		res, err := resource.Build(ctx, item.Key, item.Entry, options.Fields)
		if err != nil {
			return nil, err
		}
		listing.Resources = append(listing.Resources, res)
	}
	return listing, nil
}

// ReadArrayBlock reads a single chunk of an array entry.
func (s *TreeService) ReadArrayBlock(ctx context.Context, opts ...Option[ReadArrayOptions]) (*structure.Array, error) {
	var options ReadArrayOptions
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return nil, err
		}
	}

	arr, err := s.readArray(ctx, options)
	if err != nil {
		return nil, err
	}
	block, err := arr.Block(options.Block)
	if err != nil {
		return nil, err
	}
	if len(options.Slices) > 0 {
		return block.Cut(options.Slices)
	}
	return block, nil
}

// ReadArrayFull reads a whole array entry, optionally sliced.
func (s *TreeService) ReadArrayFull(ctx context.Context, opts ...Option[ReadArrayOptions]) (*structure.Array, error) {
	var options ReadArrayOptions
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return nil, err
		}
	}

	arr, err := s.readArray(ctx, options)
	if err != nil {
		return nil, err
	}
	if len(options.Slices) > 0 {
		return arr.Cut(options.Slices)
	}
	return arr, nil
}

// ReadTable reads a whole tabular entry.
func (s *TreeService) ReadTable(ctx context.Context, opts ...Option[ReadTableOptions]) (*structure.DataFrame, error) {
	var options ReadTableOptions
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return nil, err
		}
	}

	e, err := s.resolve(ctx, options.Principal, options.Path)
	if err != nil {
		return nil, err
	}
	reader, ok := e.(entry.Reader)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not readable", entry.ErrWrongCapability, displayPath(options.Path))
	}
	data, err := reader.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", displayPath(options.Path), err)
	}
	frame, ok := data.(*structure.DataFrame)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not hold tabular data", entry.ErrWrongCapability, displayPath(options.Path))
	}
	return frame, nil
}

func (s *TreeService) readArray(ctx context.Context, options ReadArrayOptions) (*structure.Array, error) {
	e, err := s.resolve(ctx, options.Principal, options.Path)
	if err != nil {
		return nil, err
	}
	reader, ok := e.(entry.Reader)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not readable", entry.ErrWrongCapability, displayPath(options.Path))
	}
	data, err := reader.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", displayPath(options.Path), err)
	}
	arr, ok := data.(*structure.Array)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not hold array data", entry.ErrWrongCapability, displayPath(options.Path))
	}
	return arr, nil
}

// resolve walks path starting from the principal's view of the root.
func (s *TreeService) resolve(ctx context.Context, principal, path string) (entry.Entry, error) {
	root := s.root
	if scoped, ok := root.(entry.Scoped); ok && principal != "" {
		root = scoped.ScopedTo(principal)
	}
	catalog, ok := root.(entry.Catalog)
	if !ok {
		if len(entry.SplitPath(path)) == 0 {
			return root, nil
		}
		return nil, fmt.Errorf("%w: %s", entry.ErrNoSuchEntry, displayPath(path))
	}
	return entry.Resolve(ctx, catalog, path)
}

func lastSegment(path string) string {
	segments := entry.SplitPath(path)
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

func displayPath(path string) string {
	if segments := entry.SplitPath(path); len(segments) > 0 {
		return "/" + strings.Join(segments, "/")
	}
	return "/"
}
