package service

import (
	"fmt"

	"github.com/canopy-data/canopy/pkg/entry"
	"github.com/canopy-data/canopy/pkg/query"
	"github.com/canopy-data/canopy/pkg/resource"
	"github.com/canopy-data/canopy/pkg/structure"
)

// GetMetadataOptions is the options for the GetMetadata operation
type GetMetadataOptions struct {
	// Path is the slash-separated location of the entry
	Path string
	// Principal identifies the requesting user for access filtering
	Principal string
	// Fields selects which attributes to include in the resource
	Fields resource.Fields
}

// ListEntriesOptions is the options for the ListEntries operation
type ListEntriesOptions struct {
	// Path is the slash-separated location of the catalog
	Path string
	// Principal identifies the requesting user for access filtering
	Principal string
	// Fields selects which attributes to include in each resource
	Fields resource.Fields
	// Offset is the index of the first child to return
	Offset int
	// Limit is the maximum number of children to return
	Limit int
	// Queries narrows the catalog before the window is taken
	Queries []entry.Query
}

// ReadArrayOptions is the options for the ReadArrayBlock and
// ReadArrayFull operations
type ReadArrayOptions struct {
	// Path is the slash-separated location of the array entry
	Path string
	// Principal identifies the requesting user for access filtering
	Principal string
	// Block is the chunk coordinate to read, one index per dimension
	Block []int
	// Slices restricts the returned data along each dimension
	Slices []structure.Slice
}

// ReadTableOptions is the options for the ReadTable operation
type ReadTableOptions struct {
	// Path is the slash-separated location of the tabular entry
	Path string
	// Principal identifies the requesting user for access filtering
	Principal string
}

// Option is a function that sets an option for the GetMetadataOptions,
// ListEntriesOptions, ReadArrayOptions, or ReadTableOptions
type Option[T GetMetadataOptions | ListEntriesOptions | ReadArrayOptions | ReadTableOptions] func(*T) error

// WithPath sets the entry path for any operation
func WithPath[T GetMetadataOptions | ListEntriesOptions | ReadArrayOptions | ReadTableOptions](path string) Option[T] {
	return func(o *T) error {
		switch o := any(o).(type) {
		case *GetMetadataOptions:
			o.Path = path
		case *ListEntriesOptions:
			o.Path = path
		case *ReadArrayOptions:
			o.Path = path
		case *ReadTableOptions:
			o.Path = path
		default:
			return fmt.Errorf("invalid option type: %T", o)
		}
		return nil
	}
}

// WithPrincipal sets the requesting principal for any operation
func WithPrincipal[T GetMetadataOptions | ListEntriesOptions | ReadArrayOptions | ReadTableOptions](principal string) Option[T] {
	return func(o *T) error {
		switch o := any(o).(type) {
		case *GetMetadataOptions:
			o.Principal = principal
		case *ListEntriesOptions:
			o.Principal = principal
		case *ReadArrayOptions:
			o.Principal = principal
		case *ReadTableOptions:
			o.Principal = principal
		default:
			return fmt.Errorf("invalid option type: %T", o)
		}
		return nil
	}
}

// WithFields selects resource attributes for the GetMetadata or
// ListEntries operation
func WithFields[T GetMetadataOptions | ListEntriesOptions](fields resource.Fields) Option[T] {
	return func(o *T) error {
		switch o := any(o).(type) {
		case *GetMetadataOptions:
			o.Fields = fields
		case *ListEntriesOptions:
			o.Fields = fields
		default:
			return fmt.Errorf("invalid option type: %T", o)
		}
		return nil
	}
}

// WithPage sets the pagination window for the ListEntries operation. A
// zero limit yields an empty window and a negative one removes the bound.
func WithPage(offset, limit int) Option[ListEntriesOptions] {
	return func(o *ListEntriesOptions) error {
		if offset < 0 {
			return fmt.Errorf("%w: negative offset %d", query.ErrInvalidArgs, offset)
		}
		o.Offset = offset
		o.Limit = limit
		return nil
	}
}

// WithQueries adds search queries for the ListEntries operation
func WithQueries(queries ...entry.Query) Option[ListEntriesOptions] {
	return func(o *ListEntriesOptions) error {
		o.Queries = append(o.Queries, queries...)
		return nil
	}
}

// WithBlock selects the chunk coordinate for the ReadArrayBlock operation
func WithBlock(block []int) Option[ReadArrayOptions] {
	return func(o *ReadArrayOptions) error {
		if len(block) == 0 {
			return fmt.Errorf("%w: empty block coordinate", query.ErrInvalidArgs)
		}
		o.Block = block
		return nil
	}
}

// WithSlices restricts the data window for the ReadArrayBlock or
// ReadArrayFull operation
func WithSlices(slices []structure.Slice) Option[ReadArrayOptions] {
	return func(o *ReadArrayOptions) error {
		o.Slices = slices
		return nil
	}
}
