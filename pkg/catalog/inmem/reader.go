package inmem

import (
	"context"

	"github.com/canopy-data/canopy/pkg/codec"
	"github.com/canopy-data/canopy/pkg/structure"
)

// ArraySource serves an array already held in memory.
type ArraySource struct {
	data     *structure.Array
	metadata map[string]any
}

// NewArraySource wraps data as a reader entry. A nil metadata mapping is
// treated as empty.
func NewArraySource(data *structure.Array, metadata map[string]any) *ArraySource {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &ArraySource{data: data, metadata: metadata}
}

// Metadata returns the reader's metadata mapping.
func (s *ArraySource) Metadata() map[string]any {
	return s.metadata
}

// Container returns the structure family served by this reader.
func (s *ArraySource) Container() string {
	return codec.FamilyArray
}

// Structure describes the array without materializing it.
func (s *ArraySource) Structure(context.Context) (any, error) {
	return s.data.Structure(), nil
}

// Read returns the array.
func (s *ArraySource) Read(context.Context) (any, error) {
	return s.data, nil
}

// TableSource serves a dataframe already held in memory.
type TableSource struct {
	data     *structure.DataFrame
	metadata map[string]any
}

// NewTableSource wraps data as a reader entry. A nil metadata mapping is
// treated as empty.
func NewTableSource(data *structure.DataFrame, metadata map[string]any) *TableSource {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &TableSource{data: data, metadata: metadata}
}

// Metadata returns the reader's metadata mapping.
func (s *TableSource) Metadata() map[string]any {
	return s.metadata
}

// Container returns the structure family served by this reader.
func (s *TableSource) Container() string {
	return codec.FamilyDataFrame
}

// Structure describes the frame without materializing it.
func (s *TableSource) Structure(context.Context) (any, error) {
	return s.data.Structure(), nil
}

// Read returns the frame.
func (s *TableSource) Read(context.Context) (any, error) {
	return s.data, nil
}
