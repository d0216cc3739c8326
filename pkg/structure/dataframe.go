package structure

import (
	"errors"
	"fmt"
)

// ErrColumnMismatch is returned when a row's width differs from the column set
var ErrColumnMismatch = errors.New("row width does not match columns")

// DataFrameStructure describes a DataFrame: its column names and partition
// count. In-memory frames always hold a single partition.
type DataFrameStructure struct {
	Columns     []string `json:"columns"`
	NPartitions int      `json:"npartitions"`
}

// DataFrame is an immutable column-named, row-ordered table.
type DataFrame struct {
	columns []string
	rows    [][]any
}

// NewDataFrame builds a DataFrame from ordered column names and row-major
// records. Every row must have exactly one value per column.
func NewDataFrame(columns []string, rows [][]any) (*DataFrame, error) {
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values for %d columns",
				ErrColumnMismatch, i, len(row), len(columns))
		}
	}
	copied := make([][]any, len(rows))
	for i, row := range rows {
		copied[i] = append([]any(nil), row...)
	}
	return &DataFrame{
		columns: append([]string(nil), columns...),
		rows:    copied,
	}, nil
}

// Structure returns the wire description of the frame.
func (df *DataFrame) Structure() DataFrameStructure {
	return DataFrameStructure{
		Columns:     df.Columns(),
		NPartitions: 1,
	}
}

// Columns returns a copy of the ordered column names.
func (df *DataFrame) Columns() []string {
	return append([]string(nil), df.columns...)
}

// Rows returns the records in row order. The outer slice is fresh but rows
// are shared and must not be mutated.
func (df *DataFrame) Rows() [][]any {
	return append([][]any(nil), df.rows...)
}

// Len returns the number of rows.
func (df *DataFrame) Len() int {
	return len(df.rows)
}
