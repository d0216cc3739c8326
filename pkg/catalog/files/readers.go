package files

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/canopy-data/canopy/pkg/catalog/inmem"
	"github.com/canopy-data/canopy/pkg/entry"
	"github.com/canopy-data/canopy/pkg/structure"
)

// ReaderFactory materializes a file as a reader entry.
type ReaderFactory func(path string) (entry.Entry, error)

// DefaultReaders maps the extensions understood out of the box: ".csv" to
// tabular readers and ".txt" to numeric text arrays.
func DefaultReaders() map[string]ReaderFactory {
	return map[string]ReaderFactory{
		".csv": ReadCSVTable,
		".txt": ReadTextArray,
	}
}

// ReadCSVTable parses a CSV file with a header row into a dataframe reader.
// Cells that parse as numbers become float64 values; everything else stays a
// string.
func ReadCSVTable(path string) (entry.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s has no header row", path)
	}
	columns := records[0]
	rows := make([][]any, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make([]any, len(record))
		for i, cell := range record {
			if v, err := strconv.ParseFloat(cell, 64); err == nil {
				row[i] = v
			} else {
				row[i] = cell
			}
		}
		rows = append(rows, row)
	}
	frame, err := structure.NewDataFrame(columns, rows)
	if err != nil {
		return nil, err
	}
	return inmem.NewTableSource(frame, nil), nil
}

// ReadTextArray parses a whitespace-separated numeric text file into an
// array reader. A single row yields a one-dimensional array; multiple rows
// of equal width yield a two-dimensional one.
func ReadTextArray(path string) (entry.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var values []float64
	width, rows := 0, 0
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if rows == 0 {
			width = len(fields)
		} else if len(fields) != width {
			return nil, fmt.Errorf("%s: row %d has %d values, want %d", path, rows+1, len(fields), width)
		}
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			values = append(values, v)
		}
		rows++
	}
	if rows == 0 {
		return nil, fmt.Errorf("%s contains no numeric data", path)
	}

	shape := []int{rows, width}
	if rows == 1 {
		shape = []int{width}
	}
	arr, err := structure.New(shape, values)
	if err != nil {
		return nil, err
	}
	return inmem.NewArraySource(arr, nil), nil
}
