package codec

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/canopy-data/canopy/pkg/structure"
)

func asFrame(value any) (*structure.DataFrame, error) {
	df, ok := value.(*structure.DataFrame)
	if !ok {
		return nil, fmt.Errorf("dataframe encoder got %T", value)
	}
	return df, nil
}

// encodeFrameCSV encodes the frame as CSV with a header row. It also serves
// text/plain.
func encodeFrameCSV(value any) ([]byte, error) {
	df, err := asFrame(value)
	if err != nil {
		return nil, err
	}
	records := [][]string{df.Columns()}
	for _, row := range df.Rows() {
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = fmt.Sprint(cell)
		}
		records = append(records, record)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("writing csv: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeFrameJSON encodes the frame as a JSON list of column-keyed records.
func encodeFrameJSON(value any) ([]byte, error) {
	df, err := asFrame(value)
	if err != nil {
		return nil, err
	}
	columns := df.Columns()
	records := make([]map[string]any, 0, df.Len())
	for _, row := range df.Rows() {
		record := make(map[string]any, len(columns))
		for i, column := range columns {
			record[column] = row[i]
		}
		records = append(records, record)
	}
	return json.Marshal(records)
}

type cborFrame struct {
	Columns []string `cbor:"columns"`
	Rows    [][]any  `cbor:"rows"`
}

// encodeFrameCBOR encodes the frame as a canonical CBOR map of column names
// and row-major records.
func encodeFrameCBOR(value any) ([]byte, error) {
	df, err := asFrame(value)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(cborFrame{
		Columns: df.Columns(),
		Rows:    df.Rows(),
	})
}
