package codec

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/canopy-data/canopy/pkg/structure"
)

// encMode is the CBOR encoder mode for payload encodings. Canonical key
// ordering keeps the output deterministic, which the content fingerprint
// depends on.
var encMode cbor.EncMode

func init() {
	opts := cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}
	var err error
	encMode, err = opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("creating CBOR encoder mode: %v", err))
	}
}

func asArray(value any) (*structure.Array, error) {
	arr, ok := value.(*structure.Array)
	if !ok {
		return nil, fmt.Errorf("array encoder got %T", value)
	}
	return arr, nil
}

// encodeArrayOctet returns the raw element bytes in C order.
func encodeArrayOctet(value any) ([]byte, error) {
	arr, err := asArray(value)
	if err != nil {
		return nil, err
	}
	return arr.Bytes(), nil
}

// encodeArrayJSON encodes the array as nested JSON lists.
func encodeArrayJSON(value any) ([]byte, error) {
	arr, err := asArray(value)
	if err != nil {
		return nil, err
	}
	nested, err := arr.Nested()
	if err != nil {
		return nil, err
	}
	return json.Marshal(nested)
}

// encodeArrayCSV encodes a one- or two-dimensional array as CSV, one row per
// leading-dimension element.
func encodeArrayCSV(value any) ([]byte, error) {
	arr, err := asArray(value)
	if err != nil {
		return nil, err
	}
	shape := arr.Shape()
	if len(shape) > 2 {
		return nil, fmt.Errorf("csv encoding supports at most two dimensions, got %d", len(shape))
	}
	nested, err := arr.Nested()
	if err != nil {
		return nil, err
	}

	var records [][]string
	switch v := nested.(type) {
	case []any:
		if len(shape) == 1 {
			for _, cell := range v {
				records = append(records, []string{fmt.Sprint(cell)})
			}
			break
		}
		for _, row := range v {
			cells := row.([]any)
			record := make([]string, len(cells))
			for i, cell := range cells {
				record[i] = fmt.Sprint(cell)
			}
			records = append(records, record)
		}
	default:
		// Zero-dimensional: a single scalar.
		records = [][]string{{fmt.Sprint(nested)}}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("writing csv: %w", err)
	}
	return buf.Bytes(), nil
}

type cborArray struct {
	DType string `cbor:"dtype"`
	Shape []int  `cbor:"shape"`
	Data  []byte `cbor:"data"`
}

// encodeArrayCBOR encodes the array as a canonical CBOR map holding the
// compact dtype string, the shape, and the raw C-order bytes.
func encodeArrayCBOR(value any) ([]byte, error) {
	arr, err := asArray(value)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(cborArray{
		DType: arr.DType().String(),
		Shape: arr.Shape(),
		Data:  arr.Bytes(),
	})
}
