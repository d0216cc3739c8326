package structure

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is returned when element count and shape disagree
	ErrShapeMismatch = errors.New("value count does not match shape")
	// ErrBlockOutOfRange is returned for a block index outside the chunk grid
	ErrBlockOutOfRange = errors.New("block index out of range")
	// ErrIndexOutOfRange is returned for an integer index outside a dimension
	ErrIndexOutOfRange = errors.New("index out of range")
)

// ArrayStructure describes an Array: element type, chunk grid, and shape.
// Chunks holds, per dimension, the sizes of the consecutive blocks covering
// that dimension.
type ArrayStructure struct {
	DType  MachineDataType `json:"dtype"`
	Chunks [][]int         `json:"chunks"`
	Shape  []int           `json:"shape"`
}

// Element enumerates the Go element types an Array can hold.
type Element interface {
	bool | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// Array is an n-dimensional array stored contiguously in C (row-major)
// order. Arrays are immutable once constructed.
type Array struct {
	dtype  MachineDataType
	shape  []int
	chunks [][]int
	data   []byte
}

// New builds an Array with the given shape from a flat slice of values in C
// order. The whole array forms a single chunk.
func New[T Element](shape []int, values []T) (*Array, error) {
	return NewChunked(shape, nil, values)
}

// NewChunked builds an Array like New, splitting each dimension d into
// blocks of chunkSizes[d] elements (the final block may be smaller). A nil
// chunkSizes produces one chunk spanning the whole array.
func NewChunked[T Element](shape []int, chunkSizes []int, values []T) (*Array, error) {
	for _, dim := range shape {
		if dim < 0 {
			return nil, fmt.Errorf("negative dimension in shape %v", shape)
		}
	}
	if n := product(shape); n != len(values) {
		return nil, fmt.Errorf("%w: shape %v holds %d elements, got %d values",
			ErrShapeMismatch, shape, n, len(values))
	}
	if chunkSizes != nil && len(chunkSizes) != len(shape) {
		return nil, fmt.Errorf("chunk sizes %v do not match shape %v", chunkSizes, shape)
	}

	chunks := make([][]int, len(shape))
	for d, dim := range shape {
		size := dim
		if chunkSizes != nil {
			size = chunkSizes[d]
			if size <= 0 {
				return nil, fmt.Errorf("chunk size must be positive, got %d", size)
			}
		}
		chunks[d] = splitRuns(dim, size)
	}

	dtype := dtypeOf[T]()
	var buf bytes.Buffer
	buf.Grow(len(values) * dtype.ItemSize)
	if err := binary.Write(&buf, binary.NativeEndian, values); err != nil {
		return nil, fmt.Errorf("encoding values: %w", err)
	}
	return &Array{
		dtype:  dtype,
		shape:  append([]int(nil), shape...),
		chunks: chunks,
		data:   buf.Bytes(),
	}, nil
}

// Structure returns the wire description of the array.
func (a *Array) Structure() ArrayStructure {
	chunks := make([][]int, len(a.chunks))
	for d, runs := range a.chunks {
		chunks[d] = append([]int(nil), runs...)
	}
	return ArrayStructure{
		DType:  a.dtype,
		Chunks: chunks,
		Shape:  append([]int(nil), a.shape...),
	}
}

// DType returns the element type.
func (a *Array) DType() MachineDataType {
	return a.dtype
}

// Shape returns a copy of the array's shape.
func (a *Array) Shape() []int {
	return append([]int(nil), a.shape...)
}

// Size returns the number of elements.
func (a *Array) Size() int {
	return product(a.shape)
}

// Bytes returns the raw element bytes in C order. The slice is shared with
// the array and must not be mutated.
func (a *Array) Bytes() []byte {
	return a.data
}

// Block extracts the chunk at the given grid index as a new single-chunk
// array. The index must supply one coordinate per dimension.
func (a *Array) Block(index []int) (*Array, error) {
	if len(index) != len(a.shape) {
		return nil, fmt.Errorf("%w: got %d coordinates for %d dimensions",
			ErrBlockOutOfRange, len(index), len(a.shape))
	}
	starts := make([]int, len(a.shape))
	counts := make([]int, len(a.shape))
	for d, i := range index {
		runs := a.chunks[d]
		if i < 0 || i >= len(runs) {
			return nil, fmt.Errorf("%w: coordinate %d exceeds %d blocks in dimension %d",
				ErrBlockOutOfRange, i, len(runs), d)
		}
		for _, run := range runs[:i] {
			starts[d] += run
		}
		counts[d] = runs[i]
	}
	steps := make([]int, len(a.shape))
	reduce := make([]bool, len(a.shape))
	for d := range steps {
		steps[d] = 1
	}
	return a.gather(starts, steps, counts, reduce), nil
}

// Cut applies parsed slice components to the array, one per leading
// dimension. Integer components select one position and drop the dimension;
// range components keep it, with bounds clamped to the dimension size.
func (a *Array) Cut(slices []Slice) (*Array, error) {
	if len(slices) > len(a.shape) {
		return nil, fmt.Errorf("%w: %d slice components for %d dimensions",
			ErrIndexOutOfRange, len(slices), len(a.shape))
	}
	n := len(a.shape)
	starts := make([]int, n)
	steps := make([]int, n)
	counts := make([]int, n)
	reduce := make([]bool, n)
	for d := 0; d < n; d++ {
		dim := a.shape[d]
		if d >= len(slices) {
			starts[d], steps[d], counts[d] = 0, 1, dim
			continue
		}
		s := slices[d]
		if s.IsIndex {
			if s.Start < 0 || s.Start >= dim {
				return nil, fmt.Errorf("%w: index %d exceeds dimension of size %d",
					ErrIndexOutOfRange, s.Start, dim)
			}
			starts[d], steps[d], counts[d], reduce[d] = s.Start, 1, 1, true
			continue
		}
		start := min(s.Start, dim)
		stop := dim
		if s.HasStop {
			stop = min(s.Stop, dim)
		}
		count := 0
		if stop > start {
			count = (stop - start + s.Step - 1) / s.Step
		}
		starts[d], steps[d], counts[d] = start, s.Step, count
	}
	return a.gather(starts, steps, counts, reduce), nil
}

// Values decodes the raw bytes into a flat typed slice such as []float64.
func (a *Array) Values() (any, error) {
	n := a.Size()
	order := a.dtype.ByteOrder()
	read := func(dst any) (any, error) {
		if err := binary.Read(bytes.NewReader(a.data), order, dst); err != nil {
			return nil, fmt.Errorf("decoding values: %w", err)
		}
		return dst, nil
	}
	switch {
	case a.dtype.Kind == KindBool && a.dtype.ItemSize == 1:
		return read(make([]bool, n))
	case a.dtype.Kind == KindInt && a.dtype.ItemSize == 1:
		return read(make([]int8, n))
	case a.dtype.Kind == KindInt && a.dtype.ItemSize == 2:
		return read(make([]int16, n))
	case a.dtype.Kind == KindInt && a.dtype.ItemSize == 4:
		return read(make([]int32, n))
	case a.dtype.Kind == KindInt && a.dtype.ItemSize == 8:
		return read(make([]int64, n))
	case a.dtype.Kind == KindUint && a.dtype.ItemSize == 1:
		return read(make([]uint8, n))
	case a.dtype.Kind == KindUint && a.dtype.ItemSize == 2:
		return read(make([]uint16, n))
	case a.dtype.Kind == KindUint && a.dtype.ItemSize == 4:
		return read(make([]uint32, n))
	case a.dtype.Kind == KindUint && a.dtype.ItemSize == 8:
		return read(make([]uint64, n))
	case a.dtype.Kind == KindFloat && a.dtype.ItemSize == 4:
		return read(make([]float32, n))
	case a.dtype.Kind == KindFloat && a.dtype.ItemSize == 8:
		return read(make([]float64, n))
	default:
		return nil, fmt.Errorf("unsupported dtype %s", a.dtype)
	}
}

// Nested returns the values as nested []any slices mirroring the shape,
// suitable for JSON encoding. A zero-dimensional array yields its scalar.
func (a *Array) Nested() (any, error) {
	flat, err := a.flatAny()
	if err != nil {
		return nil, err
	}
	return nest(flat, a.shape), nil
}

func (a *Array) flatAny() ([]any, error) {
	values, err := a.Values()
	if err != nil {
		return nil, err
	}
	switch v := values.(type) {
	case []bool:
		return toAny(v), nil
	case []int8:
		return toAny(v), nil
	case []int16:
		return toAny(v), nil
	case []int32:
		return toAny(v), nil
	case []int64:
		return toAny(v), nil
	case []uint8:
		return toAny(v), nil
	case []uint16:
		return toAny(v), nil
	case []uint32:
		return toAny(v), nil
	case []uint64:
		return toAny(v), nil
	case []float32:
		return toAny(v), nil
	case []float64:
		return toAny(v), nil
	default:
		return nil, fmt.Errorf("unsupported dtype %s", a.dtype)
	}
}

// gather copies counts[d] elements per dimension d, starting at starts[d]
// and striding by steps[d], into a fresh single-chunk array. Dimensions
// flagged in reduce are dropped from the result shape.
func (a *Array) gather(starts, steps, counts []int, reduce []bool) *Array {
	itemSize := a.dtype.ItemSize
	inStrides := strides(a.shape)

	outShape := make([]int, 0, len(counts))
	for d, count := range counts {
		if !reduce[d] {
			outShape = append(outShape, count)
		}
	}
	total := product(counts)
	data := make([]byte, total*itemSize)

	if total > 0 {
		idx := make([]int, len(counts))
		for out := 0; out < total; out++ {
			in := 0
			for d := range idx {
				in += (starts[d] + idx[d]*steps[d]) * inStrides[d]
			}
			copy(data[out*itemSize:(out+1)*itemSize], a.data[in*itemSize:(in+1)*itemSize])
			for d := len(idx) - 1; d >= 0; d-- {
				idx[d]++
				if idx[d] < counts[d] {
					break
				}
				idx[d] = 0
			}
		}
	}

	chunks := make([][]int, len(outShape))
	for d, dim := range outShape {
		chunks[d] = splitRuns(dim, dim)
	}
	return &Array{
		dtype:  a.dtype,
		shape:  outShape,
		chunks: chunks,
		data:   data,
	}
}

func dtypeOf[T Element]() MachineDataType {
	var zero T
	switch any(zero).(type) {
	case bool:
		return MachineDataType{Endianness: NotApplicable, Kind: KindBool, ItemSize: 1}
	case int8:
		return MachineDataType{Endianness: NotApplicable, Kind: KindInt, ItemSize: 1}
	case int16:
		return MachineDataType{Endianness: hostEndianness, Kind: KindInt, ItemSize: 2}
	case int32:
		return MachineDataType{Endianness: hostEndianness, Kind: KindInt, ItemSize: 4}
	case int64:
		return MachineDataType{Endianness: hostEndianness, Kind: KindInt, ItemSize: 8}
	case uint8:
		return MachineDataType{Endianness: NotApplicable, Kind: KindUint, ItemSize: 1}
	case uint16:
		return MachineDataType{Endianness: hostEndianness, Kind: KindUint, ItemSize: 2}
	case uint32:
		return MachineDataType{Endianness: hostEndianness, Kind: KindUint, ItemSize: 4}
	case uint64:
		return MachineDataType{Endianness: hostEndianness, Kind: KindUint, ItemSize: 8}
	case float32:
		return MachineDataType{Endianness: hostEndianness, Kind: KindFloat, ItemSize: 4}
	default:
		return MachineDataType{Endianness: hostEndianness, Kind: KindFloat, ItemSize: 8}
	}
}

// splitRuns covers a dimension of the given size with runs of at most
// chunkSize elements.
func splitRuns(size, chunkSize int) []int {
	if size == 0 {
		return []int{0}
	}
	runs := make([]int, 0, (size+chunkSize-1)/chunkSize)
	for remaining := size; remaining > 0; remaining -= chunkSize {
		run := chunkSize
		if remaining < chunkSize {
			run = remaining
		}
		runs = append(runs, run)
	}
	return runs
}

func product(dims []int) int {
	n := 1
	for _, dim := range dims {
		n *= dim
	}
	return n
}

// strides returns element strides for C order, so that the flat offset of
// index (i0, i1, ...) is the dot product with the strides.
func strides(shape []int) []int {
	out := make([]int, len(shape))
	acc := 1
	for d := len(shape) - 1; d >= 0; d-- {
		out[d] = acc
		acc *= shape[d]
	}
	return out
}

func nest(flat []any, shape []int) any {
	if len(shape) == 0 {
		if len(flat) == 1 {
			return flat[0]
		}
		return nil
	}
	if len(shape) == 1 {
		return flat
	}
	n := shape[0]
	out := make([]any, n)
	if n == 0 {
		return out
	}
	inner := product(shape[1:])
	for i := 0; i < n; i++ {
		out[i] = nest(flat[i*inner:(i+1)*inner], shape[1:])
	}
	return out
}

func toAny[T any](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
