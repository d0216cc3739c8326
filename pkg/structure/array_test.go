package structure_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-data/canopy/pkg/structure"
)

func TestNewArrayStructure(t *testing.T) {
	t.Parallel()

	arr, err := structure.New([]int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	desc := arr.Structure()
	assert.Equal(t, []int{2, 3}, desc.Shape)
	assert.Equal(t, [][]int{{2}, {3}}, desc.Chunks)
	assert.Equal(t, structure.KindFloat, desc.DType.Kind)
	assert.Equal(t, 8, desc.DType.ItemSize)
	assert.Equal(t, 6, arr.Size())
	assert.Len(t, arr.Bytes(), 48)
}

func TestNewArrayShapeMismatch(t *testing.T) {
	t.Parallel()

	_, err := structure.New([]int{2, 2}, []int64{1, 2, 3})
	assert.ErrorIs(t, err, structure.ErrShapeMismatch)
}

func TestNewChunkedRuns(t *testing.T) {
	t.Parallel()

	values := make([]int32, 10)
	arr, err := structure.NewChunked([]int{10}, []int{3}, values)
	require.NoError(t, err)

	assert.Equal(t, [][]int{{3, 3, 3, 1}}, arr.Structure().Chunks)
}

func TestBlockExtraction(t *testing.T) {
	t.Parallel()

	// 4x4 row-major: row i holds 4i..4i+3.
	values := make([]int64, 16)
	for i := range values {
		values[i] = int64(i)
	}
	arr, err := structure.NewChunked([]int{4, 4}, []int{2, 2}, values)
	require.NoError(t, err)

	tests := []struct {
		name     string
		index    []int
		expected []int64
	}{
		{name: "top left", index: []int{0, 0}, expected: []int64{0, 1, 4, 5}},
		{name: "top right", index: []int{0, 1}, expected: []int64{2, 3, 6, 7}},
		{name: "bottom left", index: []int{1, 0}, expected: []int64{8, 9, 12, 13}},
		{name: "bottom right", index: []int{1, 1}, expected: []int64{10, 11, 14, 15}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			block, err := arr.Block(tt.index)
			require.NoError(t, err)
			assert.Equal(t, []int{2, 2}, block.Shape())

			flat, err := block.Values()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, flat)
		})
	}
}

func TestBlockOutOfRange(t *testing.T) {
	t.Parallel()

	arr, err := structure.NewChunked([]int{4}, []int{2}, make([]float64, 4))
	require.NoError(t, err)

	_, err = arr.Block([]int{2})
	assert.ErrorIs(t, err, structure.ErrBlockOutOfRange)

	_, err = arr.Block([]int{0, 0})
	assert.ErrorIs(t, err, structure.ErrBlockOutOfRange)
}

func TestCut(t *testing.T) {
	t.Parallel()

	values := make([]int64, 16)
	for i := range values {
		values[i] = int64(i)
	}
	arr, err := structure.New([]int{4, 4}, values)
	require.NoError(t, err)

	tests := []struct {
		name          string
		expr          string
		expectedShape []int
		expectedFlat  []int64
	}{
		{
			name:          "row range",
			expr:          "1:3",
			expectedShape: []int{2, 4},
			expectedFlat:  []int64{4, 5, 6, 7, 8, 9, 10, 11},
		},
		{
			name:          "row and column ranges",
			expr:          "0:2,1:3",
			expectedShape: []int{2, 2},
			expectedFlat:  []int64{1, 2, 5, 6},
		},
		{
			name:          "integer index drops dimension",
			expr:          "2",
			expectedShape: []int{4},
			expectedFlat:  []int64{8, 9, 10, 11},
		},
		{
			name:          "strided columns",
			expr:          ":,::2",
			expectedShape: []int{4, 2},
			expectedFlat:  []int64{0, 2, 4, 6, 8, 10, 12, 14},
		},
		{
			name:          "stop clamped to dimension",
			expr:          "0:100",
			expectedShape: []int{4, 4},
			expectedFlat:  values,
		},
		{
			name:          "empty selection",
			expr:          "3:1",
			expectedShape: []int{0, 4},
			expectedFlat:  []int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			slices, err := structure.ParseSlices(tt.expr)
			require.NoError(t, err)

			cut, err := arr.Cut(slices)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedShape, cut.Shape())

			flat, err := cut.Values()
			require.NoError(t, err)
			assert.Equal(t, tt.expectedFlat, flat)
		})
	}
}

func TestCutIndexOutOfRange(t *testing.T) {
	t.Parallel()

	arr, err := structure.New([]int{3}, []int8{1, 2, 3})
	require.NoError(t, err)

	slices, err := structure.ParseSlices("5")
	require.NoError(t, err)
	_, err = arr.Cut(slices)
	assert.ErrorIs(t, err, structure.ErrIndexOutOfRange)

	slices, err = structure.ParseSlices("0,0")
	require.NoError(t, err)
	_, err = arr.Cut(slices)
	assert.ErrorIs(t, err, structure.ErrIndexOutOfRange)
}

func TestNested(t *testing.T) {
	t.Parallel()

	arr, err := structure.New([]int{2, 2}, []uint8{1, 2, 3, 4})
	require.NoError(t, err)

	nested, err := arr.Nested()
	require.NoError(t, err)
	assert.Equal(t,
		[]any{
			[]any{uint8(1), uint8(2)},
			[]any{uint8(3), uint8(4)},
		},
		nested)
}

func TestBoolArray(t *testing.T) {
	t.Parallel()

	arr, err := structure.New([]int{3}, []bool{true, false, true})
	require.NoError(t, err)

	assert.Equal(t, structure.KindBool, arr.DType().Kind)
	assert.Equal(t, structure.NotApplicable, arr.DType().Endianness)
	assert.Equal(t, []byte{1, 0, 1}, arr.Bytes())
}
