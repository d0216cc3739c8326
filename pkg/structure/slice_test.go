package structure_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/canopy-data/canopy/pkg/structure"
)

func TestParseSlices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		expr     string
		expected []structure.Slice
	}{
		{
			name:     "empty expression",
			expr:     "",
			expected: nil,
		},
		{
			name:     "bare index",
			expr:     "3",
			expected: []structure.Slice{{Start: 3, Step: 1, IsIndex: true}},
		},
		{
			name:     "start and stop",
			expr:     "1:5",
			expected: []structure.Slice{{Start: 1, Stop: 5, Step: 1, HasStop: true}},
		},
		{
			name:     "full range",
			expr:     ":",
			expected: []structure.Slice{{Start: 0, Stop: -1, Step: 1}},
		},
		{
			name:     "step only",
			expr:     "::2",
			expected: []structure.Slice{{Start: 0, Stop: -1, Step: 2}},
		},
		{
			name:     "start stop step",
			expr:     "1:5:2",
			expected: []structure.Slice{{Start: 1, Stop: 5, Step: 2, HasStop: true}},
		},
		{
			name: "multiple components",
			expr: "0:5,3",
			expected: []structure.Slice{
				{Start: 0, Stop: 5, Step: 1, HasStop: true},
				{Start: 3, Step: 1, IsIndex: true},
			},
		},
		{
			name:     "empty components skipped",
			expr:     ",,2",
			expected: []structure.Slice{{Start: 2, Step: 1, IsIndex: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			slices, err := structure.ParseSlices(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, slices)
		})
	}
}

func TestParseSlicesRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
	}{
		{name: "too many parts", expr: "1:2:3:4"},
		{name: "non-numeric index", expr: "a"},
		{name: "negative index", expr: "-1"},
		{name: "negative stop", expr: "1:-2"},
		{name: "zero step", expr: "::0"},
		{name: "negative step", expr: "1:2:-1"},
		{name: "float index", expr: "1.5"},
		{name: "expression injection", expr: "0:(2+3)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := structure.ParseSlices(tt.expr)
			assert.ErrorIs(t, err, structure.ErrInvalidSlice)
		})
	}
}

func TestParseBlock(t *testing.T) {
	t.Parallel()

	coords, err := structure.ParseBlock("0,12,3")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 12, 3}, coords)

	for _, expr := range []string{"", "0,", "1,-2", "x"} {
		_, err := structure.ParseBlock(expr)
		assert.ErrorIs(t, err, structure.ErrInvalidSlice, "expr %q", expr)
	}
}

// Parsed range expressions always cut cleanly: the result keeps every
// dimension, and its flat length matches its shape.
func TestCutRangeProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		ndims := rapid.IntRange(1, 3).Draw(rt, "ndims")
		total := 1
		shape := make([]int, ndims)
		for d := range shape {
			shape[d] = rapid.IntRange(1, 8).Draw(rt, fmt.Sprintf("dim%d", d))
			total *= shape[d]
		}
		values := make([]int32, total)
		for i := range values {
			values[i] = int32(i)
		}
		arr, err := structure.New(shape, values)
		require.NoError(t, err)

		components := make([]string, ndims)
		for d := range components {
			start := rapid.IntRange(0, 9).Draw(rt, fmt.Sprintf("start%d", d))
			stop := rapid.IntRange(0, 9).Draw(rt, fmt.Sprintf("stop%d", d))
			step := rapid.IntRange(1, 3).Draw(rt, fmt.Sprintf("step%d", d))
			components[d] = fmt.Sprintf("%d:%d:%d", start, stop, step)
		}
		expr := strings.Join(components, ",")

		slices, err := structure.ParseSlices(expr)
		require.NoError(t, err)
		cut, err := arr.Cut(slices)
		require.NoError(t, err)

		outShape := cut.Shape()
		require.Len(t, outShape, ndims)
		expected := 1
		for d, dim := range outShape {
			require.LessOrEqual(t, dim, shape[d], "dimension %d grew", d)
			expected *= dim
		}
		require.Equal(t, expected, cut.Size())
		require.Len(t, cut.Bytes(), expected*4)
	})
}
