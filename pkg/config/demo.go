package config

import (
	"github.com/canopy-data/canopy/pkg/catalog/inmem"
	"github.com/canopy-data/canopy/pkg/entry"
	"github.com/canopy-data/canopy/pkg/structure"
)

// demoTree builds a small generated catalog for trying the server without
// any data files on disk. Args are ignored.
func demoTree(map[string]any) (entry.Entry, error) {
	ones := make([]float64, 100)
	for i := range ones {
		ones[i] = 1
	}
	big, err := structure.New([]int{10, 10}, ones)
	if err != nil {
		return nil, err
	}
	counts, err := structure.New([]int{3}, []int64{1, 2, 3})
	if err != nil {
		return nil, err
	}
	frame, err := structure.NewDataFrame(
		[]string{"x", "y"},
		[][]any{
			{1.0, 2.0},
			{2.0, 4.0},
			{3.0, 6.0},
		},
	)
	if err != nil {
		return nil, err
	}
	nested, err := inmem.New([]entry.Item{
		{Key: "counts", Entry: inmem.NewArraySource(counts, map[string]any{"animal": "dog", "color": "red"})},
	})
	if err != nil {
		return nil, err
	}
	return inmem.New([]entry.Item{
		{Key: "ones", Entry: inmem.NewArraySource(big, map[string]any{"animal": "bird", "color": "blue"})},
		{Key: "table", Entry: inmem.NewTableSource(frame, map[string]any{"animal": "cat", "color": "green"})},
		{Key: "nested", Entry: nested},
	}, inmem.WithMetadata(map[string]any{"description": "generated demo catalog"}))
}
