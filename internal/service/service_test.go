package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-data/canopy/internal/service"
	"github.com/canopy-data/canopy/pkg/catalog/inmem"
	"github.com/canopy-data/canopy/pkg/entry"
	"github.com/canopy-data/canopy/pkg/query"
	"github.com/canopy-data/canopy/pkg/resource"
	"github.com/canopy-data/canopy/pkg/structure"
)

// newRoot builds a small tree with an array, a table, and a nested
// catalog holding a chunked array.
func newRoot(t *testing.T, opts ...inmem.Option) *inmem.Tree {
	t.Helper()

	ones, err := structure.New([]int{2, 2}, []float64{1, 1, 1, 1})
	require.NoError(t, err)
	counts, err := structure.NewChunked([]int{4}, []int{2}, []int64{1, 2, 3, 4})
	require.NoError(t, err)
	frame, err := structure.NewDataFrame([]string{"x", "y"}, [][]any{
		{1.0, 2.0},
		{3.0, 4.0},
	})
	require.NoError(t, err)

	nested, err := inmem.New([]entry.Item{
		{Key: "counts", Entry: inmem.NewArraySource(counts, map[string]any{"animal": "dog"})},
	})
	require.NoError(t, err)

	opts = append([]inmem.Option{
		inmem.WithMetadata(map[string]any{"description": "test tree"}),
	}, opts...)
	root, err := inmem.New([]entry.Item{
		{Key: "ones", Entry: inmem.NewArraySource(ones, map[string]any{"animal": "bird"})},
		{Key: "table", Entry: inmem.NewTableSource(frame, map[string]any{"animal": "cat"})},
		{Key: "nested", Entry: nested},
	}, opts...)
	require.NoError(t, err)
	return root
}

func TestCheckReadiness(t *testing.T) {
	t.Parallel()

	svc := service.NewTreeService(newRoot(t))
	require.NoError(t, svc.CheckReadiness(context.Background()))
}

func TestGetMetadata(t *testing.T) {
	t.Parallel()

	svc := service.NewTreeService(newRoot(t))
	ctx := context.Background()

	t.Run("root catalog", func(t *testing.T) {
		t.Parallel()

		res, err := svc.GetMetadata(ctx)
		require.NoError(t, err)
		assert.Empty(t, res.ID)
		assert.Equal(t, "catalog", res.Type)
		assert.Equal(t, "test tree", res.Attributes.Metadata["description"])
		require.NotNil(t, res.Attributes.Count)
		assert.Equal(t, 3, *res.Attributes.Count)
	})

	t.Run("nested reader", func(t *testing.T) {
		t.Parallel()

		res, err := svc.GetMetadata(ctx, service.WithPath[service.GetMetadataOptions]("nested/counts"))
		require.NoError(t, err)
		assert.Equal(t, "counts", res.ID)
		assert.Equal(t, "reader", res.Type)
		assert.Equal(t, "array", res.Attributes.Container)
		assert.NotNil(t, res.Attributes.Structure)
		assert.Nil(t, res.Attributes.Count)
	})

	t.Run("selected fields", func(t *testing.T) {
		t.Parallel()

		fields, err := resource.ParseFields([]string{"metadata"})
		require.NoError(t, err)
		res, err := svc.GetMetadata(ctx,
			service.WithPath[service.GetMetadataOptions]("ones"),
			service.WithFields[service.GetMetadataOptions](fields),
		)
		require.NoError(t, err)
		assert.Equal(t, "bird", res.Attributes.Metadata["animal"])
		assert.Nil(t, res.Attributes.Count)
		assert.Empty(t, res.Attributes.Container)
		assert.Nil(t, res.Attributes.Structure)
	})

	t.Run("missing entry", func(t *testing.T) {
		t.Parallel()

		_, err := svc.GetMetadata(ctx, service.WithPath[service.GetMetadataOptions]("nested/gone"))
		assert.ErrorIs(t, err, entry.ErrNoSuchEntry)
	})
}

func TestListEntries(t *testing.T) {
	t.Parallel()

	svc := service.NewTreeService(newRoot(t))
	ctx := context.Background()

	t.Run("full window", func(t *testing.T) {
		t.Parallel()

		listing, err := svc.ListEntries(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, listing.Count)
		require.Len(t, listing.Resources, 3)
		assert.Equal(t, "ones", listing.Resources[0].ID)
		assert.Equal(t, "reader", listing.Resources[0].Type)
		assert.Equal(t, "bird", listing.Resources[0].Attributes.Metadata["animal"])
		assert.Equal(t, "catalog", listing.Resources[2].Type)
	})

	t.Run("window keeps total count", func(t *testing.T) {
		t.Parallel()

		listing, err := svc.ListEntries(ctx, service.WithPage(1, 1))
		require.NoError(t, err)
		assert.Equal(t, 3, listing.Count)
		require.Len(t, listing.Resources, 1)
		assert.Equal(t, "table", listing.Resources[0].ID)
	})

	t.Run("keys only", func(t *testing.T) {
		t.Parallel()

		listing, err := svc.ListEntries(ctx,
			service.WithFields[service.ListEntriesOptions](resource.NoFields()),
		)
		require.NoError(t, err)
		require.Len(t, listing.Resources, 3)
		for _, res := range listing.Resources {
			assert.Equal(t, "unknown", res.Type)
			assert.Nil(t, res.Attributes.Metadata)
			assert.Nil(t, res.Attributes.Count)
		}
	})

	t.Run("query narrows listing", func(t *testing.T) {
		t.Parallel()

		listing, err := svc.ListEntries(ctx, service.WithQueries(query.KeyLookup{Key: "table"}))
		require.NoError(t, err)
		assert.Equal(t, 1, listing.Count)
		require.Len(t, listing.Resources, 1)
		assert.Equal(t, "table", listing.Resources[0].ID)
	})

	t.Run("reader is not listable", func(t *testing.T) {
		t.Parallel()

		_, err := svc.ListEntries(ctx, service.WithPath[service.ListEntriesOptions]("ones"))
		assert.ErrorIs(t, err, entry.ErrWrongCapability)
	})

	t.Run("missing catalog", func(t *testing.T) {
		t.Parallel()

		_, err := svc.ListEntries(ctx, service.WithPath[service.ListEntriesOptions]("gone"))
		assert.ErrorIs(t, err, entry.ErrNoSuchEntry)
	})
}

func TestPrincipalScoping(t *testing.T) {
	t.Parallel()

	policy := &inmem.SimpleAccessPolicy{AccessLists: map[string][]string{
		"alice": {"ones"},
	}}
	svc := service.NewTreeService(newRoot(t, inmem.WithAccessPolicy(policy)))
	ctx := context.Background()

	listing, err := svc.ListEntries(ctx, service.WithPrincipal[service.ListEntriesOptions]("alice"))
	require.NoError(t, err)
	assert.Equal(t, 1, listing.Count)
	require.Len(t, listing.Resources, 1)
	assert.Equal(t, "ones", listing.Resources[0].ID)

	_, err = svc.GetMetadata(ctx,
		service.WithPath[service.GetMetadataOptions]("table"),
		service.WithPrincipal[service.GetMetadataOptions]("alice"),
	)
	assert.ErrorIs(t, err, entry.ErrNoSuchEntry)

	// Without a principal the tree is served unfiltered.
	listing, err = svc.ListEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, listing.Count)
}

func TestReadArrayBlock(t *testing.T) {
	t.Parallel()

	svc := service.NewTreeService(newRoot(t))
	ctx := context.Background()

	t.Run("second chunk", func(t *testing.T) {
		t.Parallel()

		arr, err := svc.ReadArrayBlock(ctx,
			service.WithPath[service.ReadArrayOptions]("nested/counts"),
			service.WithBlock([]int{1}),
		)
		require.NoError(t, err)
		assert.Equal(t, []int{2}, arr.Shape())
		values, err := arr.Values()
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 4}, values)
	})

	t.Run("sliced chunk", func(t *testing.T) {
		t.Parallel()

		slices, err := structure.ParseSlices("0:1")
		require.NoError(t, err)
		arr, err := svc.ReadArrayBlock(ctx,
			service.WithPath[service.ReadArrayOptions]("nested/counts"),
			service.WithBlock([]int{0}),
			service.WithSlices(slices),
		)
		require.NoError(t, err)
		assert.Equal(t, []int{1}, arr.Shape())
		values, err := arr.Values()
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, values)
	})

	t.Run("coordinate out of range", func(t *testing.T) {
		t.Parallel()

		_, err := svc.ReadArrayBlock(ctx,
			service.WithPath[service.ReadArrayOptions]("nested/counts"),
			service.WithBlock([]int{5}),
		)
		assert.ErrorIs(t, err, structure.ErrBlockOutOfRange)
	})

	t.Run("tabular entry rejected", func(t *testing.T) {
		t.Parallel()

		_, err := svc.ReadArrayBlock(ctx,
			service.WithPath[service.ReadArrayOptions]("table"),
			service.WithBlock([]int{0}),
		)
		assert.ErrorIs(t, err, entry.ErrWrongCapability)
	})
}

func TestReadArrayFull(t *testing.T) {
	t.Parallel()

	svc := service.NewTreeService(newRoot(t))
	ctx := context.Background()

	t.Run("whole array", func(t *testing.T) {
		t.Parallel()

		arr, err := svc.ReadArrayFull(ctx, service.WithPath[service.ReadArrayOptions]("ones"))
		require.NoError(t, err)
		assert.Equal(t, []int{2, 2}, arr.Shape())
	})

	t.Run("sliced", func(t *testing.T) {
		t.Parallel()

		slices, err := structure.ParseSlices("0,:")
		require.NoError(t, err)
		arr, err := svc.ReadArrayFull(ctx,
			service.WithPath[service.ReadArrayOptions]("ones"),
			service.WithSlices(slices),
		)
		require.NoError(t, err)
		assert.Equal(t, []int{2}, arr.Shape())
	})

	t.Run("catalog rejected", func(t *testing.T) {
		t.Parallel()

		_, err := svc.ReadArrayFull(ctx, service.WithPath[service.ReadArrayOptions]("nested"))
		assert.ErrorIs(t, err, entry.ErrWrongCapability)
	})
}

func TestReadTable(t *testing.T) {
	t.Parallel()

	svc := service.NewTreeService(newRoot(t))
	ctx := context.Background()

	t.Run("whole frame", func(t *testing.T) {
		t.Parallel()

		frame, err := svc.ReadTable(ctx, service.WithPath[service.ReadTableOptions]("table"))
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, frame.Columns())
		assert.Equal(t, 2, frame.Len())
	})

	t.Run("array entry rejected", func(t *testing.T) {
		t.Parallel()

		_, err := svc.ReadTable(ctx, service.WithPath[service.ReadTableOptions]("ones"))
		assert.ErrorIs(t, err, entry.ErrWrongCapability)
	})
}
