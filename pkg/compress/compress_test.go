package compress_test

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-data/canopy/pkg/compress"
)

func TestSelectEncoding(t *testing.T) {
	t.Parallel()

	offered := []string{"zstd", "gzip"}

	tests := []struct {
		name           string
		acceptEncoding string
		offered        []string
		want           string
	}{
		{
			name:           "empty header disables compression",
			acceptEncoding: "",
			offered:        offered,
			want:           "",
		},
		{
			name:           "single coding",
			acceptEncoding: "gzip",
			offered:        offered,
			want:           "gzip",
		},
		{
			name:           "higher quality wins",
			acceptEncoding: "zstd;q=0.5, gzip;q=0.9",
			offered:        offered,
			want:           "gzip",
		},
		{
			name:           "equal quality falls back to offer order",
			acceptEncoding: "gzip, zstd",
			offered:        offered,
			want:           "zstd",
		},
		{
			name:           "wildcard covers unlisted codings",
			acceptEncoding: "*",
			offered:        offered,
			want:           "zstd",
		},
		{
			name:           "wildcard quality ranks below explicit listing",
			acceptEncoding: "gzip;q=0.5, *;q=0.1",
			offered:        offered,
			want:           "gzip",
		},
		{
			name:           "zero quality refuses a coding",
			acceptEncoding: "gzip;q=0",
			offered:        []string{"gzip"},
			want:           "",
		},
		{
			name:           "zero quality wildcard refuses everything",
			acceptEncoding: "*;q=0",
			offered:        offered,
			want:           "",
		},
		{
			name:           "unknown codings are ignored",
			acceptEncoding: "br, deflate",
			offered:        offered,
			want:           "",
		},
		{
			name:           "coding names are case insensitive",
			acceptEncoding: "GZip",
			offered:        offered,
			want:           "gzip",
		},
		{
			name:           "whitespace around tokens",
			acceptEncoding: " zstd ; q=0.25 , gzip ; q=0.75 ",
			offered:        offered,
			want:           "gzip",
		},
		{
			name:           "nothing offered",
			acceptEncoding: "gzip",
			offered:        nil,
			want:           "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, compress.SelectEncoding(tt.acceptEncoding, tt.offered))
		})
	}
}

func TestDefaultRegistryOffersZstdThenGzip(t *testing.T) {
	t.Parallel()

	reg := compress.DefaultRegistry()

	assert.Equal(t, []string{"zstd", "gzip"}, reg.Encodings("application/json"))
	assert.Equal(t, []string{"zstd", "gzip"}, reg.Encodings("text/csv"))
}

func TestRegistryMediaTypeScoping(t *testing.T) {
	t.Parallel()

	reg := compress.NewRegistry()
	reg.Register("text/csv", compress.EncodingGzip, compress.NewGzipWriter)

	assert.Equal(t, []string{"gzip"}, reg.Encodings("text/csv"))
	assert.Empty(t, reg.Encodings("application/json"))

	reg.Register(compress.MediaTypeAny, compress.EncodingZstd, compress.NewZstdWriter)

	assert.Equal(t, []string{"gzip", "zstd"}, reg.Encodings("text/csv"))
	assert.Equal(t, []string{"zstd"}, reg.Encodings("application/json"))
}

func TestRegistryNormalizesMediaTypes(t *testing.T) {
	t.Parallel()

	reg := compress.NewRegistry()
	reg.Register("text/csv", compress.EncodingGzip, compress.NewGzipWriter)

	assert.Equal(t, []string{"gzip"}, reg.Encodings("Text/CSV; charset=utf-8"))

	_, err := reg.Factory("text/csv; header=present", compress.EncodingGzip)
	require.NoError(t, err)
}

func TestRegistryFactoryUnknownCoding(t *testing.T) {
	t.Parallel()

	reg := compress.DefaultRegistry()

	_, err := reg.Factory("application/json", "br")
	assert.Error(t, err)
}

func TestWritersProduceDecodableStreams(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("chunked array data "), 64)

	t.Run("gzip", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		cw, err := compress.NewGzipWriter(&buf)
		require.NoError(t, err)
		_, err = cw.Write(payload)
		require.NoError(t, err)
		require.NoError(t, cw.Close())

		gr, err := gzip.NewReader(&buf)
		require.NoError(t, err)
		decoded, err := io.ReadAll(gr)
		require.NoError(t, err)
		assert.Equal(t, payload, decoded)
	})

	t.Run("zstd", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		cw, err := compress.NewZstdWriter(&buf)
		require.NoError(t, err)
		_, err = cw.Write(payload)
		require.NoError(t, err)
		require.NoError(t, cw.Close())

		zr, err := zstd.NewReader(&buf)
		require.NoError(t, err)
		defer zr.Close()
		decoded, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, payload, decoded)
	})
}
