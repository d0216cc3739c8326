// Package compress negotiates and applies response body compression.
//
// Codings are registered per media type, with "*" standing for any media
// type, so payload formats that are already dense (compressed image stacks,
// for example) can be excluded while JSON and CSV responses stay eligible.
package compress

import (
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/canopy-data/canopy/pkg/registry"
)

// MediaTypeAny registers a coding for every media type.
const MediaTypeAny = "*"

// Supported content codings.
const (
	EncodingZstd = "zstd"
	EncodingGzip = "gzip"
)

// WriterFactory wraps w so that writes are compressed into it. The returned
// writer must be closed to flush the final frame.
type WriterFactory func(w io.Writer) (io.WriteCloser, error)

type key struct {
	mediaType string
	encoding  string
}

// Registry maps (media type, content coding) pairs to writer factories.
// Registration order fixes the server's preference among codings of equal
// client quality.
type Registry struct {
	reg *registry.Registry[key, WriterFactory]
}

// NewRegistry creates an empty compression registry.
func NewRegistry() *Registry {
	return &Registry{reg: registry.New[key, WriterFactory]()}
}

// DefaultRegistry returns a registry offering zstd and gzip for every media
// type, preferring zstd.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(MediaTypeAny, EncodingZstd, NewZstdWriter)
	r.Register(MediaTypeAny, EncodingGzip, NewGzipWriter)
	return r
}

// Register offers a content coding for a media type. Registering the same
// pair again replaces the factory.
func (r *Registry) Register(mediaType, encoding string, factory WriterFactory) {
	r.reg.Put(key{normalizeMediaType(mediaType), encoding}, factory)
}

// Encodings returns the codings offered for a media type in registration
// order. Codings registered for the specific media type come before those
// registered for MediaTypeAny.
func (r *Registry) Encodings(mediaType string) []string {
	mediaType = normalizeMediaType(mediaType)
	seen := make(map[string]bool)
	var encodings []string
	for _, mt := range []string{mediaType, MediaTypeAny} {
		for _, k := range r.reg.Keys(func(k key) bool { return k.mediaType == mt }) {
			if !seen[k.encoding] {
				seen[k.encoding] = true
				encodings = append(encodings, k.encoding)
			}
		}
	}
	return encodings
}

// Factory returns the writer factory for a media type and coding, consulting
// the media-type-specific registration before the MediaTypeAny one.
func (r *Registry) Factory(mediaType, encoding string) (WriterFactory, error) {
	factory, err := r.reg.Lookup(key{normalizeMediaType(mediaType), encoding})
	if err == nil {
		return factory, nil
	}
	return r.reg.Lookup(key{MediaTypeAny, encoding})
}

// SelectEncoding chooses a content coding for a response given the request's
// Accept-Encoding header and the codings offered for the response media
// type. The offered coding with the highest client quality wins; ties go to
// the earlier offering. An empty header or no acceptable coding selects the
// empty string, meaning the response is sent uncompressed.
func SelectEncoding(acceptEncoding string, offered []string) string {
	if acceptEncoding == "" || len(offered) == 0 {
		return ""
	}

	// Parse "gzip, zstd;q=0.9, *;q=0.8" into per-coding qualities.
	qualities := make(map[string]float64)
	wildcard := -1.0
	for _, part := range strings.Split(acceptEncoding, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		quality := 1.0
		params = strings.TrimSpace(params)
		if strings.HasPrefix(params, "q=") {
			var q float64
			if _, err := fmt.Sscanf(params, "q=%f", &q); err == nil {
				quality = q
			}
		}
		if name == "*" {
			wildcard = quality
		} else {
			qualities[name] = quality
		}
	}

	best := ""
	bestQuality := 0.0
	for _, encoding := range offered {
		quality, listed := qualities[encoding]
		if !listed {
			if wildcard < 0 {
				continue
			}
			quality = wildcard
		}
		if quality > bestQuality {
			best = encoding
			bestQuality = quality
		}
	}
	return best
}

// NewZstdWriter compresses into w at the fastest zstd level. Response
// compression trades ratio for latency.
func NewZstdWriter(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
}

// NewGzipWriter compresses into w at the default gzip level.
func NewGzipWriter(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

// normalizeMediaType strips parameters such as "; charset=utf-8" and
// lowercases, so Content-Type values match registration keys.
func normalizeMediaType(mediaType string) string {
	mediaType, _, _ = strings.Cut(mediaType, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}
