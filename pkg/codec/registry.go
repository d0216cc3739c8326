// Package codec turns structured payloads into wire bytes. It holds the
// serialization registry keyed by (structure family, media type), the
// built-in array and dataframe encoders, and the Accept-header negotiation
// that selects among them.
package codec

import (
	"fmt"

	"github.com/canopy-data/canopy/pkg/registry"
)

// Structure families with registered encoders.
const (
	FamilyArray     = "array"
	FamilyDataFrame = "dataframe"
)

// Media types with built-in encoders.
const (
	MediaTypeJSON        = "application/json"
	MediaTypeMsgpack     = "application/x-msgpack"
	MediaTypeOctetStream = "application/octet-stream"
	MediaTypeCSV         = "text/csv"
	MediaTypePlainText   = "text/plain"
	MediaTypeCBOR        = "application/cbor"
)

// Key identifies one encoder registration.
type Key struct {
	Family    string
	MediaType string
}

// EncoderFunc encodes one payload value into the bytes of its media type.
type EncoderFunc func(value any) ([]byte, error)

// SerializationRegistry maps (family, media type) pairs to encoders. File
// extensions may be registered as per-family aliases for media types, so
// clients can request "csv" instead of "text/csv".
type SerializationRegistry struct {
	reg *registry.Registry[Key, EncoderFunc]
}

// NewSerializationRegistry creates an empty registry.
func NewSerializationRegistry() *SerializationRegistry {
	return &SerializationRegistry{reg: registry.New[Key, EncoderFunc]()}
}

// DefaultRegistry creates a registry with the built-in encoders and
// extension aliases registered.
func DefaultRegistry() *SerializationRegistry {
	r := NewSerializationRegistry()

	r.Register(FamilyArray, MediaTypeOctetStream, encodeArrayOctet)
	r.Register(FamilyArray, MediaTypeJSON, encodeArrayJSON)
	r.Register(FamilyArray, MediaTypeCSV, encodeArrayCSV)
	r.Register(FamilyArray, MediaTypeCBOR, encodeArrayCBOR)

	r.Register(FamilyDataFrame, MediaTypeCSV, encodeFrameCSV)
	r.Register(FamilyDataFrame, MediaTypePlainText, encodeFrameCSV)
	r.Register(FamilyDataFrame, MediaTypeJSON, encodeFrameJSON)
	r.Register(FamilyDataFrame, MediaTypeCBOR, encodeFrameCBOR)

	for _, family := range []string{FamilyArray, FamilyDataFrame} {
		r.RegisterAlias(family, "csv", MediaTypeCSV)
		r.RegisterAlias(family, "json", MediaTypeJSON)
		r.RegisterAlias(family, "cbor", MediaTypeCBOR)
	}
	return r
}

// Register adds an encoder for family under mediaType, replacing any previous
// registration. Configuration-supplied encoders replace built-ins this way.
func (r *SerializationRegistry) Register(family, mediaType string, fn EncoderFunc) {
	r.reg.Put(Key{Family: family, MediaType: mediaType}, fn)
}

// RegisterAlias makes ext resolve to mediaType within family.
func (r *SerializationRegistry) RegisterAlias(family, ext, mediaType string) {
	r.reg.RegisterAlias(Key{Family: family, MediaType: ext}, Key{Family: family, MediaType: mediaType})
}

// Lookup returns the encoder for family and mediaType, resolving extension
// aliases.
func (r *SerializationRegistry) Lookup(family, mediaType string) (EncoderFunc, error) {
	return r.reg.Lookup(Key{Family: family, MediaType: mediaType})
}

// Encode serializes value with the encoder registered for family and
// mediaType.
func (r *SerializationRegistry) Encode(family, mediaType string, value any) ([]byte, error) {
	fn, err := r.Lookup(family, mediaType)
	if err != nil {
		return nil, fmt.Errorf("no %s encoder for %s: %w", family, mediaType, err)
	}
	return fn(value)
}

// MediaTypes returns the media types registered for family, in registration
// order. Aliases are not included.
func (r *SerializationRegistry) MediaTypes(family string) []string {
	keys := r.reg.Keys(func(k Key) bool { return k.Family == family })
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.MediaType
	}
	return out
}

// Aliases returns the extension aliases registered for family.
func (r *SerializationRegistry) Aliases(family string) map[string]string {
	out := make(map[string]string)
	for alias, canonical := range r.reg.Aliases() {
		if alias.Family == family {
			out[alias.MediaType] = canonical.MediaType
		}
	}
	return out
}
