package codec

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// UnsupportedMediaTypeError reports a failed negotiation: none of the
// requested media types has a registered encoder. Supported lists what the
// registry offered at negotiation time so clients can adapt.
type UnsupportedMediaTypeError struct {
	Requested []string
	Supported []string
}

func (e *UnsupportedMediaTypeError) Error() string {
	return fmt.Sprintf("none of the requested media types %v are supported; supported: %v",
		e.Requested, e.Supported)
}

// ParseAccept splits an Accept header into an ordered media type list.
// Quality parameters are dropped; the client's listing order is the
// preference order.
func ParseAccept(header string) []string {
	var out []string
	for _, part := range strings.Split(header, ",") {
		mediaType, _, _ := strings.Cut(part, ";")
		mediaType = strings.TrimSpace(mediaType)
		if mediaType != "" {
			out = append(out, mediaType)
		}
	}
	return out
}

// NegotiateStructured picks the media type for a structured response body:
// the first acceptable type that is JSON or msgpack wins, and "*/*" (or an
// absent header) selects JSON.
func NegotiateStructured(accept string) (string, error) {
	requested := ParseAccept(accept)
	if len(requested) == 0 {
		return MediaTypeJSON, nil
	}
	for _, mediaType := range requested {
		switch mediaType {
		case "*/*", MediaTypeJSON:
			return MediaTypeJSON, nil
		case MediaTypeMsgpack:
			return MediaTypeMsgpack, nil
		}
	}
	return "", &UnsupportedMediaTypeError{
		Requested: requested,
		Supported: []string{MediaTypeJSON, MediaTypeMsgpack},
	}
}

// EncodeStructured serializes a structured response body as the negotiated
// media type. The msgpack encoding reuses the json field names so both
// encodings present the same shape.
func EncodeStructured(mediaType string, value any) ([]byte, error) {
	switch mediaType {
	case MediaTypeJSON:
		return json.Marshal(value)
	case MediaTypeMsgpack:
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetCustomStructTag("json")
		if err := enc.Encode(value); err != nil {
			return nil, fmt.Errorf("encoding msgpack: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("no structured encoder for %s", mediaType)
	}
}

// Negotiate walks the client's acceptable media types in order and returns
// the first with an encoder registered for family, along with the resolved
// media type. "*/*" and an absent header select defaultType. Exhausting the
// list fails with UnsupportedMediaTypeError carrying the registry's current
// offerings for the family.
func (r *SerializationRegistry) Negotiate(family, accept, defaultType string) (string, EncoderFunc, error) {
	requested := ParseAccept(accept)
	candidates := requested
	if len(candidates) == 0 {
		candidates = []string{defaultType}
	}
	for _, mediaType := range candidates {
		if mediaType == "*/*" {
			mediaType = defaultType
		}
		fn, err := r.Lookup(family, mediaType)
		if err != nil {
			continue
		}
		return r.reg.Resolve(Key{Family: family, MediaType: mediaType}).MediaType, fn, nil
	}
	return "", nil, &UnsupportedMediaTypeError{
		Requested: requested,
		Supported: r.MediaTypes(family),
	}
}

// Fingerprint returns the content ETag for a payload: the hex sha256 of its
// normalized bytes.
func Fingerprint(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
