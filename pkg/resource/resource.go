// Package resource projects entries into the wire shape of listing and
// metadata responses. A Resource carries only the attributes the request
// asked for, and only those that apply to the entry's capability.
package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/canopy-data/canopy/pkg/entry"
)

// ErrUnknownField is returned when a requested field name is not recognized
var ErrUnknownField = errors.New("unknown field")

// Field names an attribute a client can request.
type Field string

// The requestable fields. FieldNone is the sentinel for "identity only":
// when requested, resources carry no attributes and catalogs are listed by
// key without materializing entries.
const (
	FieldMetadata       Field = "metadata"
	FieldClientTypeHint Field = "client_type_hint"
	FieldContainer      Field = "container"
	FieldStructure      Field = "structure"
	FieldCount          Field = "count"
	FieldNone           Field = ""
)

// Fields is the set of requested attribute fields. An empty set is the
// identity-only sentinel.
type Fields map[Field]bool

// AllFields returns the full field set, the default when a request does not
// select fields.
func AllFields() Fields {
	return Fields{
		FieldMetadata:       true,
		FieldClientTypeHint: true,
		FieldContainer:      true,
		FieldStructure:      true,
		FieldCount:          true,
	}
}

// NoFields returns the identity-only sentinel set.
func NoFields() Fields {
	return Fields{}
}

// ParseFields interprets the fields parameters of a request. No values means
// all fields; an empty value anywhere selects the identity-only sentinel;
// anything unrecognized fails with ErrUnknownField.
func ParseFields(values []string) (Fields, error) {
	if len(values) == 0 {
		return AllFields(), nil
	}
	fields := Fields{}
	for _, value := range values {
		switch Field(value) {
		case FieldNone:
			return NoFields(), nil
		case FieldMetadata, FieldClientTypeHint, FieldContainer, FieldStructure, FieldCount:
			fields[Field(value)] = true
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, value)
		}
	}
	return fields, nil
}

// Has reports whether field was requested.
func (f Fields) Has(field Field) bool {
	return f[field]
}

// Empty reports whether this is the identity-only sentinel.
func (f Fields) Empty() bool {
	return len(f) == 0
}

// Attributes is the requested subset of an entry's attributes. Fields that
// were not requested, or do not apply to the entry's capability, are omitted.
type Attributes struct {
	Metadata       map[string]any `json:"metadata,omitempty"`
	ClientTypeHint string         `json:"client_type_hint,omitempty"`
	Count          *int           `json:"count,omitempty"`
	Container      string         `json:"container,omitempty"`
	Structure      any            `json:"structure,omitempty"`
}

// Resource is the wire projection of one entry.
type Resource struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Attributes Attributes `json:"attributes"`
}

// Build projects e, stored under key, into a Resource honoring the requested
// fields. Count applies only to catalogs; container and structure apply only
// to readers; requesting an inapplicable field is not an error, the field is
// simply omitted. A nil entry (from an identity-only listing) produces a bare
// resource of unknown type.
func Build(ctx context.Context, key string, e entry.Entry, fields Fields) (Resource, error) {
	kind := entry.Classify(e)
	res := Resource{ID: key, Type: kind.String()}
	if e == nil {
		return res, nil
	}

	if fields.Has(FieldClientTypeHint) {
		if hinter, ok := e.(entry.ClientTypeHinter); ok {
			res.Attributes.ClientTypeHint = hinter.ClientTypeHint()
		}
	}

	switch kind {
	case entry.KindCatalog:
		cat := e.(entry.Catalog)
		if fields.Has(FieldMetadata) {
			res.Attributes.Metadata = cat.Metadata()
		}
		if fields.Has(FieldCount) {
			count, err := cat.Len(ctx)
			if err != nil {
				return Resource{}, fmt.Errorf("counting %q: %w", key, err)
			}
			res.Attributes.Count = &count
		}
	case entry.KindReader:
		rdr := e.(entry.Reader)
		if fields.Has(FieldMetadata) {
			res.Attributes.Metadata = rdr.Metadata()
		}
		if fields.Has(FieldContainer) {
			res.Attributes.Container = rdr.Container()
		}
		if fields.Has(FieldStructure) {
			desc, err := rdr.Structure(ctx)
			if err != nil {
				return Resource{}, fmt.Errorf("describing %q: %w", key, err)
			}
			res.Attributes.Structure = desc
		}
	default:
		return Resource{}, fmt.Errorf("%w: %q is neither catalog nor reader", entry.ErrWrongCapability, key)
	}
	return res, nil
}
