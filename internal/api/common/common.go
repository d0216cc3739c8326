// Package common provides the shared response writers for API handlers:
// content-negotiated structured bodies and the error envelope.
package common

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/canopy-data/canopy/pkg/codec"
	"github.com/canopy-data/canopy/pkg/paginate"
)

// Error is the wire form of a request failure.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is the envelope for structured endpoints. Exactly one of Data
// and Error is set.
type Response struct {
	Data  any             `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
	Meta  map[string]any  `json:"meta,omitempty"`
	Links *paginate.Links `json:"links,omitempty"`
}

// WriteStructured encodes body as the media type negotiated from the
// request's Accept header, JSON or msgpack. A failed negotiation is
// answered for the client directly with a 406.
func WriteStructured(w http.ResponseWriter, r *http.Request, statusCode int, body any) {
	mediaType, err := codec.NegotiateStructured(r.Header.Get("Accept"))
	if err != nil {
		WriteNegotiationError(w, err)
		return
	}
	encoded, err := codec.EncodeStructured(mediaType, body)
	if err != nil {
		slog.Error("failed to encode structured response", "error", err, "media_type", mediaType)
		WriteError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", mediaType)
	w.WriteHeader(statusCode)
	if _, err := w.Write(encoded); err != nil {
		slog.Error("failed to write structured response", "error", err)
	}
}

// WriteError writes the error envelope as JSON with the given status.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	body := Response{Error: &Error{Code: statusCode, Message: message}}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// WriteNegotiationError answers a failed content negotiation with a 406
// listing what the client asked for and what the server offers.
func WriteNegotiationError(w http.ResponseWriter, err error) {
	var unsupported *codec.UnsupportedMediaTypeError
	if !errors.As(err, &unsupported) {
		WriteError(w, http.StatusNotAcceptable, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotAcceptable)
	body := struct {
		Error     *Error   `json:"error"`
		Requested []string `json:"requested"`
		Supported []string `json:"supported"`
	}{
		Error:     &Error{Code: http.StatusNotAcceptable, Message: unsupported.Error()},
		Requested: unsupported.Requested,
		Supported: unsupported.Supported,
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode negotiation error response", "error", err)
	}
}
