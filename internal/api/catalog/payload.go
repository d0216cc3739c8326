package catalog

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/canopy-data/canopy/internal/api/common"
	"github.com/canopy-data/canopy/pkg/codec"
	"github.com/canopy-data/canopy/pkg/structure"
)

// writePayload serves an array-like value: the content fingerprint becomes
// the ETag, a matching If-None-Match short-circuits to 304 before any
// encoding work, and otherwise the Accept header picks the encoder.
func (routes *Routes) writePayload(w http.ResponseWriter, r *http.Request, family, defaultType string, canonical []byte, value any) {
	etag := codec.Fingerprint(canonical)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	mediaType, encode, err := routes.serialization.Negotiate(family, r.Header.Get("Accept"), defaultType)
	if err != nil {
		common.WriteNegotiationError(w, err)
		return
	}
	encoded, err := encode(value)
	if err != nil {
		slog.Error("failed to encode payload", "error", err, "family", family, "media_type", mediaType)
		common.WriteError(w, http.StatusInternalServerError, "failed to encode payload")
		return
	}

	if routes.payloads != nil {
		routes.payloads.RecordPayload(family, mediaType, len(encoded))
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", mediaType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(encoded); err != nil {
		slog.Error("failed to write payload", "error", err)
	}
}

// frameBytes renders a frame into the stable byte form its fingerprint is
// computed over: column names, then rows in order.
func frameBytes(frame *structure.DataFrame) []byte {
	var buf bytes.Buffer
	buf.WriteString(strings.Join(frame.Columns(), ","))
	buf.WriteByte('\n')
	for _, row := range frame.Rows() {
		for i, value := range row {
			if i > 0 {
				buf.WriteByte(',')
			}
			fmt.Fprintf(&buf, "%v", value)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
