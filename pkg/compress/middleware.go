package compress

import (
	"bytes"
	"net/http"
	"strconv"
)

// DefaultMinimumSize is the smallest response body, in bytes, that the
// middleware will compress. Tiny bodies cost more to compress than to send.
const DefaultMinimumSize = 500

// Middleware compresses response bodies using a coding negotiated between
// the request's Accept-Encoding header and the registry's offerings for the
// response Content-Type. Responses smaller than minimumSize, responses that
// already carry a Content-Encoding, and responses whose media type has no
// acceptable coding pass through unchanged.
func Middleware(reg *Registry, minimumSize int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bw := &bufferedWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(bw, r)
			finish(bw, reg, minimumSize, r.Header.Get("Accept-Encoding"))
		})
	}
}

// bufferedWriter captures the response body so the minimum-size guard and
// the compressed Content-Length can be computed before anything is sent.
type bufferedWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (b *bufferedWriter) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.wroteHeader = true
	b.status = code
}

func (b *bufferedWriter) Write(data []byte) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	return b.body.Write(data)
}

func finish(b *bufferedWriter, reg *Registry, minimumSize int, acceptEncoding string) {
	body := b.body.Bytes()
	header := b.ResponseWriter.Header()

	encoding := ""
	if len(body) >= minimumSize && header.Get("Content-Encoding") == "" {
		encoding = SelectEncoding(acceptEncoding, reg.Encodings(header.Get("Content-Type")))
	}
	if encoding != "" {
		if compressed, ok := compressBody(reg, header.Get("Content-Type"), encoding, body); ok {
			header.Set("Content-Encoding", encoding)
			header.Set("Content-Length", strconv.Itoa(len(compressed)))
			header.Add("Vary", "Accept-Encoding")
			body = compressed
		}
	}

	b.ResponseWriter.WriteHeader(b.status)
	_, _ = b.ResponseWriter.Write(body)
}

func compressBody(reg *Registry, mediaType, encoding string, body []byte) ([]byte, bool) {
	factory, err := reg.Factory(mediaType, encoding)
	if err != nil {
		return nil, false
	}
	var buf bytes.Buffer
	cw, err := factory(&buf)
	if err != nil {
		return nil, false
	}
	if _, err := cw.Write(body); err != nil {
		return nil, false
	}
	if err := cw.Close(); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}
