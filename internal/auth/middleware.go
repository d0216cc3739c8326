package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/canopy-data/canopy/pkg/catalog/inmem"
)

// Middleware authenticates API requests. Requests without a token proceed
// as the public principal when anonymous access is allowed; otherwise they
// are rejected before reaching any handler.
type Middleware struct {
	sessions       *Sessions
	allowAnonymous bool
}

// NewMiddleware builds the request authenticator.
func NewMiddleware(sessions *Sessions, allowAnonymous bool) *Middleware {
	return &Middleware{sessions: sessions, allowAnonymous: allowAnonymous}
}

// Handler wraps next with token verification.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractToken(r)
		if token == "" {
			if m.allowAnonymous {
				next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), inmem.PrincipalPublic)))
				return
			}
			writeError(w, http.StatusForbidden, "could not validate credentials")
			return
		}
		principal, err := m.sessions.Verify(token)
		if err != nil {
			slog.Warn("rejecting invalid session token",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path)
			writeError(w, http.StatusForbidden, "could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// ExtractToken pulls the session token from its accepted carriers: the
// access_token query parameter, then the X-Access-Token header, then an
// Authorization bearer header.
func ExtractToken(r *http.Request) string {
	if token := r.URL.Query().Get("access_token"); token != "" {
		return token
	}
	if token := r.Header.Get("X-Access-Token"); token != "" {
		return token
	}
	if value := r.Header.Get("Authorization"); value != "" {
		if token, ok := strings.CutPrefix(value, "Bearer "); ok {
			return token
		}
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := struct {
		Error string `json:"error"`
	}{
		Error: description,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode auth error response", "error", err)
	}
}
