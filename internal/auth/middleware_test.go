package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-data/canopy/internal/auth"
	"github.com/canopy-data/canopy/pkg/catalog/inmem"
)

func newSessions(t *testing.T) *auth.Sessions {
	t.Helper()
	sessions, err := auth.NewSessions("swordfish", time.Hour)
	require.NoError(t, err)
	return sessions
}

// principalRecorder responds 200 and remembers the principal on the request
// context.
func principalRecorder(principal *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*principal = auth.PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestExtractToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		prepare  func(r *http.Request)
		expected string
	}{
		{
			name:     "no token",
			prepare:  func(*http.Request) {},
			expected: "",
		},
		{
			name: "query parameter",
			prepare: func(r *http.Request) {
				q := r.URL.Query()
				q.Set("access_token", "tok-query")
				r.URL.RawQuery = q.Encode()
			},
			expected: "tok-query",
		},
		{
			name: "header",
			prepare: func(r *http.Request) {
				r.Header.Set("X-Access-Token", "tok-header")
			},
			expected: "tok-header",
		},
		{
			name: "bearer",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer tok-bearer")
			},
			expected: "tok-bearer",
		},
		{
			name: "query wins over header",
			prepare: func(r *http.Request) {
				q := r.URL.Query()
				q.Set("access_token", "tok-query")
				r.URL.RawQuery = q.Encode()
				r.Header.Set("X-Access-Token", "tok-header")
			},
			expected: "tok-query",
		},
		{
			name: "non-bearer authorization ignored",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
			},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req, err := http.NewRequest(http.MethodGet, "/api/entries/", nil)
			require.NoError(t, err)
			tt.prepare(req)

			assert.Equal(t, tt.expected, auth.ExtractToken(req))
		})
	}
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	t.Parallel()

	sessions := newSessions(t)
	token, err := sessions.Issue("alice")
	require.NoError(t, err)

	var principal string
	handler := auth.NewMiddleware(sessions, false).Handler(principalRecorder(&principal))

	req, err := http.NewRequest(http.MethodGet, "/api/entries/", nil)
	require.NoError(t, err)
	req.Header.Set("X-Access-Token", token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "alice", principal)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	t.Parallel()

	var principal string
	handler := auth.NewMiddleware(newSessions(t), false).Handler(principalRecorder(&principal))

	req, err := http.NewRequest(http.MethodGet, "/api/entries/", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "could not validate credentials")
	assert.Empty(t, principal)
}

func TestMiddlewareAllowsAnonymous(t *testing.T) {
	t.Parallel()

	var principal string
	handler := auth.NewMiddleware(newSessions(t), true).Handler(principalRecorder(&principal))

	req, err := http.NewRequest(http.MethodGet, "/api/entries/", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, inmem.PrincipalPublic, principal)
}

func TestMiddlewareRejectsInvalidToken(t *testing.T) {
	t.Parallel()

	// Anonymous access does not excuse a bad token.
	var principal string
	handler := auth.NewMiddleware(newSessions(t), true).Handler(principalRecorder(&principal))

	req, err := http.NewRequest(http.MethodGet, "/api/entries/", nil)
	require.NoError(t, err)
	req.Header.Set("X-Access-Token", "forged")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, principal)
}

func TestPrincipalFromDefaultsToPublic(t *testing.T) {
	t.Parallel()

	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)
	assert.Equal(t, inmem.PrincipalPublic, auth.PrincipalFrom(req.Context()))
}
