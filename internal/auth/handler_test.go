package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-data/canopy/internal/auth"
	pkgauth "github.com/canopy-data/canopy/pkg/auth"
)

func newTokenHandler(t *testing.T) (http.HandlerFunc, *auth.Sessions) {
	t.Helper()
	sessions := newSessions(t)
	authenticator := pkgauth.NewDictionaryAuthenticator(map[string]string{"alice": "secret"})
	return auth.NewTokenHandler(authenticator, sessions), sessions
}

func TestTokenHandlerIssuesTokenFromJSON(t *testing.T) {
	t.Parallel()

	handler, sessions := newTokenHandler(t)

	body := strings.NewReader(`{"username": "alice", "password": "secret"}`)
	req, err := http.NewRequest(http.MethodPost, "/api/token", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp auth.TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, int(sessions.MaxAge().Seconds()), resp.ExpiresIn)

	principal, err := sessions.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", principal)
}

func TestTokenHandlerIssuesTokenFromForm(t *testing.T) {
	t.Parallel()

	handler, sessions := newTokenHandler(t)

	form := url.Values{"username": {"alice"}, "password": {"secret"}}
	req, err := http.NewRequest(http.MethodPost, "/api/token", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp auth.TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	principal, err := sessions.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", principal)
}

func TestTokenHandlerRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	handler, _ := newTokenHandler(t)

	body := strings.NewReader(`{"username": "alice", "password": "wrong"}`)
	req, err := http.NewRequest(http.MethodPost, "/api/token", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "incorrect username or password")
}

func TestTokenHandlerRejectsMalformedPayload(t *testing.T) {
	t.Parallel()

	handler, _ := newTokenHandler(t)

	req, err := http.NewRequest(http.MethodPost, "/api/token", strings.NewReader("{"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTokenHandlerWithoutAuthenticator(t *testing.T) {
	t.Parallel()

	handler := auth.NewTokenHandler(nil, newSessions(t))

	req, err := http.NewRequest(http.MethodPost, "/api/token", strings.NewReader(`{}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "authentication is not configured")
}
