package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/canopy-data/canopy/pkg/auth"
)

// TokenRequest is the credential payload accepted by the token endpoint.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries a newly issued session token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// NewTokenHandler returns the handler that exchanges credentials for a
// session token. Credentials arrive as JSON or form-encoded
// username/password fields.
func NewTokenHandler(authenticator auth.Authenticator, sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if authenticator == nil {
			writeError(w, http.StatusNotFound, "authentication is not configured")
			return
		}
		username, password, err := readCredentials(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		principal, err := authenticator.Authenticate(r.Context(), username, password)
		if err != nil {
			slog.Warn("login failed",
				"username", username,
				"remote_addr", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "incorrect username or password")
			return
		}
		token, err := sessions.Issue(principal)
		if err != nil {
			slog.Error("failed to issue session token", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to issue token")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		resp := TokenResponse{
			AccessToken: token,
			TokenType:   "bearer",
			ExpiresIn:   int(sessions.MaxAge().Seconds()),
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("failed to encode token response", "error", err)
		}
	}
}

func readCredentials(r *http.Request) (string, string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req TokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", "", errors.New("malformed credentials payload")
		}
		return req.Username, req.Password, nil
	}
	if err := r.ParseForm(); err != nil {
		return "", "", errors.New("malformed form payload")
	}
	return r.PostFormValue("username"), r.PostFormValue("password"), nil
}
