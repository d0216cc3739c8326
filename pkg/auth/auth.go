// Package auth defines how clients prove their identity to the catalog
// server. An Authenticator checks a credential pair and maps it to a
// principal name; the transport layer exchanges that principal for a
// session token. Authenticators are constructed from configuration through
// Factory functions registered with the config compiler.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
)

// ErrInvalidCredentials indicates the presented username or password was
// not accepted.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator verifies a credential pair and returns the canonical
// principal name for the authenticated user.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (string, error)
}

// Factory constructs an authenticator from configuration arguments.
type Factory func(args map[string]any) (Authenticator, error)

// KindDictionary names the built-in authenticator backed by a fixed
// user-to-password map.
const KindDictionary = "dictionary"

// DictionaryAuthenticator checks credentials against an in-memory map of
// users to passwords. Intended for demos and small single-node
// deployments, not long-lived production secrets.
type DictionaryAuthenticator struct {
	users map[string]string
}

// NewDictionaryAuthenticator builds an authenticator over the given
// user-to-password map.
func NewDictionaryAuthenticator(users map[string]string) *DictionaryAuthenticator {
	copied := make(map[string]string, len(users))
	for name, password := range users {
		copied[name] = password
	}
	return &DictionaryAuthenticator{users: copied}
}

// Authenticate returns the username as the principal when the password
// matches, and ErrInvalidCredentials otherwise.
func (a *DictionaryAuthenticator) Authenticate(_ context.Context, username, password string) (string, error) {
	expected, ok := a.users[username]
	if !ok || subtle.ConstantTimeCompare([]byte(expected), []byte(password)) != 1 {
		return "", ErrInvalidCredentials
	}
	return username, nil
}

// NewDictionary is the Factory for KindDictionary. It expects a "users"
// argument mapping usernames to passwords.
func NewDictionary(args map[string]any) (Authenticator, error) {
	raw, ok := args["users"].(map[string]any)
	if !ok {
		return nil, errors.New("dictionary authenticator requires a users mapping")
	}
	users := make(map[string]string, len(raw))
	for name, password := range raw {
		p, ok := password.(string)
		if !ok {
			return nil, fmt.Errorf("password for user %q is not a string", name)
		}
		users[name] = p
	}
	return NewDictionaryAuthenticator(users), nil
}
