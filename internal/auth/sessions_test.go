package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-data/canopy/internal/auth"
)

func TestSessionsRoundTrip(t *testing.T) {
	t.Parallel()

	sessions, err := auth.NewSessions("swordfish", time.Hour)
	require.NoError(t, err)

	token, err := sessions.Issue("alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	principal, err := sessions.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", principal)
}

func TestSessionsGeneratedSecret(t *testing.T) {
	t.Parallel()

	sessions, err := auth.NewSessions("", 0)
	require.NoError(t, err)
	assert.Equal(t, auth.DefaultMaxAge, sessions.MaxAge())

	token, err := sessions.Issue("alice")
	require.NoError(t, err)

	principal, err := sessions.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", principal)
}

func TestSessionsRejectsForeignToken(t *testing.T) {
	t.Parallel()

	issuer, err := auth.NewSessions("one", time.Hour)
	require.NoError(t, err)
	verifier, err := auth.NewSessions("two", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue("alice")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestSessionsRejectsGarbage(t *testing.T) {
	t.Parallel()

	sessions, err := auth.NewSessions("swordfish", time.Hour)
	require.NoError(t, err)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		_, err := sessions.Verify(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	}
}

func TestSessionsRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	sessions, err := auth.NewSessions("swordfish", time.Nanosecond)
	require.NoError(t, err)

	token, err := sessions.Issue("alice")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = sessions.Verify(token)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}
