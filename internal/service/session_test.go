package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbhub/internal/domain"
)

func TestSessionIssueAndVerify(t *testing.T) {
	issuer := NewSessionIssuer([]byte("secret"), time.Hour, nil)
	user := &domain.User{ID: 42, Email: "alice@example.com", Role: domain.RoleAdmin}

	session, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, int64(42), session.UserID)

	principal, err := issuer.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), principal.UserID)
	assert.Equal(t, "alice@example.com", principal.Email)
	assert.Equal(t, domain.RoleAdmin, principal.Role)
	assert.True(t, principal.IsAdmin())
}

func TestSessionVerify_WrongSecret(t *testing.T) {
	issuer := NewSessionIssuer([]byte("secret"), time.Hour, nil)
	other := NewSessionIssuer([]byte("different"), time.Hour, nil)

	session, err := issuer.Issue(&domain.User{ID: 1, Email: "a@b.c", Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = other.Verify(session.Token)
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)
}

func TestSessionVerify_Expired(t *testing.T) {
	past := func() time.Time { return time.Now().Add(-48 * time.Hour) }
	issuer := NewSessionIssuer([]byte("secret"), time.Hour, past)

	session, err := issuer.Issue(&domain.User{ID: 1, Email: "a@b.c", Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = issuer.Verify(session.Token)
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)
}

func TestSessionVerify_Garbage(t *testing.T) {
	issuer := NewSessionIssuer([]byte("secret"), time.Hour, nil)

	_, err := issuer.Verify("not-a-jwt")
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)
}
