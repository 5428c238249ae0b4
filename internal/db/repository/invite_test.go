package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "kbhub/internal/db"
	"kbhub/internal/domain"
)

func setupInviteRepo(t *testing.T) (*InviteRepo, int64) {
	t.Helper()
	writeDB, _ := internaldb.OpenTestSQLite(t)
	users := NewUserRepo(writeDB)
	admin, err := users.Create(context.Background(), &domain.User{
		Email: "admin@example.com", Role: domain.RoleAdmin,
	})
	require.NoError(t, err)
	return NewInviteRepo(writeDB), admin.ID
}

func newTestInvite(inviterID int64) *domain.Invite {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Invite{
		ID:          uuid.NewString(),
		Email:       "invitee@example.com",
		Name:        "Invitee",
		Role:        domain.RoleUser,
		InviterID:   inviterID,
		Status:      domain.InvitePending,
		TokenHash:   uuid.NewString(),
		TokenPrefix: "abcd1234",
		CreatedAt:   now,
		ExpiresAt:   now.Add(168 * time.Hour),
		UpdatedAt:   now,
	}
}

func TestInviteRepo_CreateGetList(t *testing.T) {
	repo, adminID := setupInviteRepo(t)
	ctx := context.Background()

	inv := newTestInvite(adminID)
	require.NoError(t, repo.Create(ctx, inv))

	got, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.Email, got.Email)
	assert.Equal(t, domain.InvitePending, got.Status)
	assert.WithinDuration(t, inv.ExpiresAt, got.ExpiresAt, time.Second)

	got, err = repo.GetByTokenHash(ctx, inv.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)

	_, err = repo.GetByTokenHash(ctx, "nope")
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestInviteRepo_DuplicateTokenHash(t *testing.T) {
	repo, adminID := setupInviteRepo(t)
	ctx := context.Background()

	inv := newTestInvite(adminID)
	require.NoError(t, repo.Create(ctx, inv))

	dup := newTestInvite(adminID)
	dup.TokenHash = inv.TokenHash
	err := repo.Create(ctx, dup)
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestInviteRepo_AcceptPendingCAS(t *testing.T) {
	repo, adminID := setupInviteRepo(t)
	ctx := context.Background()

	inv := newTestInvite(adminID)
	require.NoError(t, repo.Create(ctx, inv))

	ok, err := repo.AcceptPending(ctx, inv.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)

	// Second transition loses the compare-and-set.
	ok, err = repo.AcceptPending(ctx, inv.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InviteAccepted, got.Status)
}

func TestInviteRepo_AcceptPendingConcurrent(t *testing.T) {
	repo, adminID := setupInviteRepo(t)
	ctx := context.Background()

	inv := newTestInvite(adminID)
	require.NoError(t, repo.Create(ctx, inv))

	const attempts = 8
	var wg sync.WaitGroup
	wins := make([]bool, attempts)
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			wins[idx], errs[idx] = repo.AcceptPending(ctx, inv.ID, time.Now().UTC())
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < attempts; i++ {
		require.NoError(t, errs[i])
		if wins[i] {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one accept must win")
}

func TestInviteRepo_RevokePending(t *testing.T) {
	repo, adminID := setupInviteRepo(t)
	ctx := context.Background()

	inv := newTestInvite(adminID)
	require.NoError(t, repo.Create(ctx, inv))

	ok, err := repo.RevokePending(ctx, inv.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)

	// Revoked invites cannot be accepted.
	ok, err = repo.AcceptPending(ctx, inv.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInviteRepo_DeleteTerminalBefore(t *testing.T) {
	repo, adminID := setupInviteRepo(t)
	ctx := context.Background()

	old := newTestInvite(adminID)
	require.NoError(t, repo.Create(ctx, old))
	_, err := repo.AcceptPending(ctx, old.ID, time.Now().UTC().Add(-48*time.Hour))
	require.NoError(t, err)

	fresh := newTestInvite(adminID)
	fresh.TokenHash = uuid.NewString()
	require.NoError(t, repo.Create(ctx, fresh))

	n, err := repo.DeleteTerminalBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, fresh.ID, list[0].ID)
}

func TestInviteRepo_SetEmailSent(t *testing.T) {
	repo, adminID := setupInviteRepo(t)
	ctx := context.Background()

	inv := newTestInvite(adminID)
	require.NoError(t, repo.Create(ctx, inv))
	require.NoError(t, repo.SetEmailSent(ctx, inv.ID, true))

	got, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailSent)
}
