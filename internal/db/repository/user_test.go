package repository

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	internaldb "kbhub/internal/db"
	"kbhub/internal/domain"
)

func setupUserRepo(t *testing.T) *UserRepo {
	t.Helper()
	writeDB, _ := internaldb.OpenTestSQLite(t)
	return NewUserRepo(writeDB)
}

func TestUserRepo_CRUD(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	u, err := repo.Create(ctx, &domain.User{
		Email: "alice@example.com",
		Name:  "Alice",
		Role:  domain.RoleUser,
	})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, domain.RoleUser, u.Role)

	found, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	found, err = repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	require.NoError(t, repo.UpdateRole(ctx, u.ID, domain.RoleAdmin))
	found, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, found.Role)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, repo.Delete(ctx, u.ID))
	_, err = repo.GetByID(ctx, u.ID)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestUserRepo_DuplicateEmail(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.User{Email: "dup@example.com", Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.User{Email: "dup@example.com", Role: domain.RoleUser})
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestUserRepo_CreateOrGet(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	// First call provisions.
	u, err := repo.CreateOrGet(ctx, "bob@example.com", "Bob", domain.RoleUser, "hash1")
	require.NoError(t, err)
	assert.Equal(t, "hash1", u.PasswordHash)

	// Second call reuses the account, takes the new role, keeps the hash.
	again, err := repo.CreateOrGet(ctx, "bob@example.com", "Robert", domain.RoleAdmin, "hash2")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, domain.RoleAdmin, again.Role)

	stored, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash1", stored.PasswordHash)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1, "no duplicate account")
}

func TestUserRepo_CreateOrGetConcurrent(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	// Racing provisioning calls for the same email must all land on one
	// account; the loser of the INSERT race picks up the winner's row
	// instead of surfacing the unique-constraint conflict.
	const workers = 8
	ids := make([]int64, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			u, err := repo.CreateOrGet(ctx, "carol@example.com", "Carol", domain.RoleUser, "hash")
			if err != nil {
				return err
			}
			ids[i] = u.ID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1, "no duplicate account")
}

func TestUserRepo_GetByIDs(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	a, err := repo.Create(ctx, &domain.User{Email: "a@example.com", Role: domain.RoleUser})
	require.NoError(t, err)
	b, err := repo.Create(ctx, &domain.User{Email: "b@example.com", Role: domain.RoleUser})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &domain.User{Email: "c@example.com", Role: domain.RoleUser})
	require.NoError(t, err)

	users, err := repo.GetByIDs(ctx, []int64{a.ID, b.ID})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	users, err = repo.GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}
