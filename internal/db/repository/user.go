package repository

import (
	"context"
	"database/sql"
	"errors"

	"kbhub/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = "id, email, name, role, password_hash, created_at"

func scanUser(row interface{ Scan(...interface{}) error }) (*domain.User, error) {
	var u domain.User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = domain.ParseRole(role)
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (email, name, role, password_hash) VALUES (?, ?, ?, ?)",
		u.Email, u.Name, string(u.Role), u.PasswordHash,
	)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		return nil, mapDBError(err)
	}
	return u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ?", email))
	if err != nil {
		return nil, mapDBError(err)
	}
	return u, nil
}

func (r *UserRepo) GetByIDs(ctx context.Context, ids []int64) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id IN ("+placeholders(len(ids))+") ORDER BY id",
		int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (r *UserRepo) UpdateRole(ctx context.Context, id int64, role domain.Role) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET role = ? WHERE id = ?", string(role), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("user %d not found", id)
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	return err
}

// CreateOrGet provisions an account for email if none exists. An existing
// account keeps its password hash but takes the given role; a pre-set
// password hash is only written on first creation.
func (r *UserRepo) CreateOrGet(ctx context.Context, email, name string, role domain.Role, passwordHash string) (*domain.User, error) {
	existing, err := r.GetByEmail(ctx, email)
	if err == nil {
		if existing.Role != role {
			if err := r.UpdateRole(ctx, existing.ID, role); err != nil {
				return nil, err
			}
			existing.Role = role
		}
		return existing, nil
	}
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		return nil, err
	}
	created, err := r.Create(ctx, &domain.User{
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: passwordHash,
	})
	if err == nil {
		return created, nil
	}
	// Lost the race against a concurrent create for the same email; the
	// UNIQUE constraint means the winner's row is the account we want.
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		return nil, err
	}
	existing, getErr := r.GetByEmail(ctx, email)
	if getErr != nil {
		return nil, getErr
	}
	if existing.Role != role {
		if err := r.UpdateRole(ctx, existing.ID, role); err != nil {
			return nil, err
		}
		existing.Role = role
	}
	return existing, nil
}

func collectUsers(rows *sql.Rows) ([]domain.User, error) {
	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
