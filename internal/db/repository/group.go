package repository

import (
	"context"
	"database/sql"

	"kbhub/internal/domain"
)

type GroupRepo struct {
	db *sql.DB
}

func NewGroupRepo(db *sql.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

func (r *GroupRepo) Create(ctx context.Context, g *domain.Group) (*domain.Group, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO groups (name, description) VALUES (?, ?)",
		g.Name, sql.NullString{String: g.Description, Valid: g.Description != ""},
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

func (r *GroupRepo) GetByID(ctx context.Context, id int64) (*domain.Group, error) {
	var g domain.Group
	var desc sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, description, created_at FROM groups WHERE id = ?", id,
	).Scan(&g.ID, &g.Name, &desc, &g.CreatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	g.Description = desc.String
	return &g, nil
}

func (r *GroupRepo) List(ctx context.Context) ([]domain.Group, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, description, created_at FROM groups ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGroups(rows)
}

func (r *GroupRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", id)
	return err
}

func (r *GroupRepo) AddMember(ctx context.Context, m *domain.GroupMember) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO group_members (group_id, user_id) VALUES (?, ?)",
		m.GroupID, m.UserID)
	return mapDBError(err)
}

func (r *GroupRepo) RemoveMember(ctx context.Context, m *domain.GroupMember) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM group_members WHERE group_id = ? AND user_id = ?",
		m.GroupID, m.UserID)
	return err
}

func (r *GroupRepo) ListMembers(ctx context.Context, groupID int64) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.email, u.name, u.role, u.password_hash, u.created_at
		 FROM users u
		 JOIN group_members gm ON gm.user_id = u.id
		 WHERE gm.group_id = ?
		 ORDER BY u.id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (r *GroupRepo) GroupsForUser(ctx context.Context, userID int64) ([]domain.Group, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT g.id, g.name, g.description, g.created_at
		 FROM groups g
		 JOIN group_members gm ON gm.group_id = g.id
		 WHERE gm.user_id = ?
		 ORDER BY g.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGroups(rows)
}

func collectGroups(rows *sql.Rows) ([]domain.Group, error) {
	var groups []domain.Group
	for rows.Next() {
		var g domain.Group
		var desc sql.NullString
		if err := rows.Scan(&g.ID, &g.Name, &desc, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.Description = desc.String
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
