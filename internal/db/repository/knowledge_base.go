package repository

import (
	"context"
	"database/sql"

	"kbhub/internal/domain"
)

type KnowledgeBaseRepo struct {
	db *sql.DB
}

func NewKnowledgeBaseRepo(db *sql.DB) *KnowledgeBaseRepo {
	return &KnowledgeBaseRepo{db: db}
}

func (r *KnowledgeBaseRepo) Create(ctx context.Context, kb *domain.KnowledgeBase) (*domain.KnowledgeBase, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO knowledge_bases (name, description, is_public) VALUES (?, ?, ?)",
		kb.Name, sql.NullString{String: kb.Description, Valid: kb.Description != ""}, boolToInt(kb.IsPublic),
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

func (r *KnowledgeBaseRepo) GetByID(ctx context.Context, id int64) (*domain.KnowledgeBase, error) {
	var kb domain.KnowledgeBase
	var desc sql.NullString
	var isPublic int64
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, description, is_public, created_at FROM knowledge_bases WHERE id = ?", id,
	).Scan(&kb.ID, &kb.Name, &desc, &isPublic, &kb.CreatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	kb.Description = desc.String
	kb.IsPublic = isPublic != 0
	return &kb, nil
}

func (r *KnowledgeBaseRepo) List(ctx context.Context) ([]domain.KnowledgeBase, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, description, is_public, created_at FROM knowledge_bases ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectKnowledgeBases(rows)
}

func (r *KnowledgeBaseRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM knowledge_bases WHERE id = ?", id)
	return err
}

const bindingColumns = "id, knowledge_base_id, source_type, external_id, name, url, access_controlled, grant_url"

func (r *KnowledgeBaseRepo) AddBinding(ctx context.Context, b *domain.SourceBinding) (*domain.SourceBinding, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO source_bindings
		 (knowledge_base_id, source_type, external_id, name, url, access_controlled, grant_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.KnowledgeBaseID, b.SourceType, b.ExternalID, b.Name, b.URL,
		boolToInt(b.AccessControlled), b.GrantURL,
	)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.getBinding(ctx, id)
}

func (r *KnowledgeBaseRepo) getBinding(ctx context.Context, id int64) (*domain.SourceBinding, error) {
	b, err := scanBinding(r.db.QueryRowContext(ctx,
		"SELECT "+bindingColumns+" FROM source_bindings WHERE id = ?", id))
	if err != nil {
		return nil, mapDBError(err)
	}
	return b, nil
}

func (r *KnowledgeBaseRepo) ListBindings(ctx context.Context, kbID int64) ([]domain.SourceBinding, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+bindingColumns+" FROM source_bindings WHERE knowledge_base_id = ? ORDER BY id", kbID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBindings(rows)
}

func (r *KnowledgeBaseRepo) GetBindingsByIDs(ctx context.Context, ids []int64) ([]domain.SourceBinding, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+bindingColumns+" FROM source_bindings WHERE id IN ("+placeholders(len(ids))+") ORDER BY id",
		int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBindings(rows)
}

func (r *KnowledgeBaseRepo) CreateFile(ctx context.Context, f *domain.File) (*domain.File, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO files (name, source_binding_id) VALUES (?, ?)",
		f.Name, f.SourceBindingID)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	var out domain.File
	err = r.db.QueryRowContext(ctx,
		"SELECT id, name, source_binding_id, created_at FROM files WHERE id = ?", id,
	).Scan(&out.ID, &out.Name, &out.SourceBindingID, &out.CreatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &out, nil
}

func (r *KnowledgeBaseRepo) GetFilesByIDs(ctx context.Context, ids []int64) ([]domain.File, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, source_binding_id, created_at FROM files WHERE id IN ("+placeholders(len(ids))+") ORDER BY id",
		int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var files []domain.File
	for rows.Next() {
		var f domain.File
		if err := rows.Scan(&f.ID, &f.Name, &f.SourceBindingID, &f.CreatedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (r *KnowledgeBaseRepo) GrantUser(ctx context.Context, kbID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO kb_user_grants (knowledge_base_id, user_id) VALUES (?, ?)",
		kbID, userID)
	return err
}

func (r *KnowledgeBaseRepo) RevokeUser(ctx context.Context, kbID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM kb_user_grants WHERE knowledge_base_id = ? AND user_id = ?",
		kbID, userID)
	return err
}

func (r *KnowledgeBaseRepo) ListGrantedUsers(ctx context.Context, kbID int64) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.email, u.name, u.role, u.password_hash, u.created_at
		 FROM users u
		 JOIN kb_user_grants g ON g.user_id = u.id
		 WHERE g.knowledge_base_id = ?
		 ORDER BY u.id`, kbID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (r *KnowledgeBaseRepo) GrantGroup(ctx context.Context, kbID, groupID int64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO kb_group_grants (knowledge_base_id, group_id) VALUES (?, ?)",
		kbID, groupID)
	return err
}

func (r *KnowledgeBaseRepo) RevokeGroup(ctx context.Context, kbID, groupID int64) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM kb_group_grants WHERE knowledge_base_id = ? AND group_id = ?",
		kbID, groupID)
	return err
}

func (r *KnowledgeBaseRepo) ListGrantedGroups(ctx context.Context, kbID int64) ([]domain.Group, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT g.id, g.name, g.description, g.created_at
		 FROM groups g
		 JOIN kb_group_grants kg ON kg.group_id = g.id
		 WHERE kg.knowledge_base_id = ?
		 ORDER BY g.id`, kbID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGroups(rows)
}

func (r *KnowledgeBaseRepo) ListForGroup(ctx context.Context, groupID int64) ([]domain.KnowledgeBase, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kb.id, kb.name, kb.description, kb.is_public, kb.created_at
		 FROM knowledge_bases kb
		 JOIN kb_group_grants kg ON kg.knowledge_base_id = kb.id
		 WHERE kg.group_id = ?
		 ORDER BY kb.id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectKnowledgeBases(rows)
}

func scanBinding(row interface{ Scan(...interface{}) error }) (*domain.SourceBinding, error) {
	var b domain.SourceBinding
	var accessControlled int64
	if err := row.Scan(&b.ID, &b.KnowledgeBaseID, &b.SourceType, &b.ExternalID,
		&b.Name, &b.URL, &accessControlled, &b.GrantURL); err != nil {
		return nil, err
	}
	b.AccessControlled = accessControlled != 0
	return &b, nil
}

func collectBindings(rows *sql.Rows) ([]domain.SourceBinding, error) {
	var bindings []domain.SourceBinding
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, *b)
	}
	return bindings, rows.Err()
}

func collectKnowledgeBases(rows *sql.Rows) ([]domain.KnowledgeBase, error) {
	var kbs []domain.KnowledgeBase
	for rows.Next() {
		var kb domain.KnowledgeBase
		var desc sql.NullString
		var isPublic int64
		if err := rows.Scan(&kb.ID, &kb.Name, &desc, &isPublic, &kb.CreatedAt); err != nil {
			return nil, err
		}
		kb.Description = desc.String
		kb.IsPublic = isPublic != 0
		kbs = append(kbs, kb)
	}
	return kbs, rows.Err()
}
