package repository

import (
	"context"
	"database/sql"
	"time"

	"kbhub/internal/domain"
)

type InviteRepo struct {
	db *sql.DB
}

func NewInviteRepo(db *sql.DB) *InviteRepo {
	return &InviteRepo{db: db}
}

const inviteColumns = "id, email, name, role, inviter_id, status, token_hash, token_cipher, token_prefix, email_sent, created_at, expires_at, updated_at"

func scanInvite(row interface{ Scan(...interface{}) error }) (*domain.Invite, error) {
	var inv domain.Invite
	var role, status string
	var emailSent int64
	if err := row.Scan(&inv.ID, &inv.Email, &inv.Name, &role, &inv.InviterID,
		&status, &inv.TokenHash, &inv.TokenCipher, &inv.TokenPrefix, &emailSent,
		&inv.CreatedAt, &inv.ExpiresAt, &inv.UpdatedAt); err != nil {
		return nil, err
	}
	inv.Role = domain.ParseRole(role)
	inv.Status = domain.ParseInviteStatus(status)
	inv.EmailSent = emailSent != 0
	return &inv, nil
}

func (r *InviteRepo) Create(ctx context.Context, inv *domain.Invite) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invites
		 (id, email, name, role, inviter_id, status, token_hash, token_cipher, token_prefix, email_sent, created_at, expires_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Email, inv.Name, string(inv.Role), inv.InviterID,
		string(inv.Status), inv.TokenHash, inv.TokenCipher, inv.TokenPrefix, boolToInt(inv.EmailSent),
		inv.CreatedAt, inv.ExpiresAt, inv.UpdatedAt,
	)
	return mapDBError(err)
}

func (r *InviteRepo) GetByID(ctx context.Context, id string) (*domain.Invite, error) {
	inv, err := scanInvite(r.db.QueryRowContext(ctx,
		"SELECT "+inviteColumns+" FROM invites WHERE id = ?", id))
	if err != nil {
		return nil, mapDBError(err)
	}
	return inv, nil
}

func (r *InviteRepo) GetByTokenHash(ctx context.Context, hash string) (*domain.Invite, error) {
	inv, err := scanInvite(r.db.QueryRowContext(ctx,
		"SELECT "+inviteColumns+" FROM invites WHERE token_hash = ?", hash))
	if err != nil {
		return nil, mapDBError(err)
	}
	return inv, nil
}

func (r *InviteRepo) List(ctx context.Context) ([]domain.Invite, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+inviteColumns+" FROM invites ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []domain.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, *inv)
	}
	return invites, rows.Err()
}

// AcceptPending is the compare-and-set transition pending→accepted. The WHERE
// clause on status is what makes two concurrent accepts resolve to exactly
// one winner.
func (r *InviteRepo) AcceptPending(ctx context.Context, id string, now time.Time) (bool, error) {
	return r.transition(ctx, id, domain.InviteAccepted, now)
}

// RevokePending is the compare-and-set transition pending→revoked.
func (r *InviteRepo) RevokePending(ctx context.Context, id string, now time.Time) (bool, error) {
	return r.transition(ctx, id, domain.InviteRevoked, now)
}

func (r *InviteRepo) transition(ctx context.Context, id string, to domain.InviteStatus, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE invites SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		string(to), now, id, string(domain.InvitePending))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *InviteRepo) SetEmailSent(ctx context.Context, id string, sent bool) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE invites SET email_sent = ? WHERE id = ?", boolToInt(sent), id)
	return err
}

func (r *InviteRepo) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM invites
		 WHERE (status IN (?, ?) AND updated_at < ?)
		    OR (status = ? AND expires_at < ?)`,
		string(domain.InviteAccepted), string(domain.InviteRevoked), cutoff,
		string(domain.InvitePending), cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
