package domain

import (
	"strings"
	"time"
)

// InviteStatus is the lifecycle status of an invite. Pending, accepted, and
// revoked are stored; expired is computed at read time and never written.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteRevoked  InviteStatus = "revoked"
	InviteExpired  InviteStatus = "expired"
)

// ParseInviteStatus converts a stored status label to an InviteStatus.
func ParseInviteStatus(s string) InviteStatus {
	switch InviteStatus(strings.ToLower(strings.TrimSpace(s))) {
	case InviteAccepted:
		return InviteAccepted
	case InviteRevoked:
		return InviteRevoked
	default:
		return InvitePending
	}
}

// Invite is a single-use, time-bounded invitation that converts into a
// provisioned account. The raw token is surfaced exactly once at creation;
// only its SHA-256 hash is stored.
type Invite struct {
	ID          string // opaque public id
	Email       string
	Name        string
	Role        Role
	InviterID   int64
	Status      InviteStatus // stored status; use EffectiveStatus for reads
	TokenHash   string
	TokenCipher string // raw token encrypted at rest; lets resend reuse the link
	TokenPrefix string // first bytes of the raw token, for admin display
	EmailSent   bool
	CreatedAt   time.Time
	ExpiresAt   time.Time
	UpdatedAt   time.Time
}

// EffectiveStatus returns the read-time status: a pending invite past its
// expiry reads as expired while the stored row stays pending.
func (i *Invite) EffectiveStatus(now time.Time) InviteStatus {
	if i.Status == InvitePending && now.After(i.ExpiresAt) {
		return InviteExpired
	}
	return i.Status
}

// Session is a bearer credential issued when an invite is accepted.
type Session struct {
	Token     string
	UserID    int64
	Email     string
	Role      Role
	ExpiresAt time.Time
}
