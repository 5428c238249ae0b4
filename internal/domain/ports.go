package domain

import (
	"context"
	"time"
)

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]User, error)
	List(ctx context.Context) ([]User, error)
	UpdateRole(ctx context.Context, id int64, role Role) error
	Delete(ctx context.Context, id int64) error
	// CreateOrGet provisions an account for email if none exists; an existing
	// account keeps its password hash but takes the given role.
	CreateOrGet(ctx context.Context, email, name string, role Role, passwordHash string) (*User, error)
}

// GroupRepository persists groups and memberships.
type GroupRepository interface {
	Create(ctx context.Context, g *Group) (*Group, error)
	GetByID(ctx context.Context, id int64) (*Group, error)
	List(ctx context.Context) ([]Group, error)
	Delete(ctx context.Context, id int64) error
	AddMember(ctx context.Context, m *GroupMember) error
	RemoveMember(ctx context.Context, m *GroupMember) error
	ListMembers(ctx context.Context, groupID int64) ([]User, error)
	GroupsForUser(ctx context.Context, userID int64) ([]Group, error)
}

// KnowledgeBaseRepository persists knowledge bases, their source bindings,
// files, and grants.
type KnowledgeBaseRepository interface {
	Create(ctx context.Context, kb *KnowledgeBase) (*KnowledgeBase, error)
	GetByID(ctx context.Context, id int64) (*KnowledgeBase, error)
	List(ctx context.Context) ([]KnowledgeBase, error)
	Delete(ctx context.Context, id int64) error

	AddBinding(ctx context.Context, b *SourceBinding) (*SourceBinding, error)
	ListBindings(ctx context.Context, kbID int64) ([]SourceBinding, error)

	CreateFile(ctx context.Context, f *File) (*File, error)
	GetFilesByIDs(ctx context.Context, ids []int64) ([]File, error)
	GetBindingsByIDs(ctx context.Context, ids []int64) ([]SourceBinding, error)

	GrantUser(ctx context.Context, kbID, userID int64) error
	RevokeUser(ctx context.Context, kbID, userID int64) error
	ListGrantedUsers(ctx context.Context, kbID int64) ([]User, error)
	GrantGroup(ctx context.Context, kbID, groupID int64) error
	RevokeGroup(ctx context.Context, kbID, groupID int64) error
	ListGrantedGroups(ctx context.Context, kbID int64) ([]Group, error)
	// ListForGroup returns the knowledge bases a group is granted on.
	ListForGroup(ctx context.Context, groupID int64) ([]KnowledgeBase, error)
}

// InviteRepository persists invites. Status transitions are conditional
// updates keyed on the current stored status so concurrent accepts resolve to
// exactly one winner.
type InviteRepository interface {
	Create(ctx context.Context, inv *Invite) error
	GetByID(ctx context.Context, id string) (*Invite, error)
	GetByTokenHash(ctx context.Context, hash string) (*Invite, error)
	List(ctx context.Context) ([]Invite, error)
	// AcceptPending transitions pending→accepted; false when the invite was
	// not pending anymore.
	AcceptPending(ctx context.Context, id string, now time.Time) (bool, error)
	// RevokePending transitions pending→revoked; false when not pending.
	RevokePending(ctx context.Context, id string, now time.Time) (bool, error)
	SetEmailSent(ctx context.Context, id string, sent bool) error
	// DeleteTerminalBefore purges accepted/revoked invites last touched
	// before cutoff, and pending invites whose expiry is before cutoff.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SourceAccessClient is the capability boundary to the external document
// source provider. Failures to reach the provider surface as
// *SourceUnavailableError, never as an access answer.
type SourceAccessClient interface {
	HasAccess(ctx context.Context, binding SourceBinding, email string) (bool, error)
}

// MailSender delivers invite links. Best-effort: failures must not abort
// invite creation.
type MailSender interface {
	SendInvite(ctx context.Context, email, name, link string) error
}
