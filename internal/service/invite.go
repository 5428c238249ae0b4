package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"kbhub/internal/db/crypto"
	"kbhub/internal/domain"
	"kbhub/internal/policy"
)

const (
	// DefaultInviteTTL bounds an invite's validity when config does not
	// override it.
	DefaultInviteTTL = 168 * time.Hour

	minPasswordLength = 8
	tokenPrefixLen    = 8
)

// InviteService manages the invite lifecycle: issue, validate, accept,
// resend, revoke, list.
type InviteService struct {
	invites   domain.InviteRepository
	users     domain.UserRepository
	mailer    domain.MailSender
	sessions  *SessionIssuer
	encryptor *crypto.Encryptor
	gates     policy.FeatureGates
	ttl       time.Duration
	baseURL   string
	now       func() time.Time
	logger    *slog.Logger
}

// NewInviteService creates an invite service. ttl 0 defaults to 168h; now nil
// defaults to time.Now.
func NewInviteService(
	invites domain.InviteRepository,
	users domain.UserRepository,
	mailer domain.MailSender,
	sessions *SessionIssuer,
	encryptor *crypto.Encryptor,
	gates policy.FeatureGates,
	ttl time.Duration,
	baseURL string,
	now func() time.Time,
	logger *slog.Logger,
) *InviteService {
	if ttl <= 0 {
		ttl = DefaultInviteTTL
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InviteService{
		invites:   invites,
		users:     users,
		mailer:    mailer,
		sessions:  sessions,
		encryptor: encryptor,
		gates:     gates,
		ttl:       ttl,
		baseURL:   strings.TrimRight(baseURL, "/"),
		now:       now,
		logger:    logger,
	}
}

// CreateInviteInput describes a new invite.
type CreateInviteInput struct {
	Email     string
	Name      string
	Role      domain.Role
	SendEmail bool
}

// Create issues a new invite. The returned raw token is shown exactly once;
// only its hash and an encrypted copy are stored. Mail delivery is
// best-effort: a failed send leaves the invite created with EmailSent=false.
func (s *InviteService) Create(ctx context.Context, input CreateInviteInput) (*domain.Invite, string, error) {
	if err := policy.CheckFeature(s.gates, policy.FeatureInvites); err != nil {
		return nil, "", err
	}
	caller, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, "", domain.ErrAccessDenied("authentication required")
	}
	if err := policy.RequireAdmin(caller); err != nil {
		return nil, "", err
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", domain.ErrValidation("a valid email address is required")
	}
	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, "", domain.ErrValidation("invite role must be %q or %q", domain.RoleUser, domain.RoleAdmin)
	}

	rawToken, err := generateToken()
	if err != nil {
		return nil, "", err
	}
	cipher, err := s.encryptor.Encrypt(rawToken)
	if err != nil {
		return nil, "", fmt.Errorf("encrypt invite token: %w", err)
	}

	createdAt := s.now().UTC()
	inv := &domain.Invite{
		ID:          uuid.NewString(),
		Email:       email,
		Name:        strings.TrimSpace(input.Name),
		Role:        role,
		InviterID:   caller.UserID,
		Status:      domain.InvitePending,
		TokenHash:   hashToken(rawToken),
		TokenCipher: cipher,
		TokenPrefix: rawToken[:tokenPrefixLen],
		CreatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(s.ttl),
		UpdatedAt:   createdAt,
	}
	if err := s.invites.Create(ctx, inv); err != nil {
		return nil, "", err
	}

	if input.SendEmail {
		inv.EmailSent = s.deliver(ctx, inv, rawToken)
	}

	return inv, rawToken, nil
}

// Validate checks a raw token and returns the matching invite. Read-only and
// safe to call repeatedly: an unauthenticated visitor refreshing the invite
// page hits this path.
func (s *InviteService) Validate(ctx context.Context, rawToken string) (*domain.Invite, error) {
	inv, err := s.invites.GetByTokenHash(ctx, hashToken(rawToken))
	if err != nil {
		return nil, err
	}
	switch status := inv.EffectiveStatus(s.now().UTC()); status {
	case domain.InvitePending:
		return inv, nil
	case domain.InviteExpired:
		return nil, domain.ErrInviteState(status, "invite has expired")
	case domain.InviteAccepted:
		return nil, domain.ErrInviteState(status, "invite has already been accepted")
	default:
		return nil, domain.ErrInviteState(status, "invite has been revoked")
	}
}

// Accept converts a pending invite into a provisioned account and a session.
// Validity is re-checked here even if the caller validated earlier, and the
// password policy runs before any mutation. The pending→accepted transition
// is a compare-and-set: of two concurrent accepts, exactly one wins.
func (s *InviteService) Accept(ctx context.Context, rawToken, password, nameOverride string) (*domain.Session, *domain.User, error) {
	inv, err := s.Validate(ctx, rawToken)
	if err != nil {
		return nil, nil, err
	}

	if len(password) < minPasswordLength {
		return nil, nil, domain.ErrValidation("password must be at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	won, err := s.invites.AcceptPending(ctx, inv.ID, s.now().UTC())
	if err != nil {
		return nil, nil, err
	}
	if !won {
		// Lost the race or the invite was revoked between validate and
		// accept; re-read for the precise state.
		current, err := s.invites.GetByID(ctx, inv.ID)
		if err != nil {
			return nil, nil, err
		}
		switch current.Status {
		case domain.InviteRevoked:
			return nil, nil, domain.ErrInviteState(domain.InviteRevoked, "invite has been revoked")
		default:
			return nil, nil, domain.ErrInviteState(domain.InviteAccepted, "invite has already been accepted")
		}
	}

	name := inv.Name
	if override := strings.TrimSpace(nameOverride); override != "" {
		name = override
	}
	user, err := s.users.CreateOrGet(ctx, inv.Email, name, inv.Role, string(hash))
	if err != nil {
		return nil, nil, err
	}

	session, err := s.sessions.Issue(user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("invite accepted", "invite_id", inv.ID, "user_id", user.ID, "role", user.Role)
	return session, user, nil
}

// Resend re-delivers the invite link using the same token and the original
// expiry. Only valid while pending.
func (s *InviteService) Resend(ctx context.Context, id string) (bool, error) {
	if err := s.requireInviteAdmin(ctx); err != nil {
		return false, err
	}

	inv, err := s.invites.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if status := inv.EffectiveStatus(s.now().UTC()); status != domain.InvitePending {
		return false, domain.ErrInviteState(status, "only pending invites can be resent")
	}

	rawToken, err := s.encryptor.Decrypt(inv.TokenCipher)
	if err != nil {
		return false, fmt.Errorf("decrypt invite token: %w", err)
	}

	return s.deliver(ctx, inv, rawToken), nil
}

// Revoke transitions a pending invite to revoked. Idempotent when the invite
// is already revoked.
func (s *InviteService) Revoke(ctx context.Context, id string) error {
	if err := s.requireInviteAdmin(ctx); err != nil {
		return err
	}

	won, err := s.invites.RevokePending(ctx, id, s.now().UTC())
	if err != nil {
		return err
	}
	if won {
		return nil
	}

	current, err := s.invites.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == domain.InviteRevoked {
		return nil
	}
	return domain.ErrInviteState(current.Status, "only pending invites can be revoked")
}

// List returns all non-purged invites with their read-time status.
func (s *InviteService) List(ctx context.Context) ([]domain.Invite, error) {
	if err := s.requireInviteAdmin(ctx); err != nil {
		return nil, err
	}

	invites, err := s.invites.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	for i := range invites {
		invites[i].Status = invites[i].EffectiveStatus(now)
	}
	return invites, nil
}

// PurgeStale removes terminal invites older than the retention window.
// Called by the retention sweeper.
func (s *InviteService) PurgeStale(ctx context.Context, retention time.Duration) (int64, error) {
	return s.invites.DeleteTerminalBefore(ctx, s.now().UTC().Add(-retention))
}

// InviteLink builds the link mailed to the invitee.
func (s *InviteService) InviteLink(rawToken string) string {
	return s.baseURL + "/invite?token=" + rawToken
}

func (s *InviteService) deliver(ctx context.Context, inv *domain.Invite, rawToken string) bool {
	err := s.mailer.SendInvite(ctx, inv.Email, inv.Name, s.InviteLink(rawToken))
	sent := err == nil
	if err != nil {
		s.logger.Warn("invite mail delivery failed", "invite_id", inv.ID, "error", err)
	}
	if setErr := s.invites.SetEmailSent(ctx, inv.ID, sent); setErr != nil {
		s.logger.Warn("record invite mail outcome failed", "invite_id", inv.ID, "error", setErr)
	}
	return sent
}

func (s *InviteService) requireInviteAdmin(ctx context.Context) error {
	if err := policy.CheckFeature(s.gates, policy.FeatureInvites); err != nil {
		return err
	}
	caller, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return domain.ErrAccessDenied("authentication required")
	}
	return policy.RequireAdmin(caller)
}

func generateToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate invite token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

func hashToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}
