package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"kbhub/internal/domain"
)

const defaultSessionTTL = 24 * time.Hour

// SessionIssuer mints and verifies HS256 session tokens.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionIssuer creates an issuer. ttl 0 defaults to 24h; now nil defaults
// to time.Now.
func NewSessionIssuer(secret []byte, ttl time.Duration, now func() time.Time) *SessionIssuer {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &SessionIssuer{secret: secret, ttl: ttl, now: now}
}

// Issue creates a session token for the user.
func (s *SessionIssuer) Issue(u *domain.User) (*domain.Session, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   fmt.Sprintf("%d", u.ID),
		"email": u.Email,
		"role":  string(u.Role),
		"iat":   issuedAt.Unix(),
		"exp":   expiresAt.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	return &domain.Session{
		Token:     signed,
		UserID:    u.ID,
		Email:     u.Email,
		Role:      u.Role,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify parses a session token and returns the principal it carries.
func (s *SessionIssuer) Verify(tokenString string) (domain.ContextPrincipal, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return domain.ContextPrincipal{}, domain.ErrAccessDenied("invalid session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.ContextPrincipal{}, domain.ErrAccessDenied("invalid session claims")
	}

	var userID int64
	if sub, ok := claims["sub"].(string); ok {
		if _, err := fmt.Sscanf(sub, "%d", &userID); err != nil {
			return domain.ContextPrincipal{}, domain.ErrAccessDenied("invalid session subject")
		}
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)

	return domain.ContextPrincipal{
		UserID: userID,
		Email:  email,
		Role:   domain.ParseRole(role),
	}, nil
}
