package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	internaldb "kbhub/internal/db"
	"kbhub/internal/db/crypto"
	"kbhub/internal/db/repository"
	"kbhub/internal/domain"
	"kbhub/internal/mail"
	"kbhub/internal/policy"
	"kbhub/internal/source"
)

const testEncryptionKey = "0000000000000000000000000000000000000000000000000000000000000000"

// fakeClock is an injectable clock so expiry behaviour is deterministic.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	users   *repository.UserRepo
	groups  *repository.GroupRepo
	kbs     *repository.KnowledgeBaseRepo
	invites *repository.InviteRepo

	source *source.MemoryClient
	mailer *mail.MemorySender
	clock  *fakeClock

	resolver *AccessResolver
	shares   *ShareCoordinator
	invSvc   *InviteService
	sessions *SessionIssuer
}

func newFixture(t *testing.T, enabled map[policy.Feature]bool) *fixture {
	t.Helper()

	writeDB, _ := internaldb.OpenTestSQLite(t)

	f := &fixture{
		users:   repository.NewUserRepo(writeDB),
		groups:  repository.NewGroupRepo(writeDB),
		kbs:     repository.NewKnowledgeBaseRepo(writeDB),
		invites: repository.NewInviteRepo(writeDB),
		source:  source.NewMemoryClient(),
		mailer:  &mail.MemorySender{},
		clock:   newFakeClock(),
	}

	gates := policy.NewFeatureGates(enabled)
	f.resolver = NewAccessResolver(f.kbs, f.users, f.groups, f.source, gates)
	f.shares = NewShareCoordinator(f.resolver, f.kbs, f.users, f.groups, gates)
	f.sessions = NewSessionIssuer([]byte("test-session-secret"), 0, nil)

	enc, err := crypto.NewEncryptor(testEncryptionKey)
	require.NoError(t, err)
	f.invSvc = NewInviteService(
		f.invites, f.users, f.mailer, f.sessions, enc, gates,
		0, "https://kbhub.test", f.clock.Now, nil,
	)

	return f
}

func (f *fixture) mustUser(t *testing.T, email string, role domain.Role) *domain.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), &domain.User{
		Email: email,
		Name:  strings.Split(email, "@")[0],
		Role:  role,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) mustGroup(t *testing.T, name string, members ...*domain.User) *domain.Group {
	t.Helper()
	g, err := f.groups.Create(context.Background(), &domain.Group{Name: name})
	require.NoError(t, err)
	for _, m := range members {
		require.NoError(t, f.groups.AddMember(context.Background(), &domain.GroupMember{
			GroupID: g.ID, UserID: m.ID,
		}))
	}
	return g
}

func (f *fixture) mustKB(t *testing.T, name string, public bool) *domain.KnowledgeBase {
	t.Helper()
	kb, err := f.kbs.Create(context.Background(), &domain.KnowledgeBase{
		Name: name, IsPublic: public,
	})
	require.NoError(t, err)
	return kb
}

func (f *fixture) mustBinding(t *testing.T, kbID int64, sourceType, externalID string, restricted bool) *domain.SourceBinding {
	t.Helper()
	b, err := f.kbs.AddBinding(context.Background(), &domain.SourceBinding{
		KnowledgeBaseID:  kbID,
		SourceType:       sourceType,
		ExternalID:       externalID,
		Name:             externalID,
		URL:              "https://sources.test/" + externalID,
		AccessControlled: restricted,
	})
	require.NoError(t, err)
	return b
}

func ctxAs(u *domain.User) context.Context {
	return domain.WithPrincipal(context.Background(), domain.ContextPrincipal{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
	})
}
