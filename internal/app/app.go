// Package app provides application-level wiring and dependency injection:
// repositories over the SQLite pools, the source provider client, the mail
// sender, and the services behind the HTTP handler.
package app

import (
	"database/sql"
	"fmt"
	"log/slog"

	"kbhub/internal/config"
	"kbhub/internal/db/crypto"
	"kbhub/internal/db/repository"
	"kbhub/internal/domain"
	"kbhub/internal/mail"
	"kbhub/internal/policy"
	"kbhub/internal/service"
	"kbhub/internal/source"
)

// Deps holds the external dependencies that main() must provide: database
// handles, config, and the logger.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// Services groups the service pointers the API handler and router need.
type Services struct {
	Resolver  *service.AccessResolver
	Shares    *service.ShareCoordinator
	Invites   *service.InviteService
	Directory *service.DirectoryService
	Sessions  *service.SessionIssuer
}

// App holds the fully-wired application. SourceACL is non-nil only in
// development mode (no SOURCE_API_URL), where seeding populates it.
type App struct {
	Services  Services
	SourceACL *source.MemoryClient
	Mailer    domain.MailSender
}

// New wires repositories and services from the provided deps and applies the
// optional seed file.
func New(deps Deps) (*App, error) {
	cfg := deps.Cfg

	// Mutating surfaces go through the single-connection write pool; the
	// resolver and share coordinator only read, so they get the wider read
	// pool and never queue behind writes.
	userRepo := repository.NewUserRepo(deps.WriteDB)
	groupRepo := repository.NewGroupRepo(deps.WriteDB)
	kbRepo := repository.NewKnowledgeBaseRepo(deps.WriteDB)
	inviteRepo := repository.NewInviteRepo(deps.WriteDB)

	readUserRepo := repository.NewUserRepo(deps.ReadDB)
	readGroupRepo := repository.NewGroupRepo(deps.ReadDB)
	readKBRepo := repository.NewKnowledgeBaseRepo(deps.ReadDB)

	gates := policy.NewFeatureGates(map[policy.Feature]bool{
		policy.FeatureSharing: cfg.FeatureSharingEnabled,
		policy.FeatureInvites: cfg.FeatureInvitesEnabled,
	})

	var sourceClient domain.SourceAccessClient
	var memoryACL *source.MemoryClient
	if cfg.SourceAPIURL != "" {
		sourceClient = source.NewHTTPClient(cfg.SourceAPIURL, cfg.SourceCheckTimeout)
		deps.Logger.Info("source provider client enabled", "url", cfg.SourceAPIURL)
	} else {
		memoryACL = source.NewMemoryClient()
		sourceClient = memoryACL
	}

	var mailer domain.MailSender
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPPassword)
		deps.Logger.Info("smtp mail sender enabled", "host", cfg.SMTPHost)
	} else {
		mailer = &mail.MemorySender{}
	}

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}

	sessions := service.NewSessionIssuer([]byte(cfg.JWTSecret), cfg.SessionTTL, nil)
	resolver := service.NewAccessResolver(readKBRepo, readUserRepo, readGroupRepo, sourceClient, gates)
	shares := service.NewShareCoordinator(resolver, readKBRepo, readUserRepo, readGroupRepo, gates)
	invites := service.NewInviteService(
		inviteRepo, userRepo, mailer, sessions, encryptor, gates,
		cfg.InviteTTL, cfg.InviteBaseURL, nil,
		deps.Logger.With("component", "invites"),
	)
	directory := service.NewDirectoryService(userRepo, groupRepo, kbRepo)

	a := &App{
		Services: Services{
			Resolver:  resolver,
			Shares:    shares,
			Invites:   invites,
			Directory: directory,
			Sessions:  sessions,
		},
		SourceACL: memoryACL,
		Mailer:    mailer,
	}

	if cfg.SeedFile != "" {
		if err := a.applySeedFile(deps, userRepo, groupRepo, kbRepo); err != nil {
			deps.Logger.Warn("apply seed file failed", "path", cfg.SeedFile, "error", err)
		}
	}

	return a, nil
}
