package app

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"kbhub/internal/db/repository"
	"kbhub/internal/domain"
)

// seedFile is the YAML shape applied at startup in development mode.
type seedFile struct {
	Users []struct {
		Email string `yaml:"email"`
		Name  string `yaml:"name"`
		Role  string `yaml:"role"`
	} `yaml:"users"`
	Groups []struct {
		Name        string   `yaml:"name"`
		Description string   `yaml:"description"`
		Members     []string `yaml:"members"` // member emails
	} `yaml:"groups"`
	KnowledgeBases []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Public      bool   `yaml:"public"`
		Bindings    []struct {
			SourceType       string  `yaml:"source_type"`
			ExternalID       string  `yaml:"external_id"`
			Name             string  `yaml:"name"`
			URL              string  `yaml:"url"`
			AccessControlled bool    `yaml:"access_controlled"`
			GrantURL         *string `yaml:"grant_url"`
		} `yaml:"bindings"`
		GrantedUsers  []string `yaml:"granted_users"`  // emails
		GrantedGroups []string `yaml:"granted_groups"` // group names
	} `yaml:"knowledge_bases"`
	// SourceACLs populate the in-memory provider: external id → emails.
	SourceACLs map[string][]string `yaml:"source_acls"`
}

// applySeedFile loads the YAML seed and populates the directory. Idempotent:
// a database that already has users is left untouched.
func (a *App) applySeedFile(
	deps Deps,
	users *repository.UserRepo,
	groups *repository.GroupRepo,
	kbs *repository.KnowledgeBaseRepo,
) error {
	ctx := context.Background()

	existing, err := users.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil // already seeded
	}

	raw, err := os.ReadFile(deps.Cfg.SeedFile)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	userByEmail := make(map[string]*domain.User, len(seed.Users))
	for _, su := range seed.Users {
		u, err := users.Create(ctx, &domain.User{
			Email: su.Email,
			Name:  su.Name,
			Role:  domain.ParseRole(su.Role),
		})
		if err != nil {
			return fmt.Errorf("seed user %s: %w", su.Email, err)
		}
		userByEmail[u.Email] = u
	}

	groupByName := make(map[string]*domain.Group, len(seed.Groups))
	for _, sg := range seed.Groups {
		g, err := groups.Create(ctx, &domain.Group{Name: sg.Name, Description: sg.Description})
		if err != nil {
			return fmt.Errorf("seed group %s: %w", sg.Name, err)
		}
		groupByName[g.Name] = g
		for _, email := range sg.Members {
			u, ok := userByEmail[email]
			if !ok {
				return fmt.Errorf("seed group %s: unknown member %s", sg.Name, email)
			}
			if err := groups.AddMember(ctx, &domain.GroupMember{GroupID: g.ID, UserID: u.ID}); err != nil {
				return fmt.Errorf("seed group %s member %s: %w", sg.Name, email, err)
			}
		}
	}

	for _, skb := range seed.KnowledgeBases {
		kb, err := kbs.Create(ctx, &domain.KnowledgeBase{
			Name:        skb.Name,
			Description: skb.Description,
			IsPublic:    skb.Public,
		})
		if err != nil {
			return fmt.Errorf("seed knowledge base %s: %w", skb.Name, err)
		}
		for _, sb := range skb.Bindings {
			if _, err := kbs.AddBinding(ctx, &domain.SourceBinding{
				KnowledgeBaseID:  kb.ID,
				SourceType:       sb.SourceType,
				ExternalID:       sb.ExternalID,
				Name:             sb.Name,
				URL:              sb.URL,
				AccessControlled: sb.AccessControlled,
				GrantURL:         sb.GrantURL,
			}); err != nil {
				return fmt.Errorf("seed binding %s: %w", sb.ExternalID, err)
			}
		}
		for _, email := range skb.GrantedUsers {
			u, ok := userByEmail[email]
			if !ok {
				return fmt.Errorf("seed knowledge base %s: unknown granted user %s", skb.Name, email)
			}
			if err := kbs.GrantUser(ctx, kb.ID, u.ID); err != nil {
				return fmt.Errorf("seed grant user %s: %w", email, err)
			}
		}
		for _, name := range skb.GrantedGroups {
			g, ok := groupByName[name]
			if !ok {
				return fmt.Errorf("seed knowledge base %s: unknown granted group %s", skb.Name, name)
			}
			if err := kbs.GrantGroup(ctx, kb.ID, g.ID); err != nil {
				return fmt.Errorf("seed grant group %s: %w", name, err)
			}
		}
	}

	// Source ACLs only apply in development mode where the in-memory
	// provider is live.
	if a.SourceACL != nil {
		for externalID, emails := range seed.SourceACLs {
			for _, email := range emails {
				a.SourceACL.Grant(externalID, email)
			}
		}
	}

	deps.Logger.Info("seed applied",
		"users", len(seed.Users),
		"groups", len(seed.Groups),
		"knowledge_bases", len(seed.KnowledgeBases),
	)
	return nil
}
