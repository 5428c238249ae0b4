package service

import (
	"context"
	"strings"

	"kbhub/internal/domain"
	"kbhub/internal/policy"
)

// DirectoryService is the admin surface over the tenant directory: users,
// groups, knowledge bases, bindings, files, and grants. Every operation,
// reads included, requires the admin role: the directory enumerates tenant
// emails and grants, which ordinary members have no business listing.
type DirectoryService struct {
	users  domain.UserRepository
	groups domain.GroupRepository
	kbs    domain.KnowledgeBaseRepository
}

func NewDirectoryService(
	users domain.UserRepository,
	groups domain.GroupRepository,
	kbs domain.KnowledgeBaseRepository,
) *DirectoryService {
	return &DirectoryService{users: users, groups: groups, kbs: kbs}
}

func requireAdmin(ctx context.Context) error {
	caller, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return domain.ErrAccessDenied("authentication required")
	}
	return policy.RequireAdmin(caller)
}

func (s *DirectoryService) CreateUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return nil, domain.ErrValidation("a valid email address is required")
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	return s.users.Create(ctx, u)
}

func (s *DirectoryService) ListUsers(ctx context.Context) ([]domain.User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

func (s *DirectoryService) UpdateUserRole(ctx context.Context, id int64, role domain.Role) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if role != domain.RolePending && role != domain.RoleUser && role != domain.RoleAdmin {
		return domain.ErrValidation("unknown role %q", role)
	}
	return s.users.UpdateRole(ctx, id, role)
}

func (s *DirectoryService) DeleteUser(ctx context.Context, id int64) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.users.Delete(ctx, id)
}

func (s *DirectoryService) CreateGroup(ctx context.Context, g *domain.Group) (*domain.Group, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(g.Name) == "" {
		return nil, domain.ErrValidation("group name is required")
	}
	return s.groups.Create(ctx, g)
}

func (s *DirectoryService) ListGroups(ctx context.Context) ([]domain.Group, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.groups.List(ctx)
}

func (s *DirectoryService) DeleteGroup(ctx context.Context, id int64) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.groups.Delete(ctx, id)
}

func (s *DirectoryService) AddGroupMember(ctx context.Context, m *domain.GroupMember) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if _, err := s.groups.GetByID(ctx, m.GroupID); err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, m.UserID); err != nil {
		return err
	}
	return s.groups.AddMember(ctx, m)
}

func (s *DirectoryService) RemoveGroupMember(ctx context.Context, m *domain.GroupMember) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.groups.RemoveMember(ctx, m)
}

func (s *DirectoryService) ListGroupMembers(ctx context.Context, groupID int64) ([]domain.User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.groups.ListMembers(ctx, groupID)
}

func (s *DirectoryService) CreateKnowledgeBase(ctx context.Context, kb *domain.KnowledgeBase) (*domain.KnowledgeBase, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(kb.Name) == "" {
		return nil, domain.ErrValidation("knowledge base name is required")
	}
	return s.kbs.Create(ctx, kb)
}

func (s *DirectoryService) ListKnowledgeBases(ctx context.Context) ([]domain.KnowledgeBase, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.kbs.List(ctx)
}

func (s *DirectoryService) DeleteKnowledgeBase(ctx context.Context, id int64) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.kbs.Delete(ctx, id)
}

func (s *DirectoryService) AddBinding(ctx context.Context, b *domain.SourceBinding) (*domain.SourceBinding, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(b.SourceType) == "" {
		return nil, domain.ErrValidation("binding source type is required")
	}
	if _, err := s.kbs.GetByID(ctx, b.KnowledgeBaseID); err != nil {
		return nil, err
	}
	return s.kbs.AddBinding(ctx, b)
}

func (s *DirectoryService) ListBindings(ctx context.Context, kbID int64) ([]domain.SourceBinding, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.kbs.ListBindings(ctx, kbID)
}

func (s *DirectoryService) CreateFile(ctx context.Context, f *domain.File) (*domain.File, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(f.Name) == "" {
		return nil, domain.ErrValidation("file name is required")
	}
	return s.kbs.CreateFile(ctx, f)
}

func (s *DirectoryService) GrantUser(ctx context.Context, kbID, userID int64) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if _, err := s.kbs.GetByID(ctx, kbID); err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	return s.kbs.GrantUser(ctx, kbID, userID)
}

func (s *DirectoryService) RevokeUser(ctx context.Context, kbID, userID int64) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.kbs.RevokeUser(ctx, kbID, userID)
}

func (s *DirectoryService) GrantGroup(ctx context.Context, kbID, groupID int64) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if _, err := s.kbs.GetByID(ctx, kbID); err != nil {
		return err
	}
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return err
	}
	return s.kbs.GrantGroup(ctx, kbID, groupID)
}

func (s *DirectoryService) RevokeGroup(ctx context.Context, kbID, groupID int64) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.kbs.RevokeGroup(ctx, kbID, groupID)
}

func (s *DirectoryService) ListGrantedUsers(ctx context.Context, kbID int64) ([]domain.User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.kbs.ListGrantedUsers(ctx, kbID)
}

func (s *DirectoryService) ListGrantedGroups(ctx context.Context, kbID int64) ([]domain.Group, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.kbs.ListGrantedGroups(ctx, kbID)
}
