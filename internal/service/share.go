package service

import (
	"context"

	"kbhub/internal/domain"
	"kbhub/internal/policy"
)

// ShareCoordinator orchestrates resolver calls for the three sharing
// operations. It holds no state and performs no writes; a degraded resolver
// call (SourceUnavailable) is surfaced verbatim so callers never decide on
// stale data.
type ShareCoordinator struct {
	resolver *AccessResolver
	kbs      domain.KnowledgeBaseRepository
	users    domain.UserRepository
	groups   domain.GroupRepository
	gates    policy.FeatureGates
}

// NewShareCoordinator creates a coordinator over the resolver and
// repositories.
func NewShareCoordinator(
	resolver *AccessResolver,
	kbs domain.KnowledgeBaseRepository,
	users domain.UserRepository,
	groups domain.GroupRepository,
	gates policy.FeatureGates,
) *ShareCoordinator {
	return &ShareCoordinator{resolver: resolver, kbs: kbs, users: users, groups: groups, gates: gates}
}

// ValidateShare classifies the given users and groups against the knowledge
// base before a share is committed.
func (c *ShareCoordinator) ValidateShare(ctx context.Context, kbID int64, userIDs, groupIDs []int64) (*domain.ShareValidationResult, error) {
	return c.resolver.Resolve(ctx, kbID, userIDs, groupIDs)
}

// ValidateFileAddition reports the effect of attaching the given files to the
// knowledge base: whether the resource stays public, and which already
// granted users would lose full access to the new bindings. The addition
// itself is the caller's decision; nothing is written here.
func (c *ShareCoordinator) ValidateFileAddition(ctx context.Context, kbID int64, fileIDs []int64) (*domain.FileAdditionConflict, error) {
	if err := policy.CheckFeature(c.gates, policy.FeatureSharing); err != nil {
		return nil, err
	}
	if len(fileIDs) == 0 {
		return nil, domain.ErrValidation("file set must not be empty")
	}

	kb, err := c.kbs.GetByID(ctx, kbID)
	if err != nil {
		return nil, err
	}

	files, err := c.kbs.GetFilesByIDs(ctx, fileIDs)
	if err != nil {
		return nil, err
	}
	if len(files) != len(dedupe(fileIDs)) {
		return nil, domain.ErrNotFound("one or more files do not exist")
	}

	var bindingIDs []int64
	for _, f := range files {
		if f.SourceBindingID != nil {
			bindingIDs = append(bindingIDs, *f.SourceBindingID)
		}
	}
	newBindings, err := c.kbs.GetBindingsByIDs(ctx, dedupe(bindingIDs))
	if err != nil {
		return nil, err
	}
	newRestricted := domain.RestrictedBindings(newBindings)

	existing, err := c.kbs.ListBindings(ctx, kbID)
	if err != nil {
		return nil, err
	}
	existingRestricted := domain.RestrictedBindings(existing)

	conflict := &domain.FileAdditionConflict{
		Public:            kb.IsPublic && len(existingRestricted) == 0 && len(newRestricted) == 0,
		BecomesRestricted: len(existingRestricted) == 0 && len(newRestricted) > 0,
		BlockingResources: map[int64][]domain.BlockedSource{},
	}
	if len(newRestricted) == 0 {
		return conflict, nil
	}

	granted, err := c.grantedUsers(ctx, kbID)
	if err != nil {
		return nil, err
	}

	blocked, err := c.resolver.ConfirmAccess(ctx, newRestricted, granted)
	if err != nil {
		return nil, err
	}
	for _, u := range granted {
		if missing, ok := blocked[u.ID]; ok {
			conflict.BlockedUsers = append(conflict.BlockedUsers, u)
			conflict.BlockingResources[u.ID] = missing
		}
	}
	return conflict, nil
}

// DetectMembershipConflicts lists, for a candidate group member, every
// knowledge base the group is granted on that the candidate lacks source
// access for. Advisory: the membership write stays with the caller.
func (c *ShareCoordinator) DetectMembershipConflicts(ctx context.Context, groupID, candidateUserID int64) ([]domain.GroupMembershipConflict, error) {
	if err := policy.CheckFeature(c.gates, policy.FeatureSharing); err != nil {
		return nil, err
	}

	if _, err := c.groups.GetByID(ctx, groupID); err != nil {
		return nil, err
	}
	candidate, err := c.users.GetByID(ctx, candidateUserID)
	if err != nil {
		return nil, err
	}

	kbs, err := c.kbs.ListForGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	members, err := c.groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	var conflicts []domain.GroupMembershipConflict
	for _, kb := range kbs {
		bindings, err := c.kbs.ListBindings(ctx, kb.ID)
		if err != nil {
			return nil, err
		}
		restricted := domain.RestrictedBindings(bindings)
		if len(restricted) == 0 {
			continue
		}

		subjects := append([]domain.User{*candidate}, members...)
		blocked, err := c.resolver.ConfirmAccess(ctx, restricted, subjects)
		if err != nil {
			return nil, err
		}

		missing, ok := blocked[candidate.ID]
		if !ok {
			continue
		}

		conflict := domain.GroupMembershipConflict{
			KnowledgeBaseID:   kb.ID,
			KnowledgeBaseName: kb.Name,
			MissingSources:    missing,
		}
		for _, m := range members {
			if m.ID == candidate.ID {
				continue
			}
			if _, alsoBlocked := blocked[m.ID]; alsoBlocked {
				conflict.OthersMissing = append(conflict.OthersMissing, m)
			}
		}
		conflicts = append(conflicts, conflict)
	}
	return conflicts, nil
}

// UsersReadyForAccess partitions every user in the tenant into ready/blocked
// for the knowledge base.
func (c *ShareCoordinator) UsersReadyForAccess(ctx context.Context, kbID int64) (*domain.ShareValidationResult, error) {
	all, err := c.users.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, domain.ErrValidation("tenant has no users")
	}
	ids := make([]int64, len(all))
	for i, u := range all {
		ids[i] = u.ID
	}
	return c.resolver.Resolve(ctx, kbID, ids, nil)
}

// grantedUsers unions the knowledge base's directly granted users with the
// members of its granted groups.
func (c *ShareCoordinator) grantedUsers(ctx context.Context, kbID int64) ([]domain.User, error) {
	direct, err := c.kbs.ListGrantedUsers(ctx, kbID)
	if err != nil {
		return nil, err
	}
	grantedGroups, err := c.kbs.ListGrantedGroups(ctx, kbID)
	if err != nil {
		return nil, err
	}
	byGroup := make(map[int64][]domain.User, len(grantedGroups))
	for _, g := range grantedGroups {
		members, err := c.groups.ListMembers(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		byGroup[g.ID] = members
	}
	return mergeUsers(direct, byGroup), nil
}
