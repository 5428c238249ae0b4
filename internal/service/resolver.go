// Package service implements the application services: access resolution,
// share coordination, and the invite lifecycle.
package service

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"kbhub/internal/domain"
	"kbhub/internal/policy"
)

// maxConcurrentChecks bounds the fan-out against the source provider.
const maxConcurrentChecks = 8

// AccessResolver answers who has underlying access to every source a
// knowledge base depends on. It is purely read-and-compute: no side effects.
type AccessResolver struct {
	kbs    domain.KnowledgeBaseRepository
	users  domain.UserRepository
	groups domain.GroupRepository
	source domain.SourceAccessClient
	gates  policy.FeatureGates
}

// NewAccessResolver creates a resolver over the given repositories and source
// provider client.
func NewAccessResolver(
	kbs domain.KnowledgeBaseRepository,
	users domain.UserRepository,
	groups domain.GroupRepository,
	source domain.SourceAccessClient,
	gates policy.FeatureGates,
) *AccessResolver {
	return &AccessResolver{kbs: kbs, users: users, groups: groups, source: source, gates: gates}
}

// accessSet records confirmed per-binding access for a set of users. All
// entries are present only when every underlying check completed.
type accessSet struct {
	// granted[userID][bindingID] is true when the source confirmed access.
	granted map[int64]map[int64]bool
}

func (a *accessSet) has(userID, bindingID int64) bool {
	return a.granted[userID][bindingID]
}

// Resolve classifies the principal set (user and/or group ids) against the
// knowledge base's source bindings. The principal set must be non-empty.
func (r *AccessResolver) Resolve(ctx context.Context, kbID int64, userIDs, groupIDs []int64) (*domain.ShareValidationResult, error) {
	if err := policy.CheckFeature(r.gates, policy.FeatureSharing); err != nil {
		return nil, err
	}
	if len(userIDs) == 0 && len(groupIDs) == 0 {
		return nil, domain.ErrValidation("principal set must not be empty")
	}

	if _, err := r.kbs.GetByID(ctx, kbID); err != nil {
		return nil, err
	}
	bindings, err := r.kbs.ListBindings(ctx, kbID)
	if err != nil {
		return nil, err
	}
	restricted := domain.RestrictedBindings(bindings)

	directUsers, err := r.users.GetByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	if len(directUsers) != len(dedupe(userIDs)) {
		return nil, domain.ErrNotFound("one or more users in the principal set do not exist")
	}

	// Expand groups to their member sets. The pessimistic per-group check
	// below still runs on the un-expanded groups.
	groupMembers := make(map[int64][]domain.User, len(groupIDs))
	for _, gid := range dedupe(groupIDs) {
		if _, err := r.groups.GetByID(ctx, gid); err != nil {
			return nil, err
		}
		members, err := r.groups.ListMembers(ctx, gid)
		if err != nil {
			return nil, err
		}
		groupMembers[gid] = members
	}

	subjects := mergeUsers(directUsers, groupMembers)

	result := &domain.ShareValidationResult{
		SourceRestricted:  len(restricted) > 0,
		BlockingResources: map[int64][]domain.BlockedSource{},
	}

	if len(restricted) == 0 {
		result.CanShare = true
		result.CanShareToUsers = subjects
		return result, nil
	}

	access, err := r.confirmAccess(ctx, restricted, subjects)
	if err != nil {
		return nil, err
	}

	for _, u := range subjects {
		missing := missingBindings(u, restricted, access)
		if policy.UserHasFullAccess(accessVector(u, restricted, access)) {
			result.CanShareToUsers = append(result.CanShareToUsers, u)
			continue
		}
		result.CannotShareToUsers = append(result.CannotShareToUsers, u)
		result.BlockingResources[u.ID] = missing
		result.Recommendations = append(result.Recommendations, recommendationsFor(u, missing)...)
	}

	// Group classification is the named pessimistic rule: one member short
	// of full access blocks the whole group.
	groupsOK := true
	for _, members := range groupMembers {
		for _, b := range restricted {
			vec := make([]bool, 0, len(members))
			for _, m := range members {
				vec = append(vec, m.IsAdmin() || access.has(m.ID, b.ID))
			}
			if !policy.GroupHasBindingAccess(vec) {
				groupsOK = false
			}
		}
	}

	result.CanShare = len(result.CannotShareToUsers) == 0 && groupsOK
	return result, nil
}

// ConfirmAccess runs the per-binding source checks for the given users and
// returns the per-user missing bindings. Shared by the coordinator's
// file-addition and membership-conflict paths.
func (r *AccessResolver) ConfirmAccess(ctx context.Context, bindings []domain.SourceBinding, users []domain.User) (map[int64][]domain.BlockedSource, error) {
	access, err := r.confirmAccess(ctx, bindings, users)
	if err != nil {
		return nil, err
	}
	out := make(map[int64][]domain.BlockedSource)
	for _, u := range users {
		if missing := missingBindings(u, bindings, access); len(missing) > 0 {
			out[u.ID] = missing
		}
	}
	return out, nil
}

// confirmAccess fans out one source check per (binding, user) pair and fails
// fast on the first SourceUnavailable: the errgroup context cancels the
// remaining checks and no partial result escapes.
func (r *AccessResolver) confirmAccess(ctx context.Context, bindings []domain.SourceBinding, users []domain.User) (*accessSet, error) {
	set := &accessSet{granted: make(map[int64]map[int64]bool, len(users))}
	for _, u := range users {
		set.granted[u.ID] = make(map[int64]bool, len(bindings))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChecks)
	var mu sync.Mutex

	for _, b := range bindings {
		for _, u := range users {
			if u.IsAdmin() {
				// Admin bypass applies to resolver checks, not to feature
				// gates; the gate already ran.
				mu.Lock()
				set.granted[u.ID][b.ID] = true
				mu.Unlock()
				continue
			}
			b, u := b, u
			g.Go(func() error {
				ok, err := r.source.HasAccess(ctx, b, u.Email)
				if err != nil {
					return err
				}
				mu.Lock()
				set.granted[u.ID][b.ID] = ok
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return set, nil
}

func missingBindings(u domain.User, bindings []domain.SourceBinding, access *accessSet) []domain.BlockedSource {
	if u.IsAdmin() {
		return nil
	}
	var missing []domain.BlockedSource
	for _, b := range bindings {
		if !access.has(u.ID, b.ID) {
			missing = append(missing, domain.BlockedSource{
				BindingID:  b.ID,
				SourceType: b.SourceType,
				Name:       b.Name,
				URL:        b.URL,
				GrantURL:   b.GrantURL,
			})
		}
	}
	return missing
}

func accessVector(u domain.User, bindings []domain.SourceBinding, access *accessSet) []bool {
	if u.IsAdmin() {
		return nil
	}
	vec := make([]bool, 0, len(bindings))
	for _, b := range bindings {
		vec = append(vec, access.has(u.ID, b.ID))
	}
	return vec
}

// recommendationsFor emits one recommendation per distinct source type the
// user is missing, preferring a binding that exposes a grant link.
func recommendationsFor(u domain.User, missing []domain.BlockedSource) []domain.Recommendation {
	byType := make(map[string]*domain.Recommendation)
	var order []string
	for _, m := range missing {
		rec, seen := byType[m.SourceType]
		if !seen {
			byType[m.SourceType] = &domain.Recommendation{
				UserID:     u.ID,
				Email:      u.Email,
				SourceType: m.SourceType,
				GrantURL:   m.GrantURL,
			}
			order = append(order, m.SourceType)
			continue
		}
		if rec.GrantURL == nil && m.GrantURL != nil {
			rec.GrantURL = m.GrantURL
		}
	}
	out := make([]domain.Recommendation, 0, len(order))
	for _, t := range order {
		out = append(out, *byType[t])
	}
	return out
}

// mergeUsers unions direct users with group members, deduplicated by id,
// ordered by id for stable output.
func mergeUsers(direct []domain.User, groupMembers map[int64][]domain.User) []domain.User {
	seen := make(map[int64]bool)
	var all []domain.User
	for _, u := range direct {
		if !seen[u.ID] {
			seen[u.ID] = true
			all = append(all, u)
		}
	}
	for _, members := range groupMembers {
		for _, u := range members {
			if !seen[u.ID] {
				seen[u.ID] = true
				all = append(all, u)
			}
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	var out []int64
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
