package api

import (
	"time"

	"kbhub/internal/domain"
)

type userJSON struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func userToAPI(u domain.User) userJSON {
	return userJSON{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

func usersToAPI(us []domain.User) []userJSON {
	out := make([]userJSON, len(us))
	for i, u := range us {
		out[i] = userToAPI(u)
	}
	return out
}

type groupJSON struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func groupToAPI(g domain.Group) groupJSON {
	return groupJSON{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		CreatedAt:   g.CreatedAt,
	}
}

type knowledgeBaseJSON struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsPublic    bool      `json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
}

func knowledgeBaseToAPI(kb domain.KnowledgeBase) knowledgeBaseJSON {
	return knowledgeBaseJSON{
		ID:          kb.ID,
		Name:        kb.Name,
		Description: kb.Description,
		IsPublic:    kb.IsPublic,
		CreatedAt:   kb.CreatedAt,
	}
}

type bindingJSON struct {
	ID               int64   `json:"id"`
	KnowledgeBaseID  int64   `json:"knowledge_base_id"`
	SourceType       string  `json:"source_type"`
	ExternalID       string  `json:"external_id"`
	Name             string  `json:"name"`
	URL              string  `json:"url,omitempty"`
	AccessControlled bool    `json:"access_controlled"`
	GrantURL         *string `json:"grant_url,omitempty"`
}

func bindingToAPI(b domain.SourceBinding) bindingJSON {
	return bindingJSON{
		ID:               b.ID,
		KnowledgeBaseID:  b.KnowledgeBaseID,
		SourceType:       b.SourceType,
		ExternalID:       b.ExternalID,
		Name:             b.Name,
		URL:              b.URL,
		AccessControlled: b.AccessControlled,
		GrantURL:         b.GrantURL,
	}
}

type blockedSourceJSON struct {
	BindingID  int64   `json:"binding_id"`
	SourceType string  `json:"source_type"`
	Name       string  `json:"name"`
	URL        string  `json:"url,omitempty"`
	GrantURL   *string `json:"grant_url,omitempty"`
}

func blockedSourcesToAPI(bs []domain.BlockedSource) []blockedSourceJSON {
	out := make([]blockedSourceJSON, len(bs))
	for i, b := range bs {
		out[i] = blockedSourceJSON{
			BindingID:  b.BindingID,
			SourceType: b.SourceType,
			Name:       b.Name,
			URL:        b.URL,
			GrantURL:   b.GrantURL,
		}
	}
	return out
}

type recommendationJSON struct {
	UserID     int64   `json:"user_id"`
	Email      string  `json:"email"`
	SourceType string  `json:"source_type"`
	GrantURL   *string `json:"grant_url,omitempty"`
}

type shareValidationJSON struct {
	CanShare           bool                          `json:"can_share"`
	SourceRestricted   bool                          `json:"source_restricted"`
	CanShareToUsers    []userJSON                    `json:"can_share_to_users"`
	CannotShareToUsers []userJSON                    `json:"cannot_share_to_users"`
	BlockingResources  map[int64][]blockedSourceJSON `json:"blocking_resources,omitempty"`
	Recommendations    []recommendationJSON          `json:"recommendations,omitempty"`
}

func shareValidationToAPI(res *domain.ShareValidationResult) shareValidationJSON {
	out := shareValidationJSON{
		CanShare:           res.CanShare,
		SourceRestricted:   res.SourceRestricted,
		CanShareToUsers:    usersToAPI(res.CanShareToUsers),
		CannotShareToUsers: usersToAPI(res.CannotShareToUsers),
	}
	if len(res.BlockingResources) > 0 {
		out.BlockingResources = make(map[int64][]blockedSourceJSON, len(res.BlockingResources))
		for id, bs := range res.BlockingResources {
			out.BlockingResources[id] = blockedSourcesToAPI(bs)
		}
	}
	for _, rec := range res.Recommendations {
		out.Recommendations = append(out.Recommendations, recommendationJSON{
			UserID:     rec.UserID,
			Email:      rec.Email,
			SourceType: rec.SourceType,
			GrantURL:   rec.GrantURL,
		})
	}
	return out
}
