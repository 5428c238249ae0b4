package api

import (
	"net/http"
	"strconv"

	"kbhub/internal/domain"
)

func (h *Handler) validateShare(w http.ResponseWriter, r *http.Request) {
	kbID, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		UserIDs  []int64 `json:"user_ids"`
		GroupIDs []int64 `json:"group_ids"`
	}
	if !h.decode(w, r, &body) {
		return
	}

	res, err := h.shares.ValidateShare(r.Context(), kbID, body.UserIDs, body.GroupIDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shareValidationToAPI(res))
}

func (h *Handler) validateFileAddition(w http.ResponseWriter, r *http.Request) {
	kbID, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		FileIDs []int64 `json:"file_ids"`
	}
	if !h.decode(w, r, &body) {
		return
	}

	conflict, err := h.shares.ValidateFileAddition(r.Context(), kbID, body.FileIDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	blocking := make(map[int64][]blockedSourceJSON, len(conflict.BlockingResources))
	for id, bs := range conflict.BlockingResources {
		blocking[id] = blockedSourcesToAPI(bs)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"public":             conflict.Public,
		"becomes_restricted": conflict.BecomesRestricted,
		"blocked_users":      usersToAPI(conflict.BlockedUsers),
		"blocking_resources": blocking,
	})
}

func (h *Handler) usersReadyForAccess(w http.ResponseWriter, r *http.Request) {
	kbID, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}

	res, err := h.shares.UsersReadyForAccess(r.Context(), kbID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shareValidationToAPI(res))
}

func (h *Handler) membershipConflicts(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	candidateID, err := strconv.ParseInt(r.URL.Query().Get("candidate_user_id"), 10, 64)
	if err != nil {
		h.writeError(w, r, domain.ErrValidation("candidate_user_id query parameter is required"))
		return
	}

	conflicts, err := h.shares.DetectMembershipConflicts(r.Context(), groupID, candidateID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]map[string]interface{}, len(conflicts))
	for i, c := range conflicts {
		out[i] = map[string]interface{}{
			"knowledge_base_id":   c.KnowledgeBaseID,
			"knowledge_base_name": c.KnowledgeBaseName,
			"missing_sources":     blockedSourcesToAPI(c.MissingSources),
			"others_missing":      usersToAPI(c.OthersMissing),
		}
	}
	writeJSON(w, http.StatusOK, out)
}
