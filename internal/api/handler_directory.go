package api

import (
	"net/http"

	"kbhub/internal/domain"
)

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.directory.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usersToAPI(users))
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Role  string `json:"role"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	u, err := h.directory.CreateUser(r.Context(), &domain.User{
		Email: body.Email,
		Name:  body.Name,
		Role:  domain.Role(body.Role),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userToAPI(*u))
}

func (h *Handler) updateUserRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Role string `json:"role"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	if err := h.directory.UpdateUserRole(r.Context(), id, domain.Role(body.Role)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.directory.DeleteUser(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.directory.ListGroups(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]groupJSON, len(groups))
	for i, g := range groups {
		out[i] = groupToAPI(g)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	g, err := h.directory.CreateGroup(r.Context(), &domain.Group{
		Name:        body.Name,
		Description: body.Description,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, groupToAPI(*g))
}

func (h *Handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.directory.DeleteGroup(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listGroupMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	members, err := h.directory.ListGroupMembers(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usersToAPI(members))
}

func (h *Handler) addGroupMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		UserID int64 `json:"user_id"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	if err := h.directory.AddGroupMember(r.Context(), &domain.GroupMember{
		GroupID: id,
		UserID:  body.UserID,
	}); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeGroupMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	userID, ok := h.idParam(w, r, "userID")
	if !ok {
		return
	}
	if err := h.directory.RemoveGroupMember(r.Context(), &domain.GroupMember{
		GroupID: id,
		UserID:  userID,
	}); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listKnowledgeBases(w http.ResponseWriter, r *http.Request) {
	kbs, err := h.directory.ListKnowledgeBases(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]knowledgeBaseJSON, len(kbs))
	for i, kb := range kbs {
		out[i] = knowledgeBaseToAPI(kb)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		IsPublic    bool   `json:"is_public"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	kb, err := h.directory.CreateKnowledgeBase(r.Context(), &domain.KnowledgeBase{
		Name:        body.Name,
		Description: body.Description,
		IsPublic:    body.IsPublic,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, knowledgeBaseToAPI(*kb))
}

func (h *Handler) deleteKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.directory.DeleteKnowledgeBase(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listBindings(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	bindings, err := h.directory.ListBindings(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]bindingJSON, len(bindings))
	for i, b := range bindings {
		out[i] = bindingToAPI(b)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) addBinding(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		SourceType       string  `json:"source_type"`
		ExternalID       string  `json:"external_id"`
		Name             string  `json:"name"`
		URL              string  `json:"url"`
		AccessControlled bool    `json:"access_controlled"`
		GrantURL         *string `json:"grant_url"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	b, err := h.directory.AddBinding(r.Context(), &domain.SourceBinding{
		KnowledgeBaseID:  id,
		SourceType:       body.SourceType,
		ExternalID:       body.ExternalID,
		Name:             body.Name,
		URL:              body.URL,
		AccessControlled: body.AccessControlled,
		GrantURL:         body.GrantURL,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bindingToAPI(*b))
}

func (h *Handler) createFile(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.idParam(w, r, "id"); !ok {
		return
	}
	var body struct {
		Name            string `json:"name"`
		SourceBindingID *int64 `json:"source_binding_id"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	f, err := h.directory.CreateFile(r.Context(), &domain.File{
		Name:            body.Name,
		SourceBindingID: body.SourceBindingID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":                f.ID,
		"name":              f.Name,
		"source_binding_id": f.SourceBindingID,
	})
}

func (h *Handler) listGrantedUsers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	users, err := h.directory.ListGrantedUsers(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usersToAPI(users))
}

func (h *Handler) grantUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	userID, ok := h.idParam(w, r, "userID")
	if !ok {
		return
	}
	if err := h.directory.GrantUser(r.Context(), id, userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revokeUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	userID, ok := h.idParam(w, r, "userID")
	if !ok {
		return
	}
	if err := h.directory.RevokeUser(r.Context(), id, userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listGrantedGroups(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	groups, err := h.directory.ListGrantedGroups(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]groupJSON, len(groups))
	for i, g := range groups {
		out[i] = groupToAPI(g)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) grantGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	groupID, ok := h.idParam(w, r, "groupID")
	if !ok {
		return
	}
	if err := h.directory.GrantGroup(r.Context(), id, groupID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revokeGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	groupID, ok := h.idParam(w, r, "groupID")
	if !ok {
		return
	}
	if err := h.directory.RevokeGroup(r.Context(), id, groupID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
