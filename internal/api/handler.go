// Package api exposes the HTTP surface: the public invite endpoints, the
// sharing validation endpoints, and the admin directory CRUD.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"kbhub/internal/domain"
	"kbhub/internal/service"
)

// Handler holds the application services behind the HTTP routes.
type Handler struct {
	invites   *service.InviteService
	shares    *service.ShareCoordinator
	directory *service.DirectoryService
	logger    *slog.Logger
}

func NewHandler(
	invites *service.InviteService,
	shares *service.ShareCoordinator,
	directory *service.DirectoryService,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{invites: invites, shares: shares, directory: directory, logger: logger}
}

// PublicRoutes mounts the unauthenticated endpoints: health and the invite
// landing flow (the invitee has no session yet).
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Get("/healthz", h.health)
	r.Get("/invites/validate", h.validateInvite)
	r.Post("/invites/accept", h.acceptInvite)
}

// ProtectedRoutes mounts everything that requires a session. The caller wraps
// the router with the auth middleware.
func (h *Handler) ProtectedRoutes(r chi.Router) {
	r.Post("/invites", h.createInvite)
	r.Get("/invites", h.listInvites)
	r.Post("/invites/{id}/resend", h.resendInvite)
	r.Post("/invites/{id}/revoke", h.revokeInvite)

	r.Post("/knowledge-bases/{id}/validate-share", h.validateShare)
	r.Post("/knowledge-bases/{id}/validate-file-addition", h.validateFileAddition)
	r.Get("/knowledge-bases/{id}/users-ready-for-access", h.usersReadyForAccess)
	r.Get("/groups/{id}/membership-conflicts", h.membershipConflicts)

	r.Get("/users", h.listUsers)
	r.Post("/users", h.createUser)
	r.Put("/users/{id}/role", h.updateUserRole)
	r.Delete("/users/{id}", h.deleteUser)

	r.Get("/groups", h.listGroups)
	r.Post("/groups", h.createGroup)
	r.Delete("/groups/{id}", h.deleteGroup)
	r.Get("/groups/{id}/members", h.listGroupMembers)
	r.Post("/groups/{id}/members", h.addGroupMember)
	r.Delete("/groups/{id}/members/{userID}", h.removeGroupMember)

	r.Get("/knowledge-bases", h.listKnowledgeBases)
	r.Post("/knowledge-bases", h.createKnowledgeBase)
	r.Delete("/knowledge-bases/{id}", h.deleteKnowledgeBase)
	r.Get("/knowledge-bases/{id}/bindings", h.listBindings)
	r.Post("/knowledge-bases/{id}/bindings", h.addBinding)
	r.Post("/knowledge-bases/{id}/files", h.createFile)

	r.Get("/knowledge-bases/{id}/grants/users", h.listGrantedUsers)
	r.Post("/knowledge-bases/{id}/grants/users/{userID}", h.grantUser)
	r.Delete("/knowledge-bases/{id}/grants/users/{userID}", h.revokeUser)
	r.Get("/knowledge-bases/{id}/grants/groups", h.listGrantedGroups)
	r.Post("/knowledge-bases/{id}/grants/groups/{groupID}", h.grantGroup)
	r.Delete("/knowledge-bases/{id}/grants/groups/{groupID}", h.revokeGroup)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid request body: %v", err))
		return false
	}
	return true
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid %s", name))
		return 0, false
	}
	return id, true
}
