package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kbhub/internal/domain"
	"kbhub/internal/service"
)

type inviteJSON struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name,omitempty"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	InviterID   int64     `json:"inviter_id"`
	TokenPrefix string    `json:"token_prefix"`
	EmailSent   bool      `json:"email_sent"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// inviteToAPI omits the token hash and ciphertext: the raw token leaves the
// server only in the create response and the mailed link.
func inviteToAPI(inv domain.Invite) inviteJSON {
	return inviteJSON{
		ID:          inv.ID,
		Email:       inv.Email,
		Name:        inv.Name,
		Role:        string(inv.Role),
		Status:      string(inv.Status),
		InviterID:   inv.InviterID,
		TokenPrefix: inv.TokenPrefix,
		EmailSent:   inv.EmailSent,
		CreatedAt:   inv.CreatedAt,
		ExpiresAt:   inv.ExpiresAt,
	}
}

func (h *Handler) createInvite(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email     string `json:"email"`
		Name      string `json:"name"`
		Role      string `json:"role"`
		SendEmail bool   `json:"send_email"`
	}
	if !h.decode(w, r, &body) {
		return
	}

	inv, rawToken, err := h.invites.Create(r.Context(), service.CreateInviteInput{
		Email:     body.Email,
		Name:      body.Name,
		Role:      domain.Role(body.Role),
		SendEmail: body.SendEmail,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"invite":      inviteToAPI(*inv),
		"token":       rawToken,
		"invite_link": h.invites.InviteLink(rawToken),
	})
}

func (h *Handler) listInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := h.invites.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]inviteJSON, len(invites))
	for i, inv := range invites {
		out[i] = inviteToAPI(inv)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) resendInvite(w http.ResponseWriter, r *http.Request) {
	sent, err := h.invites.Resend(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"email_sent": sent})
}

func (h *Handler) revokeInvite(w http.ResponseWriter, r *http.Request) {
	if err := h.invites.Revoke(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// validateInvite is unauthenticated: the invitee follows the mailed link
// before having any session.
func (h *Handler) validateInvite(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.writeError(w, r, domain.ErrValidation("token query parameter is required"))
		return
	}

	inv, err := h.invites.Validate(r.Context(), token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"email":      inv.Email,
		"name":       inv.Name,
		"role":       string(inv.Role),
		"expires_at": inv.ExpiresAt,
	})
}

func (h *Handler) acceptInvite(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token    string `json:"token"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	if body.Token == "" {
		h.writeError(w, r, domain.ErrValidation("token is required"))
		return
	}

	session, user, err := h.invites.Accept(r.Context(), body.Token, body.Password, body.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": map[string]interface{}{
			"token":      session.Token,
			"expires_at": session.ExpiresAt,
		},
		"user": userToAPI(*user),
	})
}
