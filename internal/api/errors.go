package api

import (
	"errors"
	"net/http"

	"kbhub/internal/domain"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// httpStatusFromDomainError maps domain errors to HTTP status codes. Invite
// state errors carry the state: expired is 410, the other terminal states are
// conflicts. A degraded source check is the upstream's failure, 502.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	var unavailable *domain.SourceUnavailableError
	var state *domain.InviteStateError

	switch {
	case errors.As(err, &state):
		if state.State == domain.InviteExpired {
			return http.StatusGone
		}
		return http.StatusConflict
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &unavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// kindFromDomainError names the error class for API clients.
func kindFromDomainError(err error) string {
	var notFound *domain.NotFoundError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	var unavailable *domain.SourceUnavailableError
	var state *domain.InviteStateError

	switch {
	case errors.As(err, &state):
		switch state.State {
		case domain.InviteExpired:
			return "expired"
		case domain.InviteAccepted:
			return "already_accepted"
		default:
			return "revoked"
		}
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &accessDenied):
		return "access_denied"
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &conflict):
		return "conflict"
	case errors.As(err, &unavailable):
		return "source_unavailable"
	default:
		return "internal"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		// Internals are logged, never leaked.
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		message = "internal server error"
	}
	writeJSON(w, status, errorResponse{Code: status, Message: message, Kind: kindFromDomainError(err)})
}
