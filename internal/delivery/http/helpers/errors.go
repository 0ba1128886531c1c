package helpers

import (
	"errors"
	"log/slog"
	"net/http"

	"vaquita/internal/domain"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// Order matters: the first sentinel found in the chain wins.
var errorMappings = []errorMapping{
	{domain.ErrInvalidArgument, http.StatusBadRequest, ErrCodeInvalidArgument},
	{domain.ErrUnauthenticated, http.StatusUnauthorized, ErrCodeUnauthenticated},
	{domain.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
	{domain.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{domain.ErrAlreadyMember, http.StatusConflict, ErrCodeAlreadyExists},
	{domain.ErrInvalidState, http.StatusPreconditionFailed, ErrCodeFailedPrecondition},
	{domain.ErrAlreadySettled, http.StatusPreconditionFailed, ErrCodeFailedPrecondition},
	{domain.ErrInvitationExpired, http.StatusGone, ErrCodeDeadlineExceeded},
	{domain.ErrInvitationExhausted, http.StatusTooManyRequests, ErrCodeResourceExhausted},
}

// StatusFor returns the HTTP status and error code for err.
// Unknown errors and store failures map to 500 internal_error.
func StatusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}

// WriteServiceError writes the envelope for an error returned by a service.
// Internal errors are logged and their detail is not sent to the client.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		WriteJSONError(w, status, code, "internal error")
		return
	}
	WriteJSONError(w, status, code, err.Error())
}
