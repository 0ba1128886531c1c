package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"vaquita/internal/delivery/http/helpers"
	"vaquita/internal/delivery/http/middleware"
	"vaquita/internal/domain"
)

// JoinRequest is the body of POST /eventos/join.
type JoinRequest struct {
	Token string `json:"token"`
}

func (j JoinRequest) Validate() []string {
	if strings.TrimSpace(j.Token) == "" {
		return []string{"token is required"}
	}
	return nil
}

// JoinedEvent summarizes the event the caller joined.
type JoinedEvent struct {
	ID            string `json:"id"`
	Titulo        string `json:"titulo"`
	Participantes int    `json:"participantes"`
}

// JoinResponse is returned by POST /eventos/join.
type JoinResponse struct {
	Success bool        `json:"success"`
	Evento  JoinedEvent `json:"evento"`
}

// JoinSuccessResponse is the 200 envelope of POST /eventos/join.
type JoinSuccessResponse struct {
	Data  JoinResponse      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type InvitationController struct {
	Logger  *slog.Logger
	Service domain.InvitationService
}

func NewInvitationController(logger *slog.Logger, svc domain.InvitationService) *InvitationController {
	return &InvitationController{
		Logger:  logger,
		Service: svc,
	}
}

// JoinByToken godoc
// @Summary Join an event by invitation token
// @Description Adds the caller to the event behind the token and resets every participant to an equal share.
// @Tags eventos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body JoinRequest true "Invitation token"
// @Success 200 {object} controllers.JoinSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: invalid_argument"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthenticated"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: already_exists"
// @Failure 410 {object} helpers.APIResponse "error.code: deadline_exceeded"
// @Failure 412 {object} helpers.APIResponse "error.code: failed_precondition"
// @Failure 429 {object} helpers.APIResponse "error.code: resource_exhausted"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /eventos/join [post]
func (c *InvitationController) JoinByToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthenticated, "unauthenticated")
		return
	}
	var req JoinRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	res, err := c.Service.Redeem(r.Context(), req.Token, userID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, JoinResponse{
		Success: true,
		Evento:  JoinedEvent{ID: res.EventID, Titulo: res.Title, Participantes: res.Participants},
	})
}
