package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"vaquita/internal/delivery/http/helpers"
	"vaquita/internal/delivery/http/middleware"
	"vaquita/internal/domain"
)

// RegisterPushTokenRequest is the body of POST /push-tokens.
type RegisterPushTokenRequest struct {
	Token string `json:"token"`
}

func (p RegisterPushTokenRequest) Validate() []string {
	if strings.TrimSpace(p.Token) == "" {
		return []string{"token is required"}
	}
	return nil
}

type RegisterPushTokenResponse struct {
	Registered bool `json:"registrado"`
}

type PushTokenController struct {
	Logger  *slog.Logger
	Service domain.PushTokenService
}

func NewPushTokenController(logger *slog.Logger, svc domain.PushTokenService) *PushTokenController {
	return &PushTokenController{
		Logger:  logger,
		Service: svc,
	}
}

// Register godoc
// @Summary Register a push endpoint
// @Description Stores the caller's push endpoint, replacing any previous one.
// @Tags notificaciones
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body RegisterPushTokenRequest true "Push endpoint"
// @Success 200 {object} helpers.APIResponse "data.registrado is true"
// @Failure 400 {object} helpers.APIResponse "error.code: invalid_argument"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthenticated"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /push-tokens [post]
func (c *PushTokenController) Register(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthenticated, "unauthenticated")
		return
	}
	var req RegisterPushTokenRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.Register(r.Context(), userID, req.Token); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, RegisterPushTokenResponse{Registered: true})
}
