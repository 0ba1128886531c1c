package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"vaquita/internal/delivery/http/helpers"
	"vaquita/internal/delivery/http/middleware"
	"vaquita/internal/domain"
)

// CreateEventRequest is the body of POST /eventos.
type CreateEventRequest struct {
	Titulo                 string     `json:"titulo"`
	Monto                  float64    `json:"monto"`
	Moneda                 string     `json:"moneda"`
	Repeticion             string     `json:"repeticion"`
	FormaPago              string     `json:"forma_pago,omitempty"`
	FechaVencimiento       *time.Time `json:"fecha_vencimiento,omitempty"`
	Detalle                string     `json:"detalle,omitempty"`
	ParticipantesDefinidos *int       `json:"participantes_definidos,omitempty"`
}

// Validate implements helpers.Validator. The remaining attribute rules are
// enforced by the event itself.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if !domain.ValidAmount(c.Monto) {
		errs = append(errs, "monto must be a positive number")
	}
	return errs
}

// CreateEventResponse is returned by POST /eventos.
type CreateEventResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// CreateEventSuccessResponse is the 201 envelope of POST /eventos.
type CreateEventSuccessResponse struct {
	Data  CreateEventResponse `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// CloseEventRequest is the optional body of POST /eventos/{id}/cerrar.
type CloseEventRequest struct {
	QuienPago string `json:"quien_pago,omitempty"`
	FormaPago string `json:"forma_pago,omitempty"`
}

// EventSuccessResponse is the 200 envelope carrying one event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create a shared expense
// @Description Creates an open event whose only participant is the caller and an invitation token for it.
// @Tags eventos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateEventRequest true "Event attributes"
// @Success 201 {object} controllers.CreateEventSuccessResponse "data contains id and token"
// @Failure 400 {object} helpers.APIResponse "error.code: invalid_argument"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthenticated"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /eventos [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthenticated, "unauthenticated")
		return
	}
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.CreateEvent(r.Context(), domain.CreateEventInput{
		CreatorID:            userID,
		Title:                req.Titulo,
		Amount:               decimal.NewFromFloat(req.Monto),
		Currency:             domain.Currency(req.Moneda),
		Recurrence:           domain.Recurrence(req.Repeticion),
		PaymentMethod:        req.FormaPago,
		DueAt:                req.FechaVencimiento,
		Detail:               req.Detalle,
		ExpectedParticipants: req.ParticipantesDefinidos,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, CreateEventResponse{ID: event.ID, Token: event.Token})
}

// GetEvent godoc
// @Summary Get an event
// @Description Returns the event with its participants and attachments. Only participants may read it.
// @Tags eventos
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthenticated"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /eventos/{id} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthenticated, "unauthenticated")
		return
	}
	eventID := r.PathValue("id")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeInvalidArgument, "missing event id")
		return
	}
	event, err := c.Service.GetEvent(r.Context(), eventID, userID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// CloseEvent godoc
// @Summary Close an event
// @Description Marks the event as paid, folds every participant's share into balances, notifies participants and, for monthly events, creates next month's event. Only the creator may close. When any step fails the event is reopened.
// @Tags eventos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param body body CloseEventRequest false "Payer (defaults to the creator) and payment method"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the closed event"
// @Failure 400 {object} helpers.APIResponse "error.code: invalid_argument"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthenticated"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 412 {object} helpers.APIResponse "error.code: failed_precondition"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /eventos/{id}/cerrar [post]
func (c *EventController) CloseEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthenticated, "unauthenticated")
		return
	}
	eventID := r.PathValue("id")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeInvalidArgument, "missing event id")
		return
	}
	var req CloseEventRequest
	if r.ContentLength != 0 && !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.CloseEvent(r.Context(), eventID, userID, req.QuienPago, req.FormaPago)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}
