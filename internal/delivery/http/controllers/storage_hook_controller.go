package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"vaquita/internal/delivery/http/helpers"
	"vaquita/internal/domain"
)

// FinalizeRequest is delivered by the storage trigger once an upload completes.
type FinalizeRequest struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

func (f FinalizeRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(f.Path) == "" {
		errs = append(errs, "path is required")
	}
	if f.Size < 0 {
		errs = append(errs, "size must not be negative")
	}
	return errs
}

type FinalizeResponse struct {
	Verdict domain.Verdict `json:"verdict"`
}

type StorageHookController struct {
	Logger    *slog.Logger
	Validator domain.AttachmentValidator
}

func NewStorageHookController(logger *slog.Logger, validator domain.AttachmentValidator) *StorageHookController {
	return &StorageHookController{
		Logger:    logger,
		Validator: validator,
	}
}

// Finalize godoc
// @Summary Storage finalize trigger
// @Description Validates an uploaded attachment. Rejected files are deleted and audited; both outcomes answer 202.
// @Tags hooks
// @Accept json
// @Produce json
// @Param X-Hook-Secret header string true "Shared hook secret"
// @Param body body FinalizeRequest true "Finalized object"
// @Success 202 {object} helpers.APIResponse "data.verdict is accepted, rejected or ignored"
// @Failure 400 {object} helpers.APIResponse "error.code: invalid_argument"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthenticated"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /hooks/storage/finalize [post]
func (c *StorageHookController) Finalize(w http.ResponseWriter, r *http.Request) {
	var req FinalizeRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	verdict, err := c.Validator.Validate(r.Context(), domain.FileObject{
		Path:        req.Path,
		Size:        req.Size,
		ContentType: req.ContentType,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusAccepted, FinalizeResponse{Verdict: verdict})
}
