package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"vaquita/internal/domain"
)

// Rejection reasons recorded in audit entries.
const (
	reasonContentType   = "content_type"
	reasonSize          = "size"
	reasonLimit         = "limit"
	reasonEventNotFound = "event_not_found"
)

type attachmentValidator struct {
	eventRepo      domain.EventRepository
	storage        domain.FileStorage
	audit          domain.AuditLogger
	policy         domain.AttachmentPolicy
	logger         *slog.Logger
	now            func() time.Time
	contextTimeout time.Duration
}

// NewAttachmentValidator returns the gatekeeper run once per uploaded file.
func NewAttachmentValidator(eventRepo domain.EventRepository, storage domain.FileStorage, audit domain.AuditLogger, policy domain.AttachmentPolicy, logger *slog.Logger, timeout time.Duration) domain.AttachmentValidator {
	return &attachmentValidator{
		eventRepo:      eventRepo,
		storage:        storage,
		audit:          audit,
		policy:         policy,
		logger:         logger,
		now:            time.Now,
		contextTimeout: timeout,
	}
}

// Validate deletes obj from storage when it breaks the attachment policy. It
// never touches the event's attachment list.
//
// The count is the larger of the attachments recorded on the event and the
// other files already stored under the event's prefix. Two uploads finalized
// before either is visible can both pass and exceed the cap.
func (v *attachmentValidator) Validate(ctx context.Context, obj domain.FileObject) (domain.Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, v.contextTimeout)
	defer cancel()

	eventID, ok := v.policy.EventIDFromPath(obj.Path)
	if !ok {
		return domain.VerdictIgnored, nil
	}
	if !v.policy.Allows(obj.ContentType) {
		return v.reject(ctx, obj, eventID, reasonContentType)
	}
	if obj.Size > v.policy.MaxBytes {
		return v.reject(ctx, obj, eventID, reasonSize)
	}

	recorded, err := v.eventRepo.CountAttachments(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return v.reject(ctx, obj, eventID, reasonEventNotFound)
		}
		return "", domain.StorageFailure("count attachments", err)
	}
	stored, err := v.storage.List(ctx, v.policy.PathPrefix+eventID+"/")
	if err != nil {
		return "", domain.StorageFailure("list attachments", err)
	}
	others := 0
	for _, p := range stored {
		if p != obj.Path {
			others++
		}
	}
	if max(recorded, others) >= v.policy.MaxPerEvent {
		return v.reject(ctx, obj, eventID, reasonLimit)
	}
	return domain.VerdictAccepted, nil
}

func (v *attachmentValidator) reject(ctx context.Context, obj domain.FileObject, eventID, reason string) (domain.Verdict, error) {
	if err := v.storage.Delete(ctx, obj.Path); err != nil {
		return "", domain.StorageFailure("delete "+obj.Path, err)
	}
	v.logger.InfoContext(ctx, "attachment rejected", "path", obj.Path, "evento_id", eventID, "reason", reason)
	v.audit.Log(domain.NewAuditEntry(domain.AuditRejected, v.now(),
		domain.WithAuditData(obj),
		domain.WithAuditMetadata("evento_id", eventID),
		domain.WithAuditMetadata("reason", reason),
		domain.WithAuditMetadata("size", strconv.FormatInt(obj.Size, 10)),
	))
	return domain.VerdictRejected, nil
}
