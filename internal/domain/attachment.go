package domain

import (
	"context"
	"strings"
)

// FileObject is delivered by the storage finalize trigger.
type FileObject struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// AttachmentPolicy bounds what may be attached to an event.
type AttachmentPolicy struct {
	PathPrefix       string   `yaml:"path_prefix"`
	MaxBytes         int64    `yaml:"max_bytes"`
	MaxPerEvent      int      `yaml:"max_per_event"`
	AllowedMIMETypes []string `yaml:"allowed_mime_types"`
}

// DefaultAttachmentPolicy: 1 MiB, two files, jpeg/png/gif/pdf under eventos/.
func DefaultAttachmentPolicy() AttachmentPolicy {
	return AttachmentPolicy{
		PathPrefix:       "eventos/",
		MaxBytes:         1 << 20,
		MaxPerEvent:      2,
		AllowedMIMETypes: []string{"image/jpeg", "image/png", "image/gif", "application/pdf"},
	}
}

// Allows reports whether contentType is in the allowed set.
// Parameters such as "; charset=binary" are ignored.
func (p AttachmentPolicy) Allows(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	for _, t := range p.AllowedMIMETypes {
		if strings.EqualFold(t, mediaType) {
			return true
		}
	}
	return false
}

// EventIDFromPath extracts the event id from "<prefix><eventID>/...".
func (p AttachmentPolicy) EventIDFromPath(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, p.PathPrefix)
	if !ok {
		return "", false
	}
	eventID, file, ok := strings.Cut(rest, "/")
	if !ok || eventID == "" || file == "" {
		return "", false
	}
	return eventID, true
}

// FileStorage is the File Storage collaborator.
type FileStorage interface {
	Delete(ctx context.Context, path string) error
	// List returns the paths stored under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Verdict is the outcome of validating one uploaded file.
type Verdict string

const (
	VerdictIgnored  Verdict = "ignored"
	VerdictAccepted Verdict = "accepted"
	VerdictRejected Verdict = "rejected"
)

// AttachmentValidator gatekeeps uploaded files.
type AttachmentValidator interface {
	Validate(ctx context.Context, obj FileObject) (Verdict, error)
}
