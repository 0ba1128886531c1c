package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"vaquita/internal/domain"
)

type auditRepository struct {
	DB *sql.DB
}

func NewAuditRepository(db *sql.DB) domain.AuditRepository {
	return &auditRepository{DB: db}
}

func (r *auditRepository) Save(ctx context.Context, e domain.AuditEntry) error {
	var data []byte
	if e.Data != nil {
		var err error
		if data, err = json.Marshal(e.Data); err != nil {
			return err
		}
	}
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO audit_log (id, type, data, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.DB.ExecContext(ctx, query, e.ID, e.Type, data, metadata, e.CreatedAt)
	return err
}
