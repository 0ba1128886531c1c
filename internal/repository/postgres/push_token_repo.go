package postgres

import (
	"context"
	"database/sql"
	"errors"

	"vaquita/internal/domain"
)

type pushTokenRepository struct {
	DB *sql.DB
}

func NewPushTokenRepository(db *sql.DB) domain.PushTokenRepository {
	return &pushTokenRepository{DB: db}
}

func (r *pushTokenRepository) Upsert(ctx context.Context, userID, token string) error {
	query := `
		INSERT INTO push_tokens (uid, token, fecha_actualizacion)
		VALUES ($1, $2, NOW())
		ON CONFLICT (uid) DO UPDATE
		SET token = EXCLUDED.token, fecha_actualizacion = EXCLUDED.fecha_actualizacion
	`
	_, err := r.DB.ExecContext(ctx, query, userID, token)
	return err
}

func (r *pushTokenRepository) GetByUserID(ctx context.Context, userID string) (string, error) {
	var token string
	err := r.DB.QueryRowContext(ctx, `SELECT token FROM push_tokens WHERE uid = $1`, userID).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return token, nil
}
