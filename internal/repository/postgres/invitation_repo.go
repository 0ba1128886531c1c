package postgres

import (
	"context"
	"database/sql"
	"errors"

	"vaquita/internal/domain"
)

type invitationRepository struct {
	DB *sql.DB
}

func NewInvitationRepository(db *sql.DB) domain.InvitationRepository {
	return &invitationRepository{DB: db}
}

func (r *invitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	query := `
		INSERT INTO invitations (token, event_id, creador, fecha_creacion, expira, usos, max_usos)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.DB.ExecContext(ctx, query, inv.Token, inv.EventID, inv.CreatorID, inv.CreatedAt, inv.ExpiresAt, inv.Uses, inv.MaxUses)
	return err
}

func (r *invitationRepository) GetByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	query := `
		SELECT token, event_id, creador, fecha_creacion, expira, usos, max_usos
		FROM invitations
		WHERE token = $1
	`
	inv := &domain.Invitation{}
	var expiresNull sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, token).Scan(
		&inv.Token, &inv.EventID, &inv.CreatorID, &inv.CreatedAt, &expiresNull, &inv.Uses, &inv.MaxUses,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if expiresNull.Valid {
		inv.ExpiresAt = &expiresNull.Time
	}
	return inv, nil
}

// Redeem locks the event row, so concurrent redemptions of the same event
// serialize. The usage counter only moves while below the cap, the insert is
// a no-op for existing members, and any failure rolls back every write.
func (r *invitationRepository) Redeem(ctx context.Context, req domain.JoinRequest) ([]domain.Participant, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT estado FROM events WHERE id = $1 FOR UPDATE`, req.EventID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if domain.Status(status) != domain.StatusOpen {
		return nil, domain.InvalidState("event %s is %s", req.EventID, status)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE invitations
		SET usos = usos + 1
		WHERE token = $1 AND event_id = $2 AND usos < max_usos AND (expira IS NULL OR expira > $3)
	`, req.Token, req.EventID, req.At)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, unusableReason(ctx, tx, req)
	}

	res, err = tx.ExecContext(ctx, `
		INSERT INTO event_participants (event_id, uid, alias, participacion, posicion)
		SELECT $1, $2, $3, 0, COALESCE(MAX(posicion), 0) + 1
		FROM event_participants
		WHERE event_id = $1
		ON CONFLICT (event_id, uid) DO NOTHING
	`, req.EventID, req.Participant.UserID, req.Participant.Alias)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, domain.ErrAlreadyMember
	}

	participants, err := listParticipants(ctx, tx, req.EventID)
	if err != nil {
		return nil, err
	}
	participants = domain.SplitEqually(participants)
	if len(participants) > 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE event_participants SET participacion = $2 WHERE event_id = $1`,
			req.EventID, participants[0].Fraction); err != nil {
			return nil, err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE events SET fecha_actualizacion = $2 WHERE id = $1`, req.EventID, req.At); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return participants, nil
}

// unusableReason explains why the conditional increment matched no row. The
// invitation may have expired or vanished after the caller checked it.
func unusableReason(ctx context.Context, q queryer, req domain.JoinRequest) error {
	var expires sql.NullTime
	err := q.QueryRowContext(ctx, `SELECT expira FROM invitations WHERE token = $1 AND event_id = $2`,
		req.Token, req.EventID).Scan(&expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if expires.Valid && !expires.Time.After(req.At) {
		return domain.ErrInvitationExpired
	}
	return domain.ErrInvitationExhausted
}
