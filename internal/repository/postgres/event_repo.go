package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"vaquita/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO events (id, titulo, moneda, monto, repeticion, estado, forma_pago, fecha_vencimiento, creador,
			fecha_creacion, token, detalle, participantes_definidos, periodo, fecha_actualizacion)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = tx.ExecContext(ctx, query,
		e.ID, e.Title, string(e.Currency), e.Amount, string(e.Recurrence), string(e.Status), e.PaymentMethod, e.DueAt,
		e.CreatorID, e.CreatedAt, e.Token, nullString(e.Detail), e.ExpectedParticipants, e.Period, e.UpdatedAt,
	)
	if err != nil {
		return err
	}
	for i, p := range e.Participants {
		if err := insertParticipant(ctx, tx, e.ID, p, i+1); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertParticipant(ctx context.Context, q queryer, eventID string, p domain.Participant, position int) error {
	query := `
		INSERT INTO event_participants (event_id, uid, alias, participacion, posicion)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := q.ExecContext(ctx, query, eventID, p.UserID, p.Alias, p.Fraction, position)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyMember
		}
		return err
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT id, titulo, moneda, monto, repeticion, estado, forma_pago, fecha_vencimiento, creador, fecha_creacion,
			quien_pago, fecha_pago, token, detalle, participantes_definidos, periodo, liquidado_en, siguiente_id,
			fecha_actualizacion
		FROM events
		WHERE id = $1
	`
	e := &domain.Event{}
	var currency, recurrence, status string
	var dueNull, paidNull, settledNull sql.NullTime
	var payerNull, detailNull, nextNull sql.NullString
	var expectedNull sql.NullInt64
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Title, &currency, &e.Amount, &recurrence, &status, &e.PaymentMethod, &dueNull, &e.CreatorID, &e.CreatedAt,
		&payerNull, &paidNull, &e.Token, &detailNull, &expectedNull, &e.Period, &settledNull, &nextNull,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	e.Currency = domain.Currency(currency)
	e.Recurrence = domain.Recurrence(recurrence)
	e.Status = domain.Status(status)
	e.PayerID = payerNull.String
	e.Detail = detailNull.String
	e.NextEventID = nextNull.String
	if dueNull.Valid {
		e.DueAt = &dueNull.Time
	}
	if paidNull.Valid {
		e.PaidAt = &paidNull.Time
	}
	if settledNull.Valid {
		e.SettledAt = &settledNull.Time
	}
	if expectedNull.Valid {
		n := int(expectedNull.Int64)
		e.ExpectedParticipants = &n
	}

	if e.Participants, err = listParticipants(ctx, r.DB, id); err != nil {
		return nil, err
	}
	if e.Attachments, err = r.listAttachments(ctx, id); err != nil {
		return nil, err
	}
	return e, nil
}

// listParticipants returns the participants of eventID in join order.
func listParticipants(ctx context.Context, q queryer, eventID string) ([]domain.Participant, error) {
	query := `
		SELECT uid, alias, participacion
		FROM event_participants
		WHERE event_id = $1
		ORDER BY posicion
	`
	rows, err := q.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	participants := make([]domain.Participant, 0)
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.UserID, &p.Alias, &p.Fraction); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *eventRepository) listAttachments(ctx context.Context, eventID string) ([]domain.Attachment, error) {
	query := `
		SELECT path, content_type, size, subido_por, fecha_subida
		FROM event_attachments
		WHERE event_id = $1
		ORDER BY fecha_subida, path
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	attachments := make([]domain.Attachment, 0)
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.Path, &a.ContentType, &a.Size, &a.UploadedBy, &a.UploadedAt); err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

func (r *eventRepository) Close(ctx context.Context, id, payerID, paymentMethod string, paidAt time.Time) (*domain.Event, error) {
	query := `
		UPDATE events
		SET estado = 'cerrado', quien_pago = COALESCE($2, creador), forma_pago = $3, fecha_pago = $4, fecha_actualizacion = $4
		WHERE id = $1 AND estado = 'abierto'
	`
	res, err := r.DB.ExecContext(ctx, query, id, nullString(payerID), paymentMethod, paidAt)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.InvalidState("event %s is %s", id, e.Status)
	}
	return e, nil
}

func (r *eventRepository) Reopen(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE events
		SET estado = 'abierto', quien_pago = NULL, fecha_pago = NULL, liquidado_en = NULL, fecha_actualizacion = NOW()
		WHERE id = $1
	`
	if err := execAffectingOne(ctx, tx, query, id); err != nil {
		return err
	}

	// Undo the deltas recorded by ApplySettlement so a later close accrues
	// against the event as it is then.
	revert := `
		UPDATE balances b
		SET saldo = b.saldo - s.delta, fecha_actualizacion = NOW()
		FROM event_settlements s
		WHERE s.event_id = $1 AND b.id = s.balance_id
	`
	if _, err := tx.ExecContext(ctx, revert, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM event_settlements WHERE event_id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *eventRepository) ClaimSuccessor(ctx context.Context, id, nextID string) (bool, error) {
	query := `
		UPDATE events
		SET siguiente_id = $2
		WHERE id = $1 AND siguiente_id IS NULL
	`
	res, err := r.DB.ExecContext(ctx, query, id, nextID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *eventRepository) ReleaseSuccessor(ctx context.Context, id, nextID string) error {
	query := `
		UPDATE events
		SET siguiente_id = NULL
		WHERE id = $1 AND siguiente_id = $2
	`
	_, err := r.DB.ExecContext(ctx, query, id, nextID)
	return err
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	return execAffectingOne(ctx, r.DB, `DELETE FROM events WHERE id = $1`, id)
}

func (r *eventRepository) CountAttachments(ctx context.Context, id string) (int, error) {
	query := `
		SELECT COUNT(a.path)
		FROM events e
		LEFT JOIN event_attachments a ON a.event_id = e.id
		WHERE e.id = $1
		GROUP BY e.id
	`
	var n int
	if err := r.DB.QueryRowContext(ctx, query, id).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return n, nil
}

// execAffectingOne runs query and maps zero affected rows to ErrNotFound.
func execAffectingOne(ctx context.Context, q queryer, query string, args ...any) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
