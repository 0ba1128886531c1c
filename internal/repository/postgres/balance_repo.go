package postgres

import (
	"context"
	"database/sql"
	"time"

	"vaquita/internal/domain"
)

type balanceRepository struct {
	DB *sql.DB
}

func NewBalanceRepository(db *sql.DB) domain.BalanceRepository {
	return &balanceRepository{DB: db}
}

// ApplySettlement claims the event's liquidado_en marker and upserts every
// accrual in one transaction. Each delta is also recorded in event_settlements
// so that Reopen can revert it.
func (r *balanceRepository) ApplySettlement(ctx context.Context, eventID string, accruals []domain.Accrual, at time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE events
		SET liquidado_en = $2
		WHERE id = $1 AND liquidado_en IS NULL
	`, eventID, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrAlreadySettled
	}

	query := `
		INSERT INTO balances (id, usuario_a, usuario_b, moneda, saldo, fecha_actualizacion)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET saldo = balances.saldo + EXCLUDED.saldo, fecha_actualizacion = EXCLUDED.fecha_actualizacion
	`
	record := `
		INSERT INTO event_settlements (event_id, balance_id, delta)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, balance_id) DO UPDATE
		SET delta = event_settlements.delta + EXCLUDED.delta
	`
	for _, a := range accruals {
		id := a.Key.String()
		if _, err := tx.ExecContext(ctx, query, id, a.Key.UserA, a.Key.UserB, string(a.Key.Currency), a.Delta, at); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, record, eventID, id, a.Delta); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *balanceRepository) ListByUser(ctx context.Context, userID string, params domain.PaginationParams) ([]*domain.Balance, int, error) {
	var total int
	countQuery := `
		SELECT COUNT(*)
		FROM balances
		WHERE usuario_a = $1 OR usuario_b = $1
	`
	if err := r.DB.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, usuario_a, usuario_b, moneda, saldo, fecha_actualizacion
		FROM balances
		WHERE usuario_a = $1 OR usuario_b = $1
		ORDER BY fecha_actualizacion DESC, id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.QueryContext(ctx, query, userID, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	balances := make([]*domain.Balance, 0)
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, 0, err
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return balances, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBalance(row rowScanner) (*domain.Balance, error) {
	b := &domain.Balance{}
	var currency string
	if err := row.Scan(&b.ID, &b.UserA, &b.UserB, &currency, &b.Saldo, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Currency = domain.Currency(currency)
	return b, nil
}
