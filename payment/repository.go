package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"driva/apperr"
	"driva/fine"
)

var (
	// ErrAlreadyPaid signals a payment row already exists for the fine; a
	// concurrent payer won the race.
	ErrAlreadyPaid = fmt.Errorf("payment: fine already paid: %w", apperr.ErrConflict)
	// ErrFineStale signals the fine's status changed underneath the batch.
	ErrFineStale = fmt.Errorf("payment: fine status changed concurrently: %w", apperr.ErrConflict)
)

// Repository defines the data access the payment workflow requires.
type Repository interface {
	LockPayable(ctx context.Context, tx pgx.Tx, payerID string, fineIDs []string) ([]fine.Fine, error)
	InsertTx(ctx context.Context, tx pgx.Tx, rec Record) error
	MarkPaidTx(ctx context.Context, tx pgx.Tx, fineID string) error
	ListByPayer(ctx context.Context, payerID string) ([]Record, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// LockPayable row-locks the payer's fines that are still payable. Fines that
// are missing, foreign, or in a non-payable status do not come back; the
// caller compares counts and aborts on any mismatch.
func (r *PGRepository) LockPayable(ctx context.Context, tx pgx.Tx, payerID string, fineIDs []string) ([]fine.Fine, error) {
	const query = `
		SELECT id, citizen_id, officer_id, violation_type, amount, currency, location, issued_at, due_at, status::text, created_at, updated_at
		FROM fines
		WHERE id = ANY($1)
		  AND citizen_id = $2
		  AND status IN ('outstanding', 'overdue')
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, fineIDs, payerID)
	if err != nil {
		return nil, fmt.Errorf("payment: lock fines: %w", err)
	}
	defer rows.Close()

	out := make([]fine.Fine, 0, len(fineIDs))
	for rows.Next() {
		var f fine.Fine
		if err := rows.Scan(&f.ID, &f.CitizenID, &f.OfficerID, &f.ViolationType, &f.Amount, &f.Currency,
			&f.Location, &f.IssuedAt, &f.DueAt, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("payment: scan fine: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("payment: iterate fines: %w", err)
	}
	return out, nil
}

// InsertTx writes one completed payment row. The unique constraint on
// payments.fine_id turns a double-pay race into ErrAlreadyPaid.
func (r *PGRepository) InsertTx(ctx context.Context, tx pgx.Tx, rec Record) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO payments (id, fine_id, payer_id, amount, method, status, transaction_id, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.ID, rec.FineID, rec.PayerID, rec.Amount, rec.Method, rec.Status, rec.TransactionID, rec.PaidAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyPaid
		}
		return fmt.Errorf("payment: insert: %w", err)
	}
	return nil
}

// MarkPaidTx moves a payable fine to paid. The status guard comes from the
// fine transition table, so only statuses allowed into paid are touched; a
// zero-row update means a concurrent transition won.
func (r *PGRepository) MarkPaidTx(ctx context.Context, tx pgx.Tx, fineID string) error {
	sources := fine.SourcesOf(fine.StatusPaid)
	states := make([]string, len(sources))
	for i, s := range sources {
		states[i] = string(s)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE fines
		SET status = 'paid', updated_at = now()
		WHERE id = $1 AND status = ANY($2::fine_status[])
	`, fineID, states)
	if err != nil {
		return fmt.Errorf("payment: mark paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFineStale
	}
	return nil
}

// ListByPayer returns the payer's payment history, newest first.
func (r *PGRepository) ListByPayer(ctx context.Context, payerID string) ([]Record, error) {
	const query = `
		SELECT id, fine_id, payer_id, amount, method, status, transaction_id, paid_at
		FROM payments
		WHERE payer_id = $1
		ORDER BY paid_at DESC
	`

	rows, err := r.pool.Query(ctx, query, payerID)
	if err != nil {
		return nil, fmt.Errorf("payment: list: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, 8)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.FineID, &rec.PayerID, &rec.Amount, &rec.Method,
			&rec.Status, &rec.TransactionID, &rec.PaidAt); err != nil {
			return nil, fmt.Errorf("payment: scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("payment: iterate: %w", err)
	}
	return out, nil
}
