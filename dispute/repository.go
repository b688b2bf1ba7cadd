package dispute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"driva/apperr"
	"driva/fine"
)

var (
	// ErrNotFound signals no dispute exists for the given reference.
	ErrNotFound = fmt.Errorf("dispute: not found: %w", apperr.ErrNotFound)
	// ErrPendingExists signals the fine already has a pending dispute.
	ErrPendingExists = fmt.Errorf("dispute: fine already has a pending dispute: %w", apperr.ErrConflict)
	// ErrFineStale signals the fine's status changed underneath the workflow.
	ErrFineStale = fmt.Errorf("dispute: fine status changed concurrently: %w", apperr.ErrConflict)
)

const disputeColumns = `id, fine_id, citizen_id, reason, evidence_urls, status::text, submitted_at, reviewed_by, reviewed_at, officer_notes`

// Repository defines the data access the dispute workflows require. Mutating
// methods run inside the caller's transaction.
type Repository interface {
	LockDisputable(ctx context.Context, tx pgx.Tx, citizenID string, fineIDs []string) ([]fine.Fine, error)
	InsertTx(ctx context.Context, tx pgx.Tx, rec Record) (Record, error)
	SetFineStatusTx(ctx context.Context, tx pgx.Tx, fineID string, expected []fine.Status, next fine.Status) error
	GetLatestByFineTx(ctx context.Context, tx pgx.Tx, fineID string) (Record, error)
	ResolveTx(ctx context.Context, tx pgx.Tx, disputeID string, status Status, reviewerID string, notes *string, reviewedAt time.Time) (Record, error)
	CitizenContact(ctx context.Context, fineID string) (Contact, error)
	ListByCitizen(ctx context.Context, citizenID string) ([]Record, error)
	GetByID(ctx context.Context, citizenID, disputeID string) (Record, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// LockDisputable row-locks the citizen's fines that are still open to
// dispute. Fines that are missing, foreign, or already closed simply do not
// come back; the caller compares counts.
func (r *PGRepository) LockDisputable(ctx context.Context, tx pgx.Tx, citizenID string, fineIDs []string) ([]fine.Fine, error) {
	const query = `
		SELECT id, citizen_id, officer_id, violation_type, amount, currency, location, issued_at, due_at, status::text, created_at, updated_at
		FROM fines
		WHERE id = ANY($1)
		  AND citizen_id = $2
		  AND status IN ('outstanding', 'overdue')
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, fineIDs, citizenID)
	if err != nil {
		return nil, fmt.Errorf("dispute: lock fines: %w", err)
	}
	defer rows.Close()

	out := make([]fine.Fine, 0, len(fineIDs))
	for rows.Next() {
		var f fine.Fine
		if err := rows.Scan(&f.ID, &f.CitizenID, &f.OfficerID, &f.ViolationType, &f.Amount, &f.Currency,
			&f.Location, &f.IssuedAt, &f.DueAt, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("dispute: scan fine: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dispute: iterate fines: %w", err)
	}
	return out, nil
}

// InsertTx creates a pending dispute row. The partial unique index on
// pending disputes turns a duplicate into ErrPendingExists.
func (r *PGRepository) InsertTx(ctx context.Context, tx pgx.Tx, rec Record) (Record, error) {
	insertSQL := fmt.Sprintf(`
		INSERT INTO disputes (id, fine_id, citizen_id, reason, evidence_urls, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6)
		RETURNING %s
	`, disputeColumns)

	created, err := scanDispute(tx.QueryRow(ctx, insertSQL,
		rec.ID, rec.FineID, rec.CitizenID, rec.Reason, rec.EvidenceURLs, rec.SubmittedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Record{}, ErrPendingExists
		}
		return Record{}, fmt.Errorf("dispute: insert: %w", err)
	}
	return created, nil
}

// SetFineStatusTx applies a guarded fine status transition inside the
// workflow transaction. Every expected -> next pair must be legal per the
// fine status machine; zero rows touched means the fine moved concurrently.
func (r *PGRepository) SetFineStatusTx(ctx context.Context, tx pgx.Tx, fineID string, expected []fine.Status, next fine.Status) error {
	states := make([]string, len(expected))
	for i, s := range expected {
		if !fine.CanTransition(s, next) {
			return fmt.Errorf("dispute: illegal fine transition %s -> %s: %w", s, next, apperr.ErrInvalidState)
		}
		states[i] = string(s)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE fines
		SET status = $1::fine_status, updated_at = now()
		WHERE id = $2 AND status = ANY($3::fine_status[])
	`, next, fineID, states)
	if err != nil {
		return fmt.Errorf("dispute: update fine status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFineStale
	}
	return nil
}

// GetLatestByFineTx fetches the most recent dispute for a fine and locks it
// for review.
func (r *PGRepository) GetLatestByFineTx(ctx context.Context, tx pgx.Tx, fineID string) (Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM disputes
		WHERE fine_id = $1
		ORDER BY submitted_at DESC
		LIMIT 1
		FOR UPDATE
	`, disputeColumns)

	rec, err := scanDispute(tx.QueryRow(ctx, query, fineID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("dispute: get latest by fine: %w", err)
	}
	return rec, nil
}

// ResolveTx records the officer's verdict; the status guard keeps a
// concurrently resolved dispute from being overwritten.
func (r *PGRepository) ResolveTx(ctx context.Context, tx pgx.Tx, disputeID string, status Status, reviewerID string, notes *string, reviewedAt time.Time) (Record, error) {
	updateSQL := fmt.Sprintf(`
		UPDATE disputes
		SET status = $1::dispute_status, reviewed_by = $2, reviewed_at = $3, officer_notes = $4
		WHERE id = $5 AND status = 'pending'
		RETURNING %s
	`, disputeColumns)

	rec, err := scanDispute(tx.QueryRow(ctx, updateSQL, status, reviewerID, reviewedAt, notes, disputeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, fmt.Errorf("dispute: already resolved: %w", apperr.ErrInvalidState)
		}
		return Record{}, fmt.Errorf("dispute: resolve: %w", err)
	}
	return rec, nil
}

// CitizenContact fetches what the outcome notification needs for a fine.
func (r *PGRepository) CitizenContact(ctx context.Context, fineID string) (Contact, error) {
	const query = `
		SELECT u.email, u.full_name, f.violation_type, f.due_at
		FROM fines f
		JOIN users u ON u.id = f.citizen_id
		WHERE f.id = $1
	`

	var c Contact
	err := r.pool.QueryRow(ctx, query, fineID).Scan(&c.Email, &c.FullName, &c.ViolationType, &c.DueAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, ErrNotFound
		}
		return Contact{}, fmt.Errorf("dispute: citizen contact: %w", err)
	}
	return c, nil
}

// ListByCitizen returns the citizen's disputes, newest first.
func (r *PGRepository) ListByCitizen(ctx context.Context, citizenID string) ([]Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM disputes
		WHERE citizen_id = $1
		ORDER BY submitted_at DESC
	`, disputeColumns)

	rows, err := r.pool.Query(ctx, query, citizenID)
	if err != nil {
		return nil, fmt.Errorf("dispute: list: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, 8)
	for rows.Next() {
		rec, err := scanDispute(rows)
		if err != nil {
			return nil, fmt.Errorf("dispute: scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dispute: iterate: %w", err)
	}
	return out, nil
}

// GetByID fetches one dispute scoped to its owning citizen.
func (r *PGRepository) GetByID(ctx context.Context, citizenID, disputeID string) (Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM disputes WHERE id = $1 AND citizen_id = $2`, disputeColumns)

	rec, err := scanDispute(r.pool.QueryRow(ctx, query, disputeID, citizenID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("dispute: get by id: %w", err)
	}
	return rec, nil
}

func scanDispute(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID,
		&rec.FineID,
		&rec.CitizenID,
		&rec.Reason,
		&rec.EvidenceURLs,
		&rec.Status,
		&rec.SubmittedAt,
		&rec.ReviewedBy,
		&rec.ReviewedAt,
		&rec.OfficerNotes,
	)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}
