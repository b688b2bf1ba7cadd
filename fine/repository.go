package fine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"driva/apperr"
)

// ErrNotFound signals the requested fine does not exist.
var ErrNotFound = fmt.Errorf("fine: not found: %w", apperr.ErrNotFound)

const fineColumns = `id, citizen_id, officer_id, violation_type, amount, currency, location, issued_at, due_at, status::text, created_at, updated_at`

// Repository provides data access for fines.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertParams contains write parameters for issuing a fine.
type InsertParams struct {
	ID            string
	CitizenID     string
	OfficerID     string
	ViolationType string
	Amount        float64
	Currency      string
	Location      string
	IssuedAt      time.Time
	DueAt         time.Time
}

// Insert creates an outstanding fine row.
func (r *Repository) Insert(ctx context.Context, params InsertParams) (Fine, error) {
	insertSQL := fmt.Sprintf(`
		INSERT INTO fines (id, citizen_id, officer_id, violation_type, amount, currency, location, issued_at, due_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'outstanding')
		RETURNING %s
	`, fineColumns)

	rec, err := scanFine(r.pool.QueryRow(ctx, insertSQL,
		params.ID, params.CitizenID, params.OfficerID, params.ViolationType,
		params.Amount, params.Currency, params.Location, params.IssuedAt, params.DueAt))
	if err != nil {
		return Fine{}, fmt.Errorf("fine: insert: %w", err)
	}
	return rec, nil
}

// GetByID fetches a fine by its primary key.
func (r *Repository) GetByID(ctx context.Context, id string) (Fine, error) {
	selectSQL := fmt.Sprintf(`SELECT %s FROM fines WHERE id = $1`, fineColumns)

	rec, err := scanFine(r.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Fine{}, ErrNotFound
		}
		return Fine{}, fmt.Errorf("fine: query by id: %w", err)
	}
	return rec, nil
}

// List fetches fines matching the filters, newest first, with a total count.
func (r *Repository) List(ctx context.Context, filters Filters) ([]Fine, int, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 || filters.PageSize > 100 {
		filters.PageSize = 20
	}

	where := " WHERE 1=1"
	args := []any{}
	if filters.CitizenID != "" {
		args = append(args, filters.CitizenID)
		where += fmt.Sprintf(" AND citizen_id = $%d", len(args))
	}
	if filters.OfficerID != "" {
		args = append(args, filters.OfficerID)
		where += fmt.Sprintf(" AND officer_id = $%d", len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += fmt.Sprintf(" AND status = $%d::fine_status", len(args))
	}

	query := fmt.Sprintf(`SELECT %s FROM fines%s ORDER BY issued_at DESC LIMIT $%d OFFSET $%d`,
		fineColumns, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)...)
	if err != nil {
		return nil, 0, fmt.Errorf("fine: list: %w", err)
	}
	defer rows.Close()

	records := []Fine{}
	for rows.Next() {
		rec, err := scanFine(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("fine: scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("fine: iterate: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM fines" + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("fine: count: %w", err)
	}

	return records, total, nil
}

// MarkOverdue flips outstanding fines past their due date to overdue and
// returns how many rows changed. Called at startup; there are no background
// workers in this system.
func (r *Repository) MarkOverdue(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE fines
		SET status = 'overdue', updated_at = now()
		WHERE status = 'outstanding' AND due_at < now()
	`)
	if err != nil {
		return 0, fmt.Errorf("fine: mark overdue: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanFine(row pgx.Row) (Fine, error) {
	var rec Fine
	err := row.Scan(
		&rec.ID,
		&rec.CitizenID,
		&rec.OfficerID,
		&rec.ViolationType,
		&rec.Amount,
		&rec.Currency,
		&rec.Location,
		&rec.IssuedAt,
		&rec.DueAt,
		&rec.Status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return Fine{}, err
	}
	return rec, nil
}
