package department

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"driva/apperr"
)

var (
	// ErrNotFound signals the registration does not exist.
	ErrNotFound = fmt.Errorf("department: registration not found: %w", apperr.ErrNotFound)
	// ErrDuplicateContact signals the contact email is already registered.
	ErrDuplicateContact = fmt.Errorf("department: contact email already registered: %w", apperr.ErrConflict)
	// ErrAlreadyReviewed signals the registration left pending_review already.
	ErrAlreadyReviewed = fmt.Errorf("department: registration already reviewed: %w", apperr.ErrInvalidState)
)

const departmentColumns = `id, name, region, district, address, contact_first_name, contact_last_name, contact_email, contact_phone, status::text, submitted_at, reviewed_at`

// Repository handles data access for department registrations.
type Repository interface {
	Insert(ctx context.Context, rec Registration) (Registration, error)
	GetByID(ctx context.Context, id string) (Registration, error)
	SetStatus(ctx context.Context, id string, expected, next Status, reviewedAt *time.Time) (Registration, error)
	ListByStatus(ctx context.Context, status Status) ([]Registration, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert creates a pending_review registration row.
func (r *PGRepository) Insert(ctx context.Context, rec Registration) (Registration, error) {
	insertSQL := fmt.Sprintf(`
		INSERT INTO departments (id, name, region, district, address, contact_first_name, contact_last_name, contact_email, contact_phone, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending_review', $10)
		RETURNING %s
	`, departmentColumns)

	created, err := scanRegistration(r.pool.QueryRow(ctx, insertSQL,
		rec.ID, rec.Name, rec.Region, rec.District, rec.Address,
		rec.ContactFirstName, rec.ContactLastName, rec.ContactEmail, rec.ContactPhone, rec.SubmittedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Registration{}, ErrDuplicateContact
		}
		return Registration{}, fmt.Errorf("department: insert: %w", err)
	}
	return created, nil
}

// GetByID fetches a registration by its primary key.
func (r *PGRepository) GetByID(ctx context.Context, id string) (Registration, error) {
	query := fmt.Sprintf(`SELECT %s FROM departments WHERE id = $1`, departmentColumns)

	rec, err := scanRegistration(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Registration{}, ErrNotFound
		}
		return Registration{}, fmt.Errorf("department: get by id: %w", err)
	}
	return rec, nil
}

// SetStatus applies a guarded status change. A guard miss distinguishes a
// missing registration from one already reviewed.
func (r *PGRepository) SetStatus(ctx context.Context, id string, expected, next Status, reviewedAt *time.Time) (Registration, error) {
	updateSQL := fmt.Sprintf(`
		UPDATE departments
		SET status = $1::department_status, reviewed_at = $2
		WHERE id = $3 AND status = $4::department_status
		RETURNING %s
	`, departmentColumns)

	rec, err := scanRegistration(r.pool.QueryRow(ctx, updateSQL, next, reviewedAt, id, expected))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Registration{}, fmt.Errorf("department: set status: %w", err)
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return Registration{}, err
	}
	return Registration{}, ErrAlreadyReviewed
}

// ListByStatus returns registrations in the given status, oldest first so
// reviewers work the queue in order.
func (r *PGRepository) ListByStatus(ctx context.Context, status Status) ([]Registration, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM departments
		WHERE status = $1::department_status
		ORDER BY submitted_at ASC
	`, departmentColumns)

	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("department: list: %w", err)
	}
	defer rows.Close()

	out := make([]Registration, 0, 8)
	for rows.Next() {
		rec, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("department: scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("department: iterate: %w", err)
	}
	return out, nil
}

func scanRegistration(row pgx.Row) (Registration, error) {
	var rec Registration
	err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Region,
		&rec.District,
		&rec.Address,
		&rec.ContactFirstName,
		&rec.ContactLastName,
		&rec.ContactEmail,
		&rec.ContactPhone,
		&rec.Status,
		&rec.SubmittedAt,
		&rec.ReviewedAt,
	)
	if err != nil {
		return Registration{}, err
	}
	return rec, nil
}
