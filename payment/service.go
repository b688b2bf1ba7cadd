package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"driva/apperr"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service runs the all-or-nothing batch payment workflow.
type Service struct {
	pool        TxBeginner
	repo        Repository
	idGenerator func() string
	now         func() time.Time
}

func NewService(pool TxBeginner, repo Repository) *Service {
	return &Service{
		pool:        pool,
		repo:        repo,
		idGenerator: func() string { return uuid.NewString() },
		now:         time.Now,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// PayParams captures a citizen's batch payment request.
type PayParams struct {
	PayerID string
	FineIDs []string
	Method  string
}

// Pay settles every listed fine or none of them. All fines must exist,
// belong to the payer, and be outstanding or overdue; one payment row is
// written per fine at the fine's current amount and every fine moves to
// paid, all inside a single transaction.
func (s *Service) Pay(ctx context.Context, params PayParams) (int, error) {
	if params.PayerID == "" {
		return 0, fmt.Errorf("payment: missing payer id: %w", apperr.ErrValidation)
	}
	if len(params.FineIDs) == 0 {
		return 0, fmt.Errorf("payment: at least one fine required: %w", apperr.ErrValidation)
	}
	if !ValidMethod(params.Method) {
		return 0, fmt.Errorf("payment: unknown payment method %q: %w", params.Method, apperr.ErrValidation)
	}
	if hasDuplicates(params.FineIDs) {
		return 0, fmt.Errorf("payment: duplicate fine ids in batch: %w", apperr.ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("payment: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	locked, err := s.repo.LockPayable(ctx, tx, params.PayerID, params.FineIDs)
	if err != nil {
		return 0, err
	}
	if len(locked) != len(params.FineIDs) {
		return 0, fmt.Errorf("payment: one or more fines not found, not owned, or not payable: %w", apperr.ErrValidation)
	}

	paidAt := s.now().UTC()
	for _, f := range locked {
		rec := Record{
			ID:            s.idGenerator(),
			FineID:        f.ID,
			PayerID:       params.PayerID,
			Amount:        f.Amount,
			Method:        params.Method,
			Status:        StatusCompleted,
			TransactionID: s.idGenerator(),
			PaidAt:        paidAt,
		}
		if err := s.repo.InsertTx(ctx, tx, rec); err != nil {
			return 0, err
		}
		if err := s.repo.MarkPaidTx(ctx, tx, f.ID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		// Payment rows were written in the same tx as the status flips, but a
		// failed commit leaves the outcome unknown to the caller; surface it
		// distinctly for reconciliation rather than as a plain failure.
		return 0, fmt.Errorf("payment: commit batch: %v: %w", err, apperr.ErrPartial)
	}

	return len(locked), nil
}

// History returns the payer's payment records.
func (s *Service) History(ctx context.Context, payerID string) ([]Record, error) {
	if payerID == "" {
		return nil, fmt.Errorf("payment: missing payer id: %w", apperr.ErrValidation)
	}
	return s.repo.ListByPayer(ctx, payerID)
}

func hasDuplicates(ids []string) bool {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
