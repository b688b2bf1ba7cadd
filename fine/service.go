package fine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"driva/apperr"
	"driva/auth"
)

// Store abstracts repository operations for the service.
type Store interface {
	Insert(ctx context.Context, params InsertParams) (Fine, error)
	GetByID(ctx context.Context, id string) (Fine, error)
	List(ctx context.Context, filters Filters) ([]Fine, int, error)
	MarkOverdue(ctx context.Context) (int64, error)
}

// Service exposes business-level fine operations.
type Service struct {
	store       Store
	idGenerator func() string
	now         func() time.Time
}

// NewService builds a Service using the provided store.
func NewService(store Store) *Service {
	return &Service{
		store:       store,
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

// IssueParams captures an officer's fine issuance.
type IssueParams struct {
	OfficerID     string
	CitizenID     string
	ViolationType string
	Amount        float64
	Currency      string
	Location      string
	DueAt         time.Time
}

// Issue creates an outstanding fine against a citizen.
func (s *Service) Issue(ctx context.Context, params IssueParams) (Fine, error) {
	if params.OfficerID == "" {
		return Fine{}, fmt.Errorf("fine: missing officer id: %w", apperr.ErrValidation)
	}
	if params.CitizenID == "" {
		return Fine{}, fmt.Errorf("fine: missing citizen id: %w", apperr.ErrValidation)
	}
	if strings.TrimSpace(params.ViolationType) == "" {
		return Fine{}, fmt.Errorf("fine: violation type required: %w", apperr.ErrValidation)
	}
	if params.Amount <= 0 {
		return Fine{}, fmt.Errorf("fine: amount must be positive: %w", apperr.ErrValidation)
	}

	issuedAt := s.now().UTC()
	dueAt := params.DueAt
	if dueAt.IsZero() {
		dueAt = issuedAt.AddDate(0, 0, 30)
	}
	if !dueAt.After(issuedAt) {
		return Fine{}, fmt.Errorf("fine: due date must be after issue date: %w", apperr.ErrValidation)
	}

	currency := params.Currency
	if currency == "" {
		currency = "NAD"
	}

	return s.store.Insert(ctx, InsertParams{
		ID:            s.idGenerator(),
		CitizenID:     params.CitizenID,
		OfficerID:     params.OfficerID,
		ViolationType: strings.TrimSpace(params.ViolationType),
		Amount:        params.Amount,
		Currency:      currency,
		Location:      strings.TrimSpace(params.Location),
		IssuedAt:      issuedAt,
		DueAt:         dueAt,
	})
}

// ListResult bundles a page of fines with the unpaginated total.
type ListResult struct {
	Items []Fine
	Total int
}

// ListForCitizen returns the citizen's own fines.
func (s *Service) ListForCitizen(ctx context.Context, citizenID string, status Status, page, pageSize int) (ListResult, error) {
	if citizenID == "" {
		return ListResult{}, fmt.Errorf("fine: missing citizen id: %w", apperr.ErrValidation)
	}
	items, total, err := s.store.List(ctx, Filters{CitizenID: citizenID, Status: status, Page: page, PageSize: pageSize})
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

// ListIssuedBy returns fines issued by the given officer.
func (s *Service) ListIssuedBy(ctx context.Context, officerID string, status Status, page, pageSize int) (ListResult, error) {
	if officerID == "" {
		return ListResult{}, fmt.Errorf("fine: missing officer id: %w", apperr.ErrValidation)
	}
	items, total, err := s.store.List(ctx, Filters{OfficerID: officerID, Status: status, Page: page, PageSize: pageSize})
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

// Get returns a fine visible to the caller: citizens see their own fines,
// officers and admins see everything.
func (s *Service) Get(ctx context.Context, callerID, callerRole, fineID string) (Fine, error) {
	rec, err := s.store.GetByID(ctx, fineID)
	if err != nil {
		return Fine{}, err
	}
	if callerRole == string(auth.RoleCitizen) && rec.CitizenID != callerID {
		return Fine{}, fmt.Errorf("fine: not owned by caller: %w", apperr.ErrForbidden)
	}
	return rec, nil
}

// SweepOverdue flips outstanding fines past their due date to overdue.
func (s *Service) SweepOverdue(ctx context.Context) (int64, error) {
	return s.store.MarkOverdue(ctx)
}
