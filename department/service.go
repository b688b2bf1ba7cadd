package department

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"driva/apperr"
)

// Inviter provisions an account for an approved department's contact and
// delivers the invitation.
type Inviter interface {
	Invite(ctx context.Context, email, firstName, lastName, departmentID, departmentName string) error
}

// Service handles department registration and administrator review.
type Service struct {
	repo        Repository
	inviter     Inviter
	logger      *slog.Logger
	idGenerator func() string
	now         func() time.Time
}

func NewService(repo Repository, inviter Inviter, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		inviter:     inviter,
		logger:      logger,
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

// Register stores a new registration request as pending_review.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (Registration, error) {
	name := strings.TrimSpace(req.Name)
	region := strings.TrimSpace(req.Region)
	email := strings.ToLower(strings.TrimSpace(req.ContactEmail))

	if name == "" || region == "" || email == "" {
		return Registration{}, fmt.Errorf("department: name, region, and contact email are required: %w", apperr.ErrValidation)
	}
	if !strings.Contains(email, "@") {
		return Registration{}, fmt.Errorf("department: contact email is malformed: %w", apperr.ErrValidation)
	}

	return s.repo.Insert(ctx, Registration{
		ID:               s.idGenerator(),
		Name:             name,
		Region:           region,
		District:         strings.TrimSpace(req.District),
		Address:          strings.TrimSpace(req.Address),
		ContactFirstName: strings.TrimSpace(req.ContactFirstName),
		ContactLastName:  strings.TrimSpace(req.ContactLastName),
		ContactEmail:     email,
		ContactPhone:     strings.TrimSpace(req.ContactPhone),
		SubmittedAt:      s.now().UTC(),
	})
}

// Review applies an administrator decision. Approval provisions and invites
// the contact's account; if the invitation fails the status change is
// compensated back to pending_review so the registration can be re-approved
// once delivery works. An approved-but-uninvited department would be the
// worse inconsistent state.
func (s *Service) Review(ctx context.Context, registrationID string, decision Status) (Registration, error) {
	if decision != StatusApproved && decision != StatusRejected {
		return Registration{}, fmt.Errorf("department: decision must be approved or rejected: %w", apperr.ErrValidation)
	}

	reviewedAt := s.now().UTC()
	rec, err := s.repo.SetStatus(ctx, registrationID, StatusPendingReview, decision, &reviewedAt)
	if err != nil {
		return Registration{}, err
	}

	if decision != StatusApproved {
		return rec, nil
	}

	if err := s.inviter.Invite(ctx, rec.ContactEmail, rec.ContactFirstName, rec.ContactLastName, rec.ID, rec.Name); err != nil {
		if _, revertErr := s.repo.SetStatus(ctx, registrationID, StatusApproved, StatusPendingReview, nil); revertErr != nil {
			s.logger.ErrorContext(ctx, "failed to compensate department approval",
				"registration_id", registrationID,
				"invite_error", err,
				"revert_error", revertErr,
			)
		}
		return Registration{}, fmt.Errorf("department: invite contact: %v: %w", err, apperr.ErrInvitation)
	}

	return rec, nil
}

// ListPending returns the review queue, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]Registration, error) {
	return s.repo.ListByStatus(ctx, StatusPendingReview)
}

// Get returns one registration.
func (s *Service) Get(ctx context.Context, id string) (Registration, error) {
	if id == "" {
		return Registration{}, fmt.Errorf("department: missing registration id: %w", apperr.ErrValidation)
	}
	return s.repo.GetByID(ctx, id)
}
