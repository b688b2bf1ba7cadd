package department

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"driva/apperr"
)

func newTestService(repo *fakeRepo, inviter *fakeInviter) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, inviter, logger)
	n := 0
	svc.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("dept-%d", n)
	})
	svc.WithClock(func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) })
	return svc
}

func validRequest() RegisterRequest {
	return RegisterRequest{
		Name:             "Khomas Roads Authority",
		Region:           "Khomas",
		District:         "Windhoek",
		Address:          "12 Independence Ave",
		ContactFirstName: "Bola",
		ContactLastName:  "Adeyemi",
		ContactEmail:     "e@x.com",
		ContactPhone:     "+264811234567",
	}
}

func TestRegister_CreatesPendingReview(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeInviter{})

	rec, err := svc.Register(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if rec.Status != StatusPendingReview {
		t.Fatalf("expected pending_review, got %s", rec.Status)
	}
	if rec.ContactEmail != "e@x.com" {
		t.Fatalf("unexpected contact email %q", rec.ContactEmail)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeInviter{})

	for i, mutate := range []func(*RegisterRequest){
		func(r *RegisterRequest) { r.Name = " " },
		func(r *RegisterRequest) { r.Region = "" },
		func(r *RegisterRequest) { r.ContactEmail = "" },
		func(r *RegisterRequest) { r.ContactEmail = "not-an-email" },
	} {
		req := validRequest()
		mutate(&req)
		if _, err := svc.Register(context.Background(), req); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeInviter{})

	if _, err := svc.Register(context.Background(), validRequest()); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(context.Background(), validRequest()); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}
}

func TestReview_ApproveInvitesContact(t *testing.T) {
	repo := newFakeRepo()
	inviter := &fakeInviter{}
	svc := newTestService(repo, inviter)

	rec, err := svc.Register(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	reviewed, err := svc.Review(context.Background(), rec.ID, StatusApproved)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != StatusApproved {
		t.Fatalf("expected approved, got %s", reviewed.Status)
	}
	if len(inviter.invited) != 1 {
		t.Fatalf("expected one invitation, got %d", len(inviter.invited))
	}
	if inviter.invited[0] != "e@x.com" {
		t.Fatalf("expected invitation to e@x.com, got %s", inviter.invited[0])
	}
}

func TestReview_RejectDoesNotInvite(t *testing.T) {
	repo := newFakeRepo()
	inviter := &fakeInviter{}
	svc := newTestService(repo, inviter)

	rec, _ := svc.Register(context.Background(), validRequest())
	reviewed, err := svc.Review(context.Background(), rec.ID, StatusRejected)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != StatusRejected {
		t.Fatalf("expected rejected, got %s", reviewed.Status)
	}
	if len(inviter.invited) != 0 {
		t.Fatal("expected no invitation on rejection")
	}
}

func TestReview_InvitationFailureCompensates(t *testing.T) {
	repo := newFakeRepo()
	inviter := &fakeInviter{err: errors.New("relay down")}
	svc := newTestService(repo, inviter)

	rec, _ := svc.Register(context.Background(), validRequest())
	_, err := svc.Review(context.Background(), rec.ID, StatusApproved)
	if !errors.Is(err, apperr.ErrInvitation) {
		t.Fatalf("expected invitation error, got %v", err)
	}

	stored := repo.rows[rec.ID]
	if stored.Status != StatusPendingReview {
		t.Fatalf("expected compensation back to pending_review, got %s", stored.Status)
	}
}

func TestReview_TerminalStatesRejectFurtherReview(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeInviter{})

	rec, _ := svc.Register(context.Background(), validRequest())
	if _, err := svc.Review(context.Background(), rec.ID, StatusRejected); err != nil {
		t.Fatalf("first review: %v", err)
	}
	if _, err := svc.Review(context.Background(), rec.ID, StatusApproved); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected invalid state on second review, got %v", err)
	}
}

func TestReview_UnknownRegistration(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeInviter{})

	if _, err := svc.Review(context.Background(), "missing", StatusApproved); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// fakes

type fakeRepo struct {
	rows map[string]*Registration
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[string]*Registration)}
}

func (r *fakeRepo) Insert(ctx context.Context, rec Registration) (Registration, error) {
	for _, existing := range r.rows {
		if strings.EqualFold(existing.ContactEmail, rec.ContactEmail) {
			return Registration{}, ErrDuplicateContact
		}
	}
	rec.Status = StatusPendingReview
	stored := rec
	r.rows[rec.ID] = &stored
	return rec, nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id string) (Registration, error) {
	rec, ok := r.rows[id]
	if !ok {
		return Registration{}, ErrNotFound
	}
	return *rec, nil
}

func (r *fakeRepo) SetStatus(ctx context.Context, id string, expected, next Status, reviewedAt *time.Time) (Registration, error) {
	rec, ok := r.rows[id]
	if !ok {
		return Registration{}, ErrNotFound
	}
	if rec.Status != expected {
		return Registration{}, ErrAlreadyReviewed
	}
	rec.Status = next
	rec.ReviewedAt = reviewedAt
	return *rec, nil
}

func (r *fakeRepo) ListByStatus(ctx context.Context, status Status) ([]Registration, error) {
	out := []Registration{}
	for _, rec := range r.rows {
		if rec.Status == status {
			out = append(out, *rec)
		}
	}
	return out, nil
}

type fakeInviter struct {
	invited []string
	err     error
}

func (i *fakeInviter) Invite(ctx context.Context, email, firstName, lastName, departmentID, departmentName string) error {
	if i.err != nil {
		return i.err
	}
	i.invited = append(i.invited, email)
	return nil
}
