package dispute

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"driva/apperr"
	"driva/fine"
	"driva/notify"
	"driva/storage"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// EvidenceFile is one uploaded evidence attachment.
type EvidenceFile struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// Service runs the dispute submission and resolution workflows.
type Service struct {
	pool        TxBeginner
	repo        Repository
	blobs       storage.Store
	mailer      notify.Sender
	logger      *slog.Logger
	idGenerator func() string
	now         func() time.Time
}

func NewService(pool TxBeginner, repo Repository, blobs storage.Store, mailer notify.Sender, logger *slog.Logger) *Service {
	return &Service{
		pool:        pool,
		repo:        repo,
		blobs:       blobs,
		mailer:      mailer,
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

// SubmitParams captures a citizen's dispute submission.
type SubmitParams struct {
	CitizenID string
	FineIDs   []string
	Reason    string
	Evidence  []EvidenceFile
}

// Submit validates the dispute, uploads evidence, creates one pending
// dispute per fine, and marks the fines disputed. Evidence upload happens
// before the transaction; any upload failure aborts the whole submission
// with no dispute attached. The database writes run as one transaction, so
// either every dispute row and fine transition lands or none do.
func (s *Service) Submit(ctx context.Context, params SubmitParams) ([]Record, error) {
	if params.CitizenID == "" {
		return nil, fmt.Errorf("dispute: missing citizen id: %w", apperr.ErrValidation)
	}
	if len(params.FineIDs) == 0 {
		return nil, fmt.Errorf("dispute: at least one fine required: %w", apperr.ErrValidation)
	}
	reason := strings.TrimSpace(params.Reason)
	if reason == "" {
		return nil, fmt.Errorf("dispute: reason required: %w", apperr.ErrValidation)
	}
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return nil, fmt.Errorf("dispute: reason exceeds %d characters: %w", MaxReasonLength, apperr.ErrValidation)
	}
	for _, f := range params.Evidence {
		if !storage.AllowedEvidenceType(f.Filename) {
			return nil, fmt.Errorf("dispute: evidence %q: only pdf, jpg, jpeg, png accepted: %w", f.Filename, apperr.ErrValidation)
		}
		if f.Size > storage.MaxEvidenceSize {
			return nil, fmt.Errorf("dispute: evidence %q exceeds 5MB: %w", f.Filename, apperr.ErrValidation)
		}
	}

	urls, keys, err := s.uploadEvidence(ctx, params)
	if err != nil {
		return nil, err
	}

	records, err := s.submitTx(ctx, params, reason, urls)
	if err != nil {
		// A failed commit may still have landed. Keep the blobs in that
		// case so a committed dispute row never points at deleted evidence;
		// reconciliation owns the cleanup.
		if !errors.Is(err, apperr.ErrPartial) {
			s.removeEvidence(ctx, keys)
		}
		return nil, err
	}
	return records, nil
}

// uploadEvidence writes each attachment under a key scoped by the citizen
// and the first disputed fine. Uploads run sequentially; on any failure the
// already-written blobs are removed so no orphaned evidence is attached.
func (s *Service) uploadEvidence(ctx context.Context, params SubmitParams) (urls, keys []string, err error) {
	for _, f := range params.Evidence {
		key := storage.EvidenceKey(params.CitizenID, params.FineIDs[0], s.idGenerator(), f.Filename)
		url, err := s.blobs.Put(ctx, key, f.Content)
		if err != nil {
			s.removeEvidence(ctx, keys)
			return nil, nil, fmt.Errorf("dispute: upload %q: %w", f.Filename, err)
		}
		urls = append(urls, url)
		keys = append(keys, key)
	}
	return urls, keys, nil
}

func (s *Service) removeEvidence(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.blobs.Remove(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "orphaned evidence blob left behind", "key", key, "error", err)
		}
	}
}

func (s *Service) submitTx(ctx context.Context, params SubmitParams, reason string, urls []string) ([]Record, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("dispute: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	locked, err := s.repo.LockDisputable(ctx, tx, params.CitizenID, params.FineIDs)
	if err != nil {
		return nil, err
	}
	if len(locked) != len(params.FineIDs) {
		return nil, fmt.Errorf("dispute: one or more fines not found, not owned, or not disputable: %w", apperr.ErrValidation)
	}

	if urls == nil {
		urls = []string{}
	}
	submittedAt := s.now().UTC()
	records := make([]Record, 0, len(locked))
	for _, f := range locked {
		rec, err := s.repo.InsertTx(ctx, tx, Record{
			ID:           s.idGenerator(),
			FineID:       f.ID,
			CitizenID:    params.CitizenID,
			Reason:       reason,
			EvidenceURLs: urls,
			SubmittedAt:  submittedAt,
		})
		if err != nil {
			return nil, err
		}
		records = append(records, rec)

		if err := s.repo.SetFineStatusTx(ctx, tx, f.ID,
			fine.SourcesOf(fine.StatusDisputed), fine.StatusDisputed); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		// Disputes were reported created but the commit outcome is unknown;
		// surface this distinctly so operators can reconcile.
		return nil, fmt.Errorf("dispute: commit submission: %v: %w", err, apperr.ErrPartial)
	}

	return records, nil
}

// ResolveParams captures an officer's verdict on a fine's pending dispute.
type ResolveParams struct {
	FineID    string
	OfficerID string
	Decision  Decision
	Notes     string
}

// Resolve applies the officer's decision to the fine's pending dispute:
// approval waives the fine, rejection returns it to outstanding. The
// citizen is notified after commit on a best-effort basis.
func (s *Service) Resolve(ctx context.Context, params ResolveParams) (Record, error) {
	if params.FineID == "" {
		return Record{}, fmt.Errorf("dispute: missing fine id: %w", apperr.ErrValidation)
	}
	if params.OfficerID == "" {
		return Record{}, fmt.Errorf("dispute: missing officer id: %w", apperr.ErrValidation)
	}

	var disputeStatus Status
	var fineNext fine.Status
	switch params.Decision {
	case DecisionApproved:
		disputeStatus, fineNext = StatusApproved, fine.StatusWaived
	case DecisionRejected:
		disputeStatus, fineNext = StatusRejected, fine.StatusOutstanding
	default:
		return Record{}, fmt.Errorf("dispute: decision must be Approved or Rejected: %w", apperr.ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("dispute: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.repo.GetLatestByFineTx(ctx, tx, params.FineID)
	if err != nil {
		return Record{}, err
	}
	if current.Status != StatusPending {
		return Record{}, fmt.Errorf("dispute: dispute is %s, not pending: %w", current.Status, apperr.ErrInvalidState)
	}

	var notes *string
	if trimmed := strings.TrimSpace(params.Notes); trimmed != "" {
		notes = &trimmed
	}

	resolved, err := s.repo.ResolveTx(ctx, tx, current.ID, disputeStatus, params.OfficerID, notes, s.now().UTC())
	if err != nil {
		return Record{}, err
	}

	if err := s.repo.SetFineStatusTx(ctx, tx, params.FineID,
		fine.SourcesOf(fineNext), fineNext); err != nil {
		return Record{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("dispute: commit resolution: %v: %w", err, apperr.ErrPartial)
	}

	s.notifyOutcome(ctx, resolved, params.FineID)

	return resolved, nil
}

// notifyOutcome mails the citizen about the verdict. Failures are logged and
// swallowed; the resolution already committed.
func (s *Service) notifyOutcome(ctx context.Context, resolved Record, fineID string) {
	contact, err := s.repo.CitizenContact(ctx, fineID)
	if err != nil {
		s.logger.WarnContext(ctx, "dispute outcome notification skipped", "fine_id", fineID, "error", err)
		return
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", contact.FullName)
	switch resolved.Status {
	case StatusApproved:
		fmt.Fprintf(&body, "Your dispute for fine %s (%s) was approved. The fine has been waived.\n",
			fineID, contact.ViolationType)
	case StatusRejected:
		fmt.Fprintf(&body, "Your dispute for fine %s (%s) was rejected. The fine is outstanding and due by %s.\n",
			fineID, contact.ViolationType, contact.DueAt.Format("2 January 2006"))
	}
	if resolved.OfficerNotes != nil {
		fmt.Fprintf(&body, "\nOfficer notes: %s\n", *resolved.OfficerNotes)
	}

	msg := notify.Message{
		To:      contact.Email,
		Subject: fmt.Sprintf("Dispute outcome for fine %s", fineID),
		Body:    body.String(),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "dispute outcome notification failed", "fine_id", fineID, "error", err)
	}
}

// List returns the citizen's disputes.
func (s *Service) List(ctx context.Context, citizenID string) ([]Record, error) {
	if citizenID == "" {
		return nil, fmt.Errorf("dispute: missing citizen id: %w", apperr.ErrValidation)
	}
	return s.repo.ListByCitizen(ctx, citizenID)
}

// Get returns one of the citizen's disputes.
func (s *Service) Get(ctx context.Context, citizenID, disputeID string) (Record, error) {
	if citizenID == "" || disputeID == "" {
		return Record{}, fmt.Errorf("dispute: missing identifier: %w", apperr.ErrValidation)
	}
	return s.repo.GetByID(ctx, citizenID, disputeID)
}
