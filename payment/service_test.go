package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"driva/apperr"
	"driva/fine"
)

func newTestService(repo *fakeRepo) (*Service, *fakePool) {
	pool := &fakePool{}
	svc := NewService(pool, repo)
	n := 0
	svc.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
	svc.WithClock(func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) })
	return svc, pool
}

func TestPay_BatchSuccess(t *testing.T) {
	repo := newFakeRepo(
		fine.Fine{ID: "F1", CitizenID: "U", Status: fine.StatusOutstanding, Amount: 400},
		fine.Fine{ID: "F2", CitizenID: "U", Status: fine.StatusOverdue, Amount: 900},
	)
	svc, pool := newTestService(repo)

	count, err := svc.Pay(context.Background(), PayParams{
		PayerID: "U",
		FineIDs: []string{"F1", "F2"},
		Method:  "card",
	})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 fines paid, got %d", count)
	}
	if len(repo.payments) != 2 {
		t.Fatalf("expected 2 payment records, got %d", len(repo.payments))
	}

	amounts := map[string]float64{"F1": 400, "F2": 900}
	txnIDs := map[string]struct{}{}
	for _, p := range repo.payments {
		if p.Amount != amounts[p.FineID] {
			t.Errorf("payment for %s has amount %v, want %v", p.FineID, p.Amount, amounts[p.FineID])
		}
		if p.Status != StatusCompleted {
			t.Errorf("payment for %s has status %q", p.FineID, p.Status)
		}
		if p.TransactionID == "" {
			t.Errorf("payment for %s missing transaction id", p.FineID)
		}
		txnIDs[p.TransactionID] = struct{}{}
	}
	if len(txnIDs) != 2 {
		t.Error("expected distinct transaction ids")
	}

	for _, id := range []string{"F1", "F2"} {
		if repo.fines[id].Status != fine.StatusPaid {
			t.Errorf("fine %s status = %s, want paid", id, repo.fines[id].Status)
		}
	}
	if !pool.tx.committed {
		t.Fatal("expected transaction to commit")
	}
}

func TestPay_RejectsWhenAnyFineNotPayable(t *testing.T) {
	repo := newFakeRepo(
		fine.Fine{ID: "F1", CitizenID: "U", Status: fine.StatusOutstanding, Amount: 400},
		fine.Fine{ID: "F2", CitizenID: "U", Status: fine.StatusPaid, Amount: 900},
	)
	svc, pool := newTestService(repo)

	_, err := svc.Pay(context.Background(), PayParams{
		PayerID: "U",
		FineIDs: []string{"F1", "F2"},
		Method:  "card",
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.payments) != 0 {
		t.Fatal("expected zero payment records")
	}
	if repo.fines["F1"].Status != fine.StatusOutstanding {
		t.Fatalf("expected F1 unchanged, got %s", repo.fines["F1"].Status)
	}
	if pool.tx.committed {
		t.Fatal("expected rollback, not commit")
	}
}

func TestPay_RejectsForeignFine(t *testing.T) {
	repo := newFakeRepo(
		fine.Fine{ID: "F1", CitizenID: "someone-else", Status: fine.StatusOutstanding, Amount: 400},
	)
	svc, _ := newTestService(repo)

	_, err := svc.Pay(context.Background(), PayParams{
		PayerID: "U",
		FineIDs: []string{"F1"},
		Method:  "card",
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPay_InputValidation(t *testing.T) {
	svc, _ := newTestService(newFakeRepo())

	cases := []PayParams{
		{PayerID: "", FineIDs: []string{"F1"}, Method: "card"},
		{PayerID: "U", FineIDs: nil, Method: "card"},
		{PayerID: "U", FineIDs: []string{"F1"}, Method: "crypto"},
		{PayerID: "U", FineIDs: []string{"F1", "F1"}, Method: "card"},
	}
	for i, params := range cases {
		if _, err := svc.Pay(context.Background(), params); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestPay_DoublePayRaceSurfacesConflict(t *testing.T) {
	repo := newFakeRepo(
		fine.Fine{ID: "F1", CitizenID: "U", Status: fine.StatusOutstanding, Amount: 400},
	)
	repo.insertErr = ErrAlreadyPaid
	svc, pool := newTestService(repo)

	_, err := svc.Pay(context.Background(), PayParams{
		PayerID: "U",
		FineIDs: []string{"F1"},
		Method:  "card",
	})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if pool.tx.committed {
		t.Fatal("expected rollback after conflict")
	}
}

// ---------------------------------------------------------------------------
// fakes

type fakeRepo struct {
	fines     map[string]*fine.Fine
	payments  []Record
	insertErr error
}

func newFakeRepo(fines ...fine.Fine) *fakeRepo {
	r := &fakeRepo{fines: make(map[string]*fine.Fine)}
	for i := range fines {
		f := fines[i]
		r.fines[f.ID] = &f
	}
	return r
}

func (r *fakeRepo) LockPayable(ctx context.Context, tx pgx.Tx, payerID string, fineIDs []string) ([]fine.Fine, error) {
	out := []fine.Fine{}
	for _, id := range fineIDs {
		f, ok := r.fines[id]
		if !ok || f.CitizenID != payerID || !fine.Payable(f.Status) {
			continue
		}
		out = append(out, *f)
	}
	return out, nil
}

func (r *fakeRepo) InsertTx(ctx context.Context, tx pgx.Tx, rec Record) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.payments = append(r.payments, rec)
	return nil
}

func (r *fakeRepo) MarkPaidTx(ctx context.Context, tx pgx.Tx, fineID string) error {
	f, ok := r.fines[fineID]
	if !ok || !fine.Payable(f.Status) {
		return ErrFineStale
	}
	f.Status = fine.StatusPaid
	return nil
}

func (r *fakeRepo) ListByPayer(ctx context.Context, payerID string) ([]Record, error) {
	out := []Record{}
	for _, p := range r.payments {
		if p.PayerID == payerID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakePool struct {
	tx *fakeTx
}

func (f *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	f.tx = &fakeTx{}
	return f.tx, nil
}

type fakeTx struct {
	rolled    bool
	committed bool
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("fakeTx does not support nested transactions")
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolled = true
	return nil
}

func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (f *fakeTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (f *fakeTx) Conn() *pgx.Conn {
	return nil
}
