package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"driva/apperr"
	"driva/dispute"
	"driva/fine"
	"driva/notify"
	"driva/payment"
	"driva/storage"
	"driva/test/infra"
)

var (
	flConcurrency = flag.Int("concurrency", 8, "number of fines contended concurrently")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
)

// TestPayDisputeRace races a payer and a disputer over the same fines. For
// every fine exactly one of them must win: the fine ends up paid with one
// payment row and no pending dispute, or disputed with a pending dispute and
// no payment row.
func TestPayDisputeRace(t *testing.T) {
	flag.Parse()
	rng := rand.New(rand.NewSource(*flSeed))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	var (
		pgC        *infra.PGContainer
		dsn        string
		err        error
		usedShared bool
	)
	switch {
	case *flDSN != "":
		dsn = *flDSN
		usedShared = true
		pgC = &infra.PGContainer{}
	case os.Getenv("DRIVA_TEST_PG_DSN") != "":
		dsn = os.Getenv("DRIVA_TEST_PG_DSN")
		usedShared = true
		pgC = &infra.PGContainer{}
	default:
		if !dockerAvailable(ctx) {
			t.Skip("docker unavailable and no DSN provided")
		}
		pgC, dsn, err = infra.StartPostgres16(ctx, "")
		if err != nil {
			t.Fatalf("start postgres: %v", err)
		}
	}
	defer pgC.Terminate(context.Background())

	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, usedShared)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()

	seed := mustSeed(t, ctx, pool, rng, *flConcurrency)

	blobs, err := storage.NewLocalStore(t.TempDir(), "/evidence")
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	payments := payment.NewService(pool, payment.NewRepository(pool))
	disputes := dispute.NewService(pool, dispute.NewRepository(pool), blobs, notify.NewLogSender(logger), logger)

	g, gctx := errgroup.WithContext(ctx)
	for _, fineID := range seed.fineIDs {
		g.Go(func() error { return payer(gctx, pool, payments, seed.citizenID, fineID) })
		g.Go(func() error { return disputer(gctx, pool, disputes, seed.citizenID, fineID) })
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("actors errored: %v", err)
	}

	checkOneWinnerPerFine(t, ctx, pool, seed.fineIDs)
}

// payer keeps attempting a single-fine payment until it wins or the
// disputer has already won.
func payer(ctx context.Context, pool *pgxpool.Pool, svc *payment.Service, citizenID, fineID string) error {
	for {
		_, err := svc.Pay(ctx, payment.PayParams{PayerID: citizenID, FineIDs: []string{fineID}, Method: "card"})
		if err == nil {
			return nil
		}
		if settled, serr := fineSettled(ctx, pool, fineID); serr != nil {
			return serr
		} else if settled {
			return nil
		}
		if !errors.Is(err, apperr.ErrValidation) && !errors.Is(err, apperr.ErrConflict) {
			return fmt.Errorf("payer %s: %w", fineID, err)
		}
	}
}

func disputer(ctx context.Context, pool *pgxpool.Pool, svc *dispute.Service, citizenID, fineID string) error {
	for {
		_, err := svc.Submit(ctx, dispute.SubmitParams{
			CitizenID: citizenID,
			FineIDs:   []string{fineID},
			Reason:    "contesting " + fineID,
			Evidence: []dispute.EvidenceFile{{
				Filename: "note.pdf",
				Size:     4,
				Content:  strings.NewReader("note"),
			}},
		})
		if err == nil {
			return nil
		}
		if settled, serr := fineSettled(ctx, pool, fineID); serr != nil {
			return serr
		} else if settled {
			return nil
		}
		if !errors.Is(err, apperr.ErrValidation) && !errors.Is(err, apperr.ErrConflict) {
			return fmt.Errorf("disputer %s: %w", fineID, err)
		}
	}
}

// fineSettled reports whether the fine has left the payable states.
func fineSettled(ctx context.Context, pool *pgxpool.Pool, fineID string) (bool, error) {
	var status string
	if err := pool.QueryRow(ctx, `SELECT status::text FROM fines WHERE id = $1`, fineID).Scan(&status); err != nil {
		return false, fmt.Errorf("check fine %s: %w", fineID, err)
	}
	return status == string(fine.StatusPaid) || status == string(fine.StatusDisputed), nil
}

func checkOneWinnerPerFine(t *testing.T, ctx context.Context, pool *pgxpool.Pool, fineIDs []string) {
	t.Helper()
	for _, fineID := range fineIDs {
		var (
			status   string
			payments int
			pending  int
		)
		err := pool.QueryRow(ctx, `
			SELECT f.status::text,
			       (SELECT count(*) FROM payments p WHERE p.fine_id = f.id),
			       (SELECT count(*) FROM disputes d WHERE d.fine_id = f.id AND d.status = 'pending')
			FROM fines f WHERE f.id = $1
		`, fineID).Scan(&status, &payments, &pending)
		if err != nil {
			t.Fatalf("inspect fine %s: %v", fineID, err)
		}

		switch status {
		case string(fine.StatusPaid):
			if payments != 1 || pending != 0 {
				t.Errorf("fine %s paid with %d payments, %d pending disputes", fineID, payments, pending)
			}
		case string(fine.StatusDisputed):
			if payments != 0 || pending != 1 {
				t.Errorf("fine %s disputed with %d payments, %d pending disputes", fineID, payments, pending)
			}
		default:
			t.Errorf("fine %s finished in state %s, expected paid or disputed", fineID, status)
		}
	}
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}

type seedIDs struct {
	citizenID string
	officerID string
	fineIDs   []string
}

func mustSeed(t *testing.T, ctx context.Context, pool *pgxpool.Pool, rng *rand.Rand, fineCount int) seedIDs {
	t.Helper()
	var s seedIDs
	s.citizenID = fmt.Sprintf("citizen-%d", rng.Int63())
	s.officerID = fmt.Sprintf("officer-%d", rng.Int63())

	for _, u := range []struct{ id, email, role string }{
		{s.citizenID, s.citizenID + "@example.com", "citizen"},
		{s.officerID, s.officerID + "@example.com", "officer"},
	} {
		if _, err := pool.Exec(ctx, `
			INSERT INTO users (id, email, full_name, password_hash, role)
			VALUES ($1, $2, 'Stress User', 'x', $3)
		`, u.id, u.email, u.role); err != nil {
			t.Fatalf("seed user %s: %v", u.id, err)
		}
	}

	now := time.Now().UTC()
	for i := 0; i < fineCount; i++ {
		id := fmt.Sprintf("fine-%d-%d", i, rng.Int63())
		if _, err := pool.Exec(ctx, `
			INSERT INTO fines (id, citizen_id, officer_id, violation_type, amount, issued_at, due_at, status)
			VALUES ($1, $2, $3, 'Speeding', 400, $4, $5, 'outstanding')
		`, id, s.citizenID, s.officerID, now, now.AddDate(0, 0, 30)); err != nil {
			t.Fatalf("seed fine %s: %v", id, err)
		}
		s.fineIDs = append(s.fineIDs, id)
	}
	return s
}
