package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"driva/auth"
	"driva/config"
	"driva/db"
	"driva/department"
	"driva/dispute"
	"driva/fine"
	"driva/httpapi"
	"driva/notify"
	"driva/payment"
	"driva/storage"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the domain packages.
func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	blobs, err := storage.NewLocalStore(cfg.EvidenceDir, "/evidence")
	if err != nil {
		logger.Error("evidence store init failed", "error", err, "dir", cfg.EvidenceDir)
		os.Exit(1)
	}

	var mailer notify.Sender
	if cfg.SMTPAddr != "" {
		mailer = notify.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom)
	} else {
		logger.Warn("SMTP_ADDR not set, logging notifications instead of sending")
		mailer = notify.NewLogSender(logger)
	}

	accounts := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret)
	fines := fine.NewService(fine.NewRepository(pool))
	disputes := dispute.NewService(pool, dispute.NewRepository(pool), blobs, mailer, logger)
	payments := payment.NewService(pool, payment.NewRepository(pool))
	inviter := notify.NewAccountInviter(accounts, mailer)
	departments := department.NewService(department.NewRepository(pool), inviter, logger)

	if n, err := fines.SweepOverdue(ctx); err != nil {
		logger.Error("overdue sweep failed", "error", err)
	} else if n > 0 {
		logger.Info("marked overdue fines", "count", n)
	}

	server := httpapi.NewServer(logger, accounts, fines, disputes, payments, departments)
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("starting driva api", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
