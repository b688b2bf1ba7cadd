// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
)

// Config captures everything the API server needs at startup.
type Config struct {
	Addr        string
	DatabaseURL string
	JWTSecret   string
	EvidenceDir string
	SMTPAddr    string
	SMTPFrom    string
	DBMaxConns  int32
}

// FromEnv reads configuration, applying development defaults where safe.
func FromEnv() Config {
	cfg := Config{
		Addr:        getenv("DRIVA_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   getenv("JWT_SECRET", "dev-secret-change-in-production"),
		EvidenceDir: getenv("EVIDENCE_DIR", "./evidence"),
		SMTPAddr:    os.Getenv("SMTP_ADDR"),
		SMTPFrom:    getenv("SMTP_FROM", "no-reply@driva.example"),
	}

	if raw := os.Getenv("DB_MAX_CONNS"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 32); err == nil && n > 0 {
			cfg.DBMaxConns = int32(n)
		}
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
