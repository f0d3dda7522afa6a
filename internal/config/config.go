package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// OverpaymentPolicy decides what happens when a payment exceeds the total
// outstanding debt between a debtor/creditor pair.
type OverpaymentPolicy string

const (
	// OverpaymentDiscard absorbs the remainder silently (warning only).
	OverpaymentDiscard OverpaymentPolicy = "discard"
	// OverpaymentReject fails the payment before any record is touched.
	OverpaymentReject OverpaymentPolicy = "reject"
)

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string

	// Product limits inherited from the mobile app rules.
	MaxExpenseAmount float64
	MaxParticipants  int
	MaxGroupMembers  int

	OverpaymentPolicy OverpaymentPolicy
}

func Load() *Config {
	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:       getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=squadup port=5432 sslmode=disable"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		CORSOrigins:       getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		MaxExpenseAmount:  getEnvFloat("MAX_EXPENSE_AMOUNT", 999999.99),
		MaxParticipants:   getEnvInt("MAX_PARTICIPANTS", 50),
		MaxGroupMembers:   getEnvInt("MAX_GROUP_MEMBERS", 50),
		OverpaymentPolicy: OverpaymentPolicy(getEnv("OVERPAYMENT_POLICY", string(OverpaymentDiscard))),
	}

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is not set; it is required")
		os.Exit(1)
	}
	if len(cfg.JWTSecret) < 32 {
		slog.Error("JWT_SECRET must be at least 32 characters")
		os.Exit(1)
	}
	if cfg.OverpaymentPolicy != OverpaymentDiscard && cfg.OverpaymentPolicy != OverpaymentReject {
		slog.Error("OVERPAYMENT_POLICY must be 'discard' or 'reject'", "value", string(cfg.OverpaymentPolicy))
		os.Exit(1)
	}
	if cfg.DatabaseDSN == "host=localhost user=postgres password=postgres dbname=squadup port=5432 sslmode=disable" {
		slog.Warn("DATABASE_DSN is using the default value, set your own Postgres connection for production")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		slog.Warn("CORS_ALLOWED_ORIGINS is using the default value, set your own domain for production")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("invalid integer in environment, using default", "key", key, "value", v)
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		slog.Warn("invalid number in environment, using default", "key", key, "value", v)
	}
	return def
}
