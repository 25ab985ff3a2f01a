package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/sia-enrollment-engine/pkg/config"
)

// Supported driver names.
const (
	DriverPQ  = "postgres"
	DriverPgx = "pgx"
)

const applicationName = "sia-enrollment-engine"

// NewPostgres returns a configured PostgreSQL client using lib/pq or pgx depending on cfg.Driver.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	driver, err := resolveDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, DSN(cfg))
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s on %s:%d: %w", driver, cfg.Host, cfg.Port, err)
	}

	return db, nil
}

// DSN renders cfg as a keyword/value connection string understood by both drivers.
func DSN(cfg config.DatabaseConfig) string {
	parts := []string{
		kv("host", cfg.Host),
		fmt.Sprintf("port=%d", cfg.Port),
		kv("user", cfg.User),
		kv("password", cfg.Password),
		kv("dbname", cfg.Name),
		kv("sslmode", cfg.SSLMode),
		kv("application_name", applicationName),
	}
	return strings.Join(parts, " ")
}

func resolveDriver(name string) (string, error) {
	switch name {
	case "":
		return DriverPQ, nil
	case DriverPQ, DriverPgx:
		return name, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", name)
	}
}

// kv quotes values containing spaces or quotes per libpq rules.
func kv(key, value string) string {
	if value == "" || strings.ContainsAny(value, ` '\`) {
		value = "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value) + "'"
	}
	return key + "=" + value
}
