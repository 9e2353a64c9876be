package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Driver names returned by ParseURI.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURI string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURI)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

// ParseURI picks the storage driver from DATABASE_URI. postgres:// and
// postgresql:// go to pgx; sqlite://path and file:path go to SQLite, in
// which case the returned dsn is the file path.
func ParseURI(uri string) (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return DriverPostgres, uri, nil
	case strings.HasPrefix(uri, "sqlite://"):
		path := strings.TrimPrefix(uri, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("sqlite uri %q has no path", uri)
		}
		return DriverSQLite, path, nil
	case strings.HasPrefix(uri, "file:"):
		return DriverSQLite, uri, nil
	}
	return "", "", fmt.Errorf("unsupported DATABASE_URI scheme in %q", uri)
}
