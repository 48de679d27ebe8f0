package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/readbot/internal/database/migrations"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

// Supported DB_TYPE values
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Options selects the database backend
type Options struct {
	// Type is "sqlite" or "postgres"
	Type string
	// SQLitePath is the database file used when Type is sqlite
	SQLitePath string
	// PostgresURL is the connection string used when Type is postgres
	PostgresURL string
}

// Connect opens the configured database and applies pending migrations.
func Connect(ctx context.Context, opts Options) (*sqlx.DB, error) {
	db, err := Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Open establishes a connection without touching the schema.
func Open(ctx context.Context, opts Options) (*sqlx.DB, error) {
	switch strings.ToLower(opts.Type) {
	case TypePostgres:
		db, err := sqlx.ConnectContext(ctx, "postgres", opts.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return db, nil
	case TypeSQLite, "":
		return openSQLite(ctx, opts.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q", opts.Type)
	}
}

func openSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	if path == "" {
		path = filepath.Join("data", "readbot.db")
	}
	// Create data directory if it doesn't exist
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	// immediate transactions take the write lock on BEGIN, which serializes
	// read-modify-write sequences on profiles
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", path)
	db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support multiple writers
	db.SetMaxIdleConns(1)
	return db, nil
}

// Migrate brings the schema up to date with the embedded migrations.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	dialect, dir := "sqlite3", "sqlite"
	if db.DriverName() == "postgres" {
		dialect, dir = "postgres", "postgres"
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, dir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
