package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/aatumaykin/tgpurge/internal/journal/migrations"

	_ "modernc.org/sqlite"
)

// SQLite stores entries in the deletion_journal table.
type SQLite struct {
	db *sqlx.DB
}

// OpenSQLite opens (or creates) the database at path and applies migrations.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to journal database: %w", err)
	}

	// SQLite не поддерживает конкурентную запись
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := applyMigrations(db.DB); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply journal migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func applyMigrations(db *sql.DB) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create embed source driver: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

const insertEntry = `INSERT INTO deletion_journal
	(run_id, recorded_at, phase, chat_id, chat_name, message_id, dry_run, status, failure, detail)
	VALUES (:run_id, :recorded_at, :phase, :chat_id, :chat_name, :message_id, :dry_run, :status, :failure, :detail)`

// Record inserts e.
func (s *SQLite) Record(ctx context.Context, e Entry) error {
	if _, err := s.db.NamedExecContext(ctx, insertEntry, e); err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}
	return nil
}

// Entries returns the entries of one run in insertion order.
func (s *SQLite) Entries(ctx context.Context, runID string) ([]Entry, error) {
	var entries []Entry
	err := s.db.SelectContext(ctx, &entries, `SELECT run_id, recorded_at, phase, chat_id, chat_name,
		message_id, dry_run, status, failure, detail
		FROM deletion_journal WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	return entries, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
