package local

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/moments/internal/local/migrations"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

func newMigrationProvider(db *sql.DB) (*goose.Provider, error) {
	return goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
}

// gooseUp is a seam for testing migration failures.
var gooseUp = func(ctx context.Context, p *goose.Provider) error {
	_, err := p.Up(ctx)
	return err
}

// RunMigrations applies the embedded schema versions in order. Already
// applied versions are skipped, so it is safe to call on every start. The
// provider keeps no package state in goose and writes no log lines.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	p, err := newMigrationProvider(db)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	return gooseUp(ctx, p)
}

// InitDatabase opens the SQLite database at dsn and migrates it.
// A single connection is used so writers are serialized and ":memory:"
// databases stay consistent.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate local store: %w", err)
	}
	return db, nil
}
