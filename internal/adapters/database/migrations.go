package database

import (
	"context"
	"embed"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL
)`

// Migrate applies the embedded migrations that are not yet recorded in
// schema_migrations, in file name order, each in its own transaction. It
// returns the versions it applied.
func Migrate(ctx context.Context, db *sqlx.DB) ([]string, error) {
	logger := observability.LoggerFromContext(ctx)

	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return nil, apperrors.NewInternalError("failed to create schema_migrations", err)
	}

	var done []string
	if err := db.SelectContext(ctx, &done, "SELECT version FROM schema_migrations"); err != nil {
		return nil, apperrors.NewInternalError("failed to read schema_migrations", err)
	}
	applied := make(map[string]bool, len(done))
	for _, v := range done {
		applied[v] = true
	}

	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list migrations", err)
	}
	sort.Strings(names)

	var ran []string
	for _, name := range names {
		version := strings.TrimSuffix(strings.TrimPrefix(name, "migrations/"), ".sql")
		if applied[version] {
			continue
		}

		body, err := migrationFiles.ReadFile(name)
		if err != nil {
			return ran, apperrors.NewInternalError("failed to read migration "+version, err)
		}
		if err := applyMigration(ctx, db, version, string(body)); err != nil {
			return ran, err
		}

		logger.Info().Str("version", version).Msg("applied migration")
		ran = append(ran, version)
	}
	return ran, nil
}

func applyMigration(ctx context.Context, db *sqlx.DB, version, body string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.NewInternalError("failed to begin migration "+version, err)
	}
	if _, err := tx.ExecContext(ctx, body); err != nil {
		_ = tx.Rollback()
		return apperrors.NewInternalError("failed to apply migration "+version, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)",
		version, time.Now().UTC(),
	); err != nil {
		_ = tx.Rollback()
		return apperrors.NewInternalError("failed to record migration "+version, err)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit migration "+version, err)
	}
	return nil
}
