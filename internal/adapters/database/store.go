package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"

	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/clients/postgres"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
	"github.com/estatehub/marketplace/backend/pkg/retry"
)

// dialect builds every statement; placeholders are always $n
var dialect = goqu.Dialect("postgres")

func from(table string) *goqu.SelectDataset {
	return dialect.From(table).Prepared(true)
}

func insertInto(table string) *goqu.InsertDataset {
	return dialect.Insert(table).Prepared(true)
}

func update(table string) *goqu.UpdateDataset {
	return dialect.Update(table).Prepared(true)
}

// touch never moves updated_at backwards
func touch(now time.Time) interface{} {
	return goqu.Func("GREATEST", goqu.C("updated_at"), now)
}

// live restricts a read to rows that are not soft-deleted
func live() goqu.Expression {
	return goqu.C("is_deleted").IsFalse()
}

type sqlBuilder interface {
	ToSQL() (string, []interface{}, error)
}

// querier is satisfied by both *sqlx.DB and *sqlx.Tx
type querier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Store implements repositories.Store over PostgreSQL. Uniqueness of active
// offers, accepted offers, live reviews and live favorites is enforced by
// partial unique indexes; overlapping approved bookings by an exclusion
// constraint. Engines serialize per property with GetForUpdate.
type Store struct {
	db   *sqlx.DB
	root *session
}

var _ repositories.Store = (*Store)(nil)

// NewStore creates a new PostgreSQL store
func NewStore(client *postgres.Client) *Store {
	return newStore(client.DB())
}

func newStore(db *sqlx.DB) *Store {
	return &Store{db: db, root: &session{q: db}}
}

// WithinTx runs fn in a transaction. Serialization failures and deadlocks
// re-run fn from the start, so fn must not keep state across attempts.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Repositories) error) error {
	cfg := retry.TransactionConfig(isRetryable)
	cfg.OnRetry = func(attempt int, err error, nextDelay time.Duration) {
		observability.LoggerFromContext(ctx).Warn().Err(err).Int("attempt", attempt).
			Msg("transaction aborted, retrying")
	}
	return retry.Do(ctx, cfg, func() error {
		return s.runTx(ctx, fn)
	})
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Repositories) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return translate(err, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &session{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return translate(err, "failed to commit transaction")
	}
	return nil
}

func (s *Store) Properties() repositories.PropertyRepository { return s.root.Properties() }
func (s *Store) Users() repositories.UserRepository { return s.root.Users() }
func (s *Store) Offers() repositories.OfferRepository { return s.root.Offers() }
func (s *Store) Bookings() repositories.BookingRepository { return s.root.Bookings() }
func (s *Store) Reviews() repositories.ReviewRepository { return s.root.Reviews() }
func (s *Store) Favorites() repositories.FavoriteRepository { return s.root.Favorites() }
func (s *Store) Notifications() repositories.NotificationRepository { return s.root.Notifications() }
func (s *Store) Views() repositories.ViewEventRepository { return s.root.Views() }
func (s *Store) Audit() repositories.AuditRepository { return s.root.Audit() }

// session binds the adapters to the pool or to one transaction
type session struct {
	q querier
}

func (s *session) Properties() repositories.PropertyRepository { return &PropertyAdapter{s} }
func (s *session) Users() repositories.UserRepository { return &UserAdapter{s} }
func (s *session) Offers() repositories.OfferRepository { return &OfferAdapter{s} }
func (s *session) Bookings() repositories.BookingRepository { return &BookingAdapter{s} }
func (s *session) Reviews() repositories.ReviewRepository { return &ReviewAdapter{s} }
func (s *session) Favorites() repositories.FavoriteRepository { return &FavoriteAdapter{s} }
func (s *session) Notifications() repositories.NotificationRepository { return &NotificationAdapter{s} }
func (s *session) Views() repositories.ViewEventRepository { return &ViewEventAdapter{s} }
func (s *session) Audit() repositories.AuditRepository { return &AuditAdapter{s} }

// timed records the duration of one statement under its leading keyword
func timed(ctx context.Context, query string) func() {
	start := time.Now()
	return func() {
		operation := query
		if i := strings.IndexByte(query, ' '); i > 0 {
			operation = query[:i]
		}
		observability.RecordDBMetric(ctx, strings.ToLower(operation), time.Since(start))
	}
}

// get scans one row. A missing row comes back as sql.ErrNoRows.
func (s *session) get(ctx context.Context, dest interface{}, b sqlBuilder) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build query", err)
	}
	defer timed(ctx, query)()
	return s.q.GetContext(ctx, dest, query, args...)
}

func (s *session) selectAll(ctx context.Context, dest interface{}, b sqlBuilder) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build query", err)
	}
	defer timed(ctx, query)()
	return s.q.SelectContext(ctx, dest, query, args...)
}

// exec runs a write and returns the number of affected rows
func (s *session) exec(ctx context.Context, b sqlBuilder) (int64, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build query", err)
	}
	defer timed(ctx, query)()
	result, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return rows, nil
}

// exists reports whether a row with id is present, deleted or not
func (s *session) exists(ctx context.Context, table, id string) (bool, error) {
	var count int
	err := s.get(ctx, &count, from(table).Select(goqu.COUNT("*")).Where(goqu.Ex{"id": id}))
	if err != nil {
		return false, translate(err, "failed to check "+table)
	}
	return count > 0, nil
}

// softDelete flips the marker once. A row that is already deleted reports
// false; an unknown id is NOT_FOUND.
func (s *session) softDelete(ctx context.Context, table, entity, id string, now time.Time) (bool, error) {
	rows, err := s.exec(ctx, update(table).
		Set(goqu.Record{
			"is_deleted": true,
			"deleted_at": now,
			"updated_at": touch(now),
		}).
		Where(goqu.Ex{"id": id}, live()))
	if err != nil {
		return false, translate(err, "failed to delete "+entity)
	}
	if rows > 0 {
		return true, nil
	}

	found, err := s.exists(ctx, table, id)
	if err != nil {
		return false, err
	}
	if !found {
		return false, notFound(entity, id)
	}
	return false, nil
}
