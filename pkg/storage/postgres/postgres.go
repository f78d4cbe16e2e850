// Package postgres implements storage.Store over PostgreSQL: sqlx for
// query execution, the pgx stdlib driver for the connection itself, and
// goose for schema migrations. This is the server-class backend;
// pkg/storage/filestore is the file-local alternative.
package postgres

import (
	"context"
	"embed"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the PostgreSQL-backed storage.Store implementation.
type Store struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

var _ storage.Store = (*Store)(nil)

// New opens a connection pool against dsn. The connection is configured
// with QueryExecModeDescribeExec rather than pgx's cache-by-default mode:
// a goose migration that runs while connections are already open would
// otherwise leave cached prepared-statement plans pointing at a schema
// that no longer exists, surfacing as "cached plan must not change result
// type" errors after the next deploy.
func New(dsn string, logger *logrus.Logger) (*Store, error) {
	connConfig, err := newPgxConnConfig(dsn)
	if err != nil {
		return nil, err
	}
	sqlDB := stdlib.OpenDB(*connConfig)
	db := sqlx.NewDb(sqlDB, "pgx")
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db, logger: logger}, nil
}

// newWithDB builds a Store around an already-open sqlx.DB, bypassing
// the pgx dial. Used by tests to inject a sqlmock-backed connection.
func newWithDB(db *sqlx.DB, logger *logrus.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func newPgxConnConfig(dsn string) (*pgx.ConnConfig, error) {
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, errors.FailedTo("parse PostgreSQL connection string", err)
	}
	connConfig.DefaultQueryExecMode = pgx.QueryExecModeDescribeExec
	return connConfig, nil
}

// Init runs every pending goose migration embedded under migrations/.
func (s *Store) Init(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.FailedTo("set goose dialect", err)
	}
	if err := goose.UpContext(ctx, s.db.DB, "migrations"); err != nil {
		return errors.DatabaseError("run migrations", err)
	}
	return nil
}

// Close releases the underlying connection pool. Not part of
// storage.Store: callers that own a *postgres.Store call it directly
// during shutdown.
func (s *Store) Close() error {
	return s.db.Close()
}
