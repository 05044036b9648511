// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/alfredjeanlab/streams/internal/model"
	"github.com/alfredjeanlab/streams/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewFromDB wraps an already opened database without running migrations.
func NewFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateField(ctx context.Context, field *model.Field) error {
	return queryCreateField(ctx, s.db, field)
}

func (s *PostgresStore) GetFieldBySlug(ctx context.Context, slug, namespace string) (*model.Field, error) {
	return queryGetFieldBySlug(ctx, s.db, slug, namespace)
}

func (s *PostgresStore) ListFields(ctx context.Context, namespace string) ([]*model.Field, error) {
	return queryListFields(ctx, s.db, namespace)
}

func (s *PostgresStore) DeleteField(ctx context.Context, id string) error {
	return queryDeleteField(ctx, s.db, id)
}

func (s *PostgresStore) CreateStream(ctx context.Context, stream *model.Stream) error {
	return queryCreateStream(ctx, s.db, stream)
}

func (s *PostgresStore) GetStream(ctx context.Context, slug, namespace string) (*model.Stream, error) {
	return queryGetStream(ctx, s.db, slug, namespace)
}

func (s *PostgresStore) ListStreams(ctx context.Context, namespace string) ([]*model.Stream, error) {
	return queryListStreams(ctx, s.db, namespace)
}

func (s *PostgresStore) EntryTableExists(ctx context.Context, table string) (bool, error) {
	return queryEntryTableExists(ctx, s.db, table)
}

func (s *PostgresStore) ListNamespaces(ctx context.Context) ([]string, error) {
	return queryListNamespaces(ctx, s.db)
}

func (s *PostgresStore) DeleteStream(ctx context.Context, stream *model.Stream) error {
	return queryDeleteStream(ctx, s.db, stream)
}

func (s *PostgresStore) SetStreamTitleColumn(ctx context.Context, streamID, column string) error {
	return querySetStreamTitleColumn(ctx, s.db, streamID, column)
}

func (s *PostgresStore) AddAssignment(ctx context.Context, stream *model.Stream, a *model.Assignment, col *model.Column) error {
	return queryAddAssignment(ctx, s.db, stream, a, col)
}

func (s *PostgresStore) UpdateAssignment(ctx context.Context, a *model.Assignment) error {
	return queryUpdateAssignment(ctx, s.db, a)
}

func (s *PostgresStore) GetAssignment(ctx context.Context, streamID, fieldID string) (*model.Assignment, error) {
	return queryGetAssignment(ctx, s.db, streamID, fieldID)
}

func (s *PostgresStore) RemoveAssignment(ctx context.Context, stream *model.Stream, a *model.Assignment) error {
	return queryRemoveAssignment(ctx, s.db, stream, a)
}

func (s *PostgresStore) ListStreamAssignments(ctx context.Context, streamID string) ([]*model.Assignment, error) {
	return queryListStreamAssignments(ctx, s.db, streamID)
}

func (s *PostgresStore) ListFieldAssignments(ctx context.Context, fieldID string) ([]*model.Assignment, error) {
	return queryListFieldAssignments(ctx, s.db, fieldID)
}

func (s *PostgresStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.db, event)
}

func (s *PostgresStore) GetEvents(ctx context.Context, subjectID string) ([]*model.Event, error) {
	return queryGetEvents(ctx, s.db, subjectID)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) CreateField(ctx context.Context, field *model.Field) error {
	return queryCreateField(ctx, s.tx, field)
}

func (s *txStore) GetFieldBySlug(ctx context.Context, slug, namespace string) (*model.Field, error) {
	return queryGetFieldBySlug(ctx, s.tx, slug, namespace)
}

func (s *txStore) ListFields(ctx context.Context, namespace string) ([]*model.Field, error) {
	return queryListFields(ctx, s.tx, namespace)
}

func (s *txStore) DeleteField(ctx context.Context, id string) error {
	return queryDeleteField(ctx, s.tx, id)
}

func (s *txStore) CreateStream(ctx context.Context, stream *model.Stream) error {
	return queryCreateStream(ctx, s.tx, stream)
}

func (s *txStore) GetStream(ctx context.Context, slug, namespace string) (*model.Stream, error) {
	return queryGetStream(ctx, s.tx, slug, namespace)
}

func (s *txStore) ListStreams(ctx context.Context, namespace string) ([]*model.Stream, error) {
	return queryListStreams(ctx, s.tx, namespace)
}

func (s *txStore) EntryTableExists(ctx context.Context, table string) (bool, error) {
	return queryEntryTableExists(ctx, s.tx, table)
}

func (s *txStore) ListNamespaces(ctx context.Context) ([]string, error) {
	return queryListNamespaces(ctx, s.tx)
}

func (s *txStore) DeleteStream(ctx context.Context, stream *model.Stream) error {
	return queryDeleteStream(ctx, s.tx, stream)
}

func (s *txStore) SetStreamTitleColumn(ctx context.Context, streamID, column string) error {
	return querySetStreamTitleColumn(ctx, s.tx, streamID, column)
}

func (s *txStore) AddAssignment(ctx context.Context, stream *model.Stream, a *model.Assignment, col *model.Column) error {
	return queryAddAssignment(ctx, s.tx, stream, a, col)
}

func (s *txStore) UpdateAssignment(ctx context.Context, a *model.Assignment) error {
	return queryUpdateAssignment(ctx, s.tx, a)
}

func (s *txStore) GetAssignment(ctx context.Context, streamID, fieldID string) (*model.Assignment, error) {
	return queryGetAssignment(ctx, s.tx, streamID, fieldID)
}

func (s *txStore) RemoveAssignment(ctx context.Context, stream *model.Stream, a *model.Assignment) error {
	return queryRemoveAssignment(ctx, s.tx, stream, a)
}

func (s *txStore) ListStreamAssignments(ctx context.Context, streamID string) ([]*model.Assignment, error) {
	return queryListStreamAssignments(ctx, s.tx, streamID)
}

func (s *txStore) ListFieldAssignments(ctx context.Context, fieldID string) ([]*model.Assignment, error) {
	return queryListFieldAssignments(ctx, s.tx, fieldID)
}

func (s *txStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.tx, event)
}

func (s *txStore) GetEvents(ctx context.Context, subjectID string) ([]*model.Event, error) {
	return queryGetEvents(ctx, s.tx, subjectID)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
