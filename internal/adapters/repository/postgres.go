package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // migrate driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq" // database/sql driver

	"github.com/okian/tweets/internal/domain/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const tweetColumns = `id, message, created_at, updated_at`

// PostgresStore persists tweets with database/sql over lib/pq.
type PostgresStore struct {
	db *sql.DB

	settings
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres runs pending migrations and opens a connection pool for dsn.
// dsn must be a postgres:// URL.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	s := newSettings("postgres-store", opts)

	if err := migrateUp(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres: %w", ErrOpen, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: postgres: %w", ErrOpen, err)
	}

	s.logger.Info(ctx, "postgres store ready")
	return &PostgresStore{db: db, settings: s}, nil
}

func migrateUp(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("%w: migrations source: %w", ErrOpen, err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("%w: migrate: %w", ErrOpen, err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: migrate up: %w", ErrOpen, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTweet(row rowScanner) (model.Tweet, error) {
	var t model.Tweet
	if err := row.Scan(&t.ID, &t.Message, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return model.Tweet{}, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

// All returns every tweet ordered by id.
func (s *PostgresStore) All(ctx context.Context) ([]model.Tweet, error) {
	rows, err := s.db.QueryContext(ctx, `select `+tweetColumns+` from tweets order by id`)
	if err != nil {
		return nil, fmt.Errorf("find all: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.Tweet, 0)
	for rows.Next() {
		t, err := scanTweet(rows)
		if err != nil {
			return nil, fmt.Errorf("find all: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find all: %w", err)
	}
	return out, nil
}

// Get returns a tweet by primary key.
func (s *PostgresStore) Get(ctx context.Context, id int64) (model.Tweet, error) {
	row := s.db.QueryRowContext(ctx, `select `+tweetColumns+` from tweets where id = $1`, id)
	return s.one(row, id, "find by primary key")
}

// Create inserts a row and returns it.
func (s *PostgresStore) Create(ctx context.Context, in model.Input) (model.Tweet, error) {
	now := s.now()
	row := s.db.QueryRowContext(ctx,
		`insert into tweets (message, created_at, updated_at) values ($1, $2, $2) returning `+tweetColumns,
		in.Message, now)
	t, err := scanTweet(row)
	if err != nil {
		return model.Tweet{}, fmt.Errorf("create: %w", err)
	}
	return t, nil
}

// Update replaces the message in a single statement.
func (s *PostgresStore) Update(ctx context.Context, id int64, in model.Input) (model.Tweet, error) {
	row := s.db.QueryRowContext(ctx,
		`update tweets set message = $1, updated_at = $2 where id = $3 returning `+tweetColumns,
		in.Message, s.now(), id)
	return s.one(row, id, "update")
}

// Delete removes a row and returns it.
func (s *PostgresStore) Delete(ctx context.Context, id int64) (model.Tweet, error) {
	row := s.db.QueryRowContext(ctx, `delete from tweets where id = $1 returning `+tweetColumns, id)
	return s.one(row, id, "destroy")
}

// Count returns the number of rows.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `select count(*) from tweets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Ping checks the connection pool.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) one(row *sql.Row, id int64, op string) (model.Tweet, error) {
	t, err := scanTweet(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return model.Tweet{}, model.NewNotFound(id)
	case err != nil:
		return model.Tweet{}, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}
