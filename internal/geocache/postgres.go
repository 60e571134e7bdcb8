package geocache

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/kwparking/parksafe/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on a pgx connection pool, for deployments
// that share one cache between engine instances.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "geocache: postgres connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "geocache: postgres ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address     TEXT PRIMARY KEY,
	latitude    DOUBLE PRECISION NOT NULL,
	longitude   DOUBLE PRECISION NOT NULL,
	resolved_at TIMESTAMPTZ NOT NULL,
	confidence  DOUBLE PRECISION NOT NULL DEFAULT 0
)`

// Migrate creates the cache schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "geocache: postgres migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// LoadAll implements Store.
func (s *PostgresStore) LoadAll(ctx context.Context) (map[string]model.GeocodeEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT address, latitude, longitude, resolved_at, confidence FROM geocode_cache`)
	if err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}
	defer rows.Close()

	entries := make(map[string]model.GeocodeEntry)
	for rows.Next() {
		var e model.GeocodeEntry
		var resolvedAt time.Time
		if err := rows.Scan(&e.Address, &e.Lat, &e.Lng, &resolvedAt, &e.Confidence); err != nil {
			return nil, &StorageError{Op: "load", Err: err}
		}
		e.ResolvedAt = resolvedAt.UTC()
		e.Source = model.SourceCache
		entries[e.Address] = e
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}
	return entries, nil
}

// Upsert implements Store.
func (s *PostgresStore) Upsert(ctx context.Context, entry model.GeocodeEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO geocode_cache (address, latitude, longitude, resolved_at, confidence)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			resolved_at = EXCLUDED.resolved_at,
			confidence = EXCLUDED.confidence`,
		entry.Address, entry.Lat, entry.Lng, entry.ResolvedAt.UTC(), entry.Confidence,
	)
	if err != nil {
		return &StorageError{Op: "upsert", Err: err}
	}
	return nil
}

// Clear implements Store.
func (s *PostgresStore) Clear(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM geocode_cache`)
	if err != nil {
		return 0, &StorageError{Op: "clear", Err: err}
	}
	return int(tag.RowsAffected()), nil
}
