package geocache

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/kwparking/parksafe/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address     TEXT PRIMARY KEY,
	latitude    REAL NOT NULL,
	longitude   REAL NOT NULL,
	resolved_at DATETIME NOT NULL,
	confidence  REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_geocode_cache_resolved_at ON geocode_cache(resolved_at);
`

// Migrate creates the cache schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LoadAll implements Store.
func (s *SQLiteStore) LoadAll(ctx context.Context) (map[string]model.GeocodeEntry, error) {
	rows, err := s.db.QueryContext(ctx,
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
func (s *SQLiteStore) Upsert(ctx context.Context, entry model.GeocodeEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (address, latitude, longitude, resolved_at, confidence)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (address) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			resolved_at = excluded.resolved_at,
			confidence = excluded.confidence`,
		entry.Address, entry.Lat, entry.Lng, entry.ResolvedAt.UTC(), entry.Confidence,
	)
	if err != nil {
		return &StorageError{Op: "upsert", Err: err}
	}
	return nil
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM geocode_cache`)
	if err != nil {
		return 0, &StorageError{Op: "clear", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &StorageError{Op: "clear", Err: err}
	}
	return int(n), nil
}
