package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
)

// digitsOnly mirrors parseCounterValue inside SQLite: a non-empty run of ASCII digits.
const digitsOnly = `counters.value GLOB '[0-9]*' AND counters.value NOT GLOB '*[^0-9]*'`

// SQLiteCounterStore keeps counters in the local sqlite database.
// Each mutation is a single upsert statement, so it is atomic across processes sharing the file.
type SQLiteCounterStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteCounterStore(db *sql.DB, logger *slog.Logger) *SQLiteCounterStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteCounterStore{db: db, logger: logger}
}

func (s *SQLiteCounterStore) Get(ctx context.Context, key string) (int64, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM counters WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	v, ok := parseCounterValue(raw)
	if !ok {
		s.logger.Warn("ignoring unparsable counter value", "key", key, "value", raw)
	}
	return v, ok, nil
}

func (s *SQLiteCounterStore) Increment(ctx context.Context, key string, base int64) (int64, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
INSERT INTO counters (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET
  value = CASE WHEN `+digitsOnly+`
               THEN CAST(CAST(counters.value AS INTEGER) + 1 AS TEXT)
               ELSE excluded.value END,
  updated_at = CURRENT_TIMESTAMP
RETURNING value
`, key, strconv.FormatInt(base+1, 10)).Scan(&raw)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (s *SQLiteCounterStore) Raise(ctx context.Context, key string, value int64) (int64, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
INSERT INTO counters (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET
  value = CASE WHEN `+digitsOnly+` AND CAST(counters.value AS INTEGER) >= CAST(excluded.value AS INTEGER)
               THEN counters.value
               ELSE excluded.value END,
  updated_at = CURRENT_TIMESTAMP
RETURNING value
`, key, strconv.FormatInt(value, 10)).Scan(&raw)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

// SetRaw writes value verbatim. Used by the legacy importer tests and the operator CLI.
func (s *SQLiteCounterStore) SetRaw(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO counters (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (s *SQLiteCounterStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op: the database handle belongs to the caller that opened it.
func (s *SQLiteCounterStore) Close() error { return nil }
