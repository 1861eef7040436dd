package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/joseph-ayodele/ashwini-cargo/constants"
	"github.com/joseph-ayodele/ashwini-cargo/internal/common"
	"github.com/joseph-ayodele/ashwini-cargo/internal/metrics"
	"github.com/joseph-ayodele/ashwini-cargo/internal/numbering"
)

// parseCounterValue accepts only a non-empty run of ASCII digits that fits in int64.
func parseCounterValue(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, false
		}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// OpenCounterStore builds the backend named by cfg.Driver. The sqlite backend shares db.
func OpenCounterStore(ctx context.Context, cfg common.StoreConfig, db *sql.DB, logger *slog.Logger) (numbering.CounterStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		store numbering.CounterStore
		err   error
	)
	switch cfg.Driver {
	case "memory":
		store = NewMemoryCounterStore()
	case "sqlite", "":
		if db == nil {
			return nil, common.InvalidInput("sqlite counter store needs an open database")
		}
		store = NewSQLiteCounterStore(db, logger)
	case "postgres":
		drv, pool, oerr := OpenPostgres(ctx, PostgresConfig{
			DSN:              cfg.PostgresDSN,
			MaxConns:         cfg.MaxConns,
			MinConns:         cfg.MinConns,
			MaxConnLifetime:  cfg.MaxConnLifetime,
			MaxConnIdleTime:  cfg.MaxConnIdleTime,
			DialTimeout:      cfg.DialTimeout,
			StatementTimeout: cfg.StatementTimeout,
		}, logger)
		if oerr != nil {
			return nil, oerr
		}
		store, err = NewPostgresCounterStore(ctx, drv, pool, logger)
		if err != nil {
			_ = drv.Close()
			pool.Close()
			return nil, err
		}
	case "redis":
		rc, oerr := OpenRedis(ctx, cfg.RedisURL, cfg.RedisDB, logger)
		if oerr != nil {
			return nil, oerr
		}
		store = NewRedisCounterStore(rc, logger)
	default:
		return nil, common.InvalidInputf("unknown store driver %q", cfg.Driver)
	}
	logger.Info("counter store ready", "driver", cfg.Driver)
	return Instrument(store, cfg.Driver), nil
}

// Instrument counts failed store operations per driver.
func Instrument(store numbering.CounterStore, driver string) numbering.CounterStore {
	return &instrumentedStore{CounterStore: store, driver: driver}
}

type instrumentedStore struct {
	numbering.CounterStore
	driver string
}

func (s *instrumentedStore) Get(ctx context.Context, key string) (int64, bool, error) {
	v, ok, err := s.CounterStore.Get(ctx, key)
	if err != nil {
		metrics.StoreError(s.driver, "get")
	}
	return v, ok, err
}

func (s *instrumentedStore) Increment(ctx context.Context, key string, base int64) (int64, error) {
	v, err := s.CounterStore.Increment(ctx, key, base)
	if err != nil {
		metrics.StoreError(s.driver, "increment")
	}
	return v, err
}

func (s *instrumentedStore) Raise(ctx context.Context, key string, value int64) (int64, error) {
	v, err := s.CounterStore.Raise(ctx, key, value)
	if err != nil {
		metrics.StoreError(s.driver, "raise")
	}
	return v, err
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	err := s.CounterStore.Ping(ctx)
	if err != nil {
		metrics.StoreError(s.driver, "ping")
	}
	return err
}

// ImportReport summarises a legacy snapshot import.
type ImportReport struct {
	Imported map[string]int64 `json:"imported"`
	Skipped  []string         `json:"skipped"` // owned keys whose value did not parse
	Ignored  []string         `json:"ignored"` // keys the generator does not own
}

// ImportLegacySnapshot seeds counters from a browser localStorage dump.
// Existing counters are only ever raised, never lowered.
func ImportLegacySnapshot(ctx context.Context, store numbering.CounterStore, snapshot map[string]string, logger *slog.Logger) (ImportReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	report := ImportReport{Imported: make(map[string]int64)}

	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !constants.IsOwnedCounterKey(key) {
			report.Ignored = append(report.Ignored, key)
			continue
		}
		v, ok := parseCounterValue(snapshot[key])
		if !ok {
			logger.Warn("skipping unparsable legacy counter", "key", key, "value", snapshot[key])
			report.Skipped = append(report.Skipped, key)
			continue
		}
		got, err := store.Raise(ctx, key, v)
		if err != nil {
			return report, fmt.Errorf("import %s: %w", key, err)
		}
		report.Imported[key] = got
	}
	logger.Info("legacy counters imported",
		"imported", len(report.Imported),
		"skipped", len(report.Skipped),
		"ignored", len(report.Ignored),
	)
	return report, nil
}
