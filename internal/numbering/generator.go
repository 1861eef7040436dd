package numbering

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/joseph-ayodele/ashwini-cargo/constants"
	"github.com/joseph-ayodele/ashwini-cargo/internal/common"
	"github.com/joseph-ayodele/ashwini-cargo/internal/metrics"
)

// Generator issues sequential human-readable identifiers backed by a CounterStore.
type Generator struct {
	store  CounterStore
	clock  Clock
	loc    *time.Location
	lrSeed int64
	logger *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

func WithClock(c Clock) Option {
	return func(g *Generator) {
		if c != nil {
			g.clock = c
		}
	}
}

// WithLocation fixes the timezone scope keys are computed in.
// Without it a date is formatted in its own location.
func WithLocation(loc *time.Location) Option {
	return func(g *Generator) { g.loc = loc }
}

func WithLRSeed(seed int64) Option {
	return func(g *Generator) { g.lrSeed = seed }
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

func NewGenerator(store CounterStore, opts ...Option) *Generator {
	g := &Generator{
		store:  store,
		clock:  time.Now,
		lrSeed: constants.DefaultLRSeed,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Now returns the generator clock's current time.
func (g *Generator) Now() time.Time {
	return g.at(time.Time{})
}

// LRSeed is the base used when the LR counter has never been written.
func (g *Generator) LRSeed() int64 { return g.lrSeed }

// DailyID returns "PREFIX-NNN/DD-Mon-YY" using a counter scoped to the calendar day of date.
// The prefix is upper-cased, so "enq" and "ENQ" draw from one sequence.
// A zero date means now.
func (g *Generator) DailyID(ctx context.Context, prefix string, date time.Time) (string, error) {
	return g.scoped(ctx, prefix, date, constants.DailyScopeLayout, "daily")
}

// MonthlyID returns "PREFIX-NNN/Mon-YY" using a counter scoped to the calendar month of date.
func (g *Generator) MonthlyID(ctx context.Context, prefix string, date time.Time) (string, error) {
	return g.scoped(ctx, prefix, date, constants.MonthlyScopeLayout, "monthly")
}

// NextEnquiryID issues the next daily enquiry number, e.g. ENQ-003/12-Jan-26.
func (g *Generator) NextEnquiryID(ctx context.Context, date time.Time) (string, error) {
	return g.DailyID(ctx, constants.EnquiryPrefix, date)
}

// NextOrderID issues the next monthly order number, e.g. ORD-014/Jan-26.
func (g *Generator) NextOrderID(ctx context.Context, date time.Time) (string, error) {
	return g.MonthlyID(ctx, constants.OrderPrefix, date)
}

// NextSequentialNumber advances the global LR counter, starting from seed when it
// has never been written, and returns the new value as a plain decimal string.
func (g *Generator) NextSequentialNumber(ctx context.Context, seed int64) (string, error) {
	n, err := g.store.Increment(ctx, constants.LRCounterKey, seed)
	if err != nil {
		g.logger.Error("lr counter increment failed", "key", constants.LRCounterKey, "error", err)
		return "", storeError(err)
	}
	metrics.IdentifierIssued(constants.LRCounterKey, "global")
	g.logger.Debug("issued lr number", "lr_number", n)
	return strconv.FormatInt(n, 10), nil
}

// NextLRNumber is NextSequentialNumber with the configured seed.
func (g *Generator) NextLRNumber(ctx context.Context) (string, error) {
	return g.NextSequentialNumber(ctx, g.lrSeed)
}

// PeekNextLRNumber previews the number NextSequentialNumber would issue without consuming it.
func (g *Generator) PeekNextLRNumber(ctx context.Context, seed int64) (string, error) {
	v, found, err := g.store.Get(ctx, constants.LRCounterKey)
	if err != nil {
		return "", storeError(err)
	}
	if !found {
		v = seed
	}
	return strconv.FormatInt(v+1, 10), nil
}

// IsExpired reports whether an enquiry created at createdAt has expired by the generator's clock.
func (g *Generator) IsExpired(createdAt time.Time) bool {
	return IsExpired(createdAt, g.clock())
}

// ExpiryCountdown formats the time left on an enquiry by the generator's clock.
func (g *Generator) ExpiryCountdown(createdAt time.Time) string {
	return ExpiryCountdown(createdAt, g.clock())
}

func (g *Generator) scoped(ctx context.Context, prefix string, date time.Time, layout, kind string) (string, error) {
	prefix = constants.CanonicalPrefix(prefix)
	if prefix == "" {
		return "", common.InvalidInput("identifier prefix is required")
	}
	scope := ScopeKey(g.at(date), layout)
	name := constants.CounterKeyName(prefix)
	key := CounterKey(name, scope)

	n, err := g.store.Increment(ctx, key, 0)
	if err != nil {
		g.logger.Error("counter increment failed", "key", key, "error", err)
		return "", storeError(err)
	}
	metrics.IdentifierIssued(name, kind)
	id := FormatID(prefix, n, scope)
	g.logger.Debug("issued identifier", "id", id, "key", key, "seq", n)
	return id, nil
}

func (g *Generator) at(date time.Time) time.Time {
	if date.IsZero() {
		date = g.clock()
	}
	if g.loc != nil {
		date = date.In(g.loc)
	}
	return date
}

func storeError(err error) error {
	return common.NewAppError(common.CodeStore, "counter store unavailable", fmt.Errorf("%w: %w", common.ErrStore, err))
}
