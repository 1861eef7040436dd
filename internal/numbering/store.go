package numbering

import (
	"context"
	"time"
)

// CounterStore persists integer counters by key. Implementations must make
// Increment and Raise atomic with respect to concurrent callers on the same key.
type CounterStore interface {
	// Get reads a counter without mutating it. Missing or unparsable values report found=false.
	Get(ctx context.Context, key string) (value int64, found bool, err error)
	// Increment sets value = (stored or base) + 1 and returns the new value.
	Increment(ctx context.Context, key string, base int64) (int64, error)
	// Raise sets value = max(stored, value) and returns the resulting value.
	Raise(ctx context.Context, key string, value int64) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Clock supplies the current time.
type Clock func() time.Time
