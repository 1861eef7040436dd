package repository

import (
	"context"
	"strconv"
	"sync"
)

// MemoryCounterStore keeps counters in process memory. Values are held as
// strings so imported or hand-seeded garbage behaves like the durable stores.
type MemoryCounterStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{values: make(map[string]string)}
}

// SetRaw stores value verbatim, bypassing parsing.
func (s *MemoryCounterStore) SetRaw(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemoryCounterStore) Get(_ context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := parseCounterValue(s.values[key])
	return v, ok, nil
}

func (s *MemoryCounterStore) Increment(_ context.Context, key string, base int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := parseCounterValue(s.values[key])
	if !ok {
		cur = base
	}
	cur++
	s.values[key] = strconv.FormatInt(cur, 10)
	return cur, nil
}

func (s *MemoryCounterStore) Raise(_ context.Context, key string, value int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := parseCounterValue(s.values[key]); ok && cur >= value {
		return cur, nil
	}
	s.values[key] = strconv.FormatInt(value, 10)
	return value, nil
}

func (s *MemoryCounterStore) Ping(context.Context) error { return nil }

func (s *MemoryCounterStore) Close() error { return nil }
