package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ashwini:counter:"

// Both scripts treat anything other than a plain digit string as absent.
var incrementScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
local n = nil
if v and string.match(v, '^%d+$') then
  n = tonumber(v)
end
if not n then
  n = tonumber(ARGV[1])
end
n = n + 1
redis.call('SET', KEYS[1], string.format('%d', n))
return n
`)

var raiseScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
local want = tonumber(ARGV[1])
if v and string.match(v, '^%d+$') then
  local cur = tonumber(v)
  if cur >= want then
    return cur
  end
end
redis.call('SET', KEYS[1], ARGV[1])
return want
`)

// RedisCounterStore shares counters through Redis; each mutation is one Lua script.
type RedisCounterStore struct {
	rc     *redis.Client
	logger *slog.Logger
}

// OpenRedis parses url, overrides the DB index and verifies connectivity.
func OpenRedis(ctx context.Context, url string, db int, logger *slog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if db > 0 {
		opt.DB = db
	}
	rc := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("redis connection established", "addr", opt.Addr, "db", opt.DB)
	return rc, nil
}

func NewRedisCounterStore(rc *redis.Client, logger *slog.Logger) *RedisCounterStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCounterStore{rc: rc, logger: logger}
}

func redisKey(key string) string { return redisKeyPrefix + key }

func (s *RedisCounterStore) Get(ctx context.Context, key string) (int64, bool, error) {
	raw, err := s.rc.Get(ctx, redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
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

func (s *RedisCounterStore) Increment(ctx context.Context, key string, base int64) (int64, error) {
	return incrementScript.Run(ctx, s.rc, []string{redisKey(key)}, base).Int64()
}

func (s *RedisCounterStore) Raise(ctx context.Context, key string, value int64) (int64, error) {
	return raiseScript.Run(ctx, s.rc, []string{redisKey(key)}, value).Int64()
}

func (s *RedisCounterStore) Ping(ctx context.Context) error {
	return s.rc.Ping(ctx).Err()
}

func (s *RedisCounterStore) Close() error {
	return s.rc.Close()
}
