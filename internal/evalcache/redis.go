package evalcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/Cheese-Analysis-Board/internal/evaluation"
	"github.com/redis/go-redis/v9"
)

const defaultRedisTTL = 30 * 24 * time.Hour

type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	return &RedisStore{rdb: rdb, prefix: "eval:", ttl: ttl}
}

// OpenRedis connects using a redis:// or rediss:// URL and pings the server.
func OpenRedis(ctx context.Context, raw string, ttl time.Duration) (*RedisStore, error) {
	opts, err := parseRedisURL(raw)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(rdb, ttl), nil
}

func (s *RedisStore) key(fen string) string { return s.prefix + strings.TrimSpace(fen) }

func (s *RedisStore) Load(ctx context.Context, fen string) (evaluation.Result, bool, error) {
	raw, err := s.rdb.Get(ctx, s.key(fen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return evaluation.Result{}, false, nil
	}
	if err != nil {
		return evaluation.Result{}, false, err
	}
	var res evaluation.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return evaluation.Result{}, false, fmt.Errorf("decode cached eval: %w", err)
	}
	return res, true, nil
}

func (s *RedisStore) Save(ctx context.Context, res evaluation.Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	// first writer wins
	return s.rdb.SetNX(ctx, s.key(res.FEN), raw, s.ttl).Err()
}

func (s *RedisStore) Close() error { return s.rdb.Close() }

// parseRedisURL accepts redis:// and rediss:// URLs; rediss enables TLS.
func parseRedisURL(raw string) (*redis.Options, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	return opts, nil
}
