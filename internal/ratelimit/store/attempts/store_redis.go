package attempts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"presence/internal/ratelimit/threshold"
	"presence/pkg/platform/sentinel"
)

const (
	attemptsSuffix = ":attempts"
	failuresSuffix = ":failures"

	fieldCount    = "count"
	fieldLastFail = "last_failed_ms"
)

// admitScript prunes the window, counts what is left and adds the attempt
// only when under the limit. Returns {allowed, remaining, oldest_ms}.
var admitScript = redis.NewScript(`
local cutoff = tonumber(ARGV[1]) - tonumber(ARGV[2])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", "(" .. cutoff)
local count = redis.call("ZCARD", KEYS[1])
local limit = tonumber(ARGV[3])
if count >= limit then
  local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
  return {0, 0, tonumber(oldest[2])}
end
redis.call("ZADD", KEYS[1], ARGV[1], ARGV[4])
redis.call("PEXPIRE", KEYS[1], ARGV[2])
return {1, limit - count - 1, 0}
`)

// RedisStore keeps attempts in a sorted set scored by epoch milliseconds and
// the failure streak in a hash, so several server instances share one gate.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) LoadAttempts(ctx context.Context, key string) (threshold.State, error) {
	members, err := s.client.ZRangeWithScores(ctx, key+attemptsSuffix, 0, -1).Result()
	if err != nil {
		return threshold.State{}, fmt.Errorf("%w: load attempts: %v", sentinel.ErrUnavailable, err)
	}
	state := threshold.State{Attempts: make([]time.Time, 0, len(members))}
	for _, m := range members {
		state.Attempts = append(state.Attempts, time.UnixMilli(int64(m.Score)))
	}
	return state, nil
}

func (s *RedisStore) AdmitAttempt(ctx context.Context, key string, at time.Time, cfg threshold.Config) (threshold.Admission, error) {
	ms := at.UnixMilli()
	// Unique member so two attempts in the same millisecond both count.
	member := strconv.FormatInt(ms, 10) + "-" + uuid.NewString()
	values, err := admitScript.Run(ctx, s.client, []string{key + attemptsSuffix},
		ms, cfg.Window.Milliseconds(), cfg.MaxAttempts, member).Int64Slice()
	if err != nil {
		return threshold.Admission{}, fmt.Errorf("%w: admit attempt: %v", sentinel.ErrUnavailable, err)
	}
	if len(values) != 3 {
		return threshold.Admission{}, fmt.Errorf("unexpected admit reply of length %d", len(values))
	}
	if values[0] == 1 {
		return threshold.Admission{Allow: true, Remaining: int(values[1])}, nil
	}
	return threshold.Admission{RetryAt: time.UnixMilli(values[2]).Add(cfg.Window)}, nil
}

func (s *RedisStore) LoadFailures(ctx context.Context, key string) (threshold.FailureState, error) {
	values, err := s.client.HGetAll(ctx, key+failuresSuffix).Result()
	if err != nil {
		return threshold.FailureState{}, fmt.Errorf("%w: load failures: %v", sentinel.ErrUnavailable, err)
	}
	return parseFailures(values)
}

func (s *RedisStore) RecordFailure(ctx context.Context, key string, at time.Time, retain time.Duration) (threshold.FailureState, error) {
	hkey := key + failuresSuffix
	var count *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.HIncrBy(ctx, hkey, fieldCount, 1)
		pipe.HSet(ctx, hkey, fieldLastFail, at.UnixMilli())
		pipe.PExpire(ctx, hkey, retain)
		return nil
	})
	if err != nil {
		return threshold.FailureState{}, fmt.Errorf("%w: record failure: %v", sentinel.ErrUnavailable, err)
	}
	return threshold.FailureState{ConsecutiveFailures: int(count.Val()), LastFailedAt: at}, nil
}

func (s *RedisStore) ClearFailures(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key+failuresSuffix).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: clear failures: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func parseFailures(values map[string]string) (threshold.FailureState, error) {
	if len(values) == 0 {
		return threshold.FailureState{}, nil
	}
	count, err := strconv.Atoi(values[fieldCount])
	if err != nil {
		return threshold.FailureState{}, fmt.Errorf("parse failure count: %w", err)
	}
	lastMs, err := strconv.ParseInt(values[fieldLastFail], 10, 64)
	if err != nil {
		return threshold.FailureState{}, fmt.Errorf("parse last failure: %w", err)
	}
	return threshold.FailureState{ConsecutiveFailures: count, LastFailedAt: time.UnixMilli(lastMs)}, nil
}
