package lockout

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// RedisStore shares lockout state across gateway instances. Attempt
// counters live in a rolling window; a tripped lock is a separate key
// whose TTL is the remaining wait.
type RedisStore struct {
	client    *redis.Client
	threshold int
	lockFor   time.Duration
	window    time.Duration
	now       func() time.Time
}

type RedisStoreOption func(*RedisStore)

func WithRedisNowFunc(now func() time.Time) RedisStoreOption {
	return func(s *RedisStore) { s.now = now }
}

func WithRedisThreshold(threshold int) RedisStoreOption {
	return func(s *RedisStore) { s.threshold = threshold }
}

func WithRedisLockDuration(d time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		s.lockFor = d
		s.window = d
	}
}

func NewRedisStore(client *redis.Client, options ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		threshold: DefaultThreshold,
		lockFor:   DefaultLockDuration,
		window:    DefaultLockDuration,
		now:       time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func attemptsKey(key string) string { return "lockout:attempts:" + key }
func lockKey(key string) string     { return "lockout:lock:" + key }

func (s *RedisStore) Check(ctx context.Context, key string) (Status, error) {
	ttl, err := s.client.PTTL(ctx, lockKey(key)).Result()
	if err != nil {
		return Status{}, errors.Wrap(err, "[RedisStore.Check] PTTL")
	}

	var status Status
	if ttl > 0 {
		status.LockedUntil = s.now().Add(ttl)
	}

	attempts, err := s.client.Get(ctx, attemptsKey(key)).Int()
	if err != nil && err != redis.Nil {
		return Status{}, errors.Wrap(err, "[RedisStore.Check] Get attempts")
	}
	status.Attempts = attempts
	return status, nil
}

func (s *RedisStore) RecordFailure(ctx context.Context, key string) (Status, error) {
	count, err := s.client.Incr(ctx, attemptsKey(key)).Result()
	if err != nil {
		return Status{}, errors.Wrap(err, "[RedisStore.RecordFailure] Incr")
	}
	if count == 1 {
		if err := s.client.Expire(ctx, attemptsKey(key), s.window).Err(); err != nil {
			return Status{}, errors.Wrap(err, "[RedisStore.RecordFailure] Expire")
		}
	}

	status := Status{Attempts: int(count)}
	if count >= int64(s.threshold) {
		if err := s.client.Set(ctx, lockKey(key), 1, s.lockFor).Err(); err != nil {
			return Status{}, errors.Wrap(err, "[RedisStore.RecordFailure] Set lock")
		}
		status.LockedUntil = s.now().Add(s.lockFor)
	}
	return status, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, attemptsKey(key), lockKey(key)).Err(); err != nil {
		return errors.Wrap(err, "[RedisStore.Reset] Del")
	}
	return nil
}
