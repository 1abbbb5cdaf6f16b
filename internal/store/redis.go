package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisStore keeps values as JSON strings in Redis. Conditional updates use
// WATCH/MULTI/EXEC, so concurrent writers of the same room race on the key
// version exactly as the memory backend races on its counter. Committed
// snapshots are fanned out over pub/sub, one channel per key.
type RedisStore[T any] struct {
	rdb    *redis.Client
	prefix string
	log    *logrus.Logger
}

// NewRedisStore wraps an already-connected client. prefix namespaces keys
// and pub/sub channels, e.g. "gomoku" or "chess".
func NewRedisStore[T any](rdb *redis.Client, prefix string, log *logrus.Logger) *RedisStore[T] {
	return &RedisStore[T]{rdb: rdb, prefix: prefix, log: log}
}

func (s *RedisStore[T]) key(key string) string     { return s.prefix + ":room:" + key }
func (s *RedisStore[T]) channel(key string) string { return s.prefix + ":events:" + key }

func (s *RedisStore[T]) Create(ctx context.Context, key string, value *T) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, s.key(key), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrExists
	}
	return s.rdb.Publish(ctx, s.channel(key), data).Err()
}

func (s *RedisStore[T]) Get(ctx context.Context, key string) (*T, error) {
	data, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode[T](data)
}

func (s *RedisStore[T]) Transact(ctx context.Context, key string, fn func(*T) (*T, error)) (*T, error) {
	var result *T
	txn := func(tx *redis.Tx) error {
		var cur *T
		data, err := tx.Get(ctx, s.key(key)).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			// Absent key: fn decides whether that is an error.
		case err != nil:
			return err
		default:
			if cur, err = decode[T](data); err != nil {
				return err
			}
		}

		next, err := fn(cur)
		if err != nil {
			return err
		}
		if next == nil {
			// No-op by convention: skip the write.
			return nil
		}
		out, err := encode(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key(key), out, 0)
			pipe.Publish(ctx, s.channel(key), out)
			return nil
		})
		if err == nil {
			result = next
		}
		return err
	}

	for attempt := 0; attempt < maxTransactRetries; attempt++ {
		err := s.rdb.Watch(ctx, txn, s.key(key))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return result, err
	}
	return nil, ErrConflict
}

func (s *RedisStore[T]) Write(ctx context.Context, key string, mutate func(*T)) error {
	// Deliberately unguarded: Write carries no precondition, so a lost race
	// against a Transact commit only re-applies an idempotent field set.
	v, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	mutate(v)
	data, err := encode(v)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		return err
	}
	return s.rdb.Publish(ctx, s.channel(key), data).Err()
}

func (s *RedisStore[T]) Subscribe(key string, fn func(*T)) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := s.rdb.Subscribe(ctx, s.channel(key))
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		return nil, err
	}

	go func() {
		getCtx, getCancel := context.WithTimeout(ctx, 5*time.Second)
		v, err := s.Get(getCtx, key)
		getCancel()
		switch {
		case errors.Is(err, ErrNotFound):
			fn(nil)
		case err != nil:
			s.log.Warnf("store: initial read for %q failed: %v", key, err)
		default:
			fn(v)
		}

		for msg := range sub.Channel() {
			v, err := decode[T]([]byte(msg.Payload))
			if err != nil {
				s.log.Warnf("store: dropping undecodable snapshot for %q: %v", key, err)
				continue
			}
			fn(v)
		}
	}()

	return func() {
		cancel()
		_ = sub.Close()
	}, nil
}
