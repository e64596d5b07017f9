package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/geocoder89/safeguard/internal/redisclient"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "safeguard:client:"

// RedisBackend stores client storage as plain string keys with a TTL and
// publishes every change on a per-client channel, so console replicas see
// each other's writes.
type RedisBackend struct {
	client *redisclient.Client
	ttl    time.Duration
}

func NewRedisBackend(client *redisclient.Client, ttl time.Duration) *RedisBackend {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisBackend{client: client, ttl: ttl}
}

func (b *RedisBackend) ForClient(clientID string) Storage {
	return &redisStorage{rdb: b.client.Raw(), client: clientID, ttl: b.ttl}
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx)
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

type redisStorage struct {
	rdb    *redis.Client
	client string
	ttl    time.Duration
}

func (s *redisStorage) key(k string) string {
	return redisKeyPrefix + s.client + ":" + k
}

func (s *redisStorage) channel() string {
	return redisKeyPrefix + s.client + ":changes"
}

func (s *redisStorage) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", err
	}
	return v, nil
}

func (s *redisStorage) Set(ctx context.Context, entries map[string]string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, val := range entries {
			pipe.Set(ctx, s.key(key), val, s.ttl)
		}
		for key := range entries {
			pipe.Publish(ctx, s.channel(), encodeChange(Change{Key: key}))
		}
		return nil
	})
	return err
}

func (s *redisStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, s.key(key))
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, full...)
		for _, key := range keys {
			pipe.Publish(ctx, s.channel(), encodeChange(Change{Key: key, Cleared: true}))
		}
		return nil
	})
	return err
}

func (s *redisStorage) Watch(ctx context.Context) (<-chan Change, error) {
	sub := s.rdb.Subscribe(ctx, s.channel())

	// Wait for the subscription confirmation so no change published after
	// Watch returns is lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan Change, watchBuffer)
	msgs := sub.Channel()

	go func() {
		defer close(out)
		defer sub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				c, err := decodeChange(msg.Payload)
				if err != nil {
					continue
				}
				select {
				case out <- c:
				default:
				}
			}
		}
	}()

	return out, nil
}

func encodeChange(c Change) string {
	b, _ := json.Marshal(c)
	return string(b)
}

func decodeChange(payload string) (Change, error) {
	var c Change
	err := json.Unmarshal([]byte(payload), &c)
	return c, err
}
