package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each collection in the hash collection:<name> with the
// fields data and version. Saves run inside WATCH/MULTI.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(name string) string {
	return fmt.Sprintf("collection:%s", name)
}

func (s *RedisStore) Load(ctx context.Context, name string) (Snapshot, error) {
	fields, err := s.client.HGetAll(ctx, redisKey(name)).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("load %s: %w", name, err)
	}
	if len(fields) == 0 {
		return Snapshot{Data: emptyArray}, nil
	}
	version, err := parseVersion(fields["version"])
	if err != nil {
		return Snapshot{}, fmt.Errorf("load %s: %w", name, err)
	}
	return Snapshot{Data: normalize([]byte(fields["data"])), Version: version}, nil
}

func (s *RedisStore) Save(ctx context.Context, name string, data []byte, expected uint64) (uint64, error) {
	key := redisKey(name)
	next := expected + 1

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, key, "version").Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		current, err := parseVersion(raw)
		if err != nil {
			return err
		}
		if current != expected {
			return ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "data", data, "version", next)
			return nil
		})
		return err
	}, key)

	switch {
	case errors.Is(err, ErrConflict), errors.Is(err, redis.TxFailedErr):
		return 0, ErrConflict
	case err != nil:
		return 0, fmt.Errorf("save %s: %w", name, err)
	}
	return next, nil
}

func parseVersion(raw string) (uint64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad version %q: %w", raw, err)
	}
	return v, nil
}
