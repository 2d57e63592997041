package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/config"
	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
	prefix string
}

// OpenRedisStore connects to cfg and verifies the connection.
func OpenRedisStore(ctx context.Context, cfg *config.RedisConfig, prefix string) (*RedisStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return NewRedisStore(client, prefix), nil
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(fingerprint string) string {
	return s.prefix + fingerprint
}

func (s *RedisStore) Get(ctx context.Context, fingerprint string) (*Entry, bool, error) {
	data, err := s.client.Get(ctx, s.key(fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get progress %s: %w", fingerprint, err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false, fmt.Errorf("unmarshal: %w", err)
	}
	return &e, true, nil
}

// PutIfAbsent relies on SETNX for the write-once guarantee.
func (s *RedisStore) PutIfAbsent(ctx context.Context, e *Entry) (bool, error) {
	if err := validateEntry(e); err != nil {
		return false, err
	}

	data, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("marshal: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(e.Fingerprint), data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) List(ctx context.Context) ([]*Entry, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	sort.Strings(keys)

	entries := make([]*Entry, 0, len(keys))
	for start := 0; start < len(keys); start += 100 {
		end := min(start+100, len(keys))
		values, err := s.client.MGet(ctx, keys[start:end]...).Result()
		if err != nil {
			return nil, fmt.Errorf("mget: %w", err)
		}
		for i, v := range values {
			str, ok := v.(string)
			if !ok {
				// Key vanished between SCAN and MGET.
				continue
			}
			var e Entry
			if err := json.Unmarshal([]byte(str), &e); err != nil {
				return nil, fmt.Errorf("unmarshal %s: %w", keys[start+i], err)
			}
			entries = append(entries, &e)
		}
	}
	return entries, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
