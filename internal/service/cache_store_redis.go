package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCacheStore keeps one set per namespace listing its data keys so
// InvalidateNamespace does not need SCAN.
type RedisCacheStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisCacheStore(client redis.UniversalClient, prefix string) *RedisCacheStore {
	if prefix == "" {
		prefix = "deepscan:cache"
	}
	return &RedisCacheStore{client: client, prefix: prefix}
}

func (s *RedisCacheStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.dataKey(namespace, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *RedisCacheStore) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	dataKey := s.dataKey(namespace, key)
	index := s.indexKey(namespace)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, dataKey, value, ttl)
	pipe.SAdd(ctx, index, dataKey)
	pipe.Expire(ctx, index, ttl+time.Minute)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisCacheStore) Delete(ctx context.Context, namespace, key string) error {
	dataKey := s.dataKey(namespace, key)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, dataKey)
	pipe.SRem(ctx, s.indexKey(namespace), dataKey)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisCacheStore) InvalidateNamespace(ctx context.Context, namespace string) error {
	index := s.indexKey(namespace)
	keys, err := s.client.SMembers(ctx, index).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	pipe := s.client.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, index)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisCacheStore) dataKey(namespace, key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s:data:%s:%s", s.prefix, namespace, hex.EncodeToString(sum[:]))
}

func (s *RedisCacheStore) indexKey(namespace string) string {
	return fmt.Sprintf("%s:index:%s", s.prefix, namespace)
}
