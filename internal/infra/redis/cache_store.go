package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"content-studio/internal/cachesync"

	"github.com/go-redis/redis/v8"
)

var _ cachesync.Store = (*CacheStore)(nil)

// CacheStore is the shared query cache. Keys are namespaced so prefix
// invalidation never touches locks, rate limits or other data.
type CacheStore struct {
	client    RedisClient
	namespace string
}

func NewCacheStore(client RedisClient, namespace string) *CacheStore {
	if namespace == "" {
		namespace = "studio:cache:"
	}
	return &CacheStore{client: client, namespace: namespace}
}

func (s *CacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, s.namespace+key)
	if errors.Is(err, redis.Nil) {
		return nil, cachesync.ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return []byte(v), nil
}

func (s *CacheStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.namespace+key, val, ttl)
}

func (s *CacheStore) Del(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.namespace + k
	}
	return s.client.Del(ctx, full...)
}

func (s *CacheStore) DelPrefix(ctx context.Context, prefix string) (int, error) {
	keys, err := s.client.Scan(ctx, escapeGlob(s.namespace+prefix)+"*")
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := s.client.Del(ctx, keys...); err != nil {
		return 0, err
	}
	return len(keys), nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string { return globEscaper.Replace(s) }
