// internal/service/storage/store.go
package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ObjectStore fetches stored objects (rendered invoice PDFs). A nil byte
// slice with a nil error means "not found", which lets callers degrade
// gracefully instead of treating a missing attachment as a failure.
type ObjectStore interface {
	FetchObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// RedisObjectStore serves attachment bytes out of Redis, where the PDF
// rendering pipeline parks finished documents.
type RedisObjectStore struct {
	rdb *redis.Client
}

func NewRedisObjectStore(rdb *redis.Client) *RedisObjectStore {
	return &RedisObjectStore{rdb: rdb}
}

func (s *RedisObjectStore) FetchObject(ctx context.Context, bucket, key string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, fmt.Sprintf("obj:%s:%s", bucket, key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("object fetch failed: %w", err)
	}
	return b, nil
}
