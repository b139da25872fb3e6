package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// MarkOnce records key for ttl and reports false when it was already recorded.
func MarkOnce(ctx context.Context, c *redis.Client, key string, ttl time.Duration) (bool, error) {
	return c.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339Nano), ttl).Result()
}

// CursorStore keeps block-height cursors for background scanners.
type CursorStore struct {
	client *redis.Client
	prefix string
}

func NewCursorStore(c *redis.Client, prefix string) *CursorStore {
	return &CursorStore{client: c, prefix: prefix}
}

// Load returns the stored cursor and whether one exists.
func (s *CursorStore) Load(ctx context.Context, name string) (uint64, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+name).Result()
	if IsNil(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (s *CursorStore) Save(ctx context.Context, name string, block uint64) error {
	return s.client.Set(ctx, s.prefix+name, strconv.FormatUint(block, 10), 0).Err()
}
