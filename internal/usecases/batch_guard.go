package usecases

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	domainerrors "scratch-card.backend/internal/domain/errors"
	"scratch-card.backend/pkg/redis"
)

const (
	batchLockPrefix      = "scratchcard:batch:lock:"
	batchSignaturePrefix = "scratchcard:batch:sig:"
)

// RunGuard keeps batch runs single-flight and signatures single-use.
type RunGuard interface {
	// Acquire returns domainerrors.ErrBatchInProgress while another run holds key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
	// UseSignature reports false when the authorization identified by key was already consumed.
	// key is SignatureReplayKey of the verified message and signer.
	UseSignature(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type RedisRunGuard struct {
	client *goredis.Client
}

func NewRedisRunGuard(client *goredis.Client) *RedisRunGuard {
	return &RedisRunGuard{client: client}
}

func (g *RedisRunGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := redis.TryLock(ctx, g.client, batchLockPrefix+strings.ToLower(key), ttl)
	if errors.Is(err, redis.ErrLockHeld) {
		return nil, domainerrors.ErrBatchInProgress
	}
	if err != nil {
		return nil, err
	}
	return lock.Release, nil
}

func (g *RedisRunGuard) UseSignature(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return redis.MarkOnce(ctx, g.client, batchSignaturePrefix+strings.ToLower(key), ttl)
}
