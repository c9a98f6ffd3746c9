// Package service holds small infrastructure-backed helpers shared by
// the usecases.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/ttahub/goalmerge/internal/usecase"
)

var tracer = otel.Tracer("service")

// unlockScript releases the key only when the caller still owns it, so
// a lock that expired and was re-acquired elsewhere is never deleted.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker serializes ledger writes per goal across batch workers
// with a volatile redis key. The TTL bounds how long a crashed worker
// can keep a goal locked.
type RedisLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		rdb: rdb,
		ttl: ttl,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, goalID int64) (func(), error) {
	ctx, span := tracer.Start(ctx, "Lock.Service.Acquire")
	defer span.End()

	key := fmt.Sprintf("goalmerge:lock:goal:%d", goalID)
	token := uuid.New().String()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "acquiring goal lock")
	}
	if !ok {
		return nil, usecase.ErrLockHeld
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		unlockScript.Run(releaseCtx, l.rdb, []string{key}, token)
	}
	return release, nil
}
