package database

import (
	"github.com/redis/go-redis/v9"
)

// NewRedis opens the client backing the per-goal derivation lock.
// Lock keys are volatile (SET NX with TTL), so the configured db needs
// no persistence guarantees.
func NewRedis(addr string, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}
