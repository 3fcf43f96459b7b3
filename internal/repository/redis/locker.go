// Package redis provides a Redis-backed lock.Locker for deployments that
// run more than one bot process against the same database.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jose-valero/party-queue-bot/internal/lock"
)

const (
	KeyPrefix    = "partyq:lock"
	DefaultTTL   = 15 * time.Second
	retryBackoff = 25 * time.Millisecond
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// Locker acquires SET NX PX keys holding a random token and releases them
// with a compare-and-delete script.
type Locker struct {
	RDB *redis.Client
	TTL time.Duration
}

var _ lock.Locker = (*Locker)(nil)

// NewClient builds a client and pings it once.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return c, nil
}

func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{RDB: rdb, TTL: DefaultTTL}
}

// Lock polls until the key is acquired or ctx ends.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	full := KeyPrefix + ":" + key
	token := uuid.NewString()

	for {
		ok, err := l.RDB.SetNX(ctx, full, token, ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("acquire %s: %w", full, err)
		}
		if ok {
			break
		}
		t := time.NewTimer(retryBackoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// release even when the caller's context is already cancelled
		relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.release(relCtx, full, token)
	}, nil
}

func (l *Locker) release(ctx context.Context, key, token string) error {
	err := releaseScript.Run(ctx, l.RDB, []string{key}, token).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
