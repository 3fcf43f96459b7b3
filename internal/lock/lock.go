// Package lock provides keyed mutual exclusion for queue mutations.
package lock

import (
	"context"
	"fmt"
	"sync"
)

// Locker serializes work per key. The returned unlock must be called
// exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// QueueKey is the lock key guarding one queue's membership and status.
func QueueKey(handle string) string { return "queue:" + handle }

// CreateKey guards creation of a queue type within a guild.
func CreateKey(guildID, typ string) string { return fmt.Sprintf("create:%s:%s", guildID, typ) }

// Local is an in-process Locker. Each key gets a one-slot channel so a
// waiter can give up when its context ends.
type Local struct {
	locks sync.Map // key -> chan struct{}
}

var _ Locker = (*Local)(nil)

func NewLocal() *Local { return &Local{} }

func (l *Local) chanLock(key string) chan struct{} {
	v, _ := l.locks.LoadOrStore(key, make(chan struct{}, 1))
	return v.(chan struct{})
}

func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	ch := l.chanLock(key)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() { once.Do(func() { <-ch }) }, nil
}
