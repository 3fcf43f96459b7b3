// Package events is a small typed in-process publish/subscribe bus.
package events

import (
	"log/slog"
	"reflect"
	"sync"
)

type subscriber func(any)

// Bus delivers events synchronously to the subscribers of their exact type.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]subscriber // type name -> id -> subscriber
	nextID uint64
	log    *slog.Logger
}

func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{
		subs: map[string]map[uint64]subscriber{},
		log:  log.With("component", "events"),
	}
}

func typeNameOf[T any]() string {
	var zero *T
	rt := reflect.TypeOf(zero).Elem() // *T -> T without dereferencing nil
	return rt.PkgPath() + "." + rt.Name()
}

// Subscribe registers fn for events of type T and returns the cancel func.
func Subscribe[T any](b *Bus, fn func(T)) func() {
	name := typeNameOf[T]()
	wrapped := func(v any) {
		if ev, ok := v.(T); ok {
			fn(ev)
		}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[name] == nil {
		b.subs[name] = map[uint64]subscriber{}
	}
	b.subs[name][id] = wrapped
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[name], id)
		})
	}
}

// Publish calls every subscriber of T in the caller's goroutine. A panicking
// subscriber is logged and does not affect the others.
func Publish[T any](b *Bus, ev T) {
	if b == nil {
		return
	}
	name := typeNameOf[T]()
	b.mu.RLock()
	ss := make([]subscriber, 0, len(b.subs[name]))
	for _, s := range b.subs[name] {
		ss = append(ss, s)
	}
	b.mu.RUnlock()
	for _, s := range ss {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("subscriber panic", "event", name, "panic", r)
				}
			}()
			s(ev)
		}()
	}
}

// Count returns the number of live subscribers for T.
func Count[T any](b *Bus) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[typeNameOf[T]()])
}
