package events

import (
	"sync"
	"sync/atomic"
	"testing"
)

type E1 struct{ A int }
type E2 struct{ S string }

func TestBus_SubscribePublish_TypeIsolation(t *testing.T) {
	b := NewBus(nil)
	var c1 int32

	cancel := Subscribe(b, func(ev E1) {
		atomic.AddInt32(&c1, int32(ev.A))
	})
	defer cancel()

	Publish(b, E1{A: 1})
	Publish(b, E1{A: 2})
	Publish(b, E2{S: "noop"})

	if got := atomic.LoadInt32(&c1); got != 3 {
		t.Fatalf("want 3, got %d", got)
	}
}

func TestBus_Cancel_Unsubscribe(t *testing.T) {
	b := NewBus(nil)
	var first, second int32

	cancel1 := Subscribe(b, func(E1) { atomic.AddInt32(&first, 1) })
	cancel2 := Subscribe(b, func(E1) { atomic.AddInt32(&second, 1) })
	defer cancel2()

	cancel1()
	cancel1()
	if got := Count[E1](b); got != 1 {
		t.Fatalf("want 1 subscriber, got %d", got)
	}

	Publish(b, E1{A: 1})
	if atomic.LoadInt32(&first) != 0 || atomic.LoadInt32(&second) != 1 {
		t.Fatalf("first=%d second=%d", first, second)
	}
}

func TestBus_PanicIsolated(t *testing.T) {
	b := NewBus(nil)
	var hits int32
	defer Subscribe(b, func(E1) { panic("boom") })()
	defer Subscribe(b, func(E1) { atomic.AddInt32(&hits, 1) })()

	Publish(b, E1{})
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatal("healthy subscriber skipped after panic")
	}
}

func TestBus_Concurrency_NoRaces(t *testing.T) {
	b := NewBus(nil)
	var hits int32

	cancel := Subscribe(b, func(E1) {
		atomic.AddInt32(&hits, 1)
	})
	defer cancel()

	const G = 50
	const N = 100
	var wg sync.WaitGroup
	wg.Add(G)
	for g := 0; g < G; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < N; i++ {
				Publish(b, E1{A: 1})
			}
		}()
	}
	wg.Wait()

	want := int32(G * N)
	if got := atomic.LoadInt32(&hits); got != want {
		t.Fatalf("want %d, got %d", want, got)
	}
}

func TestLifecycleNames(t *testing.T) {
	var evs = []Lifecycle{
		QueueCreated{Meta: Meta{Handle: "m1"}},
		MemberJoined{}, MemberLeft{}, QueueFilled{}, QueueExpired{}, QueueReset{}, QueueClosed{},
	}
	seen := map[string]bool{}
	for _, ev := range evs {
		if seen[ev.EventName()] {
			t.Fatalf("duplicate event name %s", ev.EventName())
		}
		seen[ev.EventName()] = true
	}
	if evs[0].QueueHandle() != "m1" {
		t.Fatal("handle not promoted from Meta")
	}
}
