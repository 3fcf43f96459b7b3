package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jose-valero/party-queue-bot/internal/queue"
)

var t0 = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func openTest(t *testing.T) *Store {
	t.Helper()
	db, err := Open(Config{Driver: DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return New(db)
}

func createQueue(t *testing.T, s *Store, handle, guild string, capacity int, created time.Time) {
	t.Helper()
	exp := created.Add(30 * time.Minute)
	err := s.CreateQueue(context.Background(), queue.Record{
		Handle: handle, GuildID: guild, ChannelID: "c1", Type: "sword_trial",
		Capacity: capacity, Status: queue.StatusOpen, ExpiresAt: &exp, CreatedAt: created,
	})
	if err != nil {
		t.Fatalf("create %s: %v", handle, err)
	}
}

func join(s *Store, handle, player string, role queue.Role, at time.Time) (queue.JoinResult, error) {
	return s.Join(context.Background(), queue.JoinRequest{
		Handle: handle, PlayerID: player, DisplayName: player, Role: role, JoinedAt: at,
	})
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	createQueue(t, s, "m1", "g1", 5, t0)

	rec, err := s.GetQueue(ctx, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != queue.StatusOpen || rec.Capacity != 5 || rec.ExpiresAt == nil {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if err := s.CreateQueue(ctx, queue.Record{Handle: "m1", GuildID: "g1", Capacity: 5}); !errors.Is(err, queue.ErrExists) {
		t.Fatalf("want ErrExists, got %v", err)
	}
	if _, err := s.GetQueue(ctx, "missing"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestGetOpenQueueByType(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	createQueue(t, s, "old", "g1", 5, t0)
	createQueue(t, s, "new", "g1", 5, t0.Add(time.Minute))
	if err := s.CloseQueue(ctx, "new"); err != nil {
		t.Fatal(err)
	}
	rec, err := s.GetOpenQueueByType(ctx, "g1", "sword_trial")
	if err != nil || rec.Handle != "old" {
		t.Fatalf("open by type: %+v %v", rec, err)
	}
	if _, err := s.GetOpenQueueByType(ctx, "g2", "sword_trial"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("other guild: %v", err)
	}
	open, err := s.ListOpenQueues(ctx)
	if err != nil || len(open) != 1 {
		t.Fatalf("open queues: %v %v", open, err)
	}
}

func TestCloseReopenIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	createQueue(t, s, "m1", "g1", 5, t0)
	for i := 0; i < 2; i++ {
		if err := s.CloseQueue(ctx, "m1"); err != nil {
			t.Fatalf("close #%d: %v", i, err)
		}
	}
	if err := s.CloseQueue(ctx, "missing"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("close missing: %v", err)
	}
	exp := t0.Add(time.Hour)
	if err := s.ReopenQueue(ctx, "m1", exp); err != nil {
		t.Fatal(err)
	}
	rec, _ := s.GetQueue(ctx, "m1")
	if rec.Status != queue.StatusOpen || !rec.ExpiresAt.Equal(exp) {
		t.Fatalf("after reopen: %+v", rec)
	}
}

func TestJoinPriorityAndSwitch(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	createQueue(t, s, "m1", "g1", 2, t0)

	if res, err := join(s, "m1", "A", queue.RoleTank, t0); err != nil || res.Outcome != queue.Joined {
		t.Fatalf("join A: %+v %v", res, err)
	}
	if _, err := join(s, "m1", "B", queue.RoleDPS, t0.Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	if _, err := join(s, "m1", "C", queue.RoleDPS, t0.Add(2*time.Second)); !errors.Is(err, queue.ErrQueueFull) {
		t.Fatalf("want ErrQueueFull, got %v", err)
	}
	res, err := join(s, "m1", "A", queue.RoleHealer, t0.Add(3*time.Second))
	if err != nil || res.Outcome != queue.Switched || res.Count != 2 {
		t.Fatalf("switch: %+v %v", res, err)
	}
	members, err := s.Members(ctx, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 || members[0].PlayerID != "B" || members[1].PlayerID != "A" || members[1].Role != queue.RoleHealer {
		t.Fatalf("members after switch: %+v", members)
	}

	if err := s.CloseQueue(ctx, "m1"); err != nil {
		t.Fatal(err)
	}
	if _, err := join(s, "m1", "A", queue.RoleDPS, t0); !errors.Is(err, queue.ErrQueueClosed) {
		t.Fatalf("want ErrQueueClosed, got %v", err)
	}
}

func TestActivePlayerClaim(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	createQueue(t, s, "m1", "g1", 5, t0)
	createQueue(t, s, "m2", "g1", 5, t0)

	if _, err := join(s, "m1", "A", queue.RoleDPS, t0); err != nil {
		t.Fatal(err)
	}
	if _, err := join(s, "m2", "A", queue.RoleDPS, t0); !errors.Is(err, queue.ErrPlayerInAnotherQueue) {
		t.Fatalf("want ErrPlayerInAnotherQueue, got %v", err)
	}
	if h, err := s.PlayerOpenQueue(ctx, "g1", "A", "m2"); err != nil || h != "m1" {
		t.Fatalf("player open queue: %q %v", h, err)
	}

	// stale claim on a closed queue is taken over
	if err := s.CloseQueue(ctx, "m1"); err != nil {
		t.Fatal(err)
	}
	if _, err := join(s, "m2", "A", queue.RoleDPS, t0); err != nil {
		t.Fatalf("join after close: %v", err)
	}
	if h, _ := s.PlayerOpenQueue(ctx, "g1", "A", ""); h != "m2" {
		t.Fatalf("claim not moved: %q", h)
	}

	// leaving the closed queue must not release the claim on m2
	if ok, err := s.RemoveMember(ctx, "m1", "A"); err != nil || !ok {
		t.Fatalf("remove from m1: %v %v", ok, err)
	}
	if h, _ := s.PlayerOpenQueue(ctx, "g1", "A", ""); h != "m2" {
		t.Fatalf("claim lost: %q", h)
	}
}

func TestDeleteAndClearReleaseClaims(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	createQueue(t, s, "m1", "g1", 5, t0)
	createQueue(t, s, "m2", "g1", 5, t0)

	if _, err := join(s, "m1", "A", queue.RoleDPS, t0); err != nil {
		t.Fatal(err)
	}
	if err := s.ClearMembers(ctx, "m1"); err != nil {
		t.Fatal(err)
	}
	if _, err := join(s, "m2", "A", queue.RoleDPS, t0); err != nil {
		t.Fatalf("join after clear: %v", err)
	}
	if err := s.DeleteQueue(ctx, "m2"); err != nil {
		t.Fatal(err)
	}
	if _, err := join(s, "m1", "A", queue.RoleDPS, t0); err != nil {
		t.Fatalf("join after delete: %v", err)
	}
	if err := s.DeleteQueue(ctx, "m2"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("delete twice: %v", err)
	}
	if n, _ := s.CountMembers(ctx, "m2"); n != 0 {
		t.Fatalf("members survived delete: %d", n)
	}
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	createQueue(t, s, "m1", "g1", 5, t0)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fills int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := join(s, "m1", fmt.Sprintf("P%02d", i), queue.RoleDPS, t0)
			if err != nil && !errors.Is(err, queue.ErrQueueFull) {
				t.Errorf("join %d: %v", i, err)
				return
			}
			if err == nil && res.Full() {
				mu.Lock()
				fills++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if n, _ := s.CountMembers(ctx, "m1"); n != 5 {
		t.Fatalf("want 5 members, got %d", n)
	}
	if fills != 1 {
		t.Fatalf("want exactly one full edge, got %d", fills)
	}
}
