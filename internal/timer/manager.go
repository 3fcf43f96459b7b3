// Package timer schedules the expiration of open queues.
package timer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jose-valero/party-queue-bot/internal/clock"
	"github.com/jose-valero/party-queue-bot/internal/lock"
	"github.com/jose-valero/party-queue-bot/internal/queue"
)

// ExpiryHandler runs after an expired queue has been closed, with the
// per-queue lock held. It must not take that lock again.
type ExpiryHandler func(ctx context.Context, st queue.State)

type entry struct {
	timer    clock.Timer
	gen      uint64
	deadline time.Time
}

// Manager holds at most one pending expiration per queue handle.
type Manager struct {
	registry *queue.Registry
	clock    clock.Clock
	locker   lock.Locker
	log      *slog.Logger

	mu       sync.Mutex
	timers   map[string]*entry
	gen      uint64
	onExpire ExpiryHandler
}

func New(registry *queue.Registry, clk clock.Clock, locker lock.Locker, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		registry: registry,
		clock:    clk,
		locker:   locker,
		log:      log.With("component", "timer"),
		timers:   make(map[string]*entry),
	}
}

// OnExpire registers the handler invoked after a queue is closed by expiry.
func (m *Manager) OnExpire(h ExpiryHandler) {
	m.mu.Lock()
	m.onExpire = h
	m.mu.Unlock()
}

// Start schedules expiration for the queue's current deadline, replacing
// any pending timer. A missing or closed queue, one without a deadline and
// one already past its deadline end up with no pending timer at all.
func (m *Manager) Start(ctx context.Context, q *queue.Queue) error {
	m.Cancel(q.Handle)
	rec, err := m.registry.Store().GetQueue(ctx, q.Handle)
	if errors.Is(err, queue.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("timer start %s: %w", q.Handle, err)
	}
	if rec.Status == queue.StatusClosed || rec.ExpiresAt == nil {
		return nil
	}
	delay := rec.ExpiresAt.Sub(m.clock.Now())
	if delay <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked(q.Handle)
	m.gen++
	e := &entry{gen: m.gen, deadline: *rec.ExpiresAt}
	handle, gen := q.Handle, m.gen
	e.timer = m.clock.AfterFunc(delay, func() { m.onTimer(handle, gen) })
	m.timers[handle] = e
	m.log.Debug("timer scheduled", "handle", handle, "in", delay.Round(time.Second))
	return nil
}

// Cancel stops the pending timer for handle, if any.
func (m *Manager) Cancel(handle string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked(handle)
}

func (m *Manager) cancelLocked(handle string) {
	if e, ok := m.timers[handle]; ok {
		e.timer.Stop()
		delete(m.timers, handle)
	}
}

// Fire expires the queue now: under the queue lock it reloads the queue,
// closes it if still open and hands the snapshot to the expiry handler.
// The close stands even if the handler fails.
func (m *Manager) Fire(ctx context.Context, handle string) error {
	unlock, err := m.locker.Lock(ctx, lock.QueueKey(handle))
	if err != nil {
		return fmt.Errorf("timer fire %s: %w", handle, err)
	}
	defer unlock()
	m.Cancel(handle)
	return m.expireLocked(ctx, handle)
}

// onTimer is the scheduled callback. A callback whose generation no longer
// matches was cancelled or replaced after it started running.
func (m *Manager) onTimer(handle string, gen uint64) {
	ctx := context.Background()
	unlock, err := m.locker.Lock(ctx, lock.QueueKey(handle))
	if err != nil {
		m.log.Error("expiry lock failed", "handle", handle, "err", err)
		return
	}
	defer unlock()

	m.mu.Lock()
	e, ok := m.timers[handle]
	current := ok && e.gen == gen
	if current {
		delete(m.timers, handle)
	}
	m.mu.Unlock()
	if !current {
		return
	}
	if err := m.expireLocked(ctx, handle); err != nil {
		m.log.Error("queue expiry failed", "handle", handle, "err", err)
	}
}

func (m *Manager) expireLocked(ctx context.Context, handle string) error {
	q, err := m.registry.Load(ctx, handle)
	if errors.Is(err, queue.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	closed, err := q.IsClosed(ctx)
	if err != nil {
		return err
	}
	if closed {
		return nil
	}
	if err := q.Close(ctx); err != nil {
		return fmt.Errorf("close expired %s: %w", handle, err)
	}
	st, err := q.State(ctx)
	if err != nil {
		return fmt.Errorf("snapshot expired %s: %w", handle, err)
	}
	m.log.Info("queue expired", "handle", handle, "guild", st.Queue.GuildID, "members", len(st.Members))

	m.mu.Lock()
	h := m.onExpire
	m.mu.Unlock()
	if h != nil {
		h(ctx, st)
	}
	return nil
}

// RestoreAll rebuilds timers after a restart: open queues past their
// deadline expire immediately, the rest are rescheduled.
func (m *Manager) RestoreAll(ctx context.Context) error {
	open, err := m.registry.LoadOpen(ctx)
	if err != nil {
		return fmt.Errorf("restore timers: %w", err)
	}
	now := m.clock.Now()
	var errs []error
	fired, started := 0, 0
	for _, q := range open {
		rec, err := m.registry.Store().GetQueue(ctx, q.Handle)
		if errors.Is(err, queue.ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if rec.Expired(now) {
			if err := m.Fire(ctx, q.Handle); err != nil {
				errs = append(errs, err)
			}
			fired++
			continue
		}
		if err := m.Start(ctx, q); err != nil {
			errs = append(errs, err)
		}
		started++
	}
	m.log.Info("timers restored", "expired", fired, "scheduled", started)
	return errors.Join(errs...)
}

// Shutdown stops every pending timer. The manager stays usable.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h := range m.timers {
		m.cancelLocked(h)
	}
}

// Pending reports how many timers are scheduled.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Scheduled returns the deadline of the pending timer for handle.
func (m *Manager) Scheduled(handle string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.timers[handle]
	if !ok {
		return time.Time{}, false
	}
	return e.deadline, true
}

// Snapshot lists every pending deadline by handle.
func (m *Manager) Snapshot() map[string]time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]time.Time, len(m.timers))
	for h, e := range m.timers {
		out[h] = e.deadline
	}
	return out
}
