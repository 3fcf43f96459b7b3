// Package service orchestrates queue creation, membership changes, fill and
// expiry handling, and teardown across the store, the renderer and the
// notifier.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jose-valero/party-queue-bot/internal/clock"
	"github.com/jose-valero/party-queue-bot/internal/domain/events"
	"github.com/jose-valero/party-queue-bot/internal/lock"
	"github.com/jose-valero/party-queue-bot/internal/queue"
	"github.com/jose-valero/party-queue-bot/internal/timer"
)

const DefaultTTL = 30 * time.Minute

type Deps struct {
	Registry   *queue.Registry
	Catalog    *queue.Catalog
	Timers     *timer.Manager
	Locker     lock.Locker
	Renderer   Renderer
	Notifier   Notifier
	Bus        *events.Bus
	Clock      clock.Clock
	DefaultTTL time.Duration
	Logger     *slog.Logger
}

type Service struct {
	registry   *queue.Registry
	catalog    *queue.Catalog
	timers     *timer.Manager
	locker     lock.Locker
	renderer   Renderer
	notifier   Notifier
	bus        *events.Bus
	clock      clock.Clock
	defaultTTL time.Duration
	log        *slog.Logger
}

// New wires the service and registers it as the timer's expiry handler.
func New(d Deps) *Service {
	s := &Service{
		registry:   d.Registry,
		catalog:    d.Catalog,
		timers:     d.Timers,
		locker:     d.Locker,
		renderer:   d.Renderer,
		notifier:   d.Notifier,
		bus:        d.Bus,
		clock:      d.Clock,
		defaultTTL: d.DefaultTTL,
		log:        d.Logger,
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.defaultTTL <= 0 {
		s.defaultTTL = DefaultTTL
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.catalog == nil {
		s.catalog = queue.DefaultCatalog()
	}
	s.log = s.log.With("component", "service")
	s.timers.OnExpire(s.QueueExpired)
	return s
}

func (s *Service) Catalog() *queue.Catalog { return s.catalog }

// CreateQueue renders the empty queue first and persists it under the
// handle the renderer returned. If persisting fails the rendered view is
// removed again.
func (s *Service) CreateQueue(ctx context.Context, guildID, channelID string, typeID queue.TypeID) (queue.State, error) {
	typ, err := s.catalog.Lookup(typeID)
	if err != nil {
		return queue.State{}, err
	}
	unlock, err := s.locker.Lock(ctx, lock.CreateKey(guildID, string(typeID)))
	if err != nil {
		return queue.State{}, fmt.Errorf("create lock: %w", err)
	}
	defer unlock()

	if _, err := s.registry.LoadOpenByType(ctx, guildID, typeID); err == nil {
		return queue.State{}, queue.ErrQueueAlreadyExists
	} else if !errors.Is(err, queue.ErrNotFound) {
		return queue.State{}, err
	}

	now := s.clock.Now()
	expires := now.Add(s.ttlFor(typ))
	draft := queue.State{Queue: queue.Record{
		GuildID:   guildID,
		ChannelID: channelID,
		Type:      typ.ID,
		Capacity:  typ.Capacity,
		Status:    queue.StatusOpen,
		ExpiresAt: &expires,
		CreatedAt: now,
	}}
	handle, err := s.renderer.Publish(ctx, channelID, draft)
	if err != nil {
		return queue.State{}, fmt.Errorf("render new queue: %w", err)
	}

	q, err := s.registry.Create(ctx, handle, guildID, channelID, typ, &expires)
	if err != nil {
		s.log.Warn("persist failed, removing orphan view", "handle", handle, "err", err)
		if rmErr := s.renderer.Remove(ctx, channelID, handle); rmErr != nil && !errors.Is(rmErr, ErrArtifactGone) {
			s.log.Error("orphan view left behind", "handle", handle, "channel", channelID, "err", rmErr)
		}
		return queue.State{}, err
	}
	if err := s.timers.Start(ctx, q); err != nil {
		s.log.Error("start timer", "handle", handle, "err", err)
	}

	s.log.Info("queue created", "guild", guildID, "type", typ.ID, "handle", handle, "expires", expires)
	events.Publish(s.bus, events.QueueCreated{
		Meta:      s.meta(q),
		ChannelID: channelID,
		Capacity:  typ.Capacity,
		ExpiresAt: expires,
	})
	return q.State(ctx)
}

// Join admits the player or switches their role. The queue lock is held
// through the full-edge handling so no join lands while a fill is being
// processed. If the queue's view turns out to be gone the record is dropped
// and ErrNotFound returned.
func (s *Service) Join(ctx context.Context, handle, playerID, displayName string, role queue.Role) (queue.JoinResult, error) {
	unlock, err := s.locker.Lock(ctx, lock.QueueKey(handle))
	if err != nil {
		return queue.JoinResult{}, fmt.Errorf("queue lock: %w", err)
	}
	defer unlock()

	q, err := s.registry.Load(ctx, handle)
	if err != nil {
		return queue.JoinResult{}, err
	}
	res, err := q.AddMember(ctx, playerID, displayName, role)
	if err != nil {
		return res, err
	}

	events.Publish(s.bus, events.MemberJoined{
		Meta:     s.meta(q),
		PlayerID: playerID,
		Role:     string(role),
		Switched: res.Outcome == queue.Switched,
		Count:    res.Count,
	})
	if res.Full() {
		s.onQueueFull(ctx, q)
		return res, nil
	}
	if err := s.refresh(ctx, q); errors.Is(err, ErrArtifactGone) {
		return res, queue.ErrNotFound
	}
	return res, nil
}

// Leave removes the player. ErrNotMember when they were not in the queue.
func (s *Service) Leave(ctx context.Context, handle, playerID string) error {
	unlock, err := s.locker.Lock(ctx, lock.QueueKey(handle))
	if err != nil {
		return fmt.Errorf("queue lock: %w", err)
	}
	defer unlock()

	q, err := s.registry.Load(ctx, handle)
	if err != nil {
		return err
	}
	removed, err := q.RemoveMember(ctx, playerID)
	if err != nil {
		return err
	}
	if !removed {
		return queue.ErrNotMember
	}
	events.Publish(s.bus, events.MemberLeft{Meta: s.meta(q), PlayerID: playerID})
	_ = s.refresh(ctx, q)
	return nil
}

// ResetQueue empties the queue and reopens it with a fresh deadline. A queue
// whose view was deleted is dropped instead and ErrNotFound returned.
func (s *Service) ResetQueue(ctx context.Context, handle string) (queue.State, error) {
	unlock, err := s.locker.Lock(ctx, lock.QueueKey(handle))
	if err != nil {
		return queue.State{}, fmt.Errorf("queue lock: %w", err)
	}
	defer unlock()

	q, err := s.registry.Load(ctx, handle)
	if err != nil {
		return queue.State{}, err
	}
	// the old timer must not fire between clear and reopen
	s.timers.Cancel(handle)
	if err := q.Clear(ctx); err != nil {
		return queue.State{}, fmt.Errorf("clear %s: %w", handle, err)
	}
	expires := s.clock.Now().Add(s.ttlForID(q.Type))
	if err := q.Reopen(ctx, expires); err != nil {
		return queue.State{}, fmt.Errorf("reopen %s: %w", handle, err)
	}
	if err := s.timers.Start(ctx, q); err != nil {
		s.log.Error("start timer", "handle", handle, "err", err)
	}
	if err := s.refresh(ctx, q); errors.Is(err, ErrArtifactGone) {
		return queue.State{}, queue.ErrNotFound
	}

	s.log.Info("queue reset", "handle", handle, "expires", expires)
	events.Publish(s.bus, events.QueueReset{Meta: s.meta(q), ExpiresAt: expires})
	return q.State(ctx)
}

func (s *Service) ResetByType(ctx context.Context, guildID string, typeID queue.TypeID) (queue.State, error) {
	handle, err := s.handleByType(ctx, guildID, typeID)
	if err != nil {
		return queue.State{}, err
	}
	return s.ResetQueue(ctx, handle)
}

// CloseQueue tears the queue down: timer, rendered view, then the record.
func (s *Service) CloseQueue(ctx context.Context, handle string) error {
	unlock, err := s.locker.Lock(ctx, lock.QueueKey(handle))
	if err != nil {
		return fmt.Errorf("queue lock: %w", err)
	}
	defer unlock()

	q, err := s.registry.Load(ctx, handle)
	if err != nil {
		return err
	}
	s.timers.Cancel(handle)
	if err := s.renderer.Remove(ctx, q.ChannelID, handle); err != nil && !errors.Is(err, ErrArtifactGone) {
		s.log.Warn("remove queue view", "handle", handle, "err", err)
	}
	if err := q.Delete(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", handle, err)
	}
	s.log.Info("queue closed", "handle", handle, "guild", q.GuildID)
	events.Publish(s.bus, events.QueueClosed{Meta: s.meta(q)})
	return nil
}

func (s *Service) CloseByType(ctx context.Context, guildID string, typeID queue.TypeID) error {
	handle, err := s.handleByType(ctx, guildID, typeID)
	if err != nil {
		return err
	}
	return s.CloseQueue(ctx, handle)
}

// onQueueFull runs with the queue lock held.
func (s *Service) onQueueFull(ctx context.Context, q *queue.Queue) {
	s.timers.Cancel(q.Handle)
	if err := q.Close(ctx); err != nil {
		s.log.Error("close full queue", "handle", q.Handle, "err", err)
		return
	}
	st, err := q.State(ctx)
	if err != nil {
		s.log.Error("snapshot full queue", "handle", q.Handle, "err", err)
		return
	}
	if err := s.renderer.Refresh(ctx, st); errors.Is(err, ErrArtifactGone) {
		_ = s.dropOrphan(ctx, q.Handle)
	} else if err != nil {
		s.log.Warn("refresh full queue", "handle", q.Handle, "err", err)
	}
	s.notify(ctx, NotifyFull, st)
	s.log.Info("queue full", "handle", q.Handle, "members", len(st.Members))
	events.Publish(s.bus, events.QueueFilled{Meta: s.meta(q), PlayerIDs: st.PlayerIDs()})
}

// QueueExpired is the timer's expiry handler. The queue is already closed
// and the queue lock is held.
func (s *Service) QueueExpired(ctx context.Context, st queue.State) {
	handle := st.Queue.Handle
	if err := s.renderer.Refresh(ctx, st); errors.Is(err, ErrArtifactGone) {
		_ = s.dropOrphan(ctx, handle)
	} else if err != nil {
		s.log.Warn("refresh expired queue", "handle", handle, "err", err)
	}
	s.notify(ctx, NotifyExpired, st)
	events.Publish(s.bus, events.QueueExpired{
		Meta:      events.Meta{GuildID: st.Queue.GuildID, Handle: handle, Type: string(st.Queue.Type), At: s.clock.Now()},
		PlayerIDs: st.PlayerIDs(),
	})
}

// Restore reconciles persisted queues with their rendered views after a
// restart, then rebuilds the expiration timers.
func (s *Service) Restore(ctx context.Context) error {
	qs, err := s.registry.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	refreshed, removed := 0, 0
	for _, q := range qs {
		gone, err := s.restoreOne(ctx, q)
		if err != nil {
			s.log.Error("restore queue", "handle", q.Handle, "err", err)
			continue
		}
		if gone {
			removed++
		} else {
			refreshed++
		}
	}
	s.log.Info("queues restored", "refreshed", refreshed, "removed", removed)
	return s.timers.RestoreAll(ctx)
}

func (s *Service) restoreOne(ctx context.Context, q *queue.Queue) (bool, error) {
	unlock, err := s.locker.Lock(ctx, lock.QueueKey(q.Handle))
	if err != nil {
		return false, err
	}
	defer unlock()

	st, err := q.State(ctx)
	if err != nil {
		return false, err
	}
	err = s.renderer.Refresh(ctx, st)
	if errors.Is(err, ErrArtifactGone) {
		return true, s.dropOrphan(ctx, q.Handle)
	}
	return false, err
}

// States lists every queue of a guild with its members.
func (s *Service) States(ctx context.Context, guildID string) ([]queue.State, error) {
	qs, err := s.registry.LoadAllForGuild(ctx, guildID)
	if err != nil {
		return nil, err
	}
	out := make([]queue.State, 0, len(qs))
	for _, q := range qs {
		st, err := q.State(ctx)
		if errors.Is(err, queue.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *Service) State(ctx context.Context, handle string) (queue.State, error) {
	q, err := s.registry.Load(ctx, handle)
	if err != nil {
		return queue.State{}, err
	}
	return q.State(ctx)
}

// handleByType prefers the open queue of the type, else the most recently
// created one.
func (s *Service) handleByType(ctx context.Context, guildID string, typeID queue.TypeID) (string, error) {
	if _, err := s.catalog.Lookup(typeID); err != nil {
		return "", err
	}
	q, err := s.registry.LoadOpenByType(ctx, guildID, typeID)
	if err == nil {
		return q.Handle, nil
	}
	if !errors.Is(err, queue.ErrNotFound) {
		return "", err
	}
	all, err := s.registry.LoadAllForGuild(ctx, guildID)
	if err != nil {
		return "", err
	}
	var latest *queue.Queue
	for _, q := range all {
		if q.Type != typeID {
			continue
		}
		if latest == nil || !q.CreatedAt.Before(latest.CreatedAt) {
			latest = q
		}
	}
	if latest == nil {
		return "", queue.ErrNotFound
	}
	return latest.Handle, nil
}

// refresh redraws the queue. A view that no longer exists takes the record
// down with it; any other failure is cosmetic and only logged. Callers hold
// the queue lock.
func (s *Service) refresh(ctx context.Context, q *queue.Queue) error {
	st, err := q.State(ctx)
	if err != nil {
		s.log.Warn("snapshot for refresh", "handle", q.Handle, "err", err)
		return err
	}
	err = s.renderer.Refresh(ctx, st)
	if errors.Is(err, ErrArtifactGone) {
		if dropErr := s.dropOrphan(ctx, q.Handle); dropErr != nil {
			return dropErr
		}
		return err
	}
	if err != nil {
		s.log.Warn("refresh queue view", "handle", q.Handle, "err", err)
	}
	return err
}

// dropOrphan deletes a queue whose rendered view was removed out from under
// it, along with its pending timer. Callers hold the queue lock.
func (s *Service) dropOrphan(ctx context.Context, handle string) error {
	s.log.Warn("queue view is gone, deleting record", "handle", handle)
	s.timers.Cancel(handle)
	if err := s.registry.Store().DeleteQueue(ctx, handle); err != nil && !errors.Is(err, queue.ErrNotFound) {
		s.log.Error("delete orphan queue", "handle", handle, "err", err)
		return fmt.Errorf("delete orphan %s: %w", handle, err)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, kind NotificationKind, st queue.State) {
	if len(st.Members) == 0 || s.notifier == nil {
		return
	}
	typ, err := s.catalog.Lookup(st.Queue.Type)
	if err != nil {
		typ = queue.Type{ID: st.Queue.Type, Name: string(st.Queue.Type), Capacity: st.Queue.Capacity}
	}
	n := Notification{
		Kind:      kind,
		GuildID:   st.Queue.GuildID,
		ChannelID: st.Queue.ChannelID,
		Handle:    st.Queue.Handle,
		Type:      typ,
		PlayerIDs: st.PlayerIDs(),
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Warn("notification failed", "kind", kind, "handle", st.Queue.Handle, "err", err)
	}
}

func (s *Service) ttlFor(typ queue.Type) time.Duration {
	if typ.TTL > 0 {
		return typ.TTL
	}
	return s.defaultTTL
}

func (s *Service) ttlForID(id queue.TypeID) time.Duration {
	typ, err := s.catalog.Lookup(id)
	if err != nil {
		return s.defaultTTL
	}
	return s.ttlFor(typ)
}

func (s *Service) meta(q *queue.Queue) events.Meta {
	return events.Meta{GuildID: q.GuildID, Handle: q.Handle, Type: string(q.Type), At: s.clock.Now()}
}
