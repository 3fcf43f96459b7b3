// Package memstore is a mutex-guarded, in-memory queue.Store. It keeps the
// same admission semantics as the SQL store and is used by tests and
// throwaway runs.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jose-valero/party-queue-bot/internal/queue"
)

type activeKey struct{ guild, player string }

type member struct {
	m   queue.Membership
	seq uint64
}

type Store struct {
	mu      sync.Mutex
	queues  map[string]queue.Record
	members map[string][]member
	active  map[activeKey]string
	seq     uint64
}

var _ queue.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		queues:  make(map[string]queue.Record),
		members: make(map[string][]member),
		active:  make(map[activeKey]string),
	}
}

func (s *Store) CreateQueue(_ context.Context, rec queue.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queues[rec.Handle]; ok {
		return queue.ErrExists
	}
	if rec.Status == "" {
		rec.Status = queue.StatusOpen
	}
	s.queues[rec.Handle] = copyRecord(rec)
	return nil
}

func (s *Store) GetQueue(_ context.Context, handle string) (queue.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.queues[handle]
	if !ok {
		return queue.Record{}, queue.ErrNotFound
	}
	return copyRecord(rec), nil
}

func (s *Store) GetOpenQueueByType(_ context.Context, guildID string, typ queue.TypeID) (queue.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *queue.Record
	for _, rec := range s.queues {
		if rec.GuildID != guildID || rec.Type != typ || rec.Status != queue.StatusOpen {
			continue
		}
		if found == nil || rec.CreatedAt.After(found.CreatedAt) {
			r := rec
			found = &r
		}
	}
	if found == nil {
		return queue.Record{}, queue.ErrNotFound
	}
	return copyRecord(*found), nil
}

func (s *Store) ListGuildQueues(_ context.Context, guildID string) ([]queue.Record, error) {
	return s.list(func(r queue.Record) bool { return r.GuildID == guildID }), nil
}

func (s *Store) ListQueues(_ context.Context) ([]queue.Record, error) {
	return s.list(func(queue.Record) bool { return true }), nil
}

func (s *Store) ListOpenQueues(_ context.Context) ([]queue.Record, error) {
	return s.list(func(r queue.Record) bool { return r.Status == queue.StatusOpen }), nil
}

func (s *Store) list(keep func(queue.Record) bool) []queue.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []queue.Record
	for _, rec := range s.queues {
		if keep(rec) {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Handle < out[j].Handle
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) CloseQueue(_ context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.queues[handle]
	if !ok {
		return queue.ErrNotFound
	}
	rec.Status = queue.StatusClosed
	s.queues[handle] = rec
	return nil
}

func (s *Store) ReopenQueue(_ context.Context, handle string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.queues[handle]
	if !ok {
		return queue.ErrNotFound
	}
	rec.Status = queue.StatusOpen
	rec.ExpiresAt = &expiresAt
	s.queues[handle] = rec
	return nil
}

func (s *Store) DeleteQueue(_ context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queues[handle]; !ok {
		return queue.ErrNotFound
	}
	s.dropMembersLocked(handle)
	delete(s.queues, handle)
	return nil
}

func (s *Store) Join(_ context.Context, req queue.JoinRequest) (queue.JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.queues[req.Handle]
	if !ok {
		return queue.JoinResult{}, queue.ErrNotFound
	}
	res := queue.JoinResult{Capacity: rec.Capacity}
	if rec.Status == queue.StatusClosed {
		return res, queue.ErrQueueClosed
	}

	list := s.members[req.Handle]
	for i, m := range list {
		if m.m.PlayerID != req.PlayerID {
			continue
		}
		// role switch: the member moves to the end of the order
		list = append(list[:i:i], list[i+1:]...)
		s.seq++
		list = append(list, member{m: membershipOf(req), seq: s.seq})
		s.members[req.Handle] = list
		res.Outcome = queue.Switched
		res.Count = len(list)
		return res, nil
	}

	if len(list) >= rec.Capacity {
		res.Count = len(list)
		return res, queue.ErrQueueFull
	}

	key := activeKey{rec.GuildID, req.PlayerID}
	if other, ok := s.active[key]; ok && other != req.Handle {
		if o, exists := s.queues[other]; exists && o.Status == queue.StatusOpen {
			res.Count = len(list)
			return res, queue.ErrPlayerInAnotherQueue
		}
	}

	s.active[key] = req.Handle
	s.seq++
	list = append(list, member{m: membershipOf(req), seq: s.seq})
	s.members[req.Handle] = list
	res.Outcome = queue.Joined
	res.Count = len(list)
	return res, nil
}

func (s *Store) RemoveMember(_ context.Context, handle, playerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.queues[handle]
	if !ok {
		return false, queue.ErrNotFound
	}
	list := s.members[handle]
	for i, m := range list {
		if m.m.PlayerID == playerID {
			s.members[handle] = append(list[:i:i], list[i+1:]...)
			s.releaseLocked(rec.GuildID, playerID, handle)
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ClearMembers(_ context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queues[handle]; !ok {
		return queue.ErrNotFound
	}
	s.dropMembersLocked(handle)
	return nil
}

func (s *Store) Members(_ context.Context, handle string) ([]queue.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append([]member(nil), s.members[handle]...)
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].m.JoinedAt.Equal(list[j].m.JoinedAt) {
			return list[i].seq < list[j].seq
		}
		return list[i].m.JoinedAt.Before(list[j].m.JoinedAt)
	})
	out := make([]queue.Membership, 0, len(list))
	for _, m := range list {
		out = append(out, m.m)
	}
	return out, nil
}

func (s *Store) CountMembers(_ context.Context, handle string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members[handle]), nil
}

func (s *Store) HasMember(_ context.Context, handle, playerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members[handle] {
		if m.m.PlayerID == playerID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) PlayerOpenQueue(_ context.Context, guildID, playerID, exclude string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.active[activeKey{guildID, playerID}]
	if !ok || h == exclude {
		return "", nil
	}
	rec, ok := s.queues[h]
	if !ok || rec.Status != queue.StatusOpen {
		return "", nil
	}
	return h, nil
}

func (s *Store) dropMembersLocked(handle string) {
	guild := s.queues[handle].GuildID
	for _, m := range s.members[handle] {
		s.releaseLocked(guild, m.m.PlayerID, handle)
	}
	delete(s.members, handle)
}

func (s *Store) releaseLocked(guild, player, handle string) {
	key := activeKey{guild, player}
	if s.active[key] == handle {
		delete(s.active, key)
	}
}

func membershipOf(req queue.JoinRequest) queue.Membership {
	return queue.Membership{
		Handle:      req.Handle,
		PlayerID:    req.PlayerID,
		DisplayName: req.DisplayName,
		Role:        req.Role,
		JoinedAt:    req.JoinedAt,
	}
}

func copyRecord(r queue.Record) queue.Record {
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		r.ExpiresAt = &t
	}
	return r
}
