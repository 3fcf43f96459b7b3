package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jose-valero/party-queue-bot/internal/clock"
)

// Registry is the entry point for loading and creating queues.
type Registry struct {
	store Store
	clock clock.Clock
}

func NewRegistry(store Store, clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.Real()
	}
	return &Registry{store: store, clock: clk}
}

func (r *Registry) Store() Store       { return r.store }
func (r *Registry) Clock() clock.Clock { return r.clock }

// Create persists a new open queue. expiresAt may be nil for no deadline.
func (r *Registry) Create(ctx context.Context, handle, guildID, channelID string, typ Type, expiresAt *time.Time) (*Queue, error) {
	rec := Record{
		Handle:    handle,
		GuildID:   guildID,
		ChannelID: channelID,
		Type:      typ.ID,
		Capacity:  typ.Capacity,
		Status:    StatusOpen,
		ExpiresAt: expiresAt,
		CreatedAt: r.clock.Now(),
	}
	if err := r.store.CreateQueue(ctx, rec); err != nil {
		return nil, fmt.Errorf("create queue %s: %w", handle, err)
	}
	return r.wrap(rec), nil
}

func (r *Registry) Load(ctx context.Context, handle string) (*Queue, error) {
	rec, err := r.store.GetQueue(ctx, handle)
	if err != nil {
		return nil, err
	}
	return r.wrap(rec), nil
}

func (r *Registry) LoadOpenByType(ctx context.Context, guildID string, typ TypeID) (*Queue, error) {
	rec, err := r.store.GetOpenQueueByType(ctx, guildID, typ)
	if err != nil {
		return nil, err
	}
	return r.wrap(rec), nil
}

func (r *Registry) LoadAllForGuild(ctx context.Context, guildID string) ([]*Queue, error) {
	recs, err := r.store.ListGuildQueues(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return r.wrapAll(recs), nil
}

func (r *Registry) LoadAll(ctx context.Context) ([]*Queue, error) {
	recs, err := r.store.ListQueues(ctx)
	if err != nil {
		return nil, err
	}
	return r.wrapAll(recs), nil
}

func (r *Registry) LoadOpen(ctx context.Context) ([]*Queue, error) {
	recs, err := r.store.ListOpenQueues(ctx)
	if err != nil {
		return nil, err
	}
	return r.wrapAll(recs), nil
}

func (r *Registry) wrap(rec Record) *Queue {
	return &Queue{
		Handle:    rec.Handle,
		GuildID:   rec.GuildID,
		ChannelID: rec.ChannelID,
		Type:      rec.Type,
		Capacity:  rec.Capacity,
		CreatedAt: rec.CreatedAt,
		store:     r.store,
		clock:     r.clock,
	}
}

func (r *Registry) wrapAll(recs []Record) []*Queue {
	out := make([]*Queue, 0, len(recs))
	for _, rec := range recs {
		out = append(out, r.wrap(rec))
	}
	return out
}

// Queue is a handle on one persisted queue. It holds only identity that
// never changes after creation; status, deadline and members are read from
// the store on every call.
type Queue struct {
	Handle    string
	GuildID   string
	ChannelID string
	Type      TypeID
	Capacity  int
	CreatedAt time.Time

	store Store
	clock clock.Clock
}

// AddMember admits the player or switches their role.
func (q *Queue) AddMember(ctx context.Context, playerID, displayName string, role Role) (JoinResult, error) {
	if !role.Valid() {
		return JoinResult{}, ErrUnknownRole
	}
	return q.store.Join(ctx, JoinRequest{
		Handle:      q.Handle,
		PlayerID:    playerID,
		DisplayName: displayName,
		Role:        role,
		JoinedAt:    q.clock.Now(),
	})
}

// RemoveMember reports whether the player was actually removed. A player
// who was not in the queue yields false, nil.
func (q *Queue) RemoveMember(ctx context.Context, playerID string) (bool, error) {
	return q.store.RemoveMember(ctx, q.Handle, playerID)
}

func (q *Queue) HasMember(ctx context.Context, playerID string) (bool, error) {
	return q.store.HasMember(ctx, q.Handle, playerID)
}

// OtherOpenQueueHandle reports the open queue in the same guild the player
// already belongs to, if any.
func (q *Queue) OtherOpenQueueHandle(ctx context.Context, playerID string) (string, bool, error) {
	h, err := q.store.PlayerOpenQueue(ctx, q.GuildID, playerID, q.Handle)
	if err != nil {
		return "", false, err
	}
	return h, h != "", nil
}

func (q *Queue) MemberCount(ctx context.Context) (int, error) {
	return q.store.CountMembers(ctx, q.Handle)
}

func (q *Queue) IsFull(ctx context.Context) (bool, error) {
	n, err := q.MemberCount(ctx)
	if err != nil {
		return false, err
	}
	return n >= q.Capacity, nil
}

func (q *Queue) IsClosed(ctx context.Context) (bool, error) {
	rec, err := q.store.GetQueue(ctx, q.Handle)
	if err != nil {
		return false, err
	}
	return rec.Status == StatusClosed, nil
}

func (q *Queue) AvailableSlots(ctx context.Context) (int, error) {
	n, err := q.MemberCount(ctx)
	if err != nil {
		return 0, err
	}
	if n >= q.Capacity {
		return 0, nil
	}
	return q.Capacity - n, nil
}

// Progress is the fill fraction in [0, 1].
func (q *Queue) Progress(ctx context.Context) (float64, error) {
	n, err := q.MemberCount(ctx)
	if err != nil {
		return 0, err
	}
	if q.Capacity <= 0 {
		return 0, nil
	}
	p := float64(n) / float64(q.Capacity)
	if p > 1 {
		p = 1
	}
	return p, nil
}

// Clear removes every member.
func (q *Queue) Clear(ctx context.Context) error {
	return q.store.ClearMembers(ctx, q.Handle)
}

func (q *Queue) Reopen(ctx context.Context, expiresAt time.Time) error {
	return q.store.ReopenQueue(ctx, q.Handle, expiresAt)
}

// Close is idempotent.
func (q *Queue) Close(ctx context.Context) error {
	return q.store.CloseQueue(ctx, q.Handle)
}

// Delete removes the queue and its members. Deleting a missing queue is
// not an error.
func (q *Queue) Delete(ctx context.Context) error {
	err := q.store.DeleteQueue(ctx, q.Handle)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// State loads a consistent-enough snapshot of the record and its members.
func (q *Queue) State(ctx context.Context) (State, error) {
	rec, err := q.store.GetQueue(ctx, q.Handle)
	if err != nil {
		return State{}, err
	}
	members, err := q.store.Members(ctx, q.Handle)
	if err != nil {
		return State{}, fmt.Errorf("members of %s: %w", q.Handle, err)
	}
	return State{Queue: rec, Members: members}, nil
}

// Expired reports whether the deadline has passed at now.
func (r Record) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}
