package queue

import (
	"context"
	"time"
)

// Store is the durable backing for queues and their members. Every method
// is individually atomic; there are no cross-queue transactions.
type Store interface {
	// CreateQueue inserts an open queue. A handle collision yields ErrExists.
	CreateQueue(ctx context.Context, rec Record) error
	GetQueue(ctx context.Context, handle string) (Record, error)
	// GetOpenQueueByType returns the open queue of the given type in the
	// guild, or ErrNotFound.
	GetOpenQueueByType(ctx context.Context, guildID string, typ TypeID) (Record, error)
	ListGuildQueues(ctx context.Context, guildID string) ([]Record, error)
	ListQueues(ctx context.Context) ([]Record, error)
	ListOpenQueues(ctx context.Context) ([]Record, error)

	// CloseQueue marks the queue closed. Closing a closed queue is not an error.
	CloseQueue(ctx context.Context, handle string) error
	// ReopenQueue marks the queue open with a new deadline.
	ReopenQueue(ctx context.Context, handle string, expiresAt time.Time) error
	// DeleteQueue removes the queue, its members and their active-player claims.
	DeleteQueue(ctx context.Context, handle string) error

	// Join applies the whole admission decision and its write atomically:
	// closed, then role switch, then capacity, then the one-open-queue-per-
	// player-per-guild claim, then insert.
	Join(ctx context.Context, req JoinRequest) (JoinResult, error)
	// RemoveMember reports whether a row was removed.
	RemoveMember(ctx context.Context, handle, playerID string) (bool, error)
	ClearMembers(ctx context.Context, handle string) error
	// Members are returned by join time, ties broken by insertion order.
	Members(ctx context.Context, handle string) ([]Membership, error)
	CountMembers(ctx context.Context, handle string) (int, error)
	HasMember(ctx context.Context, handle, playerID string) (bool, error)
	// PlayerOpenQueue returns the handle of an open queue in the guild the
	// player belongs to, other than exclude, or "" if none.
	PlayerOpenQueue(ctx context.Context, guildID, playerID, exclude string) (string, error)
}
