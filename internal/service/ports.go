package service

import (
	"context"
	"errors"

	"github.com/jose-valero/party-queue-bot/internal/queue"
)

// ErrArtifactGone reports that the rendered view of a queue no longer exists
// (the message was deleted, or its channel was).
var ErrArtifactGone = errors.New("rendered queue view is gone")

// Renderer draws queue snapshots somewhere players can see them. The handle
// returned by Publish becomes the queue's identity.
type Renderer interface {
	Publish(ctx context.Context, channelID string, st queue.State) (handle string, err error)
	Refresh(ctx context.Context, st queue.State) error
	Remove(ctx context.Context, channelID, handle string) error
}

type NotificationKind string

const (
	NotifyFull    NotificationKind = "full"
	NotifyExpired NotificationKind = "expired"
)

// Notification is a best-effort message addressed to a queue's members.
type Notification struct {
	Kind      NotificationKind
	GuildID   string
	ChannelID string
	Handle    string
	Type      queue.Type
	PlayerIDs []string
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
