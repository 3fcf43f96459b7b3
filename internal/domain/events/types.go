// Package events - types.go
package events

import "time"

// Lifecycle is implemented by every queue lifecycle event.
type Lifecycle interface {
	EventName() string
	QueueHandle() string
}

// Meta is shared by all lifecycle events.
type Meta struct {
	GuildID string    `json:"guild_id"`
	Handle  string    `json:"handle"`
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
}

func (m Meta) QueueHandle() string { return m.Handle }

type QueueCreated struct {
	Meta
	ChannelID string    `json:"channel_id"`
	Capacity  int       `json:"capacity"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MemberJoined covers both fresh joins and role switches.
type MemberJoined struct {
	Meta
	PlayerID string `json:"player_id"`
	Role     string `json:"role"`
	Switched bool   `json:"switched"`
	Count    int    `json:"count"`
}

type MemberLeft struct {
	Meta
	PlayerID string `json:"player_id"`
}

// QueueFilled is emitted once per fill, after the queue is closed.
type QueueFilled struct {
	Meta
	PlayerIDs []string `json:"player_ids"`
}

type QueueExpired struct {
	Meta
	PlayerIDs []string `json:"player_ids"`
}

type QueueReset struct {
	Meta
	ExpiresAt time.Time `json:"expires_at"`
}

type QueueClosed struct {
	Meta
}

func (QueueCreated) EventName() string { return "queue_created" }
func (MemberJoined) EventName() string { return "member_joined" }
func (MemberLeft) EventName() string   { return "member_left" }
func (QueueFilled) EventName() string  { return "queue_filled" }
func (QueueExpired) EventName() string { return "queue_expired" }
func (QueueReset) EventName() string   { return "queue_reset" }
func (QueueClosed) EventName() string  { return "queue_closed" }
