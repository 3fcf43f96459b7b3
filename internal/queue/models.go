package queue

import (
	"strings"
	"time"
)

// Status of a queue. Closed queues accept no membership mutation.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Role a player claims inside a queue. The set is closed and has no
// per-role limits; capacity is the only bound.
type Role string

const (
	RoleTank   Role = "tank"
	RoleHealer Role = "healer"
	RoleDPS    Role = "dps"
)

var roles = []Role{RoleTank, RoleHealer, RoleDPS}

// Roles returns the role enumeration in display order.
func Roles() []Role { return append([]Role(nil), roles...) }

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	for _, known := range roles {
		if r == known {
			return true
		}
	}
	return false
}

// Record is the durable queue row.
type Record struct {
	Handle    string     // opaque primary key (id of the message rendering the queue)
	GuildID   string     // tenant scope
	ChannelID string     // where the queue is rendered
	Type      TypeID     // classification
	Capacity  int        // fixed at creation
	Status    Status     // open | closed
	ExpiresAt *time.Time // nil = no deadline
	CreatedAt time.Time
}

// Membership is one player's claim on a role within a queue.
type Membership struct {
	Handle      string
	PlayerID    string
	DisplayName string // snapshot at join time
	Role        Role
	JoinedAt    time.Time
}

// State is the snapshot handed to the presentation layer: the queue
// attributes plus its members ordered by join time.
type State struct {
	Queue   Record
	Members []Membership
}

// PlayerIDs returns member ids in join order.
func (s State) PlayerIDs() []string {
	out := make([]string, 0, len(s.Members))
	for _, m := range s.Members {
		out = append(out, m.PlayerID)
	}
	return out
}

func (s State) Closed() bool { return s.Queue.Status == StatusClosed }

func (s State) Full() bool { return len(s.Members) >= s.Queue.Capacity }

// Outcome of a successful join.
type Outcome int

const (
	Joined Outcome = iota + 1
	Switched
)

func (o Outcome) String() string {
	switch o {
	case Joined:
		return "joined"
	case Switched:
		return "switched"
	}
	return "unknown"
}

// JoinRequest is the input of the store's atomic join.
type JoinRequest struct {
	Handle      string
	PlayerID    string
	DisplayName string
	Role        Role
	JoinedAt    time.Time
}

// JoinResult carries the outcome and the occupancy right after the write.
type JoinResult struct {
	Outcome  Outcome
	Count    int
	Capacity int
}

// Full reports the queue-full edge: a fresh join that brought occupancy to
// capacity. Callers use it to trigger closing and the full notification.
func (r JoinResult) Full() bool {
	return r.Outcome == Joined && r.Count >= r.Capacity
}
