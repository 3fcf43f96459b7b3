package sqlstore

import "time"

// Queue is the queues table.
type Queue struct {
	Handle    string     `gorm:"primaryKey;size:64"`
	GuildID   string     `gorm:"size:32;not null;index:idx_guild_type_status,priority:1"`
	ChannelID string     `gorm:"size:32;not null"`
	Type      string     `gorm:"size:64;not null;index:idx_guild_type_status,priority:2"`
	Capacity  int        `gorm:"not null"`
	Status    string     `gorm:"size:16;not null;default:open;index:idx_guild_type_status,priority:3"`
	ExpiresAt *time.Time `gorm:"index"`
	CreatedAt time.Time
}

func (Queue) TableName() string { return "queues" }

// Member is one row per (queue, player). The auto-increment id breaks ties
// between equal join times.
type Member struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	QueueHandle string    `gorm:"size:64;not null;uniqueIndex:uk_queue_player"`
	PlayerID    string    `gorm:"size:32;not null;uniqueIndex:uk_queue_player"`
	DisplayName string    `gorm:"size:128"`
	Role        string    `gorm:"size:16;not null"`
	JoinedAt    time.Time `gorm:"not null"`
}

func (Member) TableName() string { return "queue_members" }

// ActivePlayer is the claim that backs the one-open-queue-per-player-per-guild
// rule. The claim may point at a queue that has since closed; joins take
// such stale claims over.
type ActivePlayer struct {
	GuildID     string `gorm:"primaryKey;size:32"`
	PlayerID    string `gorm:"primaryKey;size:32"`
	QueueHandle string `gorm:"size:64;not null;index"`
}

func (ActivePlayer) TableName() string { return "queue_active_players" }

// Registration is the player_registrations table.
type Registration struct {
	ID              uint64 `gorm:"primaryKey;autoIncrement"`
	GuildID         string `gorm:"size:32;not null;uniqueIndex:uk_guild_user;index:idx_guild_status,priority:1"`
	UserID          string `gorm:"size:32;not null;uniqueIndex:uk_guild_user"`
	IngameName      string `gorm:"size:64;not null"`
	IngameUID       string `gorm:"size:32;not null"`
	GearScore       int    `gorm:"not null;default:0"`
	ArenaRank       string `gorm:"size:32"`
	PrimaryWeapon   string `gorm:"size:32"`
	SecondaryWeapon string `gorm:"size:32"`
	Status          string `gorm:"size:16;not null;default:pending;index:idx_guild_status,priority:2"`
	ReviewedBy      string `gorm:"size:32"`
	ReviewedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Registration) TableName() string { return "player_registrations" }

// VerificationSettings is one row per guild that has configured review.
type VerificationSettings struct {
	GuildID           string `gorm:"primaryKey;size:32"`
	ReviewChannelID   string `gorm:"size:32;not null"`
	PendingRoleID     string `gorm:"size:32"`
	ApprovedRoleID    string `gorm:"size:32"`
	ApprovedChannelID string `gorm:"size:32"`
	Enabled           bool   `gorm:"not null"`
	UpdatedAt         time.Time
}

func (VerificationSettings) TableName() string { return "verification_settings" }
