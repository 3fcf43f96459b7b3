// Package registration keeps player profiles and the admin approval
// workflow around them. It is independent of queue membership.
package registration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

var (
	ErrNotFound   = errors.New("registration not found")
	ErrNotPending = errors.New("registration is not pending review")
	ErrInvalid    = errors.New("invalid registration")
)

type Registration struct {
	GuildID         string
	UserID          string
	IngameName      string
	IngameUID       string
	GearScore       int
	ArenaRank       string
	PrimaryWeapon   string
	SecondaryWeapon string
	Status          Status
	ReviewedBy      string
	ReviewedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Repository persists registrations keyed by (guild, user) and the
// verification settings keyed by guild.
type Repository interface {
	// Save inserts or replaces the registration and reports whether it was new.
	Save(ctx context.Context, r Registration) (created bool, err error)
	Get(ctx context.Context, guildID, userID string) (Registration, error)
	Delete(ctx context.Context, guildID, userID string) error
	ListByStatus(ctx context.Context, guildID string, status Status) ([]Registration, error)

	// SaveSettings upserts the guild's verification settings.
	SaveSettings(ctx context.Context, s Settings) error
	// GetSettings returns ErrVerificationOff when the guild has none.
	GetSettings(ctx context.Context, guildID string) (Settings, error)
}

// Weapon is one selectable weapon.
type Weapon struct {
	ID    string
	Name  string
	Emoji string
}

var weapons = []Weapon{
	{"strategic_sword", "Strategic Sword", "⚔️"},
	{"nameless_sword", "Nameless Sword", "⚔️"},
	{"stormbreaker_spear", "Stormbreaker Spear", "🔱"},
	{"heavenquaker_spear", "Heavenquaker Spear", "🔱"},
	{"nameless_spear", "Nameless Spear", "🔱"},
	{"infernal_twinblades", "Infernal Twinblades", "🗡️"},
	{"mo_dao", "Mo Dao", "⚔️"},
	{"panacea_fan", "Panacea Fan", "🪭"},
	{"inkwell_fan", "Inkwell Fan", "🪭"},
	{"soulshade_umbrella", "Soulshade Umbrella", "☂️"},
	{"vernal_umbrella", "Vernal Umbrella", "☂️"},
	{"mortal_rope_dart", "Mortal Rope Dart", "🪢"},
}

func Weapons() []Weapon { return append([]Weapon(nil), weapons...) }

func LookupWeapon(id string) (Weapon, bool) {
	for _, w := range weapons {
		if w.ID == id {
			return w, true
		}
	}
	return Weapon{}, false
}

// ParseGearScore accepts either the raw score ("16280") or the shorthand
// in thousands ("16.28", "1.628"): any decimal point or a value below 100
// is multiplied by 1000.
func ParseGearScore(s string) (int, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "🦆"))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: gear score %q", ErrInvalid, s)
	}
	if strings.Contains(s, ".") || f < 100 {
		return int(math.Round(f * 1000)), nil
	}
	return int(math.Round(f)), nil
}

// FormatGearScore renders a score in the shorthand players use.
func FormatGearScore(score int) string {
	return strconv.FormatFloat(float64(score)/1000, 'f', -1, 64) + "🦆"
}
