package sqlstore

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jose-valero/party-queue-bot/internal/registration"
)

// Registrations implements registration.Repository.
type Registrations struct {
	DB *gorm.DB
}

var _ registration.Repository = (*Registrations)(nil)

func NewRegistrations(db *gorm.DB) *Registrations { return &Registrations{DB: db} }

func (r *Registrations) Save(ctx context.Context, reg registration.Registration) (bool, error) {
	var created bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Registration{}).
			Where("guild_id = ? AND user_id = ?", reg.GuildID, reg.UserID).
			Count(&n).Error; err != nil {
			return err
		}
		created = n == 0
		row := toRegistrationRow(reg)
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "guild_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"ingame_name", "ingame_uid", "gear_score", "arena_rank",
				"primary_weapon", "secondary_weapon", "status",
				"reviewed_by", "reviewed_at", "updated_at",
			}),
		}).Create(&row).Error
	})
	return created, err
}

func (r *Registrations) Get(ctx context.Context, guildID, userID string) (registration.Registration, error) {
	var row Registration
	res := r.DB.WithContext(ctx).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Limit(1).
		Find(&row)
	if res.Error != nil {
		return registration.Registration{}, res.Error
	}
	if res.RowsAffected == 0 {
		return registration.Registration{}, registration.ErrNotFound
	}
	return row.registration(), nil
}

func (r *Registrations) Delete(ctx context.Context, guildID, userID string) error {
	res := r.DB.WithContext(ctx).Where("guild_id = ? AND user_id = ?", guildID, userID).Delete(&Registration{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return registration.ErrNotFound
	}
	return nil
}

func (r *Registrations) ListByStatus(ctx context.Context, guildID string, status registration.Status) ([]registration.Registration, error) {
	var rows []Registration
	if err := r.DB.WithContext(ctx).
		Where("guild_id = ? AND status = ?", guildID, string(status)).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]registration.Registration, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.registration())
	}
	return out, nil
}

func toRegistrationRow(reg registration.Registration) Registration {
	return Registration{
		GuildID:         reg.GuildID,
		UserID:          reg.UserID,
		IngameName:      reg.IngameName,
		IngameUID:       reg.IngameUID,
		GearScore:       reg.GearScore,
		ArenaRank:       reg.ArenaRank,
		PrimaryWeapon:   reg.PrimaryWeapon,
		SecondaryWeapon: reg.SecondaryWeapon,
		Status:          string(reg.Status),
		ReviewedBy:      reg.ReviewedBy,
		ReviewedAt:      reg.ReviewedAt,
		CreatedAt:       reg.CreatedAt,
		UpdatedAt:       reg.UpdatedAt,
	}
}

func (r Registration) registration() registration.Registration {
	return registration.Registration{
		GuildID:         r.GuildID,
		UserID:          r.UserID,
		IngameName:      r.IngameName,
		IngameUID:       r.IngameUID,
		GearScore:       r.GearScore,
		ArenaRank:       r.ArenaRank,
		PrimaryWeapon:   r.PrimaryWeapon,
		SecondaryWeapon: r.SecondaryWeapon,
		Status:          registration.Status(r.Status),
		ReviewedBy:      r.ReviewedBy,
		ReviewedAt:      r.ReviewedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}
