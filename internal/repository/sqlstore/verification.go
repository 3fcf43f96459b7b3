package sqlstore

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/jose-valero/party-queue-bot/internal/registration"
)

func (r *Registrations) SaveSettings(ctx context.Context, set registration.Settings) error {
	row := VerificationSettings{
		GuildID:           set.GuildID,
		ReviewChannelID:   set.ReviewChannelID,
		PendingRoleID:     set.PendingRoleID,
		ApprovedRoleID:    set.ApprovedRoleID,
		ApprovedChannelID: set.ApprovedChannelID,
		Enabled:           set.Enabled,
		UpdatedAt:         set.UpdatedAt,
	}
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"review_channel_id", "pending_role_id", "approved_role_id", "approved_channel_id", "enabled", "updated_at"}),
		}).
		Create(&row).Error
}

func (r *Registrations) GetSettings(ctx context.Context, guildID string) (registration.Settings, error) {
	var row VerificationSettings
	res := r.DB.WithContext(ctx).Where("guild_id = ?", guildID).Limit(1).Find(&row)
	if res.Error != nil {
		return registration.Settings{}, res.Error
	}
	if res.RowsAffected == 0 {
		return registration.Settings{}, registration.ErrVerificationOff
	}
	return registration.Settings{
		GuildID:           row.GuildID,
		ReviewChannelID:   row.ReviewChannelID,
		PendingRoleID:     row.PendingRoleID,
		ApprovedRoleID:    row.ApprovedRoleID,
		ApprovedChannelID: row.ApprovedChannelID,
		Enabled:           row.Enabled,
		UpdatedAt:         row.UpdatedAt,
	}, nil
}
