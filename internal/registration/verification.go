package registration

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	ErrVerificationOff = errors.New("verification is not enabled")
	ErrInvalidSettings = errors.New("invalid verification settings")
)

// Settings configure the per-guild review of new registrations.
type Settings struct {
	GuildID           string `validate:"required"`
	ReviewChannelID   string `validate:"required,numeric"`
	PendingRoleID     string `validate:"omitempty,numeric"`
	ApprovedRoleID    string `validate:"omitempty,numeric,nefield=PendingRoleID"`
	ApprovedChannelID string `validate:"omitempty,numeric"`
	Enabled           bool
	UpdatedAt         time.Time
}

// NotifyChannel is where approvals are announced: the approved channel if
// one is set, else fallback.
func (s Settings) NotifyChannel(fallback string) string {
	if s.ApprovedChannelID != "" {
		return s.ApprovedChannelID
	}
	return fallback
}

// ConfigureVerification stores and enables the guild's settings, replacing
// any earlier ones.
func (s *Service) ConfigureVerification(ctx context.Context, set Settings) (Settings, error) {
	set.ReviewChannelID = strings.TrimSpace(set.ReviewChannelID)
	if err := s.validate.Struct(set); err != nil {
		return Settings{}, fmt.Errorf("%w: %s", ErrInvalidSettings, describe(err))
	}
	set.Enabled = true
	set.UpdatedAt = s.clock.Now()
	if err := s.repo.SaveSettings(ctx, set); err != nil {
		return Settings{}, fmt.Errorf("save verification settings: %w", err)
	}
	s.log.Info("verification enabled", "guild", set.GuildID, "review_channel", set.ReviewChannelID)
	return set, nil
}

// DisableVerification turns review off but keeps the settings.
// ErrVerificationOff when it was not enabled.
func (s *Service) DisableVerification(ctx context.Context, guildID string) error {
	set, err := s.repo.GetSettings(ctx, guildID)
	if errors.Is(err, ErrVerificationOff) || (err == nil && !set.Enabled) {
		return ErrVerificationOff
	}
	if err != nil {
		return err
	}
	set.Enabled = false
	set.UpdatedAt = s.clock.Now()
	if err := s.repo.SaveSettings(ctx, set); err != nil {
		return fmt.Errorf("save verification settings: %w", err)
	}
	s.log.Info("verification disabled", "guild", guildID)
	return nil
}

// Verification returns the guild's settings if review is enabled.
func (s *Service) Verification(ctx context.Context, guildID string) (Settings, bool, error) {
	set, err := s.repo.GetSettings(ctx, guildID)
	if errors.Is(err, ErrVerificationOff) {
		return Settings{}, false, nil
	}
	if err != nil {
		return Settings{}, false, err
	}
	return set, set.Enabled, nil
}

// NeedsReview reports whether a freshly submitted registration goes to the
// review channel. Approved profiles never do; with a pending role set only
// members holding it are reviewed.
func (s *Service) NeedsReview(ctx context.Context, reg Registration, memberRoles []string) (Settings, bool, error) {
	set, on, err := s.Verification(ctx, reg.GuildID)
	if err != nil || !on {
		return Settings{}, false, err
	}
	if reg.Status != StatusPending {
		return set, false, nil
	}
	if set.PendingRoleID != "" && !slices.Contains(memberRoles, set.PendingRoleID) {
		return set, false, nil
	}
	return set, true, nil
}
