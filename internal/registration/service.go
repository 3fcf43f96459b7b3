package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jose-valero/party-queue-bot/internal/clock"
)

// Submission is what a player enters when registering.
type Submission struct {
	GuildID         string `validate:"required"`
	UserID          string `validate:"required"`
	IngameName      string `validate:"required,min=2,max=32"`
	IngameUID       string `validate:"required,numeric,min=4,max=20"`
	GearScore       int    `validate:"gte=0,lte=1000000"`
	ArenaRank       string `validate:"max=50"`
	PrimaryWeapon   string `validate:"required,weapon"`
	SecondaryWeapon string `validate:"omitempty,weapon,nefield=PrimaryWeapon"`
}

type Service struct {
	repo     Repository
	clock    clock.Clock
	validate *validator.Validate
	log      *slog.Logger
}

func NewService(repo Repository, clk clock.Clock, log *slog.Logger) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("weapon", func(fl validator.FieldLevel) bool {
		_, ok := LookupWeapon(fl.Field().String())
		return ok
	}); err != nil {
		panic(fmt.Sprintf("registration: register weapon validation: %v", err))
	}
	return &Service{repo: repo, clock: clk, validate: v, log: log.With("component", "registration")}
}

// Submit validates and stores the submission. Resubmitting replaces the
// profile and puts it back into review.
func (s *Service) Submit(ctx context.Context, sub Submission) (Registration, bool, error) {
	sub.IngameName = strings.TrimSpace(sub.IngameName)
	sub.IngameUID = strings.TrimSpace(sub.IngameUID)
	sub.ArenaRank = strings.TrimSpace(sub.ArenaRank)
	if err := s.validate.Struct(sub); err != nil {
		return Registration{}, false, fmt.Errorf("%w: %s", ErrInvalid, describe(err))
	}

	now := s.clock.Now()
	reg := Registration{
		GuildID:         sub.GuildID,
		UserID:          sub.UserID,
		IngameName:      sub.IngameName,
		IngameUID:       sub.IngameUID,
		GearScore:       sub.GearScore,
		ArenaRank:       sub.ArenaRank,
		PrimaryWeapon:   sub.PrimaryWeapon,
		SecondaryWeapon: sub.SecondaryWeapon,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if prev, err := s.repo.Get(ctx, sub.GuildID, sub.UserID); err == nil {
		reg.CreatedAt = prev.CreatedAt
	} else if !errors.Is(err, ErrNotFound) {
		return Registration{}, false, err
	}
	created, err := s.repo.Save(ctx, reg)
	if err != nil {
		return Registration{}, false, fmt.Errorf("save registration: %w", err)
	}
	s.log.Info("registration submitted", "guild", reg.GuildID, "user", reg.UserID, "created", created)
	return reg, created, nil
}

func (s *Service) Get(ctx context.Context, guildID, userID string) (Registration, error) {
	return s.repo.Get(ctx, guildID, userID)
}

func (s *Service) Approve(ctx context.Context, guildID, userID, reviewer string) (Registration, error) {
	return s.review(ctx, guildID, userID, reviewer, StatusApproved)
}

func (s *Service) Reject(ctx context.Context, guildID, userID, reviewer string) (Registration, error) {
	return s.review(ctx, guildID, userID, reviewer, StatusRejected)
}

func (s *Service) review(ctx context.Context, guildID, userID, reviewer string, to Status) (Registration, error) {
	reg, err := s.repo.Get(ctx, guildID, userID)
	if err != nil {
		return Registration{}, err
	}
	if reg.Status != StatusPending {
		return reg, ErrNotPending
	}
	now := s.clock.Now()
	reg.Status = to
	reg.ReviewedBy = reviewer
	reg.ReviewedAt = &now
	reg.UpdatedAt = now
	if _, err := s.repo.Save(ctx, reg); err != nil {
		return Registration{}, fmt.Errorf("save review: %w", err)
	}
	s.log.Info("registration reviewed", "guild", guildID, "user", userID, "status", to, "by", reviewer)
	return reg, nil
}

// UpdateStats changes gear score and arena rank without another review.
func (s *Service) UpdateStats(ctx context.Context, guildID, userID string, gearScore int, arenaRank string) (Registration, error) {
	if gearScore < 0 || gearScore > 1000000 {
		return Registration{}, fmt.Errorf("%w: gear score %d", ErrInvalid, gearScore)
	}
	arenaRank = strings.TrimSpace(arenaRank)
	if len(arenaRank) > 50 {
		return Registration{}, fmt.Errorf("%w: arena rank too long", ErrInvalid)
	}
	reg, err := s.repo.Get(ctx, guildID, userID)
	if err != nil {
		return Registration{}, err
	}
	reg.GearScore = gearScore
	reg.ArenaRank = arenaRank
	reg.UpdatedAt = s.clock.Now()
	if _, err := s.repo.Save(ctx, reg); err != nil {
		return Registration{}, fmt.Errorf("save stats: %w", err)
	}
	return reg, nil
}

func (s *Service) Withdraw(ctx context.Context, guildID, userID string) error {
	return s.repo.Delete(ctx, guildID, userID)
}

// Pending lists registrations waiting for review, oldest first.
func (s *Service) Pending(ctx context.Context, guildID string) ([]Registration, error) {
	return s.repo.ListByStatus(ctx, guildID, StatusPending)
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
