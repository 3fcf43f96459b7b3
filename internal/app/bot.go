package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	disc "github.com/jose-valero/party-queue-bot/internal/adapters/discord"
	"github.com/jose-valero/party-queue-bot/internal/domain/events"
	"github.com/jose-valero/party-queue-bot/internal/registration"
	"github.com/jose-valero/party-queue-bot/internal/service"
	"github.com/jose-valero/party-queue-bot/pkg/config"
)

const restoreTimeout = 2 * time.Minute

type Bot struct {
	Sess      *discordgo.Session
	Cfg       *config.Config
	svc       *service.Service
	router    *Router
	bus       *events.Bus
	log       *slog.Logger
	cancelBus func()
}

func NewBot(s *discordgo.Session, cfg *config.Config, svc *service.Service, regs *registration.Service, bus *events.Bus, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}
	policy := disc.NewPolicy(cfg.AdminRoleIDs)
	return &Bot{
		Sess:   s,
		Cfg:    cfg,
		svc:    svc,
		router: NewRouter(svc, regs, policy, log),
		bus:    bus,
		log:    log.With("component", "bot"),
	}
}

func (b *Bot) RegisterHandlers() {
	// restore + command registration once the gateway is up
	b.Sess.AddHandler(b.onReady)

	// slash, buttons and modals
	b.Sess.AddHandler(b.onInteraction)

	// lifecycle log
	b.cancelBus = StartEventSubscribers(b.bus, b.log)
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("gateway ready", "user", r.User.Username, "guilds", len(r.Guilds))

	if err := RegisterCommands(s, b.Cfg.AppID, b.Cfg.GuildID, b.svc.Catalog()); err != nil {
		b.log.Error("register commands", "err", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()
	if err := b.svc.Restore(ctx); err != nil {
		b.log.Error("restore queues", "err", err)
	}
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.router.Handle(s, i)
}

func (b *Bot) Stop() {
	if b.cancelBus != nil {
		b.cancelBus()
	}
}
