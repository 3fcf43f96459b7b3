package discord

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/party-queue-bot/internal/service"
	"github.com/jose-valero/party-queue-bot/internal/ui"
)

// Announcer posts the "queue full" and "time ended" messages next to the
// queue view, pinging only the queue's members.
type Announcer struct {
	api MessageAPI
	log *slog.Logger
}

var _ service.Notifier = (*Announcer)(nil)

func NewAnnouncer(api MessageAPI, log *slog.Logger) *Announcer {
	if log == nil {
		log = slog.Default()
	}
	return &Announcer{api: api, log: log.With("component", "announcer")}
}

var errUnknownKind = errors.New("unknown notification kind")

func (a *Announcer) Notify(ctx context.Context, n service.Notification) error {
	var content string
	switch n.Kind {
	case service.NotifyFull:
		content = ui.FullMessage(n.Type, n.PlayerIDs)
	case service.NotifyExpired:
		content = ui.ExpiredMessage(n.Type, n.PlayerIDs)
	default:
		return errUnknownKind
	}

	_, err := a.api.ChannelMessageSendComplex(n.ChannelID, &discordgo.MessageSend{
		Content: content,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: append([]string(nil), n.PlayerIDs...),
		},
		Reference: &discordgo.MessageReference{
			MessageID:       n.Handle,
			ChannelID:       n.ChannelID,
			GuildID:         n.GuildID,
			FailIfNotExists: boolPtr(false),
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return translate(err)
	}
	a.log.Info("announced", "kind", n.Kind, "handle", n.Handle, "players", len(n.PlayerIDs))
	return nil
}

func boolPtr(b bool) *bool { return &b }
