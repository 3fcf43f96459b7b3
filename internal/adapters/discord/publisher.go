package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/party-queue-bot/internal/clock"
	"github.com/jose-valero/party-queue-bot/internal/queue"
	"github.com/jose-valero/party-queue-bot/internal/service"
	"github.com/jose-valero/party-queue-bot/internal/ui"
)

// Discord JSON error codes meaning the target no longer exists.
const (
	codeUnknownChannel = 10003
	codeUnknownMessage = 10008
)

// MessageAPI is the slice of *discordgo.Session the publisher needs.
type MessageAPI interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Publisher renders queues as one embed message per queue; the message id
// is the queue handle.
type Publisher struct {
	api     MessageAPI
	catalog *queue.Catalog
	clk     clock.Clock
	log     *slog.Logger

	locks sync.Map // handle -> *sync.Mutex
}

var _ service.Renderer = (*Publisher)(nil)

func NewPublisher(api MessageAPI, catalog *queue.Catalog, clk clock.Clock, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{api: api, catalog: catalog, clk: clk, log: log.With("component", "publisher")}
}

func (p *Publisher) msgLock(handle string) *sync.Mutex {
	v, _ := p.locks.LoadOrStore(handle, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (p *Publisher) typeOf(id queue.TypeID) queue.Type {
	if t, err := p.catalog.Lookup(id); err == nil {
		return t
	}
	return queue.Type{ID: id, Name: string(id)}
}

func (p *Publisher) render(st queue.State) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	return ui.QueueEmbed(st, p.typeOf(st.Queue.Type), p.clk.Now()), ui.QueueComponents(st.Closed())
}

func (p *Publisher) Publish(ctx context.Context, channelID string, st queue.State) (string, error) {
	emb, comps := p.render(st)
	msg, err := p.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{emb},
		Components: comps,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", translate(err)
	}
	if msg == nil || msg.ID == "" {
		return "", fmt.Errorf("publish queue view: empty message id")
	}
	p.log.Debug("queue view created", "channel", channelID, "handle", msg.ID)
	return msg.ID, nil
}

// Refresh edits the view in place. Edits for one handle are serialized so a
// slow older snapshot cannot land after a newer one.
func (p *Publisher) Refresh(ctx context.Context, st queue.State) error {
	mu := p.msgLock(st.Queue.Handle)
	mu.Lock()
	defer mu.Unlock()

	emb, comps := p.render(st)
	embeds := []*discordgo.MessageEmbed{emb}
	_, err := p.api.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    st.Queue.ChannelID,
		ID:         st.Queue.Handle,
		Embeds:     &embeds,
		Components: &comps,
	}, discordgo.WithContext(ctx))
	if err != nil {
		err = translate(err)
		if errors.Is(err, service.ErrArtifactGone) {
			p.locks.Delete(st.Queue.Handle)
		}
		return err
	}
	return nil
}

// Remove deletes the view; a view that is already gone is not an error.
func (p *Publisher) Remove(ctx context.Context, channelID, handle string) error {
	defer p.locks.Delete(handle)
	err := translate(p.api.ChannelMessageDelete(channelID, handle, discordgo.WithContext(ctx)))
	if errors.Is(err, service.ErrArtifactGone) {
		return nil
	}
	return err
}

// translate maps "unknown message/channel" REST errors to ErrArtifactGone.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var re *discordgo.RESTError
	if errors.As(err, &re) && re.Message != nil {
		switch re.Message.Code {
		case codeUnknownMessage, codeUnknownChannel:
			return fmt.Errorf("%w: %v", service.ErrArtifactGone, err)
		}
	}
	return err
}
