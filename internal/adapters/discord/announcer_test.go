package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/party-queue-bot/internal/clock"
	"github.com/jose-valero/party-queue-bot/internal/queue"
	"github.com/jose-valero/party-queue-bot/internal/service"
)

type fakeAPI struct {
	mu      sync.Mutex
	nextID  int
	sent    []*discordgo.MessageSend
	edits   []*discordgo.MessageEdit
	deleted []string
	gone    map[string]bool // message ids that return Unknown Message
	err     error
}

func newFakeAPI() *fakeAPI { return &fakeAPI{gone: map[string]bool{}} }

func unknownMessage() error {
	return &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: codeUnknownMessage, Message: "Unknown Message"}}
}

func (f *fakeAPI) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.nextID++
	f.sent = append(f.sent, data)
	return &discordgo.Message{ID: fmt.Sprintf("msg-%d", f.nextID), ChannelID: channelID}, nil
}

func (f *fakeAPI) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[m.ID] {
		return nil, unknownMessage()
	}
	f.edits = append(f.edits, m)
	return &discordgo.Message{ID: m.ID}, nil
}

func (f *fakeAPI) ChannelMessageDelete(_, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[messageID] {
		return unknownMessage()
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

func testPublisher(api MessageAPI) *Publisher {
	return NewPublisher(api, queue.DefaultCatalog(), clock.NewFake(time.Unix(1_700_000_000, 0)), nil)
}

func TestPublisherPublishReturnsMessageID(t *testing.T) {
	api := newFakeAPI()
	p := testPublisher(api)
	st := queue.State{Queue: queue.Record{ChannelID: "c1", Type: "sword_trial", Capacity: 5, Status: queue.StatusOpen}}

	h, err := p.Publish(context.Background(), "c1", st)
	if err != nil || h != "msg-1" {
		t.Fatalf("publish: %q %v", h, err)
	}
	if len(api.sent) != 1 || len(api.sent[0].Embeds) != 1 || len(api.sent[0].Components) != 1 {
		t.Fatalf("unexpected payload: %+v", api.sent)
	}
}

func TestPublisherRefreshGoneMapsToArtifactGone(t *testing.T) {
	api := newFakeAPI()
	api.gone["h1"] = true
	p := testPublisher(api)
	st := queue.State{Queue: queue.Record{Handle: "h1", ChannelID: "c1", Type: "sword_trial", Capacity: 5}}

	if err := p.Refresh(context.Background(), st); !errors.Is(err, service.ErrArtifactGone) {
		t.Fatalf("want ErrArtifactGone, got %v", err)
	}
	if err := p.Remove(context.Background(), "c1", "h1"); err != nil {
		t.Fatalf("remove of a gone view should be nil, got %v", err)
	}
}

func TestPublisherRefreshEditsInPlace(t *testing.T) {
	api := newFakeAPI()
	p := testPublisher(api)
	st := queue.State{Queue: queue.Record{Handle: "h2", ChannelID: "c1", Type: "hero_realm", Capacity: 10, Status: queue.StatusClosed}}

	if err := p.Refresh(context.Background(), st); err != nil {
		t.Fatal(err)
	}
	if len(api.edits) != 1 || api.edits[0].ID != "h2" || api.edits[0].Channel != "c1" {
		t.Fatalf("edits: %+v", api.edits)
	}
	row := (*api.edits[0].Components)[0].(discordgo.ActionsRow)
	if !row.Components[0].(discordgo.Button).Disabled {
		t.Fatal("closed queue must render disabled buttons")
	}
}

func TestAnnouncerMentionsOnlyMembers(t *testing.T) {
	api := newFakeAPI()
	a := NewAnnouncer(api, nil)
	err := a.Notify(context.Background(), service.Notification{
		Kind:      service.NotifyFull,
		ChannelID: "c1",
		Handle:    "h1",
		Type:      queue.Type{Name: "Sword Trial"},
		PlayerIDs: []string{"1", "2"},
	})
	if err != nil {
		t.Fatal(err)
	}
	msg := api.sent[0]
	if !strings.Contains(msg.Content, "Sword Trial Queue is Full") || !strings.Contains(msg.Content, "<@1> <@2>") {
		t.Fatalf("content: %q", msg.Content)
	}
	if got := msg.AllowedMentions.Users; len(got) != 2 || len(msg.AllowedMentions.Parse) != 0 {
		t.Fatalf("allowed mentions: %+v", msg.AllowedMentions)
	}
}

func TestAnnouncerRejectsUnknownKind(t *testing.T) {
	a := NewAnnouncer(newFakeAPI(), nil)
	if err := a.Notify(context.Background(), service.Notification{Kind: "other"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestPolicy(t *testing.T) {
	p := NewPolicy([]string{"mods"})
	cases := []struct {
		name   string
		member *discordgo.Member
		want   bool
	}{
		{"dm", nil, false},
		{"plain", &discordgo.Member{Roles: []string{"x"}}, false},
		{"role", &discordgo.Member{Roles: []string{"mods"}}, true},
		{"admin", &discordgo.Member{Permissions: discordgo.PermissionAdministrator}, true},
	}
	for _, tc := range cases {
		i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{Member: tc.member}}
		if got := p.IsPrivileged(i); got != tc.want {
			t.Errorf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestModalValues(t *testing.T) {
	data := discordgo.ModalSubmitInteractionData{Components: []discordgo.MessageComponent{
		&discordgo.ActionsRow{Components: []discordgo.MessageComponent{&discordgo.TextInput{CustomID: "name", Value: "Ren"}}},
		&discordgo.ActionsRow{Components: []discordgo.MessageComponent{&discordgo.TextInput{CustomID: "gs", Value: "1.8"}}},
	}}
	got := ModalValues(data)
	if got["name"] != "Ren" || got["gs"] != "1.8" {
		t.Fatalf("values: %v", got)
	}
}
