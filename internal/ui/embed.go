package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/party-queue-bot/internal/queue"
)

const (
	colorClosed  = 0x808080
	colorInfo    = 0x5865f2
	colorSuccess = 0x57f287
	colorDanger  = 0xed4245
)

const progressWidth = 10

func QueueTitle(typ queue.Type) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s Queue", typ.Emoji, typ.Name))
}

// QueueEmbed renders one queue: header, progress, numbered slots and
// deadline or closed footer.
func QueueEmbed(st queue.State, typ queue.Type, now time.Time) *discordgo.MessageEmbed {
	color := typ.Color
	if st.Closed() {
		color = colorClosed
	}
	emb := &discordgo.MessageEmbed{
		Title:       QueueTitle(typ),
		Description: queueDescription(st),
		Color:       color,
		Timestamp:   now.UTC().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: queueFooter(st)},
	}

	count, capacity := len(st.Members), st.Queue.Capacity
	progress := 0.0
	if capacity > 0 {
		progress = float64(count) / float64(capacity)
	}
	emb.Fields = append(emb.Fields, &discordgo.MessageEmbedField{
		Name:  "📊 Party Progress",
		Value: fmt.Sprintf("%s `%d/%d`", progressBar(progress, progressWidth), count, capacity),
	})

	switch {
	case st.Closed():
		emb.Fields = append(emb.Fields, &discordgo.MessageEmbedField{Name: "🔒 Status", Value: "Closed", Inline: true})
	case st.Queue.ExpiresAt != nil:
		emb.Fields = append(emb.Fields, &discordgo.MessageEmbedField{
			Name:   "⏰ Closes",
			Value:  discordTime(*st.Queue.ExpiresAt, "R"),
			Inline: true,
		})
	}
	return emb
}

func queueDescription(st queue.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Players: %d/%d**\n\n", len(st.Members), st.Queue.Capacity)
	if len(st.Members) == 0 {
		if st.Closed() {
			b.WriteString("*Nobody joined this round.*")
		} else {
			b.WriteString("*No players in queue yet.*\n*Click a role button below to join!*")
		}
		return b.String()
	}
	for i := 0; i < st.Queue.Capacity; i++ {
		if i < len(st.Members) {
			m := st.Members[i]
			fmt.Fprintf(&b, "`%2d.` %s %s\n", i+1, RoleEmoji(m.Role), Mention(m.PlayerID))
			continue
		}
		fmt.Fprintf(&b, "`%2d.` ⬜ *open slot*\n", i+1)
	}
	if st.Full() {
		b.WriteString("\n✅ **Queue is full!**")
	}
	return strings.TrimRight(b.String(), "\n")
}

func queueFooter(st queue.State) string {
	switch {
	case st.Full():
		return "Party is ready! Good luck!"
	case st.Closed():
		return "This queue is closed"
	case len(st.Members) == 0:
		return "Click a role button to join the party"
	default:
		return "Party is filling up! Join now"
	}
}

// PanelEmbed lists the queue types an admin can open from the panel.
func PanelEmbed(types []queue.Type) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(types))
	for _, t := range types {
		lines = append(lines, fmt.Sprintf("%s **%s** (%d players)", t.Emoji, t.Name, t.Capacity))
	}
	return &discordgo.MessageEmbed{
		Title:       "🎮 Party Finder",
		Description: "Open a new party with one of the buttons below.\n\n" + strings.Join(lines, "\n"),
		Color:       colorInfo,
	}
}

// OverviewEmbed summarizes every queue of a guild for /queues.
func OverviewEmbed(states []queue.State, catalog *queue.Catalog) *discordgo.MessageEmbed {
	emb := &discordgo.MessageEmbed{Title: "📋 Queues", Color: colorInfo}
	if len(states) == 0 {
		emb.Description = "No queues yet. Use `/setup` to create one."
		return emb
	}
	for _, st := range states {
		typ, err := catalog.Lookup(st.Queue.Type)
		if err != nil {
			typ = queue.Type{ID: st.Queue.Type, Name: string(st.Queue.Type)}
		}
		status := "🔓 open"
		if st.Closed() {
			status = "🔒 closed"
		}
		value := fmt.Sprintf("%s • %d/%d • <#%s>", status, len(st.Members), st.Queue.Capacity, st.Queue.ChannelID)
		if !st.Closed() && st.Queue.ExpiresAt != nil {
			value += " • closes " + discordTime(*st.Queue.ExpiresAt, "R")
		}
		emb.Fields = append(emb.Fields, &discordgo.MessageEmbedField{Name: QueueTitle(typ), Value: value})
	}
	return emb
}

// FullMessage is posted when a queue fills.
func FullMessage(typ queue.Type, playerIDs []string) string {
	return fmt.Sprintf("🎉 **%s Queue is Full!**\n\n%s\n\nYour party is ready! Good luck and have fun!", typ.Name, Mentions(playerIDs))
}

// ExpiredMessage is posted when a queue's timer runs out.
func ExpiredMessage(typ queue.Type, playerIDs []string) string {
	return fmt.Sprintf("⏰ **%s Queue Time Ended!**\n\n%s\n\nThe queue timer has expired. The queue is now closed.", typ.Name, Mentions(playerIDs))
}
