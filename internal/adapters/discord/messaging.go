package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// InteractionAPI is the slice of *discordgo.Session used to answer
// interactions.
type InteractionAPI interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

func respond(s InteractionAPI, i *discordgo.InteractionCreate, resp *discordgo.InteractionResponse, what string) error {
	err := s.InteractionRespond(i.Interaction, resp)
	if err != nil {
		slog.Error("interaction respond failed", "kind", what, "interaction", i.ID, "err", err)
	}
	return err
}

// SendResponse posts a normal (public) message as the interaction response.
func SendResponse(s InteractionAPI, i *discordgo.InteractionCreate, msg string) error {
	return respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: msg},
	}, "response")
}

// SendEphemeral posts a message only visible to the user who interacted.
func SendEphemeral(s InteractionAPI, i *discordgo.InteractionCreate, msg string) error {
	return respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, "ephemeral")
}

// SendEphemeralEmbed responds with an ephemeral embed.
func SendEphemeralEmbed(s InteractionAPI, i *discordgo.InteractionCreate, emb *discordgo.MessageEmbed) error {
	return respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{emb},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	}, "ephemeral_embed")
}

func SendEphemeralComplex(s InteractionAPI, i *discordgo.InteractionCreate, emb *discordgo.MessageEmbed, comps []discordgo.MessageComponent) error {
	return respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{emb},
			Components: comps,
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	}, "ephemeral_complex")
}

// SendEmbedComplex posts a public embed with components.
func SendEmbedComplex(s InteractionAPI, i *discordgo.InteractionCreate, emb *discordgo.MessageEmbed, comps []discordgo.MessageComponent) error {
	return respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{emb},
			Components: comps,
		},
	}, "embed_complex")
}

// UpdateEmbedWithComponents updates the message the component belongs to.
func UpdateEmbedWithComponents(s InteractionAPI, i *discordgo.InteractionCreate, emb *discordgo.MessageEmbed, comps []discordgo.MessageComponent) error {
	return respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{emb},
			Components: comps,
		},
	}, "update_embed")
}

// SendModal opens a modal dialog.
func SendModal(s InteractionAPI, i *discordgo.InteractionCreate, customID, title string, inputs ...discordgo.TextInput) error {
	rows := make([]discordgo.MessageComponent, 0, len(inputs))
	for _, in := range inputs {
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{in}})
	}
	return respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   customID,
			Title:      title,
			Components: rows,
		},
	}, "modal")
}

// ModalValues flattens the text inputs of a modal submit into id -> value.
func ModalValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	out := make(map[string]string)
	for _, c := range data.Components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, rc := range row.Components {
			if in, ok := rc.(*discordgo.TextInput); ok {
				out[in.CustomID] = in.Value
			}
		}
	}
	return out
}

// UserOf extracts the effective user from an interaction (guild or DM).
func UserOf(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// DisplayName prefers the guild nickname, then the global name.
func DisplayName(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.Nick != "" {
		return i.Member.Nick
	}
	u := UserOf(i)
	if u == nil {
		return "unknown"
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
