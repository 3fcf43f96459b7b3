// internal/app/commands.go
package app

import (
	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/party-queue-bot/internal/queue"
	"github.com/jose-valero/party-queue-bot/internal/registration"
)

var (
	adminPerms int64 = discordgo.PermissionAdministrator
	noDM             = false
)

func typeChoices(catalog *queue.Catalog) []*discordgo.ApplicationCommandOptionChoice {
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(catalog.All()))
	for _, t := range catalog.All() {
		out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: t.Name, Value: string(t.ID)})
	}
	return out
}

func weaponChoices() []*discordgo.ApplicationCommandOptionChoice {
	ws := registration.Weapons()
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(ws))
	for _, w := range ws {
		out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: w.Name, Value: w.ID})
	}
	return out
}

func typeOption(catalog *queue.Catalog, desc string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "type",
		Description: desc,
		Required:    true,
		Choices:     typeChoices(catalog),
	}
}

func channelOption(desc string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         "channel",
		Description:  desc,
		ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
	}
}

func userOption(required bool, desc string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: desc,
		Required:    required,
	}
}

func namedChannelOption(name, desc string, required bool) *discordgo.ApplicationCommandOption {
	o := channelOption(desc)
	o.Name = name
	o.Required = required
	return o
}

func roleOption(name, desc string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionRole,
		Name:        name,
		Description: desc,
	}
}

func stringOption(name, desc string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: desc,
		Required:    required,
	}
}

// buildCommands returns the slash command set; queue type choices come from
// the loaded catalog.
func buildCommands(catalog *queue.Catalog) []*discordgo.ApplicationCommand {
	primary := stringOption("primary_weapon", "Main weapon", true)
	primary.Choices = weaponChoices()
	secondary := stringOption("secondary_weapon", "Second weapon", false)
	secondary.Choices = weaponChoices()

	return []*discordgo.ApplicationCommand{
		{
			Name:                     "setup",
			Description:              "Create a queue",
			DefaultMemberPermissions: &adminPerms,
			DMPermission:             &noDM,
			Options: []*discordgo.ApplicationCommandOption{
				typeOption(catalog, "Which queue to create"),
				channelOption("Channel for the queue (default: current channel)"),
			},
		},
		{
			Name:                     "panel",
			Description:              "Post the party finder panel",
			DefaultMemberPermissions: &adminPerms,
			DMPermission:             &noDM,
			Options:                  []*discordgo.ApplicationCommandOption{channelOption("Channel for the panel (default: current channel)")},
		},
		{
			Name:                     "reset",
			Description:              "Clear all players from a queue",
			DefaultMemberPermissions: &adminPerms,
			DMPermission:             &noDM,
			Options:                  []*discordgo.ApplicationCommandOption{typeOption(catalog, "Which queue to reset")},
		},
		{
			Name:                     "close",
			Description:              "Delete a queue completely",
			DefaultMemberPermissions: &adminPerms,
			DMPermission:             &noDM,
			Options:                  []*discordgo.ApplicationCommandOption{typeOption(catalog, "Which queue to close")},
		},
		{
			Name:         "queues",
			Description:  "Show the queues of this server",
			DMPermission: &noDM,
		},
		{
			Name:         "register",
			Description:  "Register your in-game profile",
			DMPermission: &noDM,
			Options: []*discordgo.ApplicationCommandOption{
				stringOption("ingame_name", "Character name", true),
				stringOption("ingame_uid", "Character UID", true),
				stringOption("gear_score", "Gear score, e.g. 1.82 or 1820", true),
				primary,
				secondary,
				stringOption("arena_rank", "Arena rank", false),
			},
		},
		{
			Name:         "stats",
			Description:  "Update your gear score and arena rank",
			DMPermission: &noDM,
		},
		{
			Name:         "registration",
			Description:  "View a player's profile",
			DMPermission: &noDM,
			Options:      []*discordgo.ApplicationCommandOption{userOption(false, "The player to view (leave empty for yourself)")},
		},
		{
			Name:                     "review",
			Description:              "Review player registrations",
			DefaultMemberPermissions: &adminPerms,
			DMPermission:             &noDM,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "approve",
					Description: "Approve a pending registration",
					Options:     []*discordgo.ApplicationCommandOption{userOption(true, "Player to approve")},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "reject",
					Description: "Reject a pending registration",
					Options:     []*discordgo.ApplicationCommandOption{userOption(true, "Player to reject")},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "pending",
					Description: "List registrations waiting for review",
				},
			},
		},
		{
			Name:                     "setupverification",
			Description:              "Set up member verification system",
			DefaultMemberPermissions: &adminPerms,
			DMPermission:             &noDM,
			Options: []*discordgo.ApplicationCommandOption{
				namedChannelOption("reviewchannel", "Channel where pending registrations are posted", true),
				roleOption("pendingrole", "Only members with this role are reviewed (optional)"),
				roleOption("approvedrole", "Role given to approved members (optional)"),
				namedChannelOption("approvedchannel", "Channel where approval notifications are sent (optional)", false),
			},
		},
		{
			Name:                     "disableverification",
			Description:              "Disable member verification system",
			DefaultMemberPermissions: &adminPerms,
			DMPermission:             &noDM,
		},
	}
}

// CommandRegistrar is the slice of *discordgo.Session used to publish commands.
type CommandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// RegisterCommands replaces the command set, guild-scoped when guildID is set.
func RegisterCommands(s CommandRegistrar, appID, guildID string, catalog *queue.Catalog) error {
	_, err := s.ApplicationCommandBulkOverwrite(appID, guildID, buildCommands(catalog))
	return err
}

// optionMap flattens command options by name.
func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

// optString returns the raw string value of a string, user, role or channel
// option.
func optString(m map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	o, ok := m[name]
	if !ok || o == nil {
		return ""
	}
	s, _ := o.Value.(string)
	return s
}
