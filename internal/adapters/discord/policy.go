// internal/adapters/discord/policy.go
// Minimal privilege check based on configured admin roles or the Administrator permission.

package discord

import (
	"github.com/bwmarrin/discordgo"
)

type Policy struct {
	adminRoles map[string]struct{}
}

func NewPolicy(adminRoleIDs []string) *Policy {
	p := &Policy{adminRoles: make(map[string]struct{}, len(adminRoleIDs))}
	for _, id := range adminRoleIDs {
		if id != "" {
			p.adminRoles[id] = struct{}{}
		}
	}
	return p
}

// IsPrivileged returns true if the member has Administrator or Manage Server,
// or one of the admin roles.
func (p *Policy) IsPrivileged(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	if i.Member.Permissions&(discordgo.PermissionAdministrator|discordgo.PermissionManageGuild) != 0 {
		return true
	}
	for _, r := range i.Member.Roles {
		if _, ok := p.adminRoles[r]; ok {
			return true
		}
	}
	return false
}

// RequirePrivileged replies ephemeral and returns false if not privileged.
func (p *Policy) RequirePrivileged(s InteractionAPI, i *discordgo.InteractionCreate) bool {
	if p.IsPrivileged(i) {
		return true
	}
	_ = SendEphemeral(s, i, "⛔ You don't have permission for this action.")
	return false
}
