package ui

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/party-queue-bot/internal/registration"
)

const colorPending = 0xffa500

func weaponLine(id string) string {
	if id == "" {
		return "—"
	}
	if w, ok := registration.LookupWeapon(id); ok {
		return w.Emoji + " " + w.Name
	}
	return id
}

func statusBadge(s registration.Status) (string, int) {
	switch s {
	case registration.StatusApproved:
		return "✅ Approved", colorSuccess
	case registration.StatusRejected:
		return "⛔ Rejected", colorDanger
	default:
		return "⏳ Pending review", colorPending
	}
}

// ProfileEmbed renders a player's registration.
func ProfileEmbed(reg registration.Registration) *discordgo.MessageEmbed {
	badge, color := statusBadge(reg.Status)
	emb := &discordgo.MessageEmbed{
		Title:       "👤 Player Profile",
		Description: Mention(reg.UserID),
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "In-Game Name", Value: safe(reg.IngameName), Inline: true},
			{Name: "In-Game UID", Value: safe(reg.IngameUID), Inline: true},
			{Name: "Gear Score", Value: registration.FormatGearScore(reg.GearScore), Inline: true},
			{Name: "Arena Rank", Value: safe(reg.ArenaRank), Inline: true},
			{Name: "Weapons", Value: weaponLine(reg.PrimaryWeapon) + "\n" + weaponLine(reg.SecondaryWeapon), Inline: true},
			{Name: "Status", Value: badge, Inline: true},
		},
	}
	if reg.ReviewedBy != "" && reg.ReviewedAt != nil {
		emb.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Reviewed %s", reg.ReviewedAt.UTC().Format("2006-01-02 15:04 MST"))}
	}
	return emb
}

// PendingEmbed lists registrations waiting for review.
func PendingEmbed(regs []registration.Registration) *discordgo.MessageEmbed {
	items := make([]string, 0, len(regs))
	for _, r := range regs {
		items = append(items, fmt.Sprintf("%s • %s • %s", Mention(r.UserID), safe(r.IngameName), registration.FormatGearScore(r.GearScore)))
	}
	desc := "Nothing to review."
	if len(items) > 0 {
		desc = quoteBlock(bulletList(items, 20))
	}
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("⏳ Pending registrations (%d)", len(regs)),
		Description: desc,
		Color:       colorInfo,
	}
}

// ReviewCardEmbed is the card posted to the review channel for a new
// submission.
func ReviewCardEmbed(reg registration.Registration) *discordgo.MessageEmbed {
	emb := ProfileEmbed(reg)
	emb.Title = "🔍 Pending Member Registration"
	emb.Color = colorPending
	emb.Footer = &discordgo.MessageEmbedFooter{Text: "Waiting for admin approval"}
	return emb
}

// VerificationSummary describes the stored settings after /setupverification.
func VerificationSummary(set registration.Settings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Verification system enabled!\n\nPending registrations will be posted to <#%s> for admin review.\n\n", set.ReviewChannelID)
	fmt.Fprintf(&b, "**Review Channel:** <#%s>\n", set.ReviewChannelID)
	if set.PendingRoleID != "" {
		fmt.Fprintf(&b, "**Pending Role:** <@&%s> (only members with this role are reviewed)\n", set.PendingRoleID)
	}
	if set.ApprovedRoleID != "" {
		fmt.Fprintf(&b, "**Approved Role:** <@&%s>\n", set.ApprovedRoleID)
	}
	if set.ApprovedChannelID != "" {
		fmt.Fprintf(&b, "**Approval Notification Channel:** <#%s>", set.ApprovedChannelID)
	} else {
		b.WriteString("**Approval Notification Channel:** Same as review channel")
	}
	return b.String()
}
