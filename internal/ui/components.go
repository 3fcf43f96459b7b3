// internal/ui/components.go
// Build Discord components (buttons) for queue and panel messages.

package ui

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/party-queue-bot/internal/queue"
)

const (
	JoinPrefix   = "queue_join_"
	LeaveID      = "queue_leave"
	PanelPrefix  = "panel_create_"
	ReviewPrefix = "review_"
)

// QueueComponents returns the role buttons and the leave button. They are
// disabled once the queue is closed.
func QueueComponents(closed bool) []discordgo.MessageComponent {
	btns := make([]discordgo.MessageComponent, 0, len(queue.Roles())+1)
	for _, r := range queue.Roles() {
		btns = append(btns, discordgo.Button{
			Label:    RoleLabel(r),
			Style:    discordgo.PrimaryButton,
			CustomID: JoinPrefix + string(r),
			Emoji:    &discordgo.ComponentEmoji{Name: RoleEmoji(r)},
			Disabled: closed,
		})
	}
	btns = append(btns, discordgo.Button{
		Label:    "Leave",
		Style:    discordgo.DangerButton,
		CustomID: LeaveID,
		Emoji:    &discordgo.ComponentEmoji{Name: "❌"},
		Disabled: closed,
	})
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: btns}}
}

// PanelComponents returns one create button per queue type, five per row.
func PanelComponents(types []queue.Type) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	var row []discordgo.MessageComponent
	for _, t := range types {
		b := discordgo.Button{
			Label:    t.Name,
			Style:    discordgo.SuccessButton,
			CustomID: PanelPrefix + string(t.ID),
		}
		if t.Emoji != "" {
			b.Emoji = &discordgo.ComponentEmoji{Name: t.Emoji}
		}
		row = append(row, b)
		if len(row) == 5 {
			rows = append(rows, discordgo.ActionsRow{Components: row})
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, discordgo.ActionsRow{Components: row})
	}
	return rows
}

// ReviewComponents returns approve/reject buttons for a pending registration.
func ReviewComponents(userID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{Label: "Approve", Style: discordgo.SuccessButton, CustomID: ReviewPrefix + "approve_" + userID},
		discordgo.Button{Label: "Reject", Style: discordgo.DangerButton, CustomID: ReviewPrefix + "reject_" + userID},
	}}}
}

// ParseJoinID extracts the role from a queue_join_<role> custom id.
func ParseJoinID(customID string) (queue.Role, bool) {
	if !strings.HasPrefix(customID, JoinPrefix) {
		return "", false
	}
	r, err := queue.ParseRole(strings.TrimPrefix(customID, JoinPrefix))
	if err != nil {
		return "", false
	}
	return r, true
}

// ParsePanelID extracts the type from a panel_create_<type> custom id.
func ParsePanelID(customID string) (queue.TypeID, bool) {
	if !strings.HasPrefix(customID, PanelPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(customID, PanelPrefix)
	return queue.TypeID(id), id != ""
}

// ParseReviewID splits review_<approve|reject>_<user>.
func ParseReviewID(customID string) (action, userID string, ok bool) {
	rest, found := strings.CutPrefix(customID, ReviewPrefix)
	if !found {
		return "", "", false
	}
	action, userID, ok = strings.Cut(rest, "_")
	if !ok || userID == "" || (action != "approve" && action != "reject") {
		return "", "", false
	}
	return action, userID, true
}
