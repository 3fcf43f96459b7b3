package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/jose-valero/party-queue-bot/internal/queue"
)

var roleEmojis = map[queue.Role]string{
	queue.RoleTank:   "🛡️",
	queue.RoleHealer: "💚",
	queue.RoleDPS:    "⚔️",
}

var roleLabels = map[queue.Role]string{
	queue.RoleTank:   "Tank",
	queue.RoleHealer: "Healer",
	queue.RoleDPS:    "DPS",
}

func RoleEmoji(r queue.Role) string {
	if e, ok := roleEmojis[r]; ok {
		return e
	}
	return "❔"
}

func RoleLabel(r queue.Role) string {
	if l, ok := roleLabels[r]; ok {
		return l
	}
	return string(r)
}

// progressBar draws p (0..1) as filled and empty blocks.
func progressBar(p float64, width int) string {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	filled := int(p*float64(width) + 0.5)
	return strings.Repeat("🟩", filled) + strings.Repeat("⬛", width-filled)
}

// discordTime renders a client-localized timestamp, e.g. "in 12 minutes".
func discordTime(t time.Time, style string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}

func Mention(userID string) string { return "<@" + userID + ">" }

func Mentions(ids []string) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, Mention(id))
	}
	return strings.Join(parts, " ")
}

// fallback for blank data
func safe(s string) string {
	t := strings.TrimSpace(s)
	if t == "" || t == "-" {
		return "—"
	}
	return t
}

func bulletList(items []string, max int) string {
	if len(items) == 0 {
		return "—"
	}
	extra := 0
	if max > 0 && len(items) > max {
		extra = len(items) - max
		items = items[:max]
	}
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "• %s\n", it)
	}
	if extra > 0 {
		fmt.Fprintf(&b, "… and %d more\n", extra)
	}
	return strings.TrimRight(b.String(), "\n")
}

func quoteBlock(s string) string {
	if s == "" {
		return "> —"
	}
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = "> " + lines[i]
	}
	return strings.Join(lines, "\n")
}
