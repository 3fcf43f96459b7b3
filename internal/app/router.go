// internal/app/router.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	d "github.com/jose-valero/party-queue-bot/internal/adapters/discord"
	"github.com/jose-valero/party-queue-bot/internal/queue"
	"github.com/jose-valero/party-queue-bot/internal/registration"
	"github.com/jose-valero/party-queue-bot/internal/service"
	"github.com/jose-valero/party-queue-bot/internal/ui"
)

const (
	statsModalID   = "stats_modal"
	statsGearInput = "gear_score"
	statsRankInput = "arena_rank"

	genericError = "❌ An error occurred while processing your request. Please try again or contact an admin."
)

// API is what the router needs from *discordgo.Session.
type API interface {
	d.InteractionAPI
	d.MessageAPI
}

type Router struct {
	svc     *service.Service
	regs    *registration.Service
	policy  *d.Policy
	log     *slog.Logger
	timeout time.Duration
}

func NewRouter(svc *service.Service, regs *registration.Service, policy *d.Policy, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{svc: svc, regs: regs, policy: policy, log: log.With("component", "router"), timeout: 10 * time.Second}
}

// Handle dispatches one interaction.
func (r *Router) Handle(s API, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		r.handleSlash(ctx, s, i)
	case discordgo.InteractionMessageComponent:
		r.handleComponent(ctx, s, i)
	case discordgo.InteractionModalSubmit:
		r.handleModal(ctx, s, i)
	}
}

// ------------------- Slash -------------------

func (r *Router) handleSlash(ctx context.Context, s API, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	opts := optionMap(data.Options)
	r.log.Debug("slash", "name", data.Name, "guild", i.GuildID, "channel", i.ChannelID)

	if i.GuildID == "" {
		_ = d.SendEphemeral(s, i, "❌ This command only works inside a server.")
		return
	}

	switch data.Name {
	case "setup":
		if !r.policy.RequirePrivileged(s, i) {
			return
		}
		channelID := optString(opts, "channel")
		if channelID == "" {
			channelID = i.ChannelID
		}
		r.createQueue(ctx, s, i, channelID, queue.TypeID(optString(opts, "type")))

	case "panel":
		if !r.policy.RequirePrivileged(s, i) {
			return
		}
		types := r.svc.Catalog().All()
		emb, comps := ui.PanelEmbed(types), ui.PanelComponents(types)
		channelID := optString(opts, "channel")
		if channelID == "" || channelID == i.ChannelID {
			_ = d.SendEmbedComplex(s, i, emb, comps)
			return
		}
		if _, err := s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
			Embeds:     []*discordgo.MessageEmbed{emb},
			Components: comps,
		}, discordgo.WithContext(ctx)); err != nil {
			r.fail(s, i, "post panel", err)
			return
		}
		_ = d.SendEphemeral(s, i, fmt.Sprintf("✅ Panel posted in <#%s>!", channelID))

	case "reset":
		if !r.policy.RequirePrivileged(s, i) {
			return
		}
		typeID := queue.TypeID(optString(opts, "type"))
		if _, err := r.svc.ResetByType(ctx, i.GuildID, typeID); err != nil {
			r.fail(s, i, "reset", err)
			return
		}
		_ = d.SendEphemeral(s, i, fmt.Sprintf("✅ %s queue has been reset!", r.typeName(typeID)))

	case "close":
		if !r.policy.RequirePrivileged(s, i) {
			return
		}
		typeID := queue.TypeID(optString(opts, "type"))
		if err := r.svc.CloseByType(ctx, i.GuildID, typeID); err != nil {
			r.fail(s, i, "close", err)
			return
		}
		_ = d.SendEphemeral(s, i, fmt.Sprintf("✅ %s queue has been closed!", r.typeName(typeID)))

	case "queues":
		states, err := r.svc.States(ctx, i.GuildID)
		if err != nil {
			r.fail(s, i, "list queues", err)
			return
		}
		_ = d.SendEphemeralEmbed(s, i, ui.OverviewEmbed(states, r.svc.Catalog()))

	case "register":
		r.register(ctx, s, i, opts)

	case "stats":
		r.openStatsModal(ctx, s, i)

	case "registration":
		r.showRegistration(ctx, s, i, opts)

	case "review":
		if !r.policy.RequirePrivileged(s, i) {
			return
		}
		if len(data.Options) == 0 {
			return
		}
		sub := data.Options[0]
		switch sub.Name {
		case "pending":
			regs, err := r.regs.Pending(ctx, i.GuildID)
			if err != nil {
				r.fail(s, i, "list pending", err)
				return
			}
			_ = d.SendEphemeralEmbed(s, i, ui.PendingEmbed(regs))
		case "approve", "reject":
			reg, err := r.review(ctx, s, i, sub.Name, optString(optionMap(sub.Options), "user"))
			if err != nil {
				r.fail(s, i, "review", err)
				return
			}
			_ = d.SendEphemeralEmbed(s, i, ui.ProfileEmbed(reg))
		}

	case "setupverification":
		if !r.policy.RequirePrivileged(s, i) {
			return
		}
		set, err := r.regs.ConfigureVerification(ctx, registration.Settings{
			GuildID:           i.GuildID,
			ReviewChannelID:   optString(opts, "reviewchannel"),
			PendingRoleID:     optString(opts, "pendingrole"),
			ApprovedRoleID:    optString(opts, "approvedrole"),
			ApprovedChannelID: optString(opts, "approvedchannel"),
		})
		if err != nil {
			r.fail(s, i, "setup verification", err)
			return
		}
		_ = d.SendResponse(s, i, ui.VerificationSummary(set))

	case "disableverification":
		if !r.policy.RequirePrivileged(s, i) {
			return
		}
		if err := r.regs.DisableVerification(ctx, i.GuildID); err != nil {
			r.fail(s, i, "disable verification", err)
			return
		}
		_ = d.SendResponse(s, i, "✅ Verification system disabled. New registrations are no longer posted for review.")
	}
}

func (r *Router) createQueue(ctx context.Context, s API, i *discordgo.InteractionCreate, channelID string, typeID queue.TypeID) {
	if _, err := r.svc.CreateQueue(ctx, i.GuildID, channelID, typeID); err != nil {
		r.fail(s, i, "create queue", err)
		return
	}
	_ = d.SendEphemeral(s, i, fmt.Sprintf("✅ %s queue created in <#%s>!", r.typeName(typeID), channelID))
}

func (r *Router) register(ctx context.Context, s API, i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	u := d.UserOf(i)
	if u == nil {
		_ = d.SendEphemeral(s, i, "⚠️ Could not identify you.")
		return
	}
	gs, err := registration.ParseGearScore(optString(opts, "gear_score"))
	if err != nil {
		_ = d.SendEphemeral(s, i, "❌ Gear score must be a number, e.g. 1.82 or 1820.")
		return
	}
	reg, created, err := r.regs.Submit(ctx, registration.Submission{
		GuildID:         i.GuildID,
		UserID:          u.ID,
		IngameName:      optString(opts, "ingame_name"),
		IngameUID:       optString(opts, "ingame_uid"),
		GearScore:       gs,
		ArenaRank:       optString(opts, "arena_rank"),
		PrimaryWeapon:   optString(opts, "primary_weapon"),
		SecondaryWeapon: optString(opts, "secondary_weapon"),
	})
	if err != nil {
		r.fail(s, i, "register", err)
		return
	}
	if r.postForReview(ctx, s, i, reg) {
		emb := ui.ProfileEmbed(reg)
		emb.Title = "✅ Registration submitted for review!"
		emb.Description = "An admin will approve your registration soon."
		_ = d.SendEphemeralEmbed(s, i, emb)
		return
	}
	title := "Registration updated"
	if created {
		title = "Registration received"
	}
	emb := ui.ProfileEmbed(reg)
	emb.Title = "✅ " + title
	_ = d.SendEphemeralEmbed(s, i, emb)
}

func (r *Router) openStatsModal(ctx context.Context, s API, i *discordgo.InteractionCreate) {
	u := d.UserOf(i)
	if u == nil {
		_ = d.SendEphemeral(s, i, "⚠️ Could not identify you.")
		return
	}
	reg, err := r.regs.Get(ctx, i.GuildID, u.ID)
	if err != nil {
		r.fail(s, i, "load registration", err)
		return
	}
	_ = d.SendModal(s, i, statsModalID, "Update stats",
		discordgo.TextInput{
			CustomID:  statsGearInput,
			Label:     "Gear score",
			Style:     discordgo.TextInputShort,
			Value:     strings.TrimSuffix(registration.FormatGearScore(reg.GearScore), "🦆"),
			Required:  true,
			MaxLength: 10,
		},
		discordgo.TextInput{
			CustomID:  statsRankInput,
			Label:     "Arena rank",
			Style:     discordgo.TextInputShort,
			Value:     reg.ArenaRank,
			MaxLength: 50,
		},
	)
}

func (r *Router) showRegistration(ctx context.Context, s API, i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	userID := optString(opts, "user")
	if userID == "" {
		if u := d.UserOf(i); u != nil {
			userID = u.ID
		}
	}
	reg, err := r.regs.Get(ctx, i.GuildID, userID)
	if err != nil {
		r.fail(s, i, "load registration", err)
		return
	}
	if reg.Status == registration.StatusPending && r.policy.IsPrivileged(i) {
		_ = d.SendEphemeralComplex(s, i, ui.ProfileEmbed(reg), ui.ReviewComponents(reg.UserID))
		return
	}
	_ = d.SendEphemeralEmbed(s, i, ui.ProfileEmbed(reg))
}

// postForReview sends a new submission to the guild's review channel when
// verification applies to it. A failed post falls back to the plain reply.
func (r *Router) postForReview(ctx context.Context, s API, i *discordgo.InteractionCreate, reg registration.Registration) bool {
	var roles []string
	if i.Member != nil {
		roles = i.Member.Roles
	}
	set, ok, err := r.regs.NeedsReview(ctx, reg, roles)
	if err != nil {
		r.log.Warn("load verification settings", "guild", i.GuildID, "err", err)
		return false
	}
	if !ok {
		return false
	}
	if _, err := s.ChannelMessageSendComplex(set.ReviewChannelID, &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{ui.ReviewCardEmbed(reg)},
		Components:      ui.ReviewComponents(reg.UserID),
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx)); err != nil {
		r.log.Warn("post registration for review", "guild", i.GuildID, "channel", set.ReviewChannelID, "user", reg.UserID, "err", err)
		return false
	}
	r.log.Info("registration posted for review", "guild", i.GuildID, "channel", set.ReviewChannelID, "user", reg.UserID)
	return true
}

func (r *Router) review(ctx context.Context, s API, i *discordgo.InteractionCreate, action, userID string) (registration.Registration, error) {
	reviewer := ""
	if u := d.UserOf(i); u != nil {
		reviewer = u.ID
	}
	if action != "approve" {
		return r.regs.Reject(ctx, i.GuildID, userID, reviewer)
	}
	reg, err := r.regs.Approve(ctx, i.GuildID, userID, reviewer)
	if err != nil {
		return reg, err
	}
	r.announceApproval(ctx, s, i, userID)
	return reg, nil
}

// announceApproval pings the player when verification is on. Failures are
// only logged; the approval stands.
func (r *Router) announceApproval(ctx context.Context, s API, i *discordgo.InteractionCreate, userID string) {
	set, on, err := r.regs.Verification(ctx, i.GuildID)
	if err != nil || !on {
		return
	}
	channelID := set.NotifyChannel(i.ChannelID)
	if _, err := s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:         ui.Mention(userID) + " Your registration has been approved! Welcome aboard!",
		AllowedMentions: &discordgo.MessageAllowedMentions{Users: []string{userID}},
	}, discordgo.WithContext(ctx)); err != nil {
		r.log.Warn("approval notification", "guild", i.GuildID, "channel", channelID, "user", userID, "err", err)
	}
}

// ------------------- Components -------------------

func (r *Router) handleComponent(ctx context.Context, s API, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	u := d.UserOf(i)
	if u == nil {
		_ = d.SendEphemeral(s, i, "⚠️ Could not identify you.")
		return
	}
	r.log.Debug("component", "id", customID, "user", u.ID)

	if role, ok := ui.ParseJoinID(customID); ok {
		res, err := r.svc.Join(ctx, i.Message.ID, u.ID, d.DisplayName(i), role)
		if err != nil {
			r.fail(s, i, "join", err)
			return
		}
		verb := "joined"
		if res.Outcome == queue.Switched {
			verb = "switched"
		}
		_ = d.SendEphemeral(s, i, fmt.Sprintf("✅ You %s as %s %s!", verb, ui.RoleEmoji(role), ui.RoleLabel(role)))
		return
	}

	if customID == ui.LeaveID {
		if err := r.svc.Leave(ctx, i.Message.ID, u.ID); err != nil {
			r.fail(s, i, "leave", err)
			return
		}
		_ = d.SendEphemeral(s, i, "✅ You left the queue.")
		return
	}

	if typeID, ok := ui.ParsePanelID(customID); ok {
		r.createQueue(ctx, s, i, i.ChannelID, typeID)
		return
	}

	if action, userID, ok := ui.ParseReviewID(customID); ok {
		if !r.policy.RequirePrivileged(s, i) {
			return
		}
		reg, err := r.review(ctx, s, i, action, userID)
		if err != nil {
			r.fail(s, i, "review", err)
			return
		}
		_ = d.UpdateEmbedWithComponents(s, i, ui.ProfileEmbed(reg), []discordgo.MessageComponent{})
		return
	}

	r.log.Warn("unknown component", "id", customID)
}

// ------------------- Modals -------------------

func (r *Router) handleModal(ctx context.Context, s API, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	if data.CustomID != statsModalID {
		r.log.Warn("unknown modal", "id", data.CustomID)
		return
	}
	u := d.UserOf(i)
	if u == nil {
		_ = d.SendEphemeral(s, i, "⚠️ Could not identify you.")
		return
	}
	vals := d.ModalValues(data)
	gs, err := registration.ParseGearScore(vals[statsGearInput])
	if err != nil {
		_ = d.SendEphemeral(s, i, "❌ Gear score must be a number, e.g. 1.82 or 1820.")
		return
	}
	reg, err := r.regs.UpdateStats(ctx, i.GuildID, u.ID, gs, vals[statsRankInput])
	if err != nil {
		r.fail(s, i, "update stats", err)
		return
	}
	_ = d.SendEphemeralEmbed(s, i, ui.ProfileEmbed(reg))
}

// ------------------- Errors -------------------

// fail answers with the specific reason for user-correctable errors and a
// generic reply otherwise.
func (r *Router) fail(s API, i *discordgo.InteractionCreate, op string, err error) {
	if msg, ok := userMessage(err); ok {
		r.log.Debug("rejected", "op", op, "reason", err)
		_ = d.SendEphemeral(s, i, msg)
		return
	}
	r.log.Error("interaction failed", "op", op, "guild", i.GuildID, "err", err)
	_ = d.SendEphemeral(s, i, genericError)
}

func userMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, queue.ErrNotFound):
		return "❌ This queue no longer exists.", true
	case errors.Is(err, queue.ErrQueueFull):
		return "❌ This queue is full! Please wait for the next one.", true
	case errors.Is(err, queue.ErrQueueClosed):
		return "🔒 This queue is closed.", true
	case errors.Is(err, queue.ErrPlayerInAnotherQueue):
		return "❌ You are already in another queue! Leave that queue first.", true
	case errors.Is(err, queue.ErrNotMember):
		return "❌ You are not in this queue.", true
	case errors.Is(err, queue.ErrQueueAlreadyExists):
		return "❌ A queue of this type already exists in this server.", true
	case errors.Is(err, queue.ErrUnknownRole):
		return "❌ Unknown role.", true
	case errors.Is(err, queue.ErrUnknownType):
		return "❌ Unknown queue type.", true
	case errors.Is(err, registration.ErrNotFound):
		return "❌ No registration found. Use `/register` first.", true
	case errors.Is(err, registration.ErrNotPending):
		return "❌ This registration was already reviewed.", true
	case errors.Is(err, registration.ErrVerificationOff):
		return "❌ Verification is not enabled in this server.", true
	case errors.Is(err, registration.ErrInvalid), errors.Is(err, registration.ErrInvalidSettings):
		return "❌ " + err.Error(), true
	}
	return "", false
}

func (r *Router) typeName(id queue.TypeID) string {
	if t, err := r.svc.Catalog().Lookup(id); err == nil {
		return t.Name
	}
	return string(id)
}
