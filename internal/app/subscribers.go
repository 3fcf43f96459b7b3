// internal/app/subscribers.go
package app

import (
	"log/slog"

	"github.com/jose-valero/party-queue-bot/internal/domain/events"
)

func subscribeLog[T events.Lifecycle](bus *events.Bus, log *slog.Logger, attrs func(T) []any) func() {
	return events.Subscribe(bus, func(ev T) {
		args := append([]any{"event", ev.EventName(), "handle", ev.QueueHandle()}, attrs(ev)...)
		log.Info("queue lifecycle", args...)
	})
}

// StartEventSubscribers logs every queue lifecycle event and returns a
// function that unsubscribes them all.
func StartEventSubscribers(bus *events.Bus, log *slog.Logger) func() {
	if bus == nil {
		return func() {}
	}
	log = log.With("component", "lifecycle")
	cancels := []func(){
		subscribeLog(bus, log, func(e events.QueueCreated) []any {
			return []any{"guild", e.GuildID, "type", e.Type, "capacity", e.Capacity, "expires_at", e.ExpiresAt}
		}),
		subscribeLog(bus, log, func(e events.MemberJoined) []any {
			return []any{"player", e.PlayerID, "role", e.Role, "switched", e.Switched, "count", e.Count}
		}),
		subscribeLog(bus, log, func(e events.MemberLeft) []any {
			return []any{"player", e.PlayerID}
		}),
		subscribeLog(bus, log, func(e events.QueueFilled) []any {
			return []any{"players", len(e.PlayerIDs)}
		}),
		subscribeLog(bus, log, func(e events.QueueExpired) []any {
			return []any{"players", len(e.PlayerIDs)}
		}),
		subscribeLog(bus, log, func(e events.QueueReset) []any {
			return []any{"expires_at", e.ExpiresAt}
		}),
		subscribeLog(bus, log, func(e events.QueueClosed) []any {
			return []any{"guild", e.GuildID}
		}),
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}
