package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/jose-valero/party-queue-bot/internal/registration"
)

type regKey struct{ guild, user string }

// Registrations is an in-memory registration.Repository.
type Registrations struct {
	mu       sync.Mutex
	rows     map[regKey]registration.Registration
	settings map[string]registration.Settings
}

var _ registration.Repository = (*Registrations)(nil)

func NewRegistrations() *Registrations {
	return &Registrations{
		rows:     make(map[regKey]registration.Registration),
		settings: make(map[string]registration.Settings),
	}
}

func (r *Registrations) Save(_ context.Context, reg registration.Registration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := regKey{reg.GuildID, reg.UserID}
	_, exists := r.rows[k]
	r.rows[k] = reg
	return !exists, nil
}

func (r *Registrations) Get(_ context.Context, guildID, userID string) (registration.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.rows[regKey{guildID, userID}]
	if !ok {
		return registration.Registration{}, registration.ErrNotFound
	}
	return reg, nil
}

func (r *Registrations) Delete(_ context.Context, guildID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := regKey{guildID, userID}
	if _, ok := r.rows[k]; !ok {
		return registration.ErrNotFound
	}
	delete(r.rows, k)
	return nil
}

func (r *Registrations) ListByStatus(_ context.Context, guildID string, status registration.Status) ([]registration.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []registration.Registration
	for k, reg := range r.rows {
		if k.guild == guildID && reg.Status == status {
			out = append(out, reg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Registrations) SaveSettings(_ context.Context, set registration.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[set.GuildID] = set
	return nil
}

func (r *Registrations) GetSettings(_ context.Context, guildID string) (registration.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.settings[guildID]
	if !ok {
		return registration.Settings{}, registration.ErrVerificationOff
	}
	return set, nil
}
