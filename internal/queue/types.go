package queue

import (
	"fmt"
	"sort"
	"time"
)

// TypeID names a queue type, e.g. "sword_trial".
type TypeID string

// Type is one row of the static queue-type table.
type Type struct {
	ID       TypeID
	Name     string
	Capacity int
	Emoji    string
	Color    int
	TTL      time.Duration // lifetime of an open queue; zero = use the global default
}

// Catalog is the closed, read-only table of queue types loaded at startup.
type Catalog struct {
	byID  map[TypeID]Type
	order []TypeID
}

// NewCatalog validates and freezes the given types. Order is preserved for
// display (panel buttons, command choices).
func NewCatalog(types ...Type) (*Catalog, error) {
	if len(types) == 0 {
		return nil, fmt.Errorf("queue catalog: no queue types configured")
	}
	c := &Catalog{byID: make(map[TypeID]Type, len(types))}
	for _, t := range types {
		if t.ID == "" {
			return nil, fmt.Errorf("queue catalog: type with empty id")
		}
		if t.Capacity < 1 {
			return nil, fmt.Errorf("queue catalog: %s: capacity must be >= 1, got %d", t.ID, t.Capacity)
		}
		if t.TTL < 0 {
			return nil, fmt.Errorf("queue catalog: %s: negative ttl", t.ID)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("queue catalog: duplicate type %s", t.ID)
		}
		if t.Name == "" {
			t.Name = string(t.ID)
		}
		c.byID[t.ID] = t
		c.order = append(c.order, t.ID)
	}
	return c, nil
}

// DefaultCatalog is the built-in table used when no configuration file is given.
func DefaultCatalog() *Catalog {
	c, _ := NewCatalog(
		Type{ID: "sword_trial", Name: "Sword Trial", Capacity: 5, Emoji: "🗡️", Color: 0x3498db},
		Type{ID: "hero_realm", Name: "Hero Realm", Capacity: 10, Emoji: "🏰", Color: 0xe74c3c},
		Type{ID: "guild_war", Name: "Guild War", Capacity: 30, Emoji: "⚔️", Color: 0xf1c40f},
	)
	return c
}

func (c *Catalog) Lookup(id TypeID) (Type, error) {
	t, ok := c.byID[id]
	if !ok {
		return Type{}, fmt.Errorf("%w: %q", ErrUnknownType, id)
	}
	return t, nil
}

// All returns the types in configuration order.
func (c *Catalog) All() []Type {
	out := make([]Type, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// IDs returns the sorted type ids.
func (c *Catalog) IDs() []TypeID {
	out := append([]TypeID(nil), c.order...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
