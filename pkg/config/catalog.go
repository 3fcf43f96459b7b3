package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jose-valero/party-queue-bot/internal/queue"
)

//go:embed queuetypes.yaml
var defaultQueueTypes []byte

type queueTypeFile struct {
	Types []queueTypeEntry `yaml:"types"`
}

type queueTypeEntry struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Capacity int    `yaml:"capacity"`
	Emoji    string `yaml:"emoji"`
	Color    int    `yaml:"color"`
	TTL      string `yaml:"ttl"`
}

// LoadCatalog reads the queue-type table from path, or the built-in table
// when path is empty.
func LoadCatalog(path string) (*queue.Catalog, error) {
	raw := defaultQueueTypes
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read queue types: %w", err)
		}
		raw = b
	}
	return ParseCatalog(raw)
}

func ParseCatalog(raw []byte) (*queue.Catalog, error) {
	var f queueTypeFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse queue types: %w", err)
	}
	types := make([]queue.Type, 0, len(f.Types))
	for _, e := range f.Types {
		t := queue.Type{
			ID:       queue.TypeID(e.ID),
			Name:     e.Name,
			Capacity: e.Capacity,
			Emoji:    e.Emoji,
			Color:    e.Color,
		}
		if e.TTL != "" {
			d, err := time.ParseDuration(e.TTL)
			if err != nil {
				return nil, fmt.Errorf("queue type %s: ttl: %w", e.ID, err)
			}
			t.TTL = d
		}
		types = append(types, t)
	}
	return queue.NewCatalog(types...)
}
