package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"DISCORD_BOT_TOKEN": "tok",
		"DISCORD_APP_ID":    "app",
		"ADMIN_ROLE_IDS":    " r1, ,r2 ",
		"LOG_LEVEL":         "debug",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBDriver != DriverSQLite || cfg.DatabaseDSN != defaultDSN {
		t.Fatalf("db defaults: %s %s", cfg.DBDriver, cfg.DatabaseDSN)
	}
	if cfg.QueueTTL != 30*time.Minute {
		t.Fatalf("ttl: %s", cfg.QueueTTL)
	}
	if len(cfg.AdminRoleIDs) != 2 || cfg.AdminRoleIDs[1] != "r2" {
		t.Fatalf("admin roles: %v", cfg.AdminRoleIDs)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("log level: %v", cfg.LogLevel)
	}
	if strings.Contains(cfg.Redacted(), "tok") {
		t.Fatalf("token leaked: %s", cfg.Redacted())
	}
}

func TestFromEnvValidation(t *testing.T) {
	base := map[string]string{"DISCORD_BOT_TOKEN": "tok", "DISCORD_APP_ID": "app"}
	cases := map[string]map[string]string{
		"missing token":  {"DISCORD_APP_ID": "app"},
		"bad driver":     {"DB_DRIVER": "postgres"},
		"bad ttl":        {"QUEUE_TTL": "soon"},
		"negative ttl":   {"QUEUE_TTL": "-1m"},
		"http needs jwt": {"HTTP_ADDR": ":8080"},
		"bad redis db":   {"REDIS_DB": "zero"},
		"bad log level":  {"LOG_LEVEL": "chatty"},
	}
	for name, over := range cases {
		m := map[string]string{}
		if name != "missing token" {
			for k, v := range base {
				m[k] = v
			}
		}
		for k, v := range over {
			m[k] = v
		}
		if _, err := FromEnv(env(m)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestDefaultCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	if err != nil {
		t.Fatal(err)
	}
	gw, err := c.Lookup("guild_war")
	if err != nil {
		t.Fatal(err)
	}
	if gw.Capacity != 30 || gw.TTL != time.Hour || gw.Color != 0xf1c40f {
		t.Fatalf("guild_war: %+v", gw)
	}
}

func TestCatalogFileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.yaml")
	data := "types:\n  - id: duo\n    name: Duo\n    capacity: 2\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatal(err)
	}
	if ids := c.IDs(); len(ids) != 1 || ids[0] != "duo" {
		t.Fatalf("ids: %v", ids)
	}
}

func TestCatalogRejectsBadInput(t *testing.T) {
	for name, raw := range map[string]string{
		"unknown field": "types:\n  - id: a\n    capacity: 2\n    slots: 3\n",
		"zero capacity": "types:\n  - id: a\n    capacity: 0\n",
		"bad ttl":       "types:\n  - id: a\n    capacity: 2\n    ttl: later\n",
		"empty":         "types: []\n",
	} {
		if _, err := ParseCatalog([]byte(raw)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
