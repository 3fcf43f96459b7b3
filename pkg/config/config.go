package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverMemory = "memory"

	defaultDSN        = "file:data/queues.db"
	defaultQueueTTL   = 30 * time.Minute
	defaultKafkaTopic = "party-queue.lifecycle"
)

type Config struct {
	Token   string
	AppID   string
	GuildID string // optional; commands are registered globally when empty

	DBDriver    string
	DatabaseDSN string

	QueueTTL       time.Duration
	QueueTypesFile string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers []string
	KafkaTopic   string

	HTTPAddr       string
	AdminJWTSecret string
	AdminRoleIDs   []string

	LogLevel slog.Level
}

// Load reads envFile (if present) and the environment. A missing env file
// is not an error.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Token:          getenv("DISCORD_BOT_TOKEN"),
		AppID:          getenv("DISCORD_APP_ID"),
		GuildID:        getenv("DISCORD_GUILD_ID"),
		DBDriver:       strings.ToLower(firstNonEmpty(getenv("DB_DRIVER"), DriverSQLite)),
		DatabaseDSN:    firstNonEmpty(getenv("DATABASE_DSN"), defaultDSN),
		QueueTypesFile: getenv("QUEUE_TYPES_FILE"),
		RedisAddr:      getenv("REDIS_ADDR"),
		RedisPassword:  getenv("REDIS_PASSWORD"),
		KafkaBrokers:   splitList(getenv("KAFKA_BROKERS")),
		KafkaTopic:     firstNonEmpty(getenv("KAFKA_TOPIC"), defaultKafkaTopic),
		HTTPAddr:       getenv("HTTP_ADDR"),
		AdminJWTSecret: getenv("ADMIN_JWT_SECRET"),
		AdminRoleIDs:   splitList(getenv("ADMIN_ROLE_IDS")),
		QueueTTL:       defaultQueueTTL,
	}

	if v := getenv("QUEUE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("QUEUE_TTL: %w", err)
		}
		cfg.QueueTTL = d
	}
	if v := getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.RedisDB = n
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		lvl, err := ParseLogLevel(v)
		if err != nil {
			return nil, err
		}
		cfg.LogLevel = lvl
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings. Call it again after applying flag
// overrides.
func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New("missing DISCORD_BOT_TOKEN")
	}
	if c.AppID == "" {
		return errors.New("missing DISCORD_APP_ID")
	}
	switch c.DBDriver {
	case DriverSQLite, DriverMySQL, DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER: unsupported driver %q", c.DBDriver)
	}
	if c.DBDriver != DriverMemory && c.DatabaseDSN == "" {
		return errors.New("missing DATABASE_DSN")
	}
	if c.QueueTTL <= 0 {
		return fmt.Errorf("QUEUE_TTL must be positive, got %s", c.QueueTTL)
	}
	if c.HTTPAddr != "" && c.AdminJWTSecret == "" {
		return errors.New("missing ADMIN_JWT_SECRET (required when HTTP_ADDR is set)")
	}
	return nil
}

func ParseLogLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

func firstNonEmpty(v, d string) string {
	if v == "" {
		return d
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setOrEmpty(s string) string {
	if s == "" {
		return "[empty]"
	}
	return "[set]"
}

func (c *Config) Redacted() string {
	return fmt.Sprintf(
		"appID=%s guildID=%s db=%s queueTTL=%s redis=%q kafka=%v http=%q adminRoles=%d token=%s jwtSecret=%s",
		c.AppID, c.GuildID, c.DBDriver, c.QueueTTL, c.RedisAddr, c.KafkaBrokers, c.HTTPAddr,
		len(c.AdminRoleIDs), setOrEmpty(c.Token), setOrEmpty(c.AdminJWTSecret),
	)
}
