// Command bot starts the party queue bot process
//
// this binary:
//  1. loads config from environment variables (.env during dev) and flags
//  2. opens the queue store, the lock and the optional event stream
//  3. creates a discord session and registers the app handlers
//  4. serves the admin API when HTTP_ADDR is set
//  5. waits for a signal from the OS and shuts everything down
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	disc "github.com/jose-valero/party-queue-bot/internal/adapters/discord"
	"github.com/jose-valero/party-queue-bot/internal/adapters/kafka"
	"github.com/jose-valero/party-queue-bot/internal/app"
	"github.com/jose-valero/party-queue-bot/internal/clock"
	"github.com/jose-valero/party-queue-bot/internal/domain/events"
	"github.com/jose-valero/party-queue-bot/internal/httpapi"
	"github.com/jose-valero/party-queue-bot/internal/lock"
	"github.com/jose-valero/party-queue-bot/internal/queue"
	"github.com/jose-valero/party-queue-bot/internal/registration"
	"github.com/jose-valero/party-queue-bot/internal/repository/memstore"
	redisrepo "github.com/jose-valero/party-queue-bot/internal/repository/redis"
	"github.com/jose-valero/party-queue-bot/internal/repository/sqlstore"
	"github.com/jose-valero/party-queue-bot/internal/service"
	"github.com/jose-valero/party-queue-bot/internal/timer"
	"github.com/jose-valero/party-queue-bot/pkg/config"
)

type flags struct {
	envFile    string
	queueTypes string
	logLevel   string
	httpAddr   string
	issueToken string
	tokenTTL   time.Duration
}

func parseFlags() flags {
	var f flags
	pflag.StringVar(&f.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	pflag.StringVar(&f.queueTypes, "queue-types", "", "YAML queue type table (overrides QUEUE_TYPES_FILE)")
	pflag.StringVar(&f.logLevel, "log-level", "", "debug|info|warn|error (overrides LOG_LEVEL)")
	pflag.StringVar(&f.httpAddr, "http-addr", "", "admin API listen address (overrides HTTP_ADDR)")
	pflag.StringVar(&f.issueToken, "issue-admin-token", "", "print an admin API token for this subject and exit")
	pflag.DurationVar(&f.tokenTTL, "token-ttl", 24*time.Hour, "lifetime of tokens minted with --issue-admin-token")
	pflag.Parse()
	return f
}

func main() {
	f := parseFlags()

	if f.issueToken != "" {
		os.Exit(issueToken(f))
	}

	cfg, err := config.Load(f.envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if err := applyFlags(cfg, f); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("bot stopped", "err", err)
		os.Exit(1)
	}
}

func issueToken(f flags) int {
	_ = godotenv.Load(f.envFile)
	secret := os.Getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "missing ADMIN_JWT_SECRET")
		return 1
	}
	tok, err := httpapi.IssueToken([]byte(secret), f.issueToken, f.tokenTTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		return 1
	}
	fmt.Println(tok)
	return 0
}

func applyFlags(cfg *config.Config, f flags) error {
	if f.queueTypes != "" {
		cfg.QueueTypesFile = f.queueTypes
	}
	if f.httpAddr != "" {
		cfg.HTTPAddr = f.httpAddr
	}
	if f.logLevel != "" {
		lvl, err := config.ParseLogLevel(f.logLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = lvl
	}
	return cfg.Validate()
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := config.LoadCatalog(cfg.QueueTypesFile)
	if err != nil {
		return err
	}

	store, regRepo, closeStore, err := openStores(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	locker, closeLocker, err := openLocker(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLocker()

	bus := events.NewBus(log)
	if len(cfg.KafkaBrokers) > 0 {
		fwd := kafka.NewForwarder(kafka.NewWriter(kafka.Config{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic}), bus, 0, log)
		fwd.Start()
		defer func() {
			if err := fwd.Close(); err != nil {
				log.Warn("close kafka forwarder", "err", err)
			}
		}()
		log.Info("kafka forwarding enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	// create a session of discord
	//  the prefix "Bot " is required for bot tokens
	sess, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	sess.Identify.Intents = discordgo.IntentsGuilds

	clk := clock.Real()
	registry := queue.NewRegistry(store, clk)
	timers := timer.New(registry, clk, locker, log)
	defer timers.Shutdown()

	svc := service.New(service.Deps{
		Registry:   registry,
		Catalog:    catalog,
		Timers:     timers,
		Locker:     locker,
		Renderer:   disc.NewPublisher(sess, catalog, clk, log),
		Notifier:   disc.NewAnnouncer(sess, log),
		Bus:        bus,
		Clock:      clk,
		DefaultTTL: cfg.QueueTTL,
		Logger:     log,
	})
	regs := registration.NewService(regRepo, clk, log)

	b := app.NewBot(sess, cfg, svc, regs, bus, log)
	b.RegisterHandlers()
	defer b.Stop()

	// open websocket gateway
	if err := sess.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	defer sess.Close()

	var httpSrv *http.Server
	if cfg.HTTPAddr != "" {
		httpSrv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           httpapi.New(svc, timers, []byte(cfg.AdminJWTSecret), log).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("admin api", "err", err)
			}
		}()
		log.Info("admin api listening", "addr", cfg.HTTPAddr)
	}

	log.Info("🤖 bot ready", "config", cfg.Redacted())

	// block till SIGINT/SIGTERM
	<-ctx.Done()
	log.Info("shutting down")

	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("admin api shutdown", "err", err)
		}
	}
	return nil
}

func openStores(cfg *config.Config, log *slog.Logger) (queue.Store, registration.Repository, func(), error) {
	if cfg.DBDriver == config.DriverMemory {
		log.Warn("using in-memory store; queues are lost on restart")
		return memstore.New(), memstore.NewRegistrations(), func() {}, nil
	}
	if cfg.DBDriver == config.DriverSQLite {
		if err := ensureSQLiteDir(cfg.DatabaseDSN); err != nil {
			return nil, nil, nil, err
		}
	}
	db, err := sqlstore.Open(sqlstore.Config{Driver: cfg.DBDriver, DSN: cfg.DatabaseDSN, Logger: log})
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return sqlstore.New(db), sqlstore.NewRegistrations(db), closeDB, nil
}

func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}

func openLocker(ctx context.Context, cfg *config.Config, log *slog.Logger) (lock.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		return lock.NewLocal(), func() {}, nil
	}
	rdb, err := redisrepo.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	log.Info("using redis locks", "addr", cfg.RedisAddr)
	return &redisrepo.Locker{RDB: rdb, TTL: redisrepo.DefaultTTL}, func() { _ = rdb.Close() }, nil
}
