package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/snipechecks/snipebot/internal/adapters/chain"
	"github.com/snipechecks/snipebot/internal/adapters/price"
	"github.com/snipechecks/snipebot/internal/adapters/relay"
	"github.com/snipechecks/snipebot/internal/adapters/sessions"
	"github.com/snipechecks/snipebot/internal/adapters/storage"
	"github.com/snipechecks/snipebot/internal/adapters/telegram"
	"github.com/snipechecks/snipebot/internal/config"
	"github.com/snipechecks/snipebot/internal/core/domain"
	"github.com/snipechecks/snipebot/internal/core/service"
	"github.com/snipechecks/snipebot/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "snipebot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, cleanup, err := storage.NewMongoClient(ctx, cfg.MongoURI)
	if err != nil {
		return err
	}
	defer cleanup()

	repo := storage.NewMongoRepository(mongoClient.Database(cfg.MongoDatabase))
	if err := repo.EnsureIndexes(ctx); err != nil {
		return err
	}

	sessionStore := newSessionStore(ctx, cfg, log)

	oracle := price.NewOracleClient(cfg.OracleBaseURL, cfg.OracleAPIKey)
	cache := price.NewCache(oracle, cfg.PriceTTL, cfg.PriceCacheCapacity, log)
	balances := chain.NewSolanaService(cfg.SolanaRPCURL)

	engine := service.NewPnLEngine(repo, cache, log)
	bot := service.NewBot(repo, cache, sessionStore, balances, engine, log)

	log.Info("snipebot starting", zap.String("transport", cfg.Transport))

	switch cfg.Transport {
	case config.TransportTelegram:
		poller := telegram.NewPoller(telegram.NewClient(cfg.TelegramBotToken), bot, log)
		err = poller.Run(ctx)
	case config.TransportRelay:
		err = relay.NewClient(cfg.RelayURL, bot, log).Run(ctx)
	default:
		err = fmt.Errorf("unknown transport %q", cfg.Transport)
	}
	if errors.Is(err, context.Canceled) {
		log.Info("snipebot shutting down")
		return nil
	}
	return err
}

// newSessionStore returns the Redis-backed store when Redis is enabled
// and reachable, otherwise falls back to in-process sessions.
func newSessionStore(ctx context.Context, cfg *config.Config, log *zap.Logger) domain.SessionStore {
	if !cfg.RedisEnabled {
		return sessions.NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, using in-memory sessions", zap.Error(err))
		return sessions.NewMemoryStore()
	}
	log.Info("using redis session store", zap.String("addr", cfg.RedisAddr))
	return sessions.NewRedisStore(client)
}
