package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/teamvine/matchday/internal/auth"
	"github.com/teamvine/matchday/internal/db"
	"github.com/teamvine/matchday/internal/notify"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var config *Config
	configPath := getEnv("CONFIG_PATH", "config.yaml")
	if loaded, err := loadConfig(configPath); err != nil {
		log.Warn().Err(err).Str("path", configPath).Msg("running without config file")
	} else {
		config = loaded
	}

	dsn := databaseURL()
	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	sqlDB, err := db.OpenSQL(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open sql handle")
	}
	defer sqlDB.Close()

	if err := db.Migrate(sqlDB); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	var redisClient *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, snapshot cache disabled")
			redisClient = nil
		}
	}

	services := setupServices(pool, sqlDB, redisClient, config.defaultRules(), config.tokenTTL())

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal().Msg("JWT_SECRET environment variable is required")
	}
	verifier := auth.NewVerifier([]byte(jwtSecret))

	startOutboxListener(ctx, services.Outbox, dsn)

	server := setupServer(services, verifier)
	go func() {
		<-ctx.Done()
		if err := server.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	log.Info().Str("addr", server.Addr).Msg("matchday server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// startOutboxListener relays outbox rows to JetStream when NATS_URL is set,
// and to the log otherwise.
func startOutboxListener(ctx context.Context, repo *notify.Repository, dsn string) {
	var publisher notify.Publisher = notify.LogPublisher{}
	if url := os.Getenv("NATS_URL"); url != "" {
		cfg := notify.DefaultJetStreamConfig()
		cfg.URL = url
		js, err := notify.NewJetStreamPublisher(cfg)
		if err != nil {
			log.Error().Err(err).Msg("failed to connect JetStream publisher, falling back to log")
		} else {
			publisher = js
		}
	}

	cfg := notify.DefaultListenerConfig()
	cfg.DatabaseURL = dsn
	listener, err := notify.NewListener(repo, publisher, cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to start outbox listener")
		return
	}
	go func() {
		if err := listener.Start(ctx); err != nil {
			log.Error().Err(err).Msg("outbox listener stopped")
		}
	}()
}
