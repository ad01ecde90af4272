package main

import (
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/teamvine/matchday/internal/challenge"
	"github.com/teamvine/matchday/internal/clock"
	"github.com/teamvine/matchday/internal/ledger"
	"github.com/teamvine/matchday/internal/live"
	"github.com/teamvine/matchday/internal/matchevent"
	"github.com/teamvine/matchday/internal/models"
	"github.com/teamvine/matchday/internal/notify"
	"github.com/teamvine/matchday/internal/roster"
)

type Services struct {
	Live     *live.Handler
	Fixtures *live.FixtureHandler
	Outbox   *notify.Repository
}

// setupServices wires the dependency chain: repositories on the pool, apps on
// repositories, the live façade on the apps.
func setupServices(pool *pgxpool.Pool, sqlDB *sql.DB, redisClient *redis.Client, defaultRules models.MatchRules, tokenTTL time.Duration) *Services {
	clk := clockwork.NewRealClock()

	eventsRepo := matchevent.NewRepository(pool)
	rosterRepo := roster.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)
	outboxRepo := notify.NewRepository(sqlDB)

	challengeApp := challenge.NewApp(eventsRepo, rosterRepo, outboxRepo, clk, tokenTTL)
	clockApp := clock.NewApp(eventsRepo, clk)
	ledgerApp := ledger.NewApp(ledgerRepo, eventsRepo, rosterRepo, outboxRepo)
	fixtureApp := matchevent.NewApp(eventsRepo, defaultRules)

	provider := live.NewProvider(challengeApp, ledgerApp, rosterRepo, clk)

	var cache *live.SnapshotCache
	if redisClient != nil {
		cache = live.NewSnapshotCache(redisClient)
	}

	return &Services{
		Live:     live.NewHandler(provider, challengeApp, clockApp, ledgerApp, fixtureApp, rosterRepo, cache),
		Fixtures: live.NewFixtureHandler(fixtureApp, challengeApp, rosterRepo),
		Outbox:   outboxRepo,
	}
}
