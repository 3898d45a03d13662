package main

import (
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/devpatel10/gully/go/internal/auction/engine"
	"github.com/devpatel10/gully/go/internal/auction/outbox"
	"github.com/devpatel10/gully/go/internal/auction/release"
	"github.com/devpatel10/gully/go/internal/auction/round"
	"github.com/devpatel10/gully/go/internal/auction/settle"
	"github.com/devpatel10/gully/go/internal/auction/timer"
	"github.com/devpatel10/gully/go/internal/chat"
	"github.com/devpatel10/gully/go/internal/ledger"
)

// Services holds the wired-up application graph.
type Services struct {
	Ledger      *ledger.App
	Outbox      *outbox.App
	Engine      *engine.Engine
	Connections *chat.ConnectionManager
	Router      *chat.Router
	WSHandler   *chat.WebSocketHandler
}

func setupServices(pool *pgxpool.Pool, database *sql.DB, cfg *Config) *Services {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → engine

	clock := clockwork.NewRealClock()

	// Ledger
	ledgerRepo := ledger.NewRepository(pool)
	ledgerApp := ledger.NewApp(ledgerRepo)

	// Outbox
	outboxRepo := outbox.NewRepository(database)
	outboxApp := outbox.NewApp(outboxRepo)

	// Chat surface
	connections := chat.NewConnectionManager(chat.DefaultConnectionConfig())
	notifier := chat.NewNotifier(connections)

	// Settlement
	reporter := settle.NewReporter(ledgerApp, outboxApp, notifier, clock)

	// Round and release managers run on separate timer schedulers: both
	// key on league id, and a release-window close must never cancel a
	// round countdown.
	roundCfg := round.Config{
		Countdown:    cfg.Countdown(),
		BidIncrement: cfg.Auction.BidIncrement,
	}
	rounds := round.NewManager(roundCfg, clock, timer.NewScheduler(clock), notifier, reporter)

	releaseCfg := release.Config{WindowDuration: cfg.WindowDuration()}
	window := release.NewManager(releaseCfg, clock, timer.NewScheduler(clock), ledgerApp, notifier)

	// Engine
	eng := engine.NewEngine(ledgerApp, rounds, window, notifier, outboxApp, clock, roundCfg)
	reporter.SetTally(eng)

	// Command routing
	router := chat.NewRouter(eng, ledgerApp, notifier)
	connections.SetInboundHandler(router.Handle)

	return &Services{
		Ledger:      ledgerApp,
		Outbox:      outboxApp,
		Engine:      eng,
		Connections: connections,
		Router:      router,
		WSHandler:   chat.NewWebSocketHandler(connections),
	}
}
