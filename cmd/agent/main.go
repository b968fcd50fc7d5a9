package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"presence/internal/checkin/remote"
	checkinservice "presence/internal/checkin/service"
	offlineservice "presence/internal/offlinequeue/service"
	offlinesqlite "presence/internal/offlinequeue/store/sqlite"
	"presence/internal/platform/config"
	"presence/internal/platform/logger"
	"presence/internal/platform/sqlite"
	rateservice "presence/internal/ratelimit/service"
	"presence/internal/ratelimit/store/attempts"
	id "presence/pkg/domain"
)

const usage = `usage: presence-agent [-config dir] <command> [flags]

commands:
  checkin   attempt a check-in (-event, -method, -lat/-lng, -code, -token)
  ticket    prove presence once and store an offline ticket (same flags as checkin)
  sync      upload queued check-ins once
  queue     list queued check-ins (-clear to drop them)
  ledger    list the ledger (-verify to check the chain)
  run       sync queued check-ins on an interval until interrupted
`

func main() {
	global := flag.NewFlagSet("presence-agent", flag.ExitOnError)
	configDir := global.String("config", ".", "directory holding the agent .env file")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = global.Parse(os.Args[1:])
	if global.NArg() == 0 {
		global.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadAgent(*configDir)
	if err != nil {
		slog.Error("invalid agent configuration", "error", err)
		os.Exit(1)
	}
	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newAgent(ctx, cfg, log)
	if err != nil {
		log.Error("failed to start agent", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.dispatch(ctx, global.Arg(0), global.Args()[1:]); err != nil {
		log.Error("command failed", "command", global.Arg(0), "error", err)
		stop()
		a.Close()
		os.Exit(1)
	}
}

// agent holds the device-side wiring: a sqlite-backed queue and ticket store,
// the server client, and a local coordinator that verifies geofence
// check-ins before talking to the server.
type agent struct {
	cfg         config.Agent
	log         *slog.Logger
	userID      id.UserID
	db          *sql.DB
	client      *remote.Client
	queue       *offlineservice.Queue
	tickets     *offlineservice.Tickets
	coordinator *checkinservice.Service
	closed      bool
}

func newAgent(ctx context.Context, cfg config.Agent, log *slog.Logger) (*agent, error) {
	parsed, err := uuid.Parse(cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("PRESENCE_USER_ID: %w", err)
	}
	userID := id.UserID(parsed)

	db, err := sqlite.Open(ctx, cfg.QueuePath)
	if err != nil {
		return nil, err
	}
	storage := offlinesqlite.New(db)

	queue, err := offlineservice.New(storage, offlineservice.WithLogger(log))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	tickets := offlineservice.NewTickets(storage)

	client, err := remote.New(cfg.ServerURL, userID,
		remote.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		remote.WithUserAgent(cfg.UserAgent),
		remote.WithLogger(log),
		remote.WithEventCache(storage),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	// The local gate only throttles this device; the server keeps its own.
	gate, err := rateservice.New(attempts.NewDevice(storage), rateservice.WithLogger(log))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	coordinator, err := checkinservice.New(gate, client, client,
		checkinservice.WithLogger(log),
		checkinservice.WithOfflineQueue(queue),
		checkinservice.WithTickets(tickets),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &agent{
		cfg:         cfg,
		log:         log,
		userID:      userID,
		db:          db,
		client:      client,
		queue:       queue,
		tickets:     tickets,
		coordinator: coordinator,
	}, nil
}

func (a *agent) Close() {
	if a.closed {
		return
	}
	a.closed = true
	if err := a.db.Close(); err != nil {
		a.log.Warn("failed to close agent database", "error", err)
	}
}
