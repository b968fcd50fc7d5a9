package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"presence/internal/checkin/handler"
	checkinmetrics "presence/internal/checkin/metrics"
	checkinservice "presence/internal/checkin/service"
	"presence/internal/checkin/ticket"
	eventservice "presence/internal/event/service"
	ledgermetrics "presence/internal/ledger/metrics"
	ledgerservice "presence/internal/ledger/service"
	"presence/internal/platform/config"
	"presence/internal/platform/httpserver"
	"presence/internal/platform/logger"
	"presence/internal/platform/metrics"
	ratemetrics "presence/internal/ratelimit/metrics"
	rateservice "presence/internal/ratelimit/service"
	"presence/internal/ratelimit/threshold"
	"presence/internal/verification/scantoken"
	"presence/pkg/platform/circuit"
	"presence/pkg/platform/httputil"
	"presence/pkg/platform/middleware/metadata"
	"presence/pkg/platform/middleware/request"
	"presence/pkg/platform/middleware/requesttime"
)

const shutdownTimeout = 10 * time.Second

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	// A .env file is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	m := metrics.New()

	infra, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	events, err := eventservice.New(infra.events,
		eventservice.WithLogger(log),
		eventservice.WithMasterSecret([]byte(cfg.CodeMasterSecret)),
	)
	if err != nil {
		return err
	}
	ledger, err := ledgerservice.New(infra.ledger,
		ledgerservice.WithLogger(log),
		ledgerservice.WithAuditPublisher(infra.audit),
		ledgerservice.WithMetrics(ledgermetrics.New(m.Registry)),
	)
	if err != nil {
		return err
	}
	gate, err := rateservice.New(infra.attempts,
		rateservice.WithLogger(log),
		rateservice.WithAuditPublisher(infra.audit),
		rateservice.WithMetrics(ratemetrics.New(m.Registry)),
		rateservice.WithConfig(rateservice.Config{
			Window: threshold.Config{MaxAttempts: cfg.RateLimit.MaxAttempts, Window: cfg.RateLimit.Window},
			Cooldown: threshold.CooldownConfig{
				FailureThreshold: cfg.RateLimit.FailureThreshold,
				Duration:         cfg.RateLimit.Cooldown,
			},
		}),
	)
	if err != nil {
		return err
	}
	codec, err := scantoken.NewCodec(cfg.TokenSigningKey)
	if err != nil {
		return err
	}
	issuer, err := ticket.NewIssuer(cfg.TokenSigningKey, cfg.OfflineTicketTTL)
	if err != nil {
		return err
	}

	coordinator, err := checkinservice.New(gate, events, checkinservice.NewLocalLedger(ledger),
		checkinservice.WithLogger(log),
		checkinservice.WithAuditPublisher(infra.audit),
		checkinservice.WithMetrics(checkinmetrics.New(m.Registry)),
		checkinservice.WithConfig(checkinservice.Config{
			CodeTolerance: cfg.CodeTolerance,
			ClockSkew:     cfg.ClockSkew,
		}),
		checkinservice.WithTokenDecoder(codec),
		checkinservice.WithParticipantCounter(events),
		checkinservice.WithBreaker(circuit.New("ledger",
			circuit.WithFailureThreshold(cfg.Ledger.BreakerFailures),
			circuit.WithSuccessThreshold(cfg.Ledger.BreakerSuccesses),
		)),
	)
	if err != nil {
		return err
	}
	syncer, err := checkinservice.NewSyncer(issuer, ledger,
		checkinservice.WithSyncLogger(log),
		checkinservice.WithSyncAuditPublisher(infra.audit),
		checkinservice.WithParticipants(events),
		checkinservice.WithSyncClockSkew(cfg.ClockSkew),
	)
	if err != nil {
		return err
	}

	api := handler.New(handler.Services{
		CheckIns:   coordinator,
		Events:     events,
		Ledger:     ledger,
		Syncer:     syncer,
		Tickets:    issuer,
		ScanTokens: codec,
	}, log,
		handler.WithAuditPublisher(infra.audit),
		handler.WithScanTokenTTL(cfg.ScanTokenTTL),
	)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(httpserver.Instrument(m))
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := infra.Health(r.Context()); err != nil {
			log.WarnContext(r.Context(), "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	api.Register(r)

	srv := httpserver.New(cfg.Addr, r)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting presence server", "addr", cfg.Addr, "environment", cfg.Environment)
		m.Up.Set(1)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		m.Up.Set(0)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		log.Info("shutting down presence server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
