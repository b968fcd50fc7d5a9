package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	eventports "presence/internal/event/ports"
	eventmemory "presence/internal/event/store/memory"
	eventpostgres "presence/internal/event/store/postgres"
	ledgerports "presence/internal/ledger/ports"
	ledgermemory "presence/internal/ledger/store/memory"
	ledgerpostgres "presence/internal/ledger/store/postgres"
	"presence/internal/platform/config"
	"presence/internal/platform/postgres"
	"presence/internal/platform/redis"
	rateports "presence/internal/ratelimit/ports"
	"presence/internal/ratelimit/store/attempts"
	audit "presence/pkg/platform/audit"
	"presence/pkg/platform/audit/publisher"
	"presence/pkg/platform/audit/sink/kafka"
	auditpostgres "presence/pkg/platform/audit/store/postgres"
)

const auditBufferSize = 1024

// infra holds the stores and connections chosen from configuration:
// Postgres or memory for events and the ledger, Redis or memory for
// rate-limit attempts. Audit events are stored in Postgres when it is
// configured and forwarded to the optional Kafka sink.
type infra struct {
	db       *sql.DB
	redis    *redis.Client
	sink     *kafka.Sink
	audit    *publisher.Publisher
	events   eventports.Store
	ledger   ledgerports.Store
	attempts rateports.AttemptStore
}

func openInfra(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	in := &infra{}

	if cfg.DatabaseURL != "" {
		db, err := postgres.OpenAndMigrate(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		in.db = db
		in.events = eventpostgres.New(db)
		in.ledger = ledgerpostgres.New(db)
		log.Info("using postgres stores")
	} else {
		in.events = eventmemory.NewInMemoryStore()
		in.ledger = ledgermemory.NewInMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if client != nil {
		in.redis = client
		in.attempts = attempts.NewRedis(client.Client)
		log.Info("using redis attempt store")
	} else {
		in.attempts = attempts.NewInMemory()
	}

	opts := []publisher.Option{
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithLogger(log),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := kafka.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("connect kafka audit sink: %w", err)
		}
		in.sink = sink
		opts = append(opts, publisher.WithSink(sink))
		log.Info("forwarding audit events to kafka", "topic", cfg.Kafka.AuditTopic)
	}
	var auditStore audit.Store
	if in.db != nil {
		auditStore = auditpostgres.New(in.db)
	}
	in.audit = publisher.NewPublisher(auditStore, opts...)
	return in, nil
}

// Health pings the external dependencies that are configured.
func (in *infra) Health(ctx context.Context) error {
	if in.db != nil {
		if err := in.db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if in.redis != nil {
		if err := in.redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close drains the audit buffer before closing the sink it feeds.
func (in *infra) Close() {
	if in.audit != nil {
		in.audit.Close()
	}
	if in.sink != nil {
		in.sink.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}
