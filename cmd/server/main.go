package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	httpapi "edugrant/internal/http"
	"edugrant/internal/ledger"
	"edugrant/internal/platform/config"
	"edugrant/internal/platform/httpserver"
	"edugrant/internal/platform/logger"
	"edugrant/internal/platform/metrics"
	id "edugrant/pkg/domain"
	audit "edugrant/pkg/platform/audit"
	"edugrant/pkg/platform/audit/publisher"
	auditmemory "edugrant/pkg/platform/audit/store/memory"
	auditpostgres "edugrant/pkg/platform/audit/store/postgres"
	auditsqlite "edugrant/pkg/platform/audit/store/sqlite"
)

// main wires configuration, the ledger and the ops surface, then blocks until
// SIGINT/SIGTERM. Ledger state lives in process memory.
func main() {
	configPath := flag.String("config", os.Getenv("EDUGRANT_CONFIG_PATH"), "path to a YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "edugrant: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	store, closeStore, err := openAuditStore(ctx, cfg.Audit, log)
	if err != nil {
		return err
	}
	defer closeStore()

	pubOpts := []publisher.Option{publisher.WithLogger(log)}
	if cfg.Audit.Buffer > 0 {
		pubOpts = append(pubOpts, publisher.WithAsyncBuffer(cfg.Audit.Buffer))
	}
	pub := publisher.NewPublisher(store, pubOpts...)
	// Deferred after closeStore so buffered events drain before the store closes.
	defer pub.Close()

	l, err := ledger.New(ctx, ledgerConfig(cfg.Ledger),
		ledger.WithLogger(log),
		ledger.WithMetrics(m),
		ledger.WithAuditPublisher(pub),
	)
	if err != nil {
		return fmt.Errorf("build ledger: %w", err)
	}

	srv := httpserver.New(cfg.Ops.Addr, httpapi.NewRouter(l, registry, log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.Ops.ShutdownTimeout)
	})

	log.Info("edugrant ledger started",
		"env", cfg.Env,
		"ops_addr", cfg.Ops.Addr,
		"administrator", l.Administrator(),
		"verifiers", len(cfg.Ledger.Verifiers),
	)

	if err := g.Wait(); err != nil {
		log.Error("ops server stopped", "error", err)
		return err
	}
	log.Info("edugrant ledger stopped")
	return nil
}

type closableStore interface {
	audit.Store
	Close() error
}

func openAuditStore(ctx context.Context, cfg config.Audit, log *slog.Logger) (audit.Store, func(), error) {
	var (
		store closableStore
		err   error
	)
	switch {
	case cfg.PostgresDSN != "":
		store, err = auditpostgres.Open(ctx, cfg.PostgresDSN)
		if err == nil {
			log.Info("audit events persisted to postgres")
		}
	case cfg.SQLitePath != "":
		store, err = auditsqlite.Open(cfg.SQLitePath)
		if err == nil {
			log.Info("audit events persisted to sqlite", "path", cfg.SQLitePath)
		}
	default:
		return auditmemory.NewInMemoryStore(), func() {}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open audit store: %w", err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close audit store", "error", err)
		}
	}, nil
}

func ledgerConfig(cfg config.Ledger) ledger.Config {
	verifiers := make([]id.Identity, 0, len(cfg.Verifiers))
	for _, v := range cfg.Verifiers {
		verifiers = append(verifiers, id.Identity(v))
	}
	return ledger.Config{
		Administrator:    id.Identity(cfg.Administrator),
		InitialVerifiers: verifiers,
		OpeningBalance:   id.Amount(cfg.OpeningBalance),
		Breaker: ledger.BreakerConfig{
			FailureThreshold: cfg.Custody.FailureThreshold,
			SuccessThreshold: cfg.Custody.SuccessThreshold,
			Cooldown:         cfg.Custody.Cooldown,
		},
	}
}
