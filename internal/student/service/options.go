package service

import (
	"context"
	"log/slog"

	"edugrant/internal/platform/metrics"
	audit "edugrant/pkg/platform/audit"
	"edugrant/pkg/platform/clock"
	"edugrant/pkg/platform/tx"
)

// StoreTx runs mutations atomically and queries against a consistent snapshot.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	View(ctx context.Context, fn func(ctx context.Context) error) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type serviceConfig struct {
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tx             StoreTx
	clock          clock.Clock
}

type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(c *serviceConfig) {
		c.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

// WithTx shares a transaction coordinator with the other ledger services.
func WithTx(t StoreTx) Option {
	return func(c *serviceConfig) {
		c.tx = t
	}
}

func WithClock(c clock.Clock) Option {
	return func(cfg *serviceConfig) {
		cfg.clock = c
	}
}

func (c *serviceConfig) applyDefaults() {
	if c.tx == nil {
		c.tx = tx.NewCoordinator()
	}
	if c.clock == nil {
		c.clock = clock.System{}
	}
}
