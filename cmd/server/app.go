package main

import (
	"context"
	"fmt"

	"campaign-automator-api/internal/automation"
	"campaign-automator-api/internal/config"
	"campaign-automator-api/internal/logger"
	"campaign-automator-api/internal/metrics"
	"campaign-automator-api/internal/notify"
	"campaign-automator-api/internal/store"

	"go.uber.org/zap"
)

// bootstrap laadt configuratie en logger, gedeeld door alle commando's.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.NewLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("could not initialize logger: %w", err)
	}
	return cfg, log, nil
}

// buildSink always logs; Gmail and NATS are added when configured.
// The returned close func drains the NATS connection.
func buildSink(ctx context.Context, cfg *config.Config, log *zap.Logger) (notify.Sink, func(), error) {
	sinks := []notify.Sink{notify.NewLogSink(log)}
	closeFn := func() {}

	if cfg.Gmail.Enabled() {
		gmailSink, err := notify.NewGmailSink(ctx, cfg.Gmail, log)
		if err != nil {
			return nil, closeFn, fmt.Errorf("could not set up gmail sink: %w", err)
		}
		sinks = append(sinks, gmailSink)
	}

	if cfg.NATS.URL != "" {
		conn, err := notify.ConnectNATS(cfg.NATS.URL, log)
		if err != nil {
			return nil, closeFn, err
		}
		sinks = append(sinks, notify.NewNATSSink(conn, cfg.NATS.SubjectPrefix))
		closeFn = func() {
			if err := conn.Drain(); err != nil {
				log.Warn("could not drain NATS connection", zap.Error(err))
			}
		}
	}

	return notify.Multi(sinks...), closeFn, nil
}

func newRunner(cfg *config.Config, s store.Storer, sink notify.Sink, m *metrics.Metrics, log *zap.Logger) *automation.Runner {
	return automation.NewRunner(s, sink, m, log, automation.Options{
		Concurrency:  cfg.Automation.Concurrency,
		RuleTimeout:  cfg.Automation.RuleTimeout,
		BatchTimeout: cfg.Automation.BatchTimeout,
		Location:     cfg.Automation.Location,
	})
}
