package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TickerPulse/internal/domain/repository"
	"TickerPulse/internal/service/ratelimit"
	"TickerPulse/internal/usecase"
	"TickerPulse/pkg/cache"
	pkgch "TickerPulse/pkg/clickhouse"
	"TickerPulse/pkg/config"
	xhttp "TickerPulse/pkg/http"
	pkgkafka "TickerPulse/pkg/kafka"
	applogger "TickerPulse/pkg/logger"
)

const (
	limiterPruneEvery = time.Minute
	limiterIdle       = 10 * time.Minute
)

// Components are the long-running parts of the application. Any of them may
// be nil when its mode is disabled.
type Components struct {
	Runner     *usecase.ReportRunner
	Windows    *usecase.LiveWindows
	Collector  *usecase.SnapshotCollector
	Consumer   *pkgkafka.Consumer
	Handlers   []pkgkafka.MessageHandler
	Producer   *pkgkafka.Producer
	Publisher  repository.Publisher
	Storage    repository.Storage
	ClickHouse *pkgch.Client
	Cache      cache.Service
	Limiter    *ratelimit.Limiter
	HTTPServer *xhttp.Server
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg *config.Config
	log *applogger.Logger
	c   Components
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, log *applogger.Logger, c Components) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{cfg: cfg, log: log, c: c}
}

// Run starts every enabled component and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.start(ctx); err != nil {
		stop()
		a.shutdown()
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	a.shutdown()
	return nil
}

// RunReport performs a single report run over the configured source and
// shuts down. The live window and HTTP surfaces are not started.
func (a *App) RunReport() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer a.shutdown()

	if a.c.Runner == nil {
		return errors.New("report runner is not configured")
	}
	_, err := a.c.Runner.Run(ctx)
	return err
}

func (a *App) start(ctx context.Context) error {
	if a.cfg.Log.Collector.Enabled && a.c.Producer != nil {
		a.log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   a.cfg.Log.Collector.Interval,
			CountThreshold: a.cfg.Log.Collector.CountThreshold,
			Topic:          a.cfg.Kafka.Topics.Logs,
			Publisher:      a.c.Producer,
		})
	}

	if a.c.Consumer != nil && len(a.c.Handlers) > 0 {
		topics := make([]string, 0, len(a.c.Handlers))
		for _, h := range a.c.Handlers {
			a.c.Consumer.RegisterHandler(h)
			topics = append(topics, h.Topic())
		}
		if err := a.c.Consumer.Start(); err != nil {
			return err
		}
		a.log.Info("kafka consumer started", applogger.Strings("topics", topics))
	}

	if a.c.Collector != nil {
		if err := a.c.Collector.Start(ctx); err != nil {
			// windows keep serving whatever arrives over Kafka
			a.log.Error("quote feed unavailable", applogger.Error(err))
		} else {
			a.log.Info("quote feed connected")
		}
	}

	if a.c.Windows != nil && a.c.Windows.Len() > 0 {
		a.c.Windows.Start(ctx)
		a.log.Info("live windows started",
			applogger.Strings("symbols", a.cfg.Window.Symbols),
			applogger.Duration("delay", a.cfg.Window.Delay))
	}

	if a.c.Runner != nil && (a.cfg.Report.Source != "" || a.cfg.Report.Schedule != "") {
		if err := a.c.Runner.Start(ctx); err != nil {
			return err
		}
		a.log.Info("report runner started", applogger.String("schedule", a.cfg.Report.Schedule))
	}

	if a.c.HTTPServer != nil {
		if err := a.c.HTTPServer.Start(); err != nil {
			a.log.Error("http server start error", applogger.Error(err))
			return err
		}
		if a.c.Limiter != nil {
			go a.pruneLimiter(ctx)
		}
	}
	return nil
}

func (a *App) pruneLimiter(ctx context.Context) {
	t := time.NewTicker(limiterPruneEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.c.Limiter.Prune(limiterIdle); n > 0 {
				a.log.Debug("pruned idle rate limit buckets", applogger.Int("count", n))
			}
		}
	}
}

// shutdown stops producers of work before the sinks they write to.
func (a *App) shutdown() {
	a.log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	warn := func(what string, err error) {
		if err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn(what+" stop error", applogger.Error(err))
		}
	}

	if a.c.Runner != nil {
		warn("report runner", a.c.Runner.Stop(ctx))
	}
	if a.c.Windows != nil {
		warn("live windows", a.c.Windows.Stop(ctx))
	}
	if a.c.Collector != nil {
		warn("quote feed", a.c.Collector.Shutdown(ctx))
	}
	if a.c.Consumer != nil {
		warn("kafka consumer", a.c.Consumer.Stop(ctx))
	}
	if a.c.HTTPServer != nil {
		warn("http server", a.c.HTTPServer.Stop(ctx))
	}

	// flushes pending aggregated logs through the producer
	a.log.RemoveCollector()

	// the publisher owns the producer when both exist
	switch {
	case a.c.Publisher != nil:
		warn("publisher", a.c.Publisher.Close())
	case a.c.Producer != nil:
		warn("kafka producer", a.c.Producer.Close())
	}
	if a.c.Storage != nil {
		warn("storage", a.c.Storage.Close())
	}
	if a.c.ClickHouse != nil {
		warn("clickhouse", a.c.ClickHouse.Close())
	}
	if a.c.Cache != nil {
		warn("cache", a.c.Cache.Close())
	}

	a.log.Info("shutdown complete")
}
