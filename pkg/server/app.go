package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ElemPulse/internal/usecase"
	pkgch "ElemPulse/pkg/clickhouse"
	"ElemPulse/pkg/config"
	xhttp "ElemPulse/pkg/http"
	pkgkafka "ElemPulse/pkg/kafka"
	applogger "ElemPulse/pkg/logger"
	"ElemPulse/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	l           *applogger.Logger
	collector   *usecase.TelemetryCollector
	consumer    *pkgkafka.Consumer
	khs         []pkgkafka.MessageHandler
	chClient    *pkgch.Client
	sync        *usecase.SnapshotSync
	deferred    *queue.RedisQueue
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	Proc        *usecase.TelemetryProcessor
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.TelemetryCollector,
	consumer *pkgkafka.Consumer,
	chClient *pkgch.Client,
	sync *usecase.SnapshotSync,
	deferred *queue.RedisQueue,
) *App {
	return &App{
		cfg:       cfg,
		l:         l,
		collector: collector,
		consumer:  consumer,
		chClient:  chClient,
		sync:      sync,
		deferred:  deferred,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// RegisterKafkaHandlers attaches topic handlers for the consumer.
func (a *App) RegisterKafkaHandlers(hs ...pkgkafka.MessageHandler) {
	for _, h := range hs {
		if h != nil {
			a.khs = append(a.khs, h)
		}
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.l

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start collector
	go func() {
		if err := a.collector.Start(ctx); err != nil {
			l.Error("collector error", applogger.Error(err))
		}
	}()
	l.Info("collector started", applogger.Strings("entities", a.cfg.Stream.Entities))

	// Start consumer if configured
	if a.consumer != nil && len(a.khs) > 0 {
		for _, h := range a.khs {
			a.consumer.RegisterHandler(h)
			l.Info("kafka handler registered", applogger.String("topic", h.Topic()))
		}
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started")
	}

	// Start deferred persistence queue
	if a.deferred != nil {
		if err := a.deferred.Start(); err != nil {
			l.Warn("deferred queue start error", applogger.Error(err))
		} else {
			a.deferred.StartRetryProcessor()
			l.Info("deferred queue started")
		}
	}

	// Start periodic snapshot sync
	if a.sync != nil {
		if err := a.sync.Start(); err != nil {
			l.Warn("snapshot sync start error", applogger.Error(err))
		} else {
			l.Info("snapshot sync started", applogger.String("spec", a.cfg.Sync.Spec))
		}
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.l
	l.Info("shutting down...")

	// Stop collector (pipeline + stream)
	if err := a.collector.Shutdown(ctx); err != nil {
		l.Warn("collector stop error", applogger.Error(err))
	}

	// Stop periodic sync before the store goes away
	if a.sync != nil {
		a.sync.Stop()
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Stop deferred queue
	if a.deferred != nil {
		if err := a.deferred.Stop(shutdownCtx); err != nil {
			l.Warn("deferred queue stop error", applogger.Error(err))
		}
	}

	// Close telemetry processor resources (publisher/storage)
	if a.Proc != nil {
		a.Proc.Close()
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
