package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kirillkom/knowledge-retrieval/internal/bootstrap"
	"github.com/kirillkom/knowledge-retrieval/internal/config"
	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/observability/logging"
	"github.com/kirillkom/knowledge-retrieval/internal/observability/metrics"
)

const runTimeout = 30 * time.Minute

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.NewJSONLogger("knowledge-worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ingestMetrics := metrics.NewIngestMetrics("knowledge-worker")
	app, err := bootstrap.New(cfg, logger, bootstrap.WithBreakerObserver(ingestMetrics.SetBreakerState))
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	ingestor, err := app.NewIngestor(ingestMetrics)
	if err != nil {
		logger.Error("ingest_refused", "error", err)
		os.Exit(1)
	}
	queue, err := app.NewQueue()
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer queue.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           ingestMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = queue.SubscribeIngestRequested(ctx, func(handlerCtx context.Context, req domain.IngestRequest) error {
		if !req.RequestedAt.IsZero() {
			ingestMetrics.ObserveQueueLag(time.Since(req.RequestedAt))
		}
		runCtx, cancel := context.WithTimeout(handlerCtx, runTimeout)
		defer cancel()

		ingestMetrics.StartRun()
		started := time.Now()
		report, err := ingestor.Run(runCtx)
		ingestMetrics.FinishRun(time.Since(started), err)
		if err != nil {
			return err
		}
		logger.Info("ingest_run_finished",
			"reason", req.Reason,
			"documents", report.Documents,
			"chunks", report.Chunks,
		)
		return nil
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
	}
}
