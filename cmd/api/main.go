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

	httpadapter "github.com/kirillkom/knowledge-retrieval/internal/adapters/http"
	"github.com/kirillkom/knowledge-retrieval/internal/bootstrap"
	"github.com/kirillkom/knowledge-retrieval/internal/config"
	"github.com/kirillkom/knowledge-retrieval/internal/observability/logging"
	"github.com/kirillkom/knowledge-retrieval/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.NewJSONLogger("knowledge-api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("knowledge-api")
	app, err := bootstrap.New(cfg, logger, bootstrap.WithBreakerObserver(httpMetrics.SetBreakerState))
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}

	router := httpadapter.NewRouter(app.QueryUC, httpMetrics, logger).Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: time.Duration(cfg.EmbeddingTimeoutSeconds+15) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}
