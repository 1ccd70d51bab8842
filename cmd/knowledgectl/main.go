package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kirillkom/knowledge-retrieval/internal/adapters/cli"
	"github.com/kirillkom/knowledge-retrieval/internal/bootstrap"
	"github.com/kirillkom/knowledge-retrieval/internal/config"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
	"github.com/kirillkom/knowledge-retrieval/internal/observability/logging"
)

var version = "dev"

// runtime bootstraps the application once, on the first command that needs it.
type runtime struct {
	cfg    config.Config
	logger *slog.Logger

	once sync.Once
	app  *bootstrap.App
	err  error
}

func (r *runtime) load() (*bootstrap.App, error) {
	r.once.Do(func() {
		r.app, r.err = bootstrap.New(r.cfg, r.logger)
	})
	return r.app, r.err
}

func (r *runtime) Searcher() (ports.KnowledgeSearcher, error) {
	app, err := r.load()
	if err != nil {
		return nil, err
	}
	return app.QueryUC, nil
}

func (r *runtime) Ingestor() (ports.KnowledgeIngestor, error) {
	app, err := r.load()
	if err != nil {
		return nil, err
	}
	return app.NewIngestor(nil)
}

func (r *runtime) Queue() (ports.IngestQueue, func(), error) {
	app, err := r.load()
	if err != nil {
		return nil, nil, err
	}
	queue, err := app.NewQueue()
	if err != nil {
		return nil, nil, err
	}
	return queue, queue.Close, nil
}

func (r *runtime) Logger() *slog.Logger {
	return r.logger
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	rt := &runtime{
		cfg:    cfg,
		logger: logging.NewJSONLoggerTo(os.Stderr, "knowledgectl", cfg.LogLevel),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(rt, version)
	root.SetOut(os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
