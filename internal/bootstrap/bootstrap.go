package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmsoft/invoiceflow/internal/config"
	"github.com/mmsoft/invoiceflow/internal/core/usecase"
	"github.com/mmsoft/invoiceflow/internal/infrastructure/extractor/heuristic"
	"github.com/mmsoft/invoiceflow/internal/infrastructure/extractor/llm"
	"github.com/mmsoft/invoiceflow/internal/infrastructure/pdfscan"
	"github.com/mmsoft/invoiceflow/internal/infrastructure/queue/nats"
	"github.com/mmsoft/invoiceflow/internal/infrastructure/repository/postgres"
	"github.com/mmsoft/invoiceflow/internal/infrastructure/resilience"
	"github.com/mmsoft/invoiceflow/internal/infrastructure/source/gmail"
)

// App wires the pieces both long-lived binaries share: postgres, the
// attachment queue and the parsed config file. Role-specific use cases
// hang off it so each binary only constructs what it runs.
type App struct {
	Config config.Config
	File   config.FileConfig
	Logger *slog.Logger

	Store *postgres.Store
	Queue *nats.Queue

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	file, err := config.LoadFile(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := postgres.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	return &App{
		Config: cfg,
		File:   file,
		Logger: logger,

		Store: store,
		Queue: queue,

		closeFn: func() {
			_ = queue.Close()
			_ = db.Close()
		},
	}, nil
}

// Fetcher builds the mail ingestion use case. Gmail credentials come
// from the config file and missing ones surface here, before any
// network call.
func (a *App) Fetcher() (*usecase.FetchMessagesUseCase, error) {
	source, err := gmail.NewSource(a.File.Gmail, a.Logger)
	if err != nil {
		return nil, err
	}
	return usecase.NewFetchMessagesUseCase(source, a.Store, a.Queue, a.File.Gmail.User, a.Logger), nil
}

// Processor builds the classify-then-extract use case. With the
// heuristics backend no model client exists at all; otherwise the
// endpoint is resolved and probed before the first document is touched.
func (a *App) Processor(ctx context.Context) (*usecase.ProcessAttachmentUseCase, error) {
	classifier := pdfscan.NewClassifier(pdfscan.Options{
		ScannedPageRatio: a.Config.ScannedPageRatio,
		MinTextChars:     a.Config.MinTextChars,
	})
	fallback := heuristic.NewExtractor(heuristic.DefaultOptions(), a.Logger)

	var model *llm.Extractor
	if a.File.LLM.Backend != llm.BackendHeuristics {
		endpoint, err := llm.Resolve(a.File.LLM, a.Logger)
		if err != nil {
			return nil, err
		}
		model = llm.NewExtractor(endpoint, llm.DefaultOptions(), resilience.NewExecutor(resilience.DefaultConfig()), a.Logger)
		if err := model.Preflight(ctx); err != nil {
			return nil, err
		}
		return usecase.NewProcessAttachmentUseCase(a.Store, classifier, model, fallback, a.Logger), nil
	}

	a.Logger.Info("heuristics backend selected, extraction runs without a model")
	return usecase.NewProcessAttachmentUseCase(a.Store, classifier, nil, fallback, a.Logger), nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
