package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmsoft/invoiceflow/internal/bootstrap"
	"github.com/mmsoft/invoiceflow/internal/config"
	"github.com/mmsoft/invoiceflow/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("fetcher", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	fetcher, err := app.Fetcher()
	if err != nil {
		logger.Error("fetcher setup failed", "error", err)
		os.Exit(1)
	}

	result, err := fetcher.Run(ctx, cfg.GmailQuery)
	if err != nil {
		logger.Error("fetch run failed", "error", err,
			"messages", result.Messages, "attachments", result.Attachments)
		os.Exit(1)
	}

	counts, err := app.Store.Counts(ctx)
	if err != nil {
		logger.Error("store counts failed", "error", err)
		os.Exit(1)
	}
	logger.Info("fetch run complete",
		"messages", result.Messages,
		"attachments", result.Attachments,
		"stored_messages", counts.Messages,
		"stored_attachments", counts.Attachments,
	)
}
