package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmsoft/invoiceflow/internal/config"
	"github.com/mmsoft/invoiceflow/internal/export/xlsx"
	"github.com/mmsoft/invoiceflow/internal/infrastructure/repository/postgres"
	"github.com/mmsoft/invoiceflow/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("export", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		logger.Error("open postgres failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := postgres.NewStore(db)
	rows, err := store.ListLatestExtractions(ctx)
	if err != nil {
		logger.Error("list extractions failed", "error", err)
		os.Exit(1)
	}

	data, err := xlsx.NewWriter(logger).Build(rows)
	if err != nil {
		logger.Error("workbook build failed", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(cfg.ExportPath, data, 0o644); err != nil {
		logger.Error("write workbook failed", "error", err)
		os.Exit(1)
	}
	logger.Info("workbook written", "path", cfg.ExportPath, "invoices", len(rows))
}
