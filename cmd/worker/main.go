package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mmsoft/invoiceflow/internal/bootstrap"
	"github.com/mmsoft/invoiceflow/internal/config"
	"github.com/mmsoft/invoiceflow/internal/core/domain"
	"github.com/mmsoft/invoiceflow/internal/observability/logging"
	"github.com/mmsoft/invoiceflow/internal/observability/metrics"
)

const service = "worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(service, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	processor, err := app.Processor(ctx)
	if err != nil {
		logger.Error("processor setup failed", "error", err)
		os.Exit(1)
	}

	m := metrics.NewPipelineMetrics(service)
	metricsSrv := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: m.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	handle := func(handlerCtx context.Context, attachmentID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		m.StartAttachment()
		start := time.Now()
		outcome, err := processor.ProcessByID(processCtx, attachmentID)
		m.FinishAttachment(service, time.Since(start), err)
		if err != nil {
			if domain.BatchFatal(err) {
				logger.Error("fatal extraction configuration, stopping worker", "error", err)
				stop()
			}
			return err
		}
		m.ObserveVerdict(service, string(outcome.Kind))
		if outcome.Extracted {
			m.ObserveExtraction(service, string(outcome.Source), nil)
			m.ObserveCoverage(outcome.FilledFields)
		}
		return nil
	}

	// Attachments stored while no worker was running never got a queue
	// delivery, so drain that backlog before subscribing.
	processed, err := processor.ProcessPending(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("backlog drain failed", "error", err)
		os.Exit(1)
	}
	logger.Info("backlog drained", "processed", processed)

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	if err := app.Queue.SubscribeAttachmentStored(ctx, handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("subscription failed", "error", err)
		os.Exit(1)
	}
}
