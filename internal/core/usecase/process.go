package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmsoft/invoiceflow/internal/core/domain"
	"github.com/mmsoft/invoiceflow/internal/core/ports"
)

// ProcessAttachmentUseCase runs classify-then-extract for one stored
// attachment. Extraction is model-first: the heuristic engine only runs
// for a document whose model call failed, and never as a retry of a
// model that already answered.
type ProcessAttachmentUseCase struct {
	store      ports.DocumentStore
	classifier ports.Classifier
	model      ports.InvoiceExtractor // nil when the heuristics backend is selected
	fallback   ports.InvoiceExtractor
	logger     *slog.Logger
}

func NewProcessAttachmentUseCase(
	store ports.DocumentStore,
	classifier ports.Classifier,
	model ports.InvoiceExtractor,
	fallback ports.InvoiceExtractor,
	logger *slog.Logger,
) *ProcessAttachmentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessAttachmentUseCase{
		store:      store,
		classifier: classifier,
		model:      model,
		fallback:   fallback,
		logger:     logger,
	}
}

// Outcome reports what one processing pass did, for metrics and logs.
type Outcome struct {
	AttachmentID string
	Kind         domain.ContentKind
	Extracted    bool
	Source       domain.ExtractionSource
	FilledFields int
	TotalFields  int
}

func (uc *ProcessAttachmentUseCase) ProcessByID(ctx context.Context, attachmentID string) (Outcome, error) {
	att, err := uc.store.GetAttachment(ctx, attachmentID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load attachment: %w", err)
	}

	verdict := uc.classifier.Classify(att.Data)
	if err := uc.store.RecordClassification(ctx, att.ID, verdict); err != nil {
		return Outcome{}, fmt.Errorf("record classification: %w", err)
	}

	outcome := Outcome{AttachmentID: att.ID, Kind: verdict.Kind}
	switch verdict.Kind {
	case domain.ContentScanned:
		uc.logger.Info("attachment is a scanned document, no text to extract",
			"attachment_id", att.ID, "filename", att.Filename)
		return outcome, nil
	case domain.ContentError:
		uc.logger.Warn("attachment is not a readable document",
			"attachment_id", att.ID, "filename", att.Filename, "reason", verdict.Reason)
		return outcome, nil
	}

	record, source, err := uc.extract(ctx, verdict.Text)
	if err != nil {
		return outcome, err
	}

	if err := uc.store.RecordExtraction(ctx, att.ID, source, record); err != nil {
		return outcome, fmt.Errorf("record extraction: %w", err)
	}

	filled, total := record.Coverage()
	outcome.Extracted = true
	outcome.Source = source
	outcome.FilledFields = filled
	outcome.TotalFields = total

	uc.logger.Info("extraction recorded",
		"attachment_id", att.ID,
		"source", string(source),
		"filled_fields", filled,
		"total_fields", total,
	)
	return outcome, nil
}

// extract runs the model when one is configured and falls back to the
// heuristic engine for this document on any per-document model failure.
// Batch-fatal misconfiguration propagates instead of degrading.
func (uc *ProcessAttachmentUseCase) extract(ctx context.Context, text string) (*domain.InvoiceRecord, domain.ExtractionSource, error) {
	if uc.model != nil {
		record, err := uc.model.Extract(ctx, text)
		if err == nil {
			return record, domain.SourceLLM, nil
		}
		if domain.BatchFatal(err) {
			return nil, "", err
		}
		uc.logger.Warn("model extraction failed, falling back to heuristics", "error", err)
	}

	record, err := uc.fallback.Extract(ctx, text)
	if err != nil {
		return nil, "", fmt.Errorf("heuristic extraction: %w", err)
	}
	return record, domain.SourceHeuristic, nil
}

// ProcessPending drains the backlog of attachments that never went
// through the pipeline, stopping only on batch-fatal errors.
func (uc *ProcessAttachmentUseCase) ProcessPending(ctx context.Context) (int, error) {
	pending, err := uc.store.ListPendingAttachments(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending attachments: %w", err)
	}

	processed := 0
	for _, att := range pending {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if _, err := uc.ProcessByID(ctx, att.ID); err != nil {
			if domain.BatchFatal(err) {
				return processed, err
			}
			uc.logger.Warn("attachment processing failed",
				"attachment_id", att.ID, "error", err)
			continue
		}
		processed++
	}
	return processed, nil
}
