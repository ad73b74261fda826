package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mmsoft/invoiceflow/internal/core/domain"
	"github.com/mmsoft/invoiceflow/internal/core/ports"
)

// FetchMessagesUseCase pulls matching mail from the document source,
// persists messages with their PDF attachments and announces each
// stored attachment on the queue.
type FetchMessagesUseCase struct {
	source ports.DocumentSource
	store  ports.DocumentStore
	queue  ports.MessageQueue
	user   string
	logger *slog.Logger
}

func NewFetchMessagesUseCase(
	source ports.DocumentSource,
	store ports.DocumentStore,
	queue ports.MessageQueue,
	user string,
	logger *slog.Logger,
) *FetchMessagesUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &FetchMessagesUseCase{
		source: source,
		store:  store,
		queue:  queue,
		user:   user,
		logger: logger,
	}
}

// FetchResult summarizes one fetch run.
type FetchResult struct {
	Messages    int
	Attachments int
}

func (uc *FetchMessagesUseCase) Run(ctx context.Context, query string) (FetchResult, error) {
	messages, err := uc.source.FetchDocuments(ctx, query)
	if err != nil {
		return FetchResult{}, fmt.Errorf("fetch documents: %w", err)
	}

	var result FetchResult
	now := time.Now().UTC()

	for _, mail := range messages {
		date := mail.Date
		if date == "" {
			date = "unknown"
		}
		uid := domain.MessageUID(mail.MessageID, date, uc.user)

		msg := domain.Message{
			UID:            uid,
			MessageID:      mail.MessageID,
			User:           uc.user,
			Date:           date,
			From:           mail.From,
			Subject:        mail.Subject,
			PlainText:      mail.PlainText,
			HTML:           mail.HTML,
			HasAttachments: len(mail.Attachments) > 0,
			CreatedAt:      now,
		}
		if err := uc.store.UpsertMessage(ctx, msg); err != nil {
			return result, fmt.Errorf("upsert message %s: %w", uid, err)
		}
		result.Messages++

		for _, att := range mail.Attachments {
			if len(att.Data) == 0 {
				uc.logger.Warn("skipping attachment without data",
					"message_uid", uid, "filename", att.Filename)
				continue
			}
			stored := domain.Attachment{
				ID:          uuid.NewString(),
				MessageUID:  uid,
				Filename:    att.Filename,
				Data:        att.Data,
				ContentKind: domain.ContentUnknown,
				CreatedAt:   now,
			}
			if err := uc.store.InsertAttachment(ctx, stored); err != nil {
				return result, fmt.Errorf("insert attachment %q: %w", att.Filename, err)
			}
			if err := uc.queue.PublishAttachmentStored(ctx, stored.ID); err != nil {
				return result, fmt.Errorf("publish attachment event: %w", err)
			}
			result.Attachments++
		}

		uc.logger.Info("message stored",
			"uid", uid, "message_id", mail.MessageID, "attachments", len(mail.Attachments))
	}

	return result, nil
}
