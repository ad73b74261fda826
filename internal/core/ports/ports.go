package ports

import (
	"context"

	"github.com/mmsoft/invoiceflow/internal/core/domain"
)

// DocumentSource fetches mail messages carrying PDF attachments from an
// upstream mailbox. Implementations own pagination and rate limiting.
type DocumentSource interface {
	FetchDocuments(ctx context.Context, query string) ([]domain.MailMessage, error)
}

// DocumentStore persists messages, attachments and extraction results.
type DocumentStore interface {
	UpsertMessage(ctx context.Context, msg domain.Message) error
	InsertAttachment(ctx context.Context, att domain.Attachment) error
	GetAttachment(ctx context.Context, id string) (domain.Attachment, error)
	ListPendingAttachments(ctx context.Context) ([]domain.Attachment, error)
	ListTextAttachments(ctx context.Context) ([]domain.Attachment, error)
	RecordClassification(ctx context.Context, attachmentID string, verdict domain.Verdict) error
	RecordExtraction(ctx context.Context, attachmentID string, source domain.ExtractionSource, record *domain.InvoiceRecord) error
	Counts(ctx context.Context) (domain.StoreCounts, error)
}

// Classifier decides whether a PDF is textual, scanned or unreadable.
// Classification is pure: identical bytes produce identical verdicts.
type Classifier interface {
	Classify(data []byte) domain.Verdict
}

// InvoiceExtractor turns extracted document text into a structured record.
type InvoiceExtractor interface {
	Extract(ctx context.Context, text string) (*domain.InvoiceRecord, error)
}

// MessageQueue carries stored-attachment notifications from the fetcher
// to the worker.
type MessageQueue interface {
	PublishAttachmentStored(ctx context.Context, attachmentID string) error
	SubscribeAttachmentStored(ctx context.Context, handler func(ctx context.Context, attachmentID string) error) error
	Close() error
}
