package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mmsoft/invoiceflow/internal/core/domain"
)

func newID() string { return uuid.NewString() }

// Store persists messages, attachment blobs and extraction results.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across fetcher/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026081501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS messages (
	uid TEXT PRIMARY KEY,
	message_id TEXT NOT NULL,
	mail_user TEXT NOT NULL,
	date TEXT NOT NULL,
	from_addr TEXT,
	subject TEXT,
	plain_text TEXT,
	html TEXT,
	has_attachments BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS attachments (
	id TEXT PRIMARY KEY,
	message_uid TEXT NOT NULL REFERENCES messages(uid) ON DELETE CASCADE,
	filename TEXT NOT NULL,
	data BYTEA NOT NULL,
	content_kind TEXT NOT NULL DEFAULT 'unknown',
	classify_error TEXT,
	extracted_text TEXT,
	processed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS extractions (
	id TEXT PRIMARY KEY,
	attachment_id TEXT NOT NULL REFERENCES attachments(id) ON DELETE CASCADE,
	source TEXT NOT NULL,
	record JSONB NOT NULL,
	filled_fields INTEGER NOT NULL,
	total_fields INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attachments_processed ON attachments(processed);
CREATE INDEX IF NOT EXISTS idx_attachments_content_kind ON attachments(content_kind);
CREATE INDEX IF NOT EXISTS idx_extractions_attachment ON extractions(attachment_id, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// UpsertMessage keeps re-fetched messages idempotent on their derived
// uid.
func (s *Store) UpsertMessage(ctx context.Context, msg domain.Message) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO messages (uid, message_id, mail_user, date, from_addr, subject, plain_text, html, has_attachments, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (uid) DO UPDATE SET
	from_addr = EXCLUDED.from_addr,
	subject = EXCLUDED.subject,
	plain_text = EXCLUDED.plain_text,
	html = EXCLUDED.html,
	has_attachments = EXCLUDED.has_attachments
`,
		msg.UID, msg.MessageID, msg.User, msg.Date, msg.From, msg.Subject,
		msg.PlainText, msg.HTML, msg.HasAttachments, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}
	return nil
}

func (s *Store) InsertAttachment(ctx context.Context, att domain.Attachment) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO attachments (id, message_uid, filename, data, content_kind, classify_error, extracted_text, processed, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		att.ID, att.MessageUID, att.Filename, att.Data, string(att.ContentKind),
		att.ClassifyError, att.ExtractedText, att.Processed, att.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (s *Store) GetAttachment(ctx context.Context, id string) (domain.Attachment, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, message_uid, filename, data, content_kind, classify_error, extracted_text, processed, created_at
FROM attachments
WHERE id = $1
`, id)

	att, err := scanAttachment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Attachment{}, domain.WrapError(domain.ErrAttachmentNotFound, "get attachment", fmt.Errorf("id %s", id))
		}
		return domain.Attachment{}, fmt.Errorf("get attachment: %w", err)
	}
	return att, nil
}

// ListPendingAttachments returns attachments that have not been through
// the classify/extract pass yet.
func (s *Store) ListPendingAttachments(ctx context.Context) ([]domain.Attachment, error) {
	return s.listAttachments(ctx, `
SELECT id, message_uid, filename, data, content_kind, classify_error, extracted_text, processed, created_at
FROM attachments
WHERE processed = FALSE
ORDER BY created_at
`)
}

// ListTextAttachments returns attachments already classified as textual,
// with their extracted text.
func (s *Store) ListTextAttachments(ctx context.Context) ([]domain.Attachment, error) {
	return s.listAttachments(ctx, `
SELECT id, message_uid, filename, data, content_kind, classify_error, extracted_text, processed, created_at
FROM attachments
WHERE content_kind = 'text'
ORDER BY created_at
`)
}

func (s *Store) listAttachments(ctx context.Context, query string) ([]domain.Attachment, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var out []domain.Attachment
	for rows.Next() {
		att, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		out = append(out, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return out, nil
}

// RecordClassification stores the verdict and marks the attachment
// processed so the pending listing converges.
func (s *Store) RecordClassification(ctx context.Context, attachmentID string, verdict domain.Verdict) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE attachments
SET content_kind = $2, classify_error = $3, extracted_text = $4, processed = TRUE
WHERE id = $1
`,
		attachmentID, string(verdict.Kind), verdict.Reason, verdict.Text,
	)
	if err != nil {
		return fmt.Errorf("record classification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record classification rows: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrAttachmentNotFound, "record classification", fmt.Errorf("id %s", attachmentID))
	}
	return nil
}

func (s *Store) RecordExtraction(ctx context.Context, attachmentID string, source domain.ExtractionSource, record *domain.InvoiceRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal extraction record: %w", err)
	}
	filled, total := record.Coverage()

	_, err = s.db.ExecContext(ctx, `
INSERT INTO extractions (id, attachment_id, source, record, filled_fields, total_fields, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		newID(), attachmentID, string(source), payload, filled, total, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert extraction: %w", err)
	}
	return nil
}

func (s *Store) Counts(ctx context.Context) (domain.StoreCounts, error) {
	var counts domain.StoreCounts
	row := s.db.QueryRowContext(ctx, `
SELECT
	(SELECT COUNT(*) FROM messages),
	(SELECT COUNT(*) FROM attachments),
	(SELECT COUNT(*) FROM attachments WHERE processed = TRUE)
`)
	if err := row.Scan(&counts.Messages, &counts.Attachments, &counts.ProcessedAttachments); err != nil {
		return domain.StoreCounts{}, fmt.Errorf("count rows: %w", err)
	}
	return counts, nil
}

// ExtractionRow is one exported extraction joined with its attachment.
type ExtractionRow struct {
	AttachmentID string
	Filename     string
	Source       domain.ExtractionSource
	Record       domain.InvoiceRecord
	FilledFields int
	TotalFields  int
	CreatedAt    time.Time
}

// ListLatestExtractions returns the newest extraction per attachment,
// regardless of which engine produced it.
func (s *Store) ListLatestExtractions(ctx context.Context) ([]ExtractionRow, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT DISTINCT ON (e.attachment_id)
	e.attachment_id, a.filename, e.source, e.record, e.filled_fields, e.total_fields, e.created_at
FROM extractions e
JOIN attachments a ON a.id = e.attachment_id
ORDER BY e.attachment_id, e.created_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list extractions: %w", err)
	}
	defer rows.Close()

	var out []ExtractionRow
	for rows.Next() {
		var (
			row     ExtractionRow
			source  string
			payload []byte
		)
		if err := rows.Scan(&row.AttachmentID, &row.Filename, &source, &payload,
			&row.FilledFields, &row.TotalFields, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan extraction: %w", err)
		}
		if err := json.Unmarshal(payload, &row.Record); err != nil {
			return nil, fmt.Errorf("unmarshal extraction record: %w", err)
		}
		row.Source = domain.ExtractionSource(source)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate extractions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttachment(row rowScanner) (domain.Attachment, error) {
	var (
		att           domain.Attachment
		kind          string
		classifyError sql.NullString
		extractedText sql.NullString
	)
	err := row.Scan(&att.ID, &att.MessageUID, &att.Filename, &att.Data, &kind,
		&classifyError, &extractedText, &att.Processed, &att.CreatedAt)
	if err != nil {
		return domain.Attachment{}, err
	}
	att.ContentKind = domain.ContentKind(kind)
	att.ClassifyError = classifyError.String
	att.ExtractedText = extractedText.String
	return att, nil
}
