package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ContentKind is the classification of a stored PDF attachment.
type ContentKind string

const (
	ContentUnknown ContentKind = "unknown"
	ContentText    ContentKind = "text"
	ContentScanned ContentKind = "scanned"
	ContentError   ContentKind = "error"
)

// Verdict is the outcome of classifying one document's bytes. It is
// produced once per classification pass and never mutated; re-classifying
// unchanged bytes yields the same verdict.
type Verdict struct {
	Kind   ContentKind
	Text   string // full extracted text, set only for ContentText
	Reason string // parse failure detail, set only for ContentError
}

func TextVerdict(content string) Verdict {
	return Verdict{Kind: ContentText, Text: content}
}

func ScannedVerdict() Verdict {
	return Verdict{Kind: ContentScanned}
}

func ErrorVerdict(reason string) Verdict {
	return Verdict{Kind: ContentError, Reason: reason}
}

// Message is a stored mail message.
type Message struct {
	UID            string
	MessageID      string
	User           string
	Date           string
	From           string
	Subject        string
	PlainText      string
	HTML           string
	HasAttachments bool
	CreatedAt      time.Time
}

// Attachment is a stored PDF attachment awaiting or past classification.
type Attachment struct {
	ID            string
	MessageUID    string
	Filename      string
	Data          []byte
	ContentKind   ContentKind
	ClassifyError string
	ExtractedText string
	Processed     bool
	CreatedAt     time.Time
}

// MailMessage is a message as fetched from the document source, before
// it is assigned a UID and persisted.
type MailMessage struct {
	MessageID   string
	Date        string
	From        string
	To          string
	Subject     string
	PlainText   string
	HTML        string
	Attachments []MailAttachment
}

// MailAttachment is a PDF attachment fetched from the document source.
type MailAttachment struct {
	Filename string
	Data     []byte
}

// StoreCounts summarizes processing progress for diagnostics.
type StoreCounts struct {
	Messages             int
	Attachments          int
	ProcessedAttachments int
}

// MessageUID derives a stable identifier for a message so that repeated
// fetches of the same mail upsert instead of duplicating.
func MessageUID(messageID, date, user string) string {
	h := sha256.New()
	h.Write([]byte(messageID))
	h.Write([]byte(date))
	h.Write([]byte(user))
	return hex.EncodeToString(h.Sum(nil))
}
