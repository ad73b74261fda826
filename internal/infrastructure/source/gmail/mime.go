package gmail

import (
	"encoding/base64"
	"strings"

	"github.com/mmsoft/invoiceflow/internal/core/domain"
)

// Gmail wire structures, trimmed to the fields the pipeline reads.

type messageListPage struct {
	Messages      []messageRef `json:"messages"`
	NextPageToken string       `json:"nextPageToken"`
}

type messageRef struct {
	ID string `json:"id"`
}

type wireMessage struct {
	Payload messagePart `json:"payload"`
}

type messagePart struct {
	MimeType string        `json:"mimeType"`
	Filename string        `json:"filename"`
	Headers  []partHeader  `json:"headers"`
	Body     partBody      `json:"body"`
	Parts    []messagePart `json:"parts"`
}

type partHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type partBody struct {
	AttachmentID string `json:"attachmentId"`
	Data         string `json:"data"`
}

// flattenMessage walks the MIME tree with an explicit stack and collects
// the plain body, the html body and PDF attachment references. Nested
// multiparts of any depth are handled without recursion.
func flattenMessage(id string, wire wireMessage) domain.MailMessage {
	msg := domain.MailMessage{
		MessageID: id,
		Date:      headerValue(wire.Payload.Headers, "Date"),
		From:      headerValue(wire.Payload.Headers, "From"),
		To:        headerValue(wire.Payload.Headers, "To"),
		Subject:   headerValue(wire.Payload.Headers, "Subject"),
	}

	stack := []messagePart{wire.Payload}
	for len(stack) > 0 {
		part := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch {
		case part.MimeType == "text/plain":
			if msg.PlainText == "" {
				if data, err := decodeBody(part.Body.Data); err == nil {
					msg.PlainText = string(data)
				}
			}
		case part.MimeType == "text/html":
			if msg.HTML == "" {
				if data, err := decodeBody(part.Body.Data); err == nil {
					msg.HTML = string(data)
				}
			}
		case part.MimeType == "application/pdf":
			if part.Filename != "" {
				att := domain.MailAttachment{Filename: part.Filename}
				if data, err := decodeBody(part.Body.Data); err == nil {
					att.Data = data
				}
				msg.Attachments = append(msg.Attachments, att)
			}
		case strings.HasPrefix(part.MimeType, "multipart/"):
			// Reverse push keeps document order when popping.
			for i := len(part.Parts) - 1; i >= 0; i-- {
				stack = append(stack, part.Parts[i])
			}
		}
	}
	return msg
}

// wireAttachmentID finds the attachment id for a named PDF part. Gmail
// never inlines PDF bytes in the message payload, so stored attachments
// are fetched in a second call.
func wireAttachmentID(wire wireMessage, filename string) string {
	stack := []messagePart{wire.Payload}
	for len(stack) > 0 {
		part := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if part.MimeType == "application/pdf" && part.Filename == filename {
			return part.Body.AttachmentID
		}
		for i := len(part.Parts) - 1; i >= 0; i-- {
			stack = append(stack, part.Parts[i])
		}
	}
	return ""
}

func headerValue(headers []partHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// decodeBody handles Gmail's URL-safe base64, with and without padding.
func decodeBody(data string) ([]byte, error) {
	if data == "" {
		return nil, nil
	}
	if decoded, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return decoded, nil
	}
	return base64.URLEncoding.DecodeString(data)
}
