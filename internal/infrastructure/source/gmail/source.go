package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mmsoft/invoiceflow/internal/core/domain"
)

const defaultBaseURL = "https://gmail.googleapis.com"

// Config holds mailbox identity and OAuth client credentials. Access
// tokens are short-lived; the refresh token mints a new one per run.
type Config struct {
	User         string `yaml:"user"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	TokenURL     string `yaml:"token_url"`
	// BaseURL overrides the Gmail API host, used by tests.
	BaseURL string `yaml:"base_url"`
	// RequestsPerSecond paces calls against the mail API.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// Source fetches messages and their PDF attachments over the Gmail REST
// API.
type Source struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	accessToken string
}

func NewSource(cfg Config, logger *slog.Logger) (*Source, error) {
	if cfg.User == "" {
		return nil, fmt.Errorf("gmail: user is required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, domain.WrapError(domain.ErrMissingCredential, "gmail source",
			fmt.Errorf("client_id, client_secret and refresh_token are required"))
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = "https://oauth2.googleapis.com/token"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:     logger,
	}, nil
}

// FetchDocuments lists message ids matching the query, then fetches each
// message with its PDF attachment payloads.
func (s *Source) FetchDocuments(ctx context.Context, query string) ([]domain.MailMessage, error) {
	if err := s.refreshAccessToken(ctx); err != nil {
		return nil, err
	}

	ids, err := s.listMessageIDs(ctx, query)
	if err != nil {
		return nil, err
	}
	s.logger.Info("message id listing complete", "query", query, "matches", len(ids))

	messages := make([]domain.MailMessage, 0, len(ids))
	for _, id := range ids {
		msg, err := s.fetchMessage(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("fetch message %s: %w", id, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// listMessageIDs pages through users.messages.list until the server
// stops returning a next page token.
func (s *Source) listMessageIDs(ctx context.Context, query string) ([]string, error) {
	var ids []string
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("q", query)
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}
		endpoint := fmt.Sprintf("%s/gmail/v1/users/%s/messages?%s",
			s.cfg.BaseURL, url.PathEscape(s.cfg.User), params.Encode())

		var page messageListPage
		if err := s.getJSON(ctx, endpoint, &page, "list messages"); err != nil {
			return nil, err
		}
		for _, ref := range page.Messages {
			if ref.ID != "" {
				ids = append(ids, ref.ID)
			}
		}
		if page.NextPageToken == "" {
			return ids, nil
		}
		pageToken = page.NextPageToken
	}
}

func (s *Source) fetchMessage(ctx context.Context, id string) (domain.MailMessage, error) {
	endpoint := fmt.Sprintf("%s/gmail/v1/users/%s/messages/%s?format=full",
		s.cfg.BaseURL, url.PathEscape(s.cfg.User), url.PathEscape(id))

	var wire wireMessage
	if err := s.getJSON(ctx, endpoint, &wire, "get message"); err != nil {
		return domain.MailMessage{}, err
	}

	msg := flattenMessage(id, wire)

	for i := range msg.Attachments {
		if len(msg.Attachments[i].Data) > 0 {
			continue
		}
		attID := wireAttachmentID(wire, msg.Attachments[i].Filename)
		if attID == "" {
			continue
		}
		s.logger.Info("fetching attachment data", "message_id", id, "filename", msg.Attachments[i].Filename)
		data, err := s.fetchAttachmentData(ctx, id, attID)
		if err != nil {
			return domain.MailMessage{}, fmt.Errorf("fetch attachment %q: %w", msg.Attachments[i].Filename, err)
		}
		msg.Attachments[i].Data = data
	}

	if msg.PlainText == "" && msg.HTML != "" {
		msg.PlainText = htmlToText(msg.HTML)
	}
	return msg, nil
}

func (s *Source) fetchAttachmentData(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/gmail/v1/users/%s/messages/%s/attachments/%s",
		s.cfg.BaseURL, url.PathEscape(s.cfg.User), url.PathEscape(messageID), url.PathEscape(attachmentID))

	var body partBody
	if err := s.getJSON(ctx, endpoint, &body, "get attachment"); err != nil {
		return nil, err
	}
	return decodeBody(body.Data)
}

func (s *Source) getJSON(ctx context.Context, endpoint string, out any, operation string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gmail %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("gmail %s status: %s: %s", operation, resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
