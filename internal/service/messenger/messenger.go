package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/husainf4l/baridai-sub000/common/logger"
	"github.com/husainf4l/baridai-sub000/internal/model"
)

var (
	ErrMissingCredential = errors.New("integration has no access token or account id")
	ErrInvalidToken      = errors.New("access token is too short after sanitization")
	ErrMediaNotFound     = errors.New("media object has no download url")
)

// Kind classifies a send outcome for operators.
type Kind string

const (
	KindSent              Kind = "sent"
	KindMissingCredential Kind = "missing_credential"
	KindInvalidToken      Kind = "invalid_token"
	KindAuthRejected      Kind = "auth_rejected"
	KindRateLimited       Kind = "rate_limited"
	KindPlatformError     Kind = "platform_error"
	KindTransportError    Kind = "transport_error"
)

// graphInvalidTokenCode is the Graph API OAuthException code for expired or revoked tokens.
const graphInvalidTokenCode = 190

// SendResult is what a dispatch reports. Send never returns an error or panics;
// failures are described here.
type SendResult struct {
	Success    bool
	MessageID  string
	Kind       Kind
	StatusCode int
	Error      error
}

func (r SendResult) transient() bool {
	switch r.Kind {
	case KindRateLimited, KindTransportError:
		return true
	case KindPlatformError:
		return r.StatusCode >= 500
	}
	return false
}

type Config struct {
	GraphBaseURL    string
	GraphVersion    string
	MinTokenLength  int
	Timeout         time.Duration // per attempt
	MaxAttempts     int
	InitialInterval time.Duration
	HTTPClient      *http.Client
}

// Media is an inbound WhatsApp media object. Its URL only serves requests
// that carry the integration's bearer token.
type Media struct {
	ID       string
	URL      string
	MimeType string
	Token    string
}

// Messenger sends replies through the platform Send API.
type Messenger interface {
	Send(ctx context.Context, integration model.Integration, recipientID, text string) SendResult
	SendAudio(ctx context.Context, integration model.Integration, recipientID, audioURL string) SendResult
	// ResolveMedia looks up the download URL of a WhatsApp media id.
	ResolveMedia(ctx context.Context, integration model.Integration, mediaID string) (Media, error)
}

type graphMessenger struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) Messenger {
	if cfg.GraphBaseURL == "" {
		cfg.GraphBaseURL = "https://graph.facebook.com"
	}
	if cfg.GraphVersion == "" {
		cfg.GraphVersion = "v21.0"
	}
	if cfg.MinTokenLength <= 0 {
		cfg.MinTokenLength = 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &graphMessenger{cfg: cfg, client: client}
}

func (m *graphMessenger) Send(ctx context.Context, integration model.Integration, recipientID, text string) SendResult {
	return m.dispatch(ctx, integration, recipientID, "text", func() any {
		if integration.Platform == model.PlatformWhatsApp {
			return whatsAppMessage{
				MessagingProduct: "whatsapp",
				To:               recipientID,
				Type:             "text",
				Text:             &whatsAppText{Body: text},
			}
		}
		return pageMessage{
			Recipient:     pageRecipient{ID: recipientID},
			Message:       pageMessageBody{Text: text},
			MessagingType: "RESPONSE",
		}
	})
}

func (m *graphMessenger) SendAudio(ctx context.Context, integration model.Integration, recipientID, audioURL string) SendResult {
	return m.dispatch(ctx, integration, recipientID, "audio", func() any {
		if integration.Platform == model.PlatformWhatsApp {
			return whatsAppMessage{
				MessagingProduct: "whatsapp",
				To:               recipientID,
				Type:             "audio",
				Audio:            &whatsAppMedia{Link: audioURL},
			}
		}
		return pageMessage{
			Recipient: pageRecipient{ID: recipientID},
			Message: pageMessageBody{Attachment: &pageAttachment{
				Type:    "audio",
				Payload: pageAttachmentPayload{URL: audioURL},
			}},
			MessagingType: "RESPONSE",
		}
	})
}

func (m *graphMessenger) ResolveMedia(ctx context.Context, integration model.Integration, mediaID string) (Media, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		IntegrationID: &integration.ID,
		Platform:      logger.Ptr(string(integration.Platform)),
		Component:     "relay.service.messenger",
	})

	if integration.AccessToken == "" {
		return Media{}, ErrMissingCredential
	}
	token := model.SanitizeToken(integration.AccessToken)
	if len(token) < m.cfg.MinTokenLength {
		return Media{}, ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/%s", strings.TrimRight(m.cfg.GraphBaseURL, "/"), m.cfg.GraphVersion, mediaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Media{}, fmt.Errorf("creating media request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := m.client.Do(req)
	if err != nil {
		return Media{}, fmt.Errorf("media request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result := classify(resp.StatusCode, raw)
		return Media{}, fmt.Errorf("resolving media %s (%s): %w", mediaID, result.Kind, result.Error)
	}

	var media mediaResponse
	if err := json.Unmarshal(raw, &media); err != nil {
		return Media{}, fmt.Errorf("decoding media response: %w", err)
	}
	if media.URL == "" {
		return Media{}, fmt.Errorf("resolving media %s: %w", mediaID, ErrMediaNotFound)
	}

	slog.DebugContext(ctx, "media resolved",
		"media_id", mediaID,
		"mime_type", media.MimeType,
		"file_size", media.FileSize)

	return Media{ID: mediaID, URL: media.URL, MimeType: media.MimeType, Token: token}, nil
}

func (m *graphMessenger) dispatch(ctx context.Context, integration model.Integration, recipientID, kind string, buildBody func() any) SendResult {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		IntegrationID: &integration.ID,
		Platform:      logger.Ptr(string(integration.Platform)),
		Component:     "relay.service.messenger",
	})

	accountID := integration.AccountID()
	if integration.AccessToken == "" || accountID == "" {
		slog.WarnContext(ctx, "cannot send reply: integration is missing credentials",
			"has_token", integration.AccessToken != "",
			"has_account_id", accountID != "")
		return SendResult{Kind: KindMissingCredential, Error: ErrMissingCredential}
	}

	token := model.SanitizeToken(integration.AccessToken)
	if len(token) < m.cfg.MinTokenLength {
		slog.WarnContext(ctx, "cannot send reply: access token too short after sanitization",
			"token_length", len(token),
			"min_length", m.cfg.MinTokenLength)
		return SendResult{Kind: KindInvalidToken, Error: ErrInvalidToken}
	}

	body, err := json.Marshal(buildBody())
	if err != nil {
		return SendResult{Kind: KindPlatformError, Error: fmt.Errorf("marshal send request: %w", err)}
	}

	url := fmt.Sprintf("%s/%s/%s/messages", strings.TrimRight(m.cfg.GraphBaseURL, "/"), m.cfg.GraphVersion, accountID)

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = m.cfg.InitialInterval
	eb.MaxElapsedTime = 0
	eb.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(m.cfg.MaxAttempts-1)), ctx)

	var (
		result   SendResult
		attempts int
	)
	_ = backoff.Retry(func() error {
		attempts++
		result = m.post(ctx, url, token, body)
		if result.Success {
			return nil
		}
		if result.transient() {
			slog.DebugContext(ctx, "transient send failure, retrying",
				"attempt", attempts,
				"kind", result.Kind,
				"status_code", result.StatusCode)
			return result.Error
		}
		return backoff.Permanent(result.Error)
	}, policy)

	if result.Success {
		slog.InfoContext(ctx, "reply sent",
			"type", kind,
			"recipient_id", recipientID,
			"platform_message_id", result.MessageID,
			"attempts", attempts)
		return result
	}

	slog.ErrorContext(ctx, "reply send failed",
		"type", kind,
		"recipient_id", recipientID,
		"kind", result.Kind,
		"status_code", result.StatusCode,
		"attempts", attempts,
		"error", result.Error)
	return result
}

func (m *graphMessenger) post(ctx context.Context, url, token string, body []byte) SendResult {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return SendResult{Kind: KindTransportError, Error: fmt.Errorf("creating send request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := m.client.Do(req)
	if err != nil {
		return SendResult{Kind: KindTransportError, Error: fmt.Errorf("send request failed: %w", err)}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return classify(resp.StatusCode, raw)
}

func classify(status int, raw []byte) SendResult {
	if status >= 200 && status <= 299 {
		var ok sendResponse
		_ = json.Unmarshal(raw, &ok)
		return SendResult{Success: true, Kind: KindSent, StatusCode: status, MessageID: ok.id()}
	}

	var gerr graphErrorResponse
	_ = json.Unmarshal(raw, &gerr)

	msg := gerr.Error.Message
	if msg == "" {
		msg = logger.Truncate(strings.TrimSpace(string(raw)), 256)
	}
	err := fmt.Errorf("graph api returned %d: %s", status, msg)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden || gerr.Error.Code == graphInvalidTokenCode:
		return SendResult{Kind: KindAuthRejected, StatusCode: status, Error: err}
	case status == http.StatusTooManyRequests:
		return SendResult{Kind: KindRateLimited, StatusCode: status, Error: err}
	default:
		return SendResult{Kind: KindPlatformError, StatusCode: status, Error: err}
	}
}
