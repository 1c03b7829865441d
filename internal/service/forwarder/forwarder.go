package forwarder

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

	"github.com/google/uuid"

	"github.com/husainf4l/baridai-sub000/common/logger"
	"github.com/husainf4l/baridai-sub000/internal/model"
)

// ErrNoReply means the endpoint answered but gave nothing usable.
var ErrNoReply = errors.New("forwarder returned no usable reply")

const maxResponseBytes = 64 << 10

type Config struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Request is the event context mirrored to the external decision endpoint.
type Request struct {
	Automation  model.Automation
	Integration model.Integration
	SenderID    string
	RecipientID string
	Text        string
	Timestamp   time.Time
}

// Forwarder mirrors inbound events to an external webhook and returns its
// reply text. Failures are returned for the caller to log; they never carry
// a partial reply.
type Forwarder interface {
	Forward(ctx context.Context, req Request) (string, error)
	Enabled() bool
}

type httpForwarder struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) Forwarder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &httpForwarder{cfg: cfg, client: client}
}

func (f *httpForwarder) Enabled() bool {
	return f.cfg.URL != ""
}

func (f *httpForwarder) Forward(ctx context.Context, req Request) (string, error) {
	if !f.Enabled() {
		return "", ErrNoReply
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "relay.service.forwarder"})
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(toPayload(req))
	if err != nil {
		return "", fmt.Errorf("marshal forward payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating forward request: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("forward request %s: %w", requestID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("forward request %s: status %d: %s", requestID, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out struct {
		Message *string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return "", fmt.Errorf("forward request %s: decode response: %w", requestID, err)
	}
	if out.Message == nil || strings.TrimSpace(*out.Message) == "" {
		return "", ErrNoReply
	}

	slog.DebugContext(ctx, "forwarder replied",
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds())

	return strings.TrimSpace(*out.Message), nil
}

type payload struct {
	AutomationID   string             `json:"automationId"`
	AutomationName string             `json:"automationName"`
	SenderID       string             `json:"senderId"`
	RecipientID    string             `json:"recipientId"`
	MessageText    string             `json:"messageText"`
	Integration    integrationPayload `json:"integration"`
	Timestamp      string             `json:"timestamp"`
}

type integrationPayload struct {
	ID        string  `json:"id"`
	Platform  string  `json:"platform"`
	AccountID string  `json:"accountId"`
	PageName  *string `json:"pageName"`
}

func toPayload(req Request) payload {
	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return payload{
		AutomationID:   fmt.Sprint(req.Automation.ID),
		AutomationName: req.Automation.Name,
		SenderID:       req.SenderID,
		RecipientID:    req.RecipientID,
		MessageText:    req.Text,
		Integration: integrationPayload{
			ID:        fmt.Sprint(req.Integration.ID),
			Platform:  string(req.Integration.Platform),
			AccountID: req.Integration.AccountID(),
			PageName:  req.Integration.PageName,
		},
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
	}
}
