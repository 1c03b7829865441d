package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/husainf4l/baridai-sub000/common/logger"
	"github.com/husainf4l/baridai-sub000/internal/mapper"
	"github.com/husainf4l/baridai-sub000/internal/model"
	"github.com/husainf4l/baridai-sub000/internal/queue"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

const signaturePrefix = "sha256="

type WebhookIntakeConfig struct {
	VerifyToken    string
	AppSecret      string // empty disables signature checks
	HandoffTimeout time.Duration
}

// WebhookIntakeService backs the platform webhook endpoints.
type WebhookIntakeService interface {
	// Verify answers the subscription handshake. It returns the challenge and
	// true only for mode "subscribe" with the configured token.
	Verify(mode, token, challenge string) (string, bool)
	VerifySignature(body []byte, header string) error
	// Handoff enqueues a delivery. It runs after the response was written, so
	// it detaches from ctx cancellation and applies its own timeout.
	Handoff(ctx context.Context, platform model.Platform, body []byte, traceID *string) error
}

type webhookIntakeService struct {
	cfg      WebhookIntakeConfig
	producer queue.Producer
}

func NewWebhookIntakeService(producer queue.Producer, cfg WebhookIntakeConfig) WebhookIntakeService {
	if cfg.HandoffTimeout <= 0 {
		cfg.HandoffTimeout = 3 * time.Second
	}
	return &webhookIntakeService{cfg: cfg, producer: producer}
}

func (s *webhookIntakeService) Verify(mode, token, challenge string) (string, bool) {
	if mode != "subscribe" || s.cfg.VerifyToken == "" {
		return "", false
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.VerifyToken)) != 1 {
		return "", false
	}
	return challenge, true
}

func (s *webhookIntakeService) VerifySignature(body []byte, header string) error {
	if s.cfg.AppSecret == "" {
		return nil
	}
	if !strings.HasPrefix(header, signaturePrefix) {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(s.cfg.AppSecret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

func (s *webhookIntakeService) Handoff(ctx context.Context, platform model.Platform, body []byte, traceID *string) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Platform:  logger.Ptr(string(platform)),
		Component: "relay.service.webhook_intake",
	})

	env, err := mapper.Decode(body)
	if err != nil {
		slog.WarnContext(ctx, "discarding malformed webhook body", "error", err)
		return nil
	}
	if env.Object != platform.ExpectedObject() {
		slog.InfoContext(ctx, "discarding webhook for unexpected object",
			"object", env.Object,
			"expected", platform.ExpectedObject())
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.HandoffTimeout)
	defer cancel()

	if err := s.producer.Enqueue(ctx, queue.Delivery{
		Platform:   platform,
		Payload:    body,
		TraceID:    traceID,
		Attempt:    1,
		ReceivedAt: time.Now(),
	}); err != nil {
		return fmt.Errorf("enqueueing delivery: %w", err)
	}

	slog.DebugContext(ctx, "webhook delivery enqueued", "entries", len(env.Entry))
	return nil
}
