package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/husainf4l/baridai-sub000/common/logger"
	"github.com/husainf4l/baridai-sub000/internal/model"
	"github.com/husainf4l/baridai-sub000/internal/store"
)

var ErrTokenTooShort = errors.New("access token is too short")

type AutomationService interface {
	Stats(ctx context.Context, automationID int64) (*model.AutomationStats, error)
	SetActive(ctx context.Context, automationID int64, active bool) (*model.Automation, error)
}

type automationService struct {
	automations store.AutomationStore
	messages    store.MessageStore
}

func NewAutomationService(automations store.AutomationStore, messages store.MessageStore) AutomationService {
	return &automationService{automations: automations, messages: messages}
}

func (s *automationService) Stats(ctx context.Context, automationID int64) (*model.AutomationStats, error) {
	if _, err := s.automations.GetByID(ctx, automationID); err != nil {
		return nil, err
	}
	stats, err := s.messages.StatsByAutomation(ctx, automationID)
	if err != nil {
		return nil, fmt.Errorf("computing automation stats: %w", err)
	}
	return stats, nil
}

func (s *automationService) SetActive(ctx context.Context, automationID int64, active bool) (*model.Automation, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		AutomationID: &automationID,
		Component:    "relay.service.admin",
	})

	automation, err := s.automations.SetActive(ctx, automationID, active)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "automation toggled", "active", active)
	return automation, nil
}

type IntegrationService interface {
	RotateToken(ctx context.Context, integrationID int64, accessToken string, expiresAt *time.Time) (*model.Integration, error)
}

type integrationService struct {
	txRunner       TxRunner
	minTokenLength int
}

func NewIntegrationService(txRunner TxRunner, minTokenLength int) IntegrationService {
	return &integrationService{txRunner: txRunner, minTokenLength: minTokenLength}
}

// RotateToken replaces an integration's token. The token is sanitized before
// the length check so pasted whitespace never counts toward it.
func (s *integrationService) RotateToken(ctx context.Context, integrationID int64, accessToken string, expiresAt *time.Time) (*model.Integration, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		IntegrationID: &integrationID,
		Component:     "relay.service.admin",
	})

	token := model.SanitizeToken(accessToken)
	if len(token) < s.minTokenLength {
		return nil, ErrTokenTooShort
	}

	var updated *model.Integration
	if err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		if _, err := sp.Integrations().GetByID(ctx, integrationID); err != nil {
			return err
		}
		var err error
		updated, err = sp.Integrations().UpdateToken(ctx, integrationID, token, expiresAt)
		return err
	}); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "integration token rotated", "expires_at", expiresAt)
	return updated, nil
}

// HistoryClearer resets a sender's conversation window.
type HistoryClearer interface {
	ClearHistory(ctx context.Context, senderID string) error
}

type ConversationService interface {
	Clear(ctx context.Context, senderID string) error
}

type conversationService struct {
	history HistoryClearer
}

func NewConversationService(history HistoryClearer) ConversationService {
	return &conversationService{history: history}
}

func (s *conversationService) Clear(ctx context.Context, senderID string) error {
	if senderID == "" {
		return errors.New("sender id is required")
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SenderID:  &senderID,
		Component: "relay.service.admin",
	})
	if err := s.history.ClearHistory(ctx, senderID); err != nil {
		return fmt.Errorf("clearing conversation: %w", err)
	}
	slog.InfoContext(ctx, "conversation history cleared")
	return nil
}
