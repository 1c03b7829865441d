package service

import (
	"github.com/husainf4l/baridai-sub000/core/config"
	"github.com/husainf4l/baridai-sub000/internal/queue"
	"github.com/husainf4l/baridai-sub000/internal/store"
)

type Services struct {
	stores   *store.Stores
	txRunner TxRunner
	producer queue.Producer
	history  HistoryClearer
	metaCfg  config.MetaConfig
	pipeCfg  config.PipelineConfig
}

func NewServices(stores *store.Stores, txRunner TxRunner, producer queue.Producer, history HistoryClearer, metaCfg config.MetaConfig, pipeCfg config.PipelineConfig) *Services {
	return &Services{
		stores:   stores,
		txRunner: txRunner,
		producer: producer,
		history:  history,
		metaCfg:  metaCfg,
		pipeCfg:  pipeCfg,
	}
}

func (s *Services) WebhookIntake() WebhookIntakeService {
	return NewWebhookIntakeService(s.producer, WebhookIntakeConfig{
		VerifyToken:    s.metaCfg.VerifyToken,
		AppSecret:      s.metaCfg.AppSecret,
		HandoffTimeout: s.pipeCfg.HandoffTimeout,
	})
}

func (s *Services) Automations() AutomationService {
	return NewAutomationService(s.stores.Automations(), s.stores.Messages())
}

func (s *Services) Integrations() IntegrationService {
	return NewIntegrationService(s.txRunner, s.metaCfg.MinTokenLength)
}

func (s *Services) Conversations() ConversationService {
	return NewConversationService(s.history)
}
