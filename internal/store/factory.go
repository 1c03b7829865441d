package store

import (
	"github.com/husainf4l/baridai-sub000/core/db/sqlc"
)

type Stores struct {
	queries *sqlc.Queries
}

func NewStores(queries *sqlc.Queries) *Stores {
	return &Stores{queries: queries}
}

func (s *Stores) Integrations() IntegrationStore {
	return newIntegrationStore(s.queries)
}

func (s *Stores) Automations() AutomationStore {
	return newAutomationStore(s.queries)
}

func (s *Stores) Messages() MessageStore {
	return newMessageStore(s.queries)
}
