package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/husainf4l/baridai-sub000/core/db/sqlc"
	"github.com/husainf4l/baridai-sub000/internal/model"
)

type automationStore struct {
	queries *sqlc.Queries
}

func newAutomationStore(queries *sqlc.Queries) AutomationStore {
	return &automationStore{queries: queries}
}

func (s *automationStore) GetByID(ctx context.Context, id int64) (*model.Automation, error) {
	row, err := s.queries.GetAutomation(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toAutomationModel(row), nil
}

func (s *automationStore) ListActiveForUser(ctx context.Context, userID, integrationID int64) ([]model.Automation, error) {
	rows, err := s.queries.ListActiveAutomationsForUser(ctx, sqlc.ListActiveAutomationsForUserParams{
		UserID:        userID,
		IntegrationID: integrationID,
	})
	if err != nil {
		return nil, err
	}
	result := make([]model.Automation, len(rows))
	for i, row := range rows {
		result[i] = *toAutomationModel(row)
	}
	return result, nil
}

func (s *automationStore) Create(ctx context.Context, automation *model.Automation) error {
	params := sqlc.CreateAutomationParams{
		ID:            automation.ID,
		UserID:        automation.UserID,
		Name:          automation.Name,
		Active:        automation.Active,
		IntegrationID: automation.IntegrationID,
		Keywords:      automation.Keywords,
	}
	if params.Keywords == nil {
		params.Keywords = []string{}
	}
	if automation.Listener != nil {
		listenerType := string(automation.Listener.Type)
		params.ListenerType = &listenerType
		params.ListenerPrompt = &automation.Listener.Prompt
	}

	row, err := s.queries.CreateAutomation(ctx, params)
	if err != nil {
		return err
	}
	*automation = *toAutomationModel(row)
	return nil
}

func (s *automationStore) SetActive(ctx context.Context, id int64, active bool) (*model.Automation, error) {
	row, err := s.queries.SetAutomationActive(ctx, sqlc.SetAutomationActiveParams{ID: id, Active: active})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toAutomationModel(row), nil
}

func (s *automationStore) Delete(ctx context.Context, id int64) error {
	return s.queries.DeleteAutomation(ctx, id)
}

func toAutomationModel(row sqlc.Automation) *model.Automation {
	a := &model.Automation{
		ID:            row.ID,
		UserID:        row.UserID,
		Name:          row.Name,
		Active:        row.Active,
		IntegrationID: row.IntegrationID,
		Keywords:      row.Keywords,
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
	}
	if row.ListenerType != nil {
		a.Listener = &model.Listener{Type: model.ListenerType(*row.ListenerType)}
		if row.ListenerPrompt != nil {
			a.Listener.Prompt = *row.ListenerPrompt
		}
	}
	return a
}
