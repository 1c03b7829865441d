package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/husainf4l/baridai-sub000/core/db/sqlc"
	"github.com/husainf4l/baridai-sub000/internal/model"
)

type integrationStore struct {
	queries *sqlc.Queries
}

func newIntegrationStore(queries *sqlc.Queries) IntegrationStore {
	return &integrationStore{queries: queries}
}

func (s *integrationStore) GetByID(ctx context.Context, id int64) (*model.Integration, error) {
	row, err := s.queries.GetIntegration(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toIntegrationModel(row), nil
}

func (s *integrationStore) FindByAccountID(ctx context.Context, platform model.Platform, accountID string) ([]model.Integration, error) {
	rows, err := s.queries.ListIntegrationsByAccountID(ctx, sqlc.ListIntegrationsByAccountIDParams{
		Platform:          string(platform),
		PlatformAccountID: &accountID,
	})
	if err != nil {
		return nil, err
	}
	return toIntegrationModels(rows), nil
}

func (s *integrationStore) Create(ctx context.Context, integration *model.Integration) error {
	row, err := s.queries.CreateIntegration(ctx, sqlc.CreateIntegrationParams{
		ID:                integration.ID,
		UserID:            integration.UserID,
		Platform:          string(integration.Platform),
		AccessToken:       model.SanitizeToken(integration.AccessToken),
		PlatformAccountID: integration.PlatformAccountID,
		PageName:          integration.PageName,
		ExpiresAt:         timeToPgTimestamptz(integration.ExpiresAt),
	})
	if err != nil {
		return err
	}
	*integration = *toIntegrationModel(row)
	return nil
}

func (s *integrationStore) Update(ctx context.Context, integration *model.Integration) error {
	row, err := s.queries.UpdateIntegration(ctx, sqlc.UpdateIntegrationParams{
		ID:                integration.ID,
		PlatformAccountID: integration.PlatformAccountID,
		PageName:          integration.PageName,
		AccessToken:       model.SanitizeToken(integration.AccessToken),
		ExpiresAt:         timeToPgTimestamptz(integration.ExpiresAt),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	*integration = *toIntegrationModel(row)
	return nil
}

func (s *integrationStore) UpdateToken(ctx context.Context, id int64, accessToken string, expiresAt *time.Time) (*model.Integration, error) {
	row, err := s.queries.UpdateIntegrationToken(ctx, sqlc.UpdateIntegrationTokenParams{
		ID:          id,
		AccessToken: model.SanitizeToken(accessToken),
		ExpiresAt:   timeToPgTimestamptz(expiresAt),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toIntegrationModel(row), nil
}

func (s *integrationStore) Delete(ctx context.Context, id int64) error {
	return s.queries.DeleteIntegration(ctx, id)
}

// toIntegrationModel converts sqlc.Integration to model.Integration
func toIntegrationModel(row sqlc.Integration) *model.Integration {
	return &model.Integration{
		ID:                row.ID,
		UserID:            row.UserID,
		Platform:          model.Platform(row.Platform),
		AccessToken:       row.AccessToken,
		PlatformAccountID: row.PlatformAccountID,
		PageName:          row.PageName,
		ExpiresAt:         pgTimestamptzToTime(row.ExpiresAt),
		CreatedAt:         row.CreatedAt.Time,
		UpdatedAt:         row.UpdatedAt.Time,
	}
}

func toIntegrationModels(rows []sqlc.Integration) []model.Integration {
	result := make([]model.Integration, len(rows))
	for i, row := range rows {
		result[i] = *toIntegrationModel(row)
	}
	return result
}

// timeToPgTimestamptz converts *time.Time to pgtype.Timestamptz
func timeToPgTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func pgTimestamptzToTime(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}
