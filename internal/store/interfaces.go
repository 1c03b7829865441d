package store

import (
	"context"
	"errors"
	"time"

	"github.com/husainf4l/baridai-sub000/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// IntegrationStore defines the contract for platform credential access
type IntegrationStore interface {
	GetByID(ctx context.Context, id int64) (*model.Integration, error)
	// FindByAccountID returns every integration registered for the platform
	// account, oldest first. Zero matches is an empty slice, not ErrNotFound.
	FindByAccountID(ctx context.Context, platform model.Platform, accountID string) ([]model.Integration, error)
	Create(ctx context.Context, integration *model.Integration) error
	Update(ctx context.Context, integration *model.Integration) error
	UpdateToken(ctx context.Context, id int64, accessToken string, expiresAt *time.Time) (*model.Integration, error)
	Delete(ctx context.Context, id int64) error
}

// AutomationStore defines the contract for automation data access
type AutomationStore interface {
	GetByID(ctx context.Context, id int64) (*model.Automation, error)
	// ListActiveForUser returns active automations of the user that are either
	// bound to integrationID or unbound.
	ListActiveForUser(ctx context.Context, userID, integrationID int64) ([]model.Automation, error)
	Create(ctx context.Context, automation *model.Automation) error
	SetActive(ctx context.Context, id int64, active bool) (*model.Automation, error)
	Delete(ctx context.Context, id int64) error
}

// MessageStore defines the contract for inbound message persistence
type MessageStore interface {
	Create(ctx context.Context, msg *model.InboundMessage) error
	MarkReplyResult(ctx context.Context, id int64, status model.ReplyStatus, replyErr *string, keywordTriggered bool) error
	StatsByAutomation(ctx context.Context, automationID int64) (*model.AutomationStats, error)
}
