package dto

import (
	"time"

	"github.com/husainf4l/baridai-sub000/internal/model"
)

type ToggleAutomationRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type RotateTokenRequest struct {
	AccessToken string     `json:"access_token" binding:"required,max=4096"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type AutomationResponse struct {
	ID            int64     `json:"id,string"`
	UserID        int64     `json:"user_id,string"`
	Name          string    `json:"name"`
	Active        bool      `json:"active"`
	IntegrationID *string   `json:"integration_id,omitempty"`
	Keywords      []string  `json:"keywords"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func ToAutomationResponse(a *model.Automation) *AutomationResponse {
	resp := &AutomationResponse{
		ID:        a.ID,
		UserID:    a.UserID,
		Name:      a.Name,
		Active:    a.Active,
		Keywords:  a.Keywords,
		UpdatedAt: a.UpdatedAt,
	}
	if resp.Keywords == nil {
		resp.Keywords = []string{}
	}
	if a.IntegrationID != nil {
		id := formatID(*a.IntegrationID)
		resp.IntegrationID = &id
	}
	return resp
}

type AutomationStatsResponse struct {
	AutomationID int64   `json:"automation_id,string"`
	RunCount     int64   `json:"run_count"`
	SentCount    int64   `json:"sent_count"`
	SuccessRate  float64 `json:"success_rate"`
}

func ToAutomationStatsResponse(s *model.AutomationStats) *AutomationStatsResponse {
	return &AutomationStatsResponse{
		AutomationID: s.AutomationID,
		RunCount:     s.RunCount,
		SentCount:    s.SentCount,
		SuccessRate:  s.SuccessRate,
	}
}

// IntegrationResponse never carries the access token.
type IntegrationResponse struct {
	ID                int64      `json:"id,string"`
	Platform          string     `json:"platform"`
	PlatformAccountID *string    `json:"platform_account_id,omitempty"`
	PageName          *string    `json:"page_name,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func ToIntegrationResponse(i *model.Integration) *IntegrationResponse {
	return &IntegrationResponse{
		ID:                i.ID,
		Platform:          string(i.Platform),
		PlatformAccountID: i.PlatformAccountID,
		PageName:          i.PageName,
		ExpiresAt:         i.ExpiresAt,
		UpdatedAt:         i.UpdatedAt,
	}
}
