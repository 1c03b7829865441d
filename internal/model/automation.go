package model

import (
	"strings"
	"time"
)

type ListenerType string

const (
	ListenerMessage ListenerType = "MESSAGE"
	ListenerSmartAI ListenerType = "SMART_AI"
)

type Listener struct {
	Type   ListenerType `json:"type"`
	Prompt string       `json:"prompt"`
}

// Automation is a user-defined rule reacting to inbound messages.
// A nil IntegrationID applies the automation to every integration of the user.
type Automation struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Name          string    `json:"name"`
	Active        bool      `json:"active"`
	IntegrationID *int64    `json:"integration_id,omitempty"`
	Listener      *Listener `json:"listener,omitempty"`
	Keywords      []string  `json:"keywords"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AppliesTo reports whether the automation is in scope for the integration.
func (a Automation) AppliesTo(integrationID int64) bool {
	return a.IntegrationID == nil || *a.IntegrationID == integrationID
}

// Triggered reports whether any keyword occurs in text, case-insensitively.
// Blank keywords never trigger.
func (a Automation) Triggered(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range a.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func (a Automation) ListenerType() ListenerType {
	if a.Listener == nil {
		return ""
	}
	return a.Listener.Type
}

// AutomationStats is derived from persisted inbound messages, never stored.
type AutomationStats struct {
	AutomationID int64   `json:"automation_id"`
	RunCount     int64   `json:"run_count"`
	SentCount    int64   `json:"sent_count"`
	SuccessRate  float64 `json:"success_rate"`
}
