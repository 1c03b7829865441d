package model

import "time"

type ReplyStatus string

const (
	ReplyStatusPending ReplyStatus = "pending"
	ReplyStatusSent    ReplyStatus = "sent"
	ReplyStatusFailed  ReplyStatus = "failed"
)

// InboundMessage is one persisted (event, automation) pair.
type InboundMessage struct {
	ID                int64       `json:"id"`
	AutomationID      int64       `json:"automation_id"`
	SenderID          string      `json:"sender_id"`
	RecipientID       string      `json:"recipient_id"`
	Message           string      `json:"message"`
	PlatformMessageID *string     `json:"platform_message_id,omitempty"`
	ReplyStatus       ReplyStatus `json:"reply_status"`
	ReplyError        *string     `json:"reply_error,omitempty"`
	KeywordTriggered  bool        `json:"keyword_triggered"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}
