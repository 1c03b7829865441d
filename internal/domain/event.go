package domain

import (
	"time"

	"github.com/husainf4l/baridai-sub000/internal/model"
)

// MessageEvent is one inbound message normalized from a webhook payload,
// independent of whether it arrived as a messaging[] item or a changes[] value.
type MessageEvent struct {
	Platform      model.Platform
	AccountID     string // business account the message was addressed to
	SenderID      string
	RecipientID   string
	Text          string
	MessageID     string // platform message id (mid / wamid)
	IsEcho        bool
	IsVoice       bool
	VoiceURL      string
	VoiceMediaID  string // WhatsApp media id, resolved to a URL with the integration token
	VoiceMimeType string
	Timestamp     time.Time
}

// SelfEcho reports whether the event was produced by the business account
// itself, e.g. the platform echoing our own outbound reply.
func (e MessageEvent) SelfEcho() bool {
	return e.IsEcho || (e.SenderID != "" && e.SenderID == e.AccountID)
}

// Actionable reports whether the event carries enough to run automations.
func (e MessageEvent) Actionable() bool {
	if e.SenderID == "" {
		return false
	}
	return e.Text != "" || (e.IsVoice && (e.VoiceURL != "" || e.VoiceMediaID != ""))
}
