package mapper

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/husainf4l/baridai-sub000/internal/domain"
	"github.com/husainf4l/baridai-sub000/internal/model"
)

// NormalizeMessaging converts a messaging[] item into a MessageEvent.
// Items without a message (reads, deliveries, reactions) return false.
func NormalizeMessaging(platform model.Platform, accountID string, m Messaging) (domain.MessageEvent, bool) {
	if m.Message == nil {
		return domain.MessageEvent{}, false
	}

	ev := domain.MessageEvent{
		Platform:    platform,
		AccountID:   accountID,
		SenderID:    m.Sender.ID,
		RecipientID: m.Recipient.ID,
		Text:        m.Message.Text,
		MessageID:   m.Message.Mid,
		IsEcho:      m.Message.IsEcho,
	}
	if m.Timestamp > 0 {
		ev.Timestamp = time.UnixMilli(m.Timestamp)
	}

	for _, att := range m.Message.Attachments {
		if att.Type == "audio" && att.Payload.URL != "" {
			ev.IsVoice = true
			ev.VoiceURL = att.Payload.URL
			break
		}
	}

	return ev, true
}

// WhatsAppValue is the value of a "messages" change from the WhatsApp Cloud API.
type WhatsAppValue struct {
	MessagingProduct string `json:"messaging_product"`
	Metadata         struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Messages []WhatsAppMessage `json:"messages"`
}

type WhatsAppMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Audio *struct {
		ID       string `json:"id"`
		MimeType string `json:"mime_type"`
		Voice    bool   `json:"voice"`
	} `json:"audio"`
}

// NormalizeWhatsAppMessages converts the messages of a "messages" change.
// The returned account id is value.metadata.phone_number_id when present,
// otherwise fallbackAccountID (the entry id).
func NormalizeWhatsAppMessages(raw json.RawMessage, fallbackAccountID string) ([]domain.MessageEvent, string, error) {
	var value WhatsAppValue
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fallbackAccountID, fmt.Errorf("decoding whatsapp change value: %w", err)
	}

	accountID := fallbackAccountID
	if value.Metadata.PhoneNumberID != "" {
		accountID = value.Metadata.PhoneNumberID
	}

	events := make([]domain.MessageEvent, 0, len(value.Messages))
	for _, msg := range value.Messages {
		ev := domain.MessageEvent{
			Platform:    model.PlatformWhatsApp,
			AccountID:   accountID,
			SenderID:    msg.From,
			RecipientID: accountID,
			MessageID:   msg.ID,
		}
		if msg.Text != nil {
			ev.Text = msg.Text.Body
		}
		if msg.Audio != nil && msg.Audio.ID != "" {
			ev.IsVoice = true
			ev.VoiceMediaID = msg.Audio.ID
			ev.VoiceMimeType = msg.Audio.MimeType
		}
		if sec, err := strconv.ParseInt(msg.Timestamp, 10, 64); err == nil {
			ev.Timestamp = time.Unix(sec, 0)
		}
		events = append(events, ev)
	}
	return events, accountID, nil
}
