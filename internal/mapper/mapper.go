package mapper

import (
	"encoding/json"
	"fmt"
)

// CanonicalEventType is the semantic type of a changes[] item.
type CanonicalEventType string

const (
	EventComment      CanonicalEventType = "comment"
	EventMention      CanonicalEventType = "mention"
	EventStoryMention CanonicalEventType = "story_mention"
	EventMessage      CanonicalEventType = "message"
)

// MapChange maps a changes[].field value to its canonical type.
// Unknown fields map to "".
func MapChange(field string) CanonicalEventType {
	switch field {
	case "comments", "feed":
		return EventComment
	case "mentions":
		return EventMention
	case "story_mentions", "story_insights":
		return EventStoryMention
	case "messages":
		return EventMessage
	}
	return ""
}

// Envelope is the top-level webhook body shared by Instagram, Messenger and
// the WhatsApp Cloud API.
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []Messaging `json:"messaging"`
	Changes   []Change    `json:"changes"`
}

type Participant struct {
	ID string `json:"id"`
}

type Messaging struct {
	Sender    Participant       `json:"sender"`
	Recipient Participant       `json:"recipient"`
	Timestamp int64             `json:"timestamp"`
	Message   *MessagingMessage `json:"message"`
}

type MessagingMessage struct {
	Mid         string       `json:"mid"`
	Text        string       `json:"text"`
	IsEcho      bool         `json:"is_echo"`
	Attachments []Attachment `json:"attachments"`
}

type Attachment struct {
	Type    string `json:"type"`
	Payload struct {
		URL string `json:"url"`
	} `json:"payload"`
}

type Change struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// Decode parses a webhook body. A body without an entry list decodes to an
// envelope with no entries rather than an error.
func Decode(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding webhook envelope: %w", err)
	}
	return &env, nil
}
