package model

// Conversation turn roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one entry of a sender's conversation window.
type ConversationTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}
