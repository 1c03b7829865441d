package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, so business context (integration_id,
// automation_id, sender_id, etc.) is included in every log statement below the
// point where it was attached.
type LogFields struct {
	IntegrationID    *int64  // Integration (credential) ID
	AutomationID     *int64  // Automation being run in a fan-out cycle
	InboundMessageID *int64  // Persisted inbound message row
	MessageID        *string // Redis stream message ID
	SenderID         *string // External sender ID on the messaging platform
	Platform         *string // Platform name (e.g., "INSTAGRAM")
	Component        string  // Component name (OTel semantic convention style, e.g., "relay.service.processor")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

// mergeFields merges two LogFields, preferring non-nil/non-empty values from 'new'.
func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.IntegrationID != nil {
		result.IntegrationID = new.IntegrationID
	}
	if new.AutomationID != nil {
		result.AutomationID = new.AutomationID
	}
	if new.InboundMessageID != nil {
		result.InboundMessageID = new.InboundMessageID
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.SenderID != nil {
		result.SenderID = new.SenderID
	}
	if new.Platform != nil {
		result.Platform = new.Platform
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{AutomationID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long strings like message bodies or error payloads.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
