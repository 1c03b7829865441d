package store

import (
	"context"

	"github.com/husainf4l/baridai-sub000/core/db/sqlc"
	"github.com/husainf4l/baridai-sub000/internal/model"
)

type messageStore struct {
	queries *sqlc.Queries
}

func newMessageStore(queries *sqlc.Queries) MessageStore {
	return &messageStore{queries: queries}
}

func (s *messageStore) Create(ctx context.Context, msg *model.InboundMessage) error {
	row, err := s.queries.CreateInboundMessage(ctx, sqlc.CreateInboundMessageParams{
		ID:                msg.ID,
		AutomationID:      msg.AutomationID,
		SenderID:          msg.SenderID,
		RecipientID:       msg.RecipientID,
		Message:           msg.Message,
		PlatformMessageID: msg.PlatformMessageID,
	})
	if err != nil {
		return err
	}
	*msg = *toInboundMessageModel(row)
	return nil
}

func (s *messageStore) MarkReplyResult(ctx context.Context, id int64, status model.ReplyStatus, replyErr *string, keywordTriggered bool) error {
	return s.queries.MarkInboundMessageReply(ctx, sqlc.MarkInboundMessageReplyParams{
		ID:               id,
		ReplyStatus:      string(status),
		ReplyError:       replyErr,
		KeywordTriggered: keywordTriggered,
	})
}

func (s *messageStore) StatsByAutomation(ctx context.Context, automationID int64) (*model.AutomationStats, error) {
	row, err := s.queries.GetAutomationStats(ctx, automationID)
	if err != nil {
		return nil, err
	}
	stats := &model.AutomationStats{
		AutomationID: automationID,
		RunCount:     row.RunCount,
		SentCount:    row.SentCount,
	}
	if row.RunCount > 0 {
		stats.SuccessRate = float64(row.SentCount) / float64(row.RunCount)
	}
	return stats, nil
}

func toInboundMessageModel(row sqlc.InboundMessage) *model.InboundMessage {
	return &model.InboundMessage{
		ID:                row.ID,
		AutomationID:      row.AutomationID,
		SenderID:          row.SenderID,
		RecipientID:       row.RecipientID,
		Message:           row.Message,
		PlatformMessageID: row.PlatformMessageID,
		ReplyStatus:       model.ReplyStatus(row.ReplyStatus),
		ReplyError:        row.ReplyError,
		KeywordTriggered:  row.KeywordTriggered,
		CreatedAt:         row.CreatedAt.Time,
		UpdatedAt:         row.UpdatedAt.Time,
	}
}
