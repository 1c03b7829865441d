package reply

import (
	"context"

	"github.com/husainf4l/baridai-sub000/internal/model"
)

const DefaultWindowCap = 10

// ConversationStore holds a bounded conversation window per sender.
//
// Every window returned starts with the system preamble and carries at most
// cap non-system turns after it; the oldest turns are evicted first.
type ConversationStore interface {
	Get(ctx context.Context, senderID string) ([]model.ConversationTurn, error)
	// Append adds turns to the sender's window, trims it and returns the result.
	Append(ctx context.Context, senderID string, turns ...model.ConversationTurn) ([]model.ConversationTurn, error)
	// Clear resets the sender's window to the preamble.
	Clear(ctx context.Context, senderID string) error
}

func preambleTurn(preamble string) model.ConversationTurn {
	return model.ConversationTurn{Role: model.RoleSystem, Text: preamble}
}

// trimTurns keeps the newest limit turns.
func trimTurns(turns []model.ConversationTurn, limit int) []model.ConversationTurn {
	if len(turns) <= limit {
		return turns
	}
	kept := make([]model.ConversationTurn, limit)
	copy(kept, turns[len(turns)-limit:])
	return kept
}

func withPreamble(preamble string, turns []model.ConversationTurn) []model.ConversationTurn {
	out := make([]model.ConversationTurn, 0, len(turns)+1)
	out = append(out, preambleTurn(preamble))
	return append(out, turns...)
}

// storable drops system turns; the preamble is never stored per sender.
func storable(turns []model.ConversationTurn) []model.ConversationTurn {
	out := make([]model.ConversationTurn, 0, len(turns))
	for _, t := range turns {
		if t.Role != model.RoleSystem {
			out = append(out, t)
		}
	}
	return out
}
