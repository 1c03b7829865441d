package reply

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/husainf4l/baridai-sub000/internal/model"
)

type window struct {
	mu    sync.Mutex
	turns []model.ConversationTurn
}

// LRUStore keeps windows in process memory. The least recently used sender
// is dropped once maxSenders is reached.
type LRUStore struct {
	preamble  string
	windowCap int

	mu    sync.Mutex // serializes get-or-create
	cache *lru.Cache[string, *window]
}

func NewLRUStore(preamble string, windowCap, maxSenders int) (*LRUStore, error) {
	if windowCap <= 0 {
		windowCap = DefaultWindowCap
	}
	if maxSenders <= 0 {
		maxSenders = 10000
	}
	cache, err := lru.New[string, *window](maxSenders)
	if err != nil {
		return nil, fmt.Errorf("creating conversation cache: %w", err)
	}
	return &LRUStore{preamble: preamble, windowCap: windowCap, cache: cache}, nil
}

func (s *LRUStore) window(senderID string) *window {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.cache.Get(senderID); ok {
		return w
	}
	w := &window{}
	s.cache.Add(senderID, w)
	return w
}

func (s *LRUStore) Get(_ context.Context, senderID string) ([]model.ConversationTurn, error) {
	w := s.window(senderID)
	w.mu.Lock()
	defer w.mu.Unlock()
	return withPreamble(s.preamble, w.turns), nil
}

func (s *LRUStore) Append(_ context.Context, senderID string, turns ...model.ConversationTurn) ([]model.ConversationTurn, error) {
	w := s.window(senderID)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.turns = trimTurns(append(w.turns, storable(turns)...), s.windowCap)
	return withPreamble(s.preamble, w.turns), nil
}

func (s *LRUStore) Clear(_ context.Context, senderID string) error {
	if w, ok := s.cache.Peek(senderID); ok {
		w.mu.Lock()
		w.turns = nil
		w.mu.Unlock()
	}
	return nil
}

// Len reports the number of senders with a window.
func (s *LRUStore) Len() int {
	return s.cache.Len()
}
