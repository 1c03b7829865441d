package reply

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/husainf4l/baridai-sub000/internal/model"
)

// RedisStore keeps windows in Redis lists so several relay instances share
// one memory. Windows expire after ttl without activity.
type RedisStore struct {
	client    *redis.Client
	preamble  string
	windowCap int
	ttl       time.Duration
	prefix    string
}

func NewRedisStore(client *redis.Client, preamble string, windowCap int, ttl time.Duration) *RedisStore {
	if windowCap <= 0 {
		windowCap = DefaultWindowCap
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{
		client:    client,
		preamble:  preamble,
		windowCap: windowCap,
		ttl:       ttl,
		prefix:    "relay:conversation:",
	}
}

func (s *RedisStore) key(senderID string) string {
	return s.prefix + senderID
}

func (s *RedisStore) Get(ctx context.Context, senderID string) ([]model.ConversationTurn, error) {
	raw, err := s.client.LRange(ctx, s.key(senderID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading conversation: %w", err)
	}
	return s.decode(raw)
}

func (s *RedisStore) Append(ctx context.Context, senderID string, turns ...model.ConversationTurn) ([]model.ConversationTurn, error) {
	turns = storable(turns)
	key := s.key(senderID)

	values := make([]any, 0, len(turns))
	for _, t := range turns {
		data, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("encoding turn: %w", err)
		}
		values = append(values, data)
	}

	var rangeCmd *redis.StringSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(values) > 0 {
			pipe.RPush(ctx, key, values...)
		}
		pipe.LTrim(ctx, key, int64(-s.windowCap), -1)
		pipe.Expire(ctx, key, s.ttl)
		rangeCmd = pipe.LRange(ctx, key, 0, -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("appending conversation: %w", err)
	}
	return s.decode(rangeCmd.Val())
}

func (s *RedisStore) Clear(ctx context.Context, senderID string) error {
	if err := s.client.Del(ctx, s.key(senderID)).Err(); err != nil {
		return fmt.Errorf("clearing conversation: %w", err)
	}
	return nil
}

func (s *RedisStore) decode(raw []string) ([]model.ConversationTurn, error) {
	turns := make([]model.ConversationTurn, 0, len(raw))
	for _, r := range raw {
		var t model.ConversationTurn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			return nil, fmt.Errorf("decoding turn: %w", err)
		}
		turns = append(turns, t)
	}
	return withPreamble(s.preamble, trimTurns(turns, s.windowCap)), nil
}
