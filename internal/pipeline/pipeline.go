package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/husainf4l/baridai-sub000/common/llm"
	"github.com/husainf4l/baridai-sub000/core/config"
	"github.com/husainf4l/baridai-sub000/internal/queue"
	"github.com/husainf4l/baridai-sub000/internal/reply"
	"github.com/husainf4l/baridai-sub000/internal/service"
	"github.com/husainf4l/baridai-sub000/internal/service/audiostore"
	"github.com/husainf4l/baridai-sub000/internal/service/forwarder"
	"github.com/husainf4l/baridai-sub000/internal/service/messenger"
	"github.com/husainf4l/baridai-sub000/internal/store"
)

const dedupePrefix = "relay:dedupe:"

// Pipeline holds the processing side of the relay: everything a worker
// needs to turn a delivery into replies.
type Pipeline struct {
	Processor service.EventProcessor
	// Generator also serves admin history resets, so it exists even when no
	// chat model is configured.
	Generator *reply.Generator
}

// New builds the pipeline from configuration. redisClient may be nil when
// the relay runs without Redis; dedupe is then disabled and the memory
// backend must be "lru".
func New(ctx context.Context, cfg config.Config, stores *store.Stores, redisClient *redis.Client) (*Pipeline, error) {
	memory, err := newMemory(cfg.Reply, redisClient)
	if err != nil {
		return nil, err
	}

	var chat llm.ChatClient
	if cfg.ReplyLLM.Enabled() {
		chat, err = llm.NewChatClient(llm.Config{
			Provider:  cfg.ReplyLLM.Provider,
			APIKey:    cfg.ReplyLLM.APIKey,
			BaseURL:   cfg.ReplyLLM.BaseURL,
			Model:     cfg.ReplyLLM.Model,
			MaxTokens: cfg.ReplyLLM.MaxTokens,
			Timeout:   cfg.ReplyLLM.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("creating chat client: %w", err)
		}
		slog.InfoContext(ctx, "reply generator enabled", "provider", cfg.ReplyLLM.Provider, "model", chat.Model())
	}

	var speech llm.SpeechClient
	if cfg.Speech.Enabled() {
		speech, err = llm.NewSpeechClient(llm.SpeechConfig{
			APIKey:             cfg.Speech.APIKey,
			BaseURL:            cfg.Speech.BaseURL,
			TranscriptionModel: cfg.Speech.TranscriptionModel,
			SpeechModel:        cfg.Speech.SpeechModel,
			Voice:              cfg.Speech.Voice,
			Timeout:            cfg.Speech.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("creating speech client: %w", err)
		}
	}

	// A nil *audiostore.Store must not reach the interface.
	var uploader reply.AudioUploader
	if cfg.AudioStore.Enabled() {
		s, err := audiostore.New(ctx, audiostore.Config{
			Bucket:    cfg.AudioStore.Bucket,
			Region:    cfg.AudioStore.Region,
			Endpoint:  cfg.AudioStore.Endpoint,
			AccessKey: cfg.AudioStore.AccessKey,
			SecretKey: cfg.AudioStore.SecretKey,
			Prefix:    cfg.AudioStore.Prefix,
			URLExpiry: cfg.AudioStore.URLExpiry,
		})
		if err != nil {
			return nil, fmt.Errorf("creating audio store: %w", err)
		}
		uploader = s
	}

	generator := reply.NewGenerator(chat, speech, uploader, memory, reply.GeneratorConfig{
		MaxTokens: cfg.ReplyLLM.MaxTokens,
		WindowCap: cfg.Reply.WindowCap,
	})

	deduper := queue.NewNoopDeduper()
	if redisClient != nil {
		deduper = queue.NewRedisDeduper(redisClient, dedupePrefix, cfg.Pipeline.DedupeTTL)
	}

	deps := service.EventProcessorDeps{
		Integrations: stores.Integrations(),
		Automations:  stores.Automations(),
		Messages:     stores.Messages(),
		Messenger: messenger.New(messenger.Config{
			GraphBaseURL:   cfg.Meta.GraphBaseURL,
			GraphVersion:   cfg.Meta.GraphVersion,
			MinTokenLength: cfg.Meta.MinTokenLength,
			Timeout:        cfg.Meta.SendTimeout,
			MaxAttempts:    cfg.Meta.SendAttempts,
		}),
		Deduper: deduper,
	}
	if cfg.Forwarder.Enabled() {
		deps.Forwarder = forwarder.New(forwarder.Config{
			URL:     cfg.Forwarder.URL,
			Timeout: cfg.Forwarder.Timeout,
		})
	}
	if chat != nil {
		deps.Generator = generator
	}

	processor := service.NewEventProcessor(deps, service.EventProcessorConfig{
		DefaultReply:      cfg.Reply.DefaultText,
		GeneratorFallback: cfg.Reply.GeneratorFallback,
		FanOutConcurrency: cfg.Pipeline.FanOutConcurrency,
	})

	slog.InfoContext(ctx, "pipeline ready",
		"forwarder", cfg.Forwarder.Enabled(),
		"generator", chat != nil,
		"voice", speech != nil && uploader != nil,
		"memory", cfg.Reply.MemoryBackend,
		"dedupe", redisClient != nil)

	return &Pipeline{Processor: processor, Generator: generator}, nil
}

func newMemory(cfg config.ReplyConfig, redisClient *redis.Client) (reply.ConversationStore, error) {
	switch cfg.MemoryBackend {
	case config.MemoryBackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis memory backend requires REDIS_URL")
		}
		return reply.NewRedisStore(redisClient, cfg.SystemPrompt, cfg.WindowCap, cfg.MemoryTTL), nil
	default:
		s, err := reply.NewLRUStore(cfg.SystemPrompt, cfg.WindowCap, cfg.MaxSenders)
		if err != nil {
			return nil, fmt.Errorf("creating conversation memory: %w", err)
		}
		return s, nil
	}
}

// NewHistory returns a generator that only manages conversation memory. The
// gateway uses it for admin resets; with the "lru" backend it only sees its
// own process's memory.
func NewHistory(cfg config.ReplyConfig, redisClient *redis.Client) (*reply.Generator, error) {
	memory, err := newMemory(cfg, redisClient)
	if err != nil {
		return nil, err
	}
	return reply.NewGenerator(nil, nil, nil, memory, reply.GeneratorConfig{}), nil
}
