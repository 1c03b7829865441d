package reply

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/husainf4l/baridai-sub000/common"
	"github.com/husainf4l/baridai-sub000/common/llm"
	"github.com/husainf4l/baridai-sub000/common/logger"
	"github.com/husainf4l/baridai-sub000/internal/model"
)

var (
	// ErrTranscription is returned when a voice message cannot be turned into text.
	ErrTranscription = errors.New("voice transcription failed")
	ErrEmptyReply    = errors.New("model returned an empty reply")
	ErrChatDisabled  = errors.New("no chat model configured")
)

const defaultMaxAudioBytes = 25 << 20

// AudioUploader stores synthesized audio and returns a URL the platform can fetch.
type AudioUploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type ReplyRequest struct {
	SenderID      string
	Text          string
	IsVoice       bool
	VoiceURL      string
	VoiceToken    string // bearer token for the voice download, if the URL needs one
	VoiceMimeType string
	Instructions  string // per-automation prompt, sent as an extra system turn
}

type Reply struct {
	Text     string
	AudioURL string
}

type GeneratorConfig struct {
	MaxTokens     int
	WindowCap     int           // non-system turns sent to the model
	ChatAttempts  int           // total tries for retryable chat errors
	RetryInterval time.Duration // first backoff step between chat tries
	MaxAudioBytes int64
	HTTPClient    *http.Client // used to download voice notes
}

// Generator produces replies from the sender's conversation window.
type Generator struct {
	chat     llm.ChatClient   // nil leaves only history management
	speech   llm.SpeechClient // nil disables voice
	uploader AudioUploader    // nil disables voice replies
	memory   ConversationStore
	cfg      GeneratorConfig
}

func NewGenerator(chat llm.ChatClient, speech llm.SpeechClient, uploader AudioUploader, memory ConversationStore, cfg GeneratorConfig) *Generator {
	if cfg.MaxAudioBytes <= 0 {
		cfg.MaxAudioBytes = defaultMaxAudioBytes
	}
	if cfg.ChatAttempts <= 0 {
		cfg.ChatAttempts = 2
	}
	if cfg.WindowCap <= 0 {
		cfg.WindowCap = DefaultWindowCap
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 300 * time.Millisecond
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Generator{
		chat:     chat,
		speech:   speech,
		uploader: uploader,
		memory:   memory,
		cfg:      cfg,
	}
}

func (g *Generator) Generate(ctx context.Context, req ReplyRequest) (*Reply, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SenderID:  &req.SenderID,
		Component: "relay.reply.generator",
	})

	if g.chat == nil {
		return nil, ErrChatDisabled
	}

	text := req.Text
	if req.IsVoice {
		transcript, err := g.transcribe(ctx, req)
		if err != nil {
			return nil, err
		}
		text = transcript
	}

	history, err := g.memory.Get(ctx, req.SenderID)
	if err != nil {
		return nil, fmt.Errorf("loading conversation window: %w", err)
	}
	userTurn := model.ConversationTurn{Role: model.RoleUser, Text: text}
	window := nextWindow(history, userTurn, g.cfg.WindowCap)

	resp, err := g.complete(ctx, llm.ChatRequest{
		Messages:  toMessages(window, req.Instructions),
		MaxTokens: g.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generating reply: %w", err)
	}

	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		return nil, ErrEmptyReply
	}

	// Turns are stored only once the exchange is complete.
	if _, err := g.memory.Append(ctx, req.SenderID, userTurn, model.ConversationTurn{Role: model.RoleAssistant, Text: answer}); err != nil {
		slog.WarnContext(ctx, "failed to record conversation turns", "error", err)
	}

	out := &Reply{Text: answer}
	if req.IsVoice {
		out.AudioURL = g.voiceReply(ctx, req.SenderID, answer)
	}

	slog.InfoContext(ctx, "reply generated",
		"voice", req.IsVoice,
		"audio", out.AudioURL != "",
		"window_len", len(window)+1,
		"completion_tokens", resp.CompletionTokens)

	return out, nil
}

func (g *Generator) complete(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.cfg.RetryInterval
	b.MaxElapsedTime = 0

	var resp *llm.ChatResponse
	err := backoff.Retry(func() error {
		var err error
		resp, err = g.chat.Chat(ctx, req)
		if err != nil && !llm.IsRetryable(ctx, err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(g.cfg.ChatAttempts-1)), ctx))
	return resp, err
}

// ClearHistory resets the sender's window to the preamble.
func (g *Generator) ClearHistory(ctx context.Context, senderID string) error {
	return g.memory.Clear(ctx, senderID)
}

func (g *Generator) transcribe(ctx context.Context, req ReplyRequest) (string, error) {
	if g.speech == nil {
		return "", fmt.Errorf("%w: speech client not configured", ErrTranscription)
	}
	if req.VoiceURL == "" {
		return "", fmt.Errorf("%w: missing voice url", ErrTranscription)
	}

	audio, err := g.download(ctx, req.VoiceURL, req.VoiceToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}

	name := audioFilename(req.VoiceURL, req.VoiceMimeType)

	transcript, err := g.speech.Transcribe(ctx, bytes.NewReader(audio), name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", fmt.Errorf("%w: empty transcript", ErrTranscription)
	}
	return transcript, nil
}

func (g *Generator) download(ctx context.Context, url, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building download request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := g.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("downloading audio: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, g.cfg.MaxAudioBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}
	if int64(len(data)) > g.cfg.MaxAudioBytes {
		return nil, fmt.Errorf("audio exceeds %d bytes", g.cfg.MaxAudioBytes)
	}
	return data, nil
}

// audioFilename names the upload for the transcription API, which picks the
// decoder from the extension.
func audioFilename(voiceURL, mimeType string) string {
	mediaType := strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	switch mediaType {
	case "audio/ogg", "audio/opus":
		return "voice.ogg"
	case "audio/mpeg":
		return "voice.mp3"
	case "audio/mp4", "audio/aac", "audio/x-m4a":
		return "voice.m4a"
	case "audio/amr":
		return "voice.amr"
	}

	name := path.Base(strings.SplitN(voiceURL, "?", 2)[0])
	if name == "" || name == "/" || name == "." || path.Ext(name) == "" {
		return "voice.mp4"
	}
	return name
}

// voiceReply returns "" on any failure; the text reply still goes out.
func (g *Generator) voiceReply(ctx context.Context, senderID, text string) string {
	if g.speech == nil || g.uploader == nil {
		return ""
	}

	audio, err := g.speech.Synthesize(ctx, text)
	if err != nil {
		slog.WarnContext(ctx, "speech synthesis failed, replying with text only", "error", err)
		return ""
	}

	owner, err := common.Slugify(senderID, "unknown-sender")
	if err != nil {
		return ""
	}
	key := common.SlugPath(owner, uuid.NewString()) + ".mp3"

	url, err := g.uploader.Upload(ctx, key, audio, "audio/mpeg")
	if err != nil {
		slog.WarnContext(ctx, "audio upload failed, replying with text only", "error", err)
		return ""
	}
	return url
}

// nextWindow appends turn to the stored history and trims it to limit
// non-system turns, keeping a leading preamble.
func nextWindow(history []model.ConversationTurn, turn model.ConversationTurn, limit int) []model.ConversationTurn {
	var head []model.ConversationTurn
	if len(history) > 0 && history[0].Role == model.RoleSystem {
		head, history = history[:1], history[1:]
	}
	turns := trimTurns(append(storable(history), turn), limit)

	out := make([]model.ConversationTurn, 0, len(head)+len(turns))
	out = append(out, head...)
	return append(out, turns...)
}

func toMessages(window []model.ConversationTurn, instructions string) []llm.Message {
	msgs := make([]llm.Message, 0, len(window)+1)
	for i, t := range window {
		msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Text})
		if i == 0 && strings.TrimSpace(instructions) != "" {
			msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: instructions})
		}
	}
	return msgs
}
