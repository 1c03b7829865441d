package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"time"

	"github.com/openai/openai-go"
)

const maxSynthesizedBytes = 10 << 20

// SpeechClient converts between audio and text.
type SpeechClient interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
	// Synthesize returns MP3 audio for text.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type SpeechConfig struct {
	APIKey             string
	BaseURL            string
	TranscriptionModel string // e.g. "whisper-1"
	SpeechModel        string // e.g. "tts-1"
	Voice              string // e.g. "alloy"
	Timeout            time.Duration
	MaxRetries         int
}

type openaiSpeechClient struct {
	client             openai.Client
	transcriptionModel string
	speechModel        string
	voice              string
}

// NewSpeechClient returns an OpenAI-compatible speech client.
func NewSpeechClient(cfg SpeechConfig) (SpeechClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	c := &openaiSpeechClient{
		client:             openai.NewClient(openaiOptions(cfg.APIKey, cfg.BaseURL, cfg.Timeout, cfg.MaxRetries)...),
		transcriptionModel: cfg.TranscriptionModel,
		speechModel:        cfg.SpeechModel,
		voice:              cfg.Voice,
	}
	if c.transcriptionModel == "" {
		c.transcriptionModel = "whisper-1"
	}
	if c.speechModel == "" {
		c.speechModel = "tts-1"
	}
	if c.voice == "" {
		c.voice = "alloy"
	}
	return c, nil
}

func (c *openaiSpeechClient) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if filename == "" {
		filename = "voice.mp4"
	}
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	start := time.Now()
	resp, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(audio, filename, contentType),
		Model: openai.AudioModel(c.transcriptionModel),
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}

	slog.DebugContext(ctx, "audio transcription done",
		"model", c.transcriptionModel,
		"duration_ms", time.Since(start).Milliseconds(),
		"transcript_len", len(resp.Text))

	return resp.Text, nil
}

func (c *openaiSpeechClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(c.speechModel),
		Voice:          openai.AudioSpeechNewParamsVoice(c.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSynthesizedBytes))
	if err != nil {
		return nil, fmt.Errorf("reading synthesized audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("openai speech: empty audio")
	}
	return data, nil
}
