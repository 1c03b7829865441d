package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/husainf4l/baridai-sub000/common/llm"
)

var _ = Describe("SanitizeName", func() {
	DescribeTable("sanitizes participant names for the OpenAI name parameter",
		func(input, expected string) {
			Expect(llm.SanitizeName(input)).To(Equal(expected))
		},
		Entry("valid name unchanged", "alice", "alice"),
		Entry("dots replaced with underscore", "alice.smith", "alice_smith"),
		Entry("@ replaced with underscore", "alice@dev", "alice_dev"),
		Entry("hyphens preserved", "alice-dev", "alice-dev"),
		Entry("spaces replaced", "alice smith", "alice_smith"),
		Entry("long name truncated to 64 chars", strings.Repeat("a", 100), strings.Repeat("a", 64)),
		Entry("empty string unchanged", "", ""),
	)
})

var _ = Describe("NewChatClient", func() {
	It("requires an API key", func() {
		_, err := llm.NewChatClient(llm.Config{Provider: llm.ProviderOpenAI})
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown providers", func() {
		_, err := llm.NewChatClient(llm.Config{Provider: "cohere", APIKey: "k"})
		Expect(err).To(MatchError(ContainSubstring("unsupported LLM provider")))
	})

	It("defaults to OpenAI", func() {
		client, err := llm.NewChatClient(llm.Config{APIKey: "k"})
		Expect(err).NotTo(HaveOccurred())
		Expect(client.Model()).To(Equal("gpt-4o-mini"))
	})
})

var _ = Describe("OpenAI chat", func() {
	var (
		server   *httptest.Server
		received map[string]any
	)

	BeforeEach(func() {
		received = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/v1/chat/completions"))
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer test-key"))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())

			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
				"choices":[{"index":0,"message":{"role":"assistant","content":"Our prices start at $10."},"finish_reason":"stop"}],
				"usage":{"prompt_tokens":12,"completion_tokens":7,"total_tokens":19}}`)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("sends the full conversation and returns the completion", func() {
		client, err := llm.NewChatClient(llm.Config{APIKey: "test-key", BaseURL: server.URL + "/v1/"})
		Expect(err).NotTo(HaveOccurred())

		resp, err := client.Chat(context.Background(), llm.ChatRequest{
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: "be brief"},
				{Role: llm.RoleUser, Content: "price?"},
				{Role: llm.RoleAssistant, Content: "Which product?"},
				{Role: llm.RoleUser, Content: "the basic one"},
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Content).To(Equal("Our prices start at $10."))
		Expect(resp.FinishReason).To(Equal("stop"))
		Expect(resp.PromptTokens).To(Equal(12))

		Expect(received["model"]).To(Equal("gpt-4o-mini"))
		Expect(received["messages"]).To(HaveLen(4))
	})
})

var _ = Describe("Anthropic chat", func() {
	var (
		server   *httptest.Server
		received map[string]any
	)

	BeforeEach(func() {
		received = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/v1/messages"))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())

			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
				"content":[{"type":"text","text":"Hello "},{"type":"text","text":"there"}],
				"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":5,"output_tokens":2}}`)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("moves system turns out of the message list", func() {
		client, err := llm.NewChatClient(llm.Config{
			Provider: llm.ProviderAnthropic,
			APIKey:   "test-key",
			BaseURL:  server.URL,
			Model:    "claude-test",
		})
		Expect(err).NotTo(HaveOccurred())

		resp, err := client.Chat(context.Background(), llm.ChatRequest{
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: "be brief"},
				{Role: llm.RoleUser, Content: "hi"},
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Content).To(Equal("Hello there"))
		Expect(resp.FinishReason).To(Equal("stop"))

		Expect(received["system"]).To(HaveLen(1))
		Expect(received["messages"]).To(HaveLen(1))
	})

	It("refuses a conversation with only system turns", func() {
		client, err := llm.NewChatClient(llm.Config{Provider: llm.ProviderAnthropic, APIKey: "k", BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = client.Chat(context.Background(), llm.ChatRequest{
			Messages: []llm.Message{{Role: llm.RoleSystem, Content: "be brief"}},
		})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Speech", func() {
	var server *httptest.Server

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/v1/audio/transcriptions":
				_ = r.ParseMultipartForm(1 << 20)
				if r.FormValue("model") != "whisper-1" {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"text":"what are your opening hours"}`)
			case "/v1/audio/speech":
				w.Header().Set("Content-Type", "audio/mpeg")
				_, _ = w.Write([]byte("ID3-fake-mp3"))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("transcribes audio", func() {
		client, err := llm.NewSpeechClient(llm.SpeechConfig{APIKey: "k", BaseURL: server.URL + "/v1/"})
		Expect(err).NotTo(HaveOccurred())

		text, err := client.Transcribe(context.Background(), strings.NewReader("audio-bytes"), "voice.mp4")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("what are your opening hours"))
	})

	It("synthesizes speech", func() {
		client, err := llm.NewSpeechClient(llm.SpeechConfig{APIKey: "k", BaseURL: server.URL + "/v1/"})
		Expect(err).NotTo(HaveOccurred())

		audio, err := client.Synthesize(context.Background(), "We open at nine.")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(audio)).To(Equal("ID3-fake-mp3"))
	})

	It("requires an API key", func() {
		_, err := llm.NewSpeechClient(llm.SpeechConfig{})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("IsRetryable", func() {
	ctx := context.Background()

	It("does not retry nil or cancelled errors", func() {
		Expect(llm.IsRetryable(ctx, nil)).To(BeFalse())
		Expect(llm.IsRetryable(ctx, context.Canceled)).To(BeFalse())
		Expect(llm.IsRetryable(ctx, context.DeadlineExceeded)).To(BeFalse())
	})

	It("retries network errors", func() {
		Expect(llm.IsRetryable(ctx, errors.New("connection reset by peer"))).To(BeTrue())
	})
})
