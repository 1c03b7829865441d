package service_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/husainf4l/baridai-sub000/internal/model"
	"github.com/husainf4l/baridai-sub000/internal/queue"
	"github.com/husainf4l/baridai-sub000/internal/reply"
	"github.com/husainf4l/baridai-sub000/internal/service"
	"github.com/husainf4l/baridai-sub000/internal/service/forwarder"
	"github.com/husainf4l/baridai-sub000/internal/service/messenger"
)

const defaultReply = "Thanks for your message!"

func igDelivery(body string) queue.Delivery {
	return queue.Delivery{Platform: model.PlatformInstagram, Payload: []byte(body), Attempt: 1}
}

const igHi = `{"object":"instagram","entry":[{"id":"IG123","messaging":[{"sender":{"id":"U1"},"recipient":{"id":"IG123"},"message":{"mid":"m-1","text":"hi"}}]}]}`

const waVoice = `{"object":"whatsapp_business_account","entry":[{"id":"WABA1","changes":[{"field":"messages","value":{
	"messaging_product":"whatsapp",
	"metadata":{"display_phone_number":"15550000000","phone_number_id":"PN555"},
	"messages":[{"from":"15551234567","id":"wamid.2","timestamp":"1700000000","type":"audio",
		"audio":{"mime_type":"audio/ogg; codecs=opus","sha256":"abc=","id":"1234567890","voice":true}}]
}}]}]}`

var _ = Describe("EventProcessor", func() {
	var (
		ctx          context.Context
		integrations *mockIntegrationStore
		automations  *mockAutomationStore
		messages     *mockMessageStore
		sender       *mockMessenger
		fwd          *mockForwarder
		gen          *mockGenerator
		deduper      *mockDeduper
		cfg          service.EventProcessorConfig
		processor    service.EventProcessor
	)

	accountID := "IG123"
	credential := model.Integration{
		ID:                10,
		UserID:            1,
		Platform:          model.PlatformInstagram,
		AccessToken:       "EAAGm0PX4ZCpsBAKZCcbF2ZA",
		PlatformAccountID: &accountID,
	}
	bound := func(id int64) *int64 { return &id }

	build := func() {
		processor = service.NewEventProcessor(service.EventProcessorDeps{
			Integrations: integrations,
			Automations:  automations,
			Messages:     messages,
			Messenger:    sender,
			Forwarder:    fwd,
			Generator:    gen,
			Deduper:      deduper,
		}, cfg)
	}

	BeforeEach(func() {
		ctx = context.Background()
		integrations = &mockIntegrationStore{integrations: []model.Integration{credential}}
		automations = &mockAutomationStore{automations: []model.Automation{
			{ID: 100, UserID: 1, Name: "Welcome", Active: true, IntegrationID: bound(10)},
		}}
		messages = &mockMessageStore{}
		sender = &mockMessenger{}
		fwd = &mockForwarder{}
		gen = &mockGenerator{}
		deduper = &mockDeduper{}
		cfg = service.EventProcessorConfig{DefaultReply: defaultReply, FanOutConcurrency: 4, StoreTimeout: time.Second}
		build()
	})

	Describe("an Instagram DM for a bound automation", func() {
		It("persists one message and replies to the sender", func() {
			Expect(processor.Process(ctx, igDelivery(igHi))).To(Succeed())

			created := messages.Created()
			Expect(created).To(HaveLen(1))
			Expect(created[0].AutomationID).To(Equal(int64(100)))
			Expect(created[0].SenderID).To(Equal("U1"))
			Expect(created[0].RecipientID).To(Equal("IG123"))
			Expect(created[0].Message).To(Equal("hi"))
			Expect(*created[0].PlatformMessageID).To(Equal("m-1"))
			Expect(created[0].ReplyStatus).To(Equal(model.ReplyStatusPending))

			sent := sender.Sent()
			Expect(sent).To(HaveLen(1))
			Expect(sent[0]).To(Equal(sentReply{IntegrationID: 10, RecipientID: "U1", Text: defaultReply}))

			mark, ok := messages.Mark(created[0].ID)
			Expect(ok).To(BeTrue())
			Expect(mark.Status).To(Equal(model.ReplyStatusSent))
			Expect(mark.Error).To(BeNil())
		})

		It("does nothing when the automation is paused", func() {
			automations.automations[0].Active = false

			Expect(processor.Process(ctx, igDelivery(igHi))).To(Succeed())
			Expect(messages.Created()).To(BeEmpty())
			Expect(sender.Sent()).To(BeEmpty())
		})
	})

	Describe("fan-out", func() {
		It("creates one record per matching automation", func() {
			automations.automations = []model.Automation{
				{ID: 100, UserID: 1, Active: true, IntegrationID: bound(10)},
				{ID: 101, UserID: 1, Active: true},
				{ID: 102, UserID: 1, Active: true, IntegrationID: bound(99)},
				{ID: 103, UserID: 1, Active: false},
				{ID: 104, UserID: 2, Active: true},
				{ID: 105, UserID: 1, Active: true},
			}

			Expect(processor.Process(ctx, igDelivery(igHi))).To(Succeed())

			created := messages.Created()
			Expect(created).To(HaveLen(3))
			ids := make([]int64, 0, len(created))
			for _, m := range created {
				ids = append(ids, m.AutomationID)
				Expect(m.SenderID).To(Equal("U1"))
				Expect(m.RecipientID).To(Equal("IG123"))
				Expect(m.Message).To(Equal("hi"))
			}
			Expect(ids).To(ConsistOf(int64(100), int64(101), int64(105)))
			Expect(sender.Sent()).To(HaveLen(3))
		})

		It("keeps running sibling cycles when one send fails", func() {
			automations.automations = []model.Automation{
				{ID: 100, UserID: 1, Active: true},
				{ID: 101, UserID: 1, Active: true},
			}
			sender.sendFn = func(_ model.Integration, _, _ string) messenger.SendResult {
				return messenger.SendResult{Kind: messenger.KindAuthRejected, StatusCode: 401, Error: errors.New("bad token")}
			}

			Expect(processor.Process(ctx, igDelivery(igHi))).To(Succeed())

			created := messages.Created()
			Expect(created).To(HaveLen(2))
			for _, m := range created {
				mark, ok := messages.Mark(m.ID)
				Expect(ok).To(BeTrue())
				Expect(mark.Status).To(Equal(model.ReplyStatusFailed))
				Expect(*mark.Error).To(ContainSubstring("auth_rejected"))
			}
		})

		It("recovers from a panicking cycle", func() {
			sender.sendFn = func(_ model.Integration, _, _ string) messenger.SendResult {
				panic("boom")
			}
			Expect(processor.Process(ctx, igDelivery(igHi))).To(Succeed())
			Expect(messages.Created()).To(HaveLen(1))
		})

		It("handles several messaging items and entries in one delivery", func() {
			body := `{"object":"instagram","entry":[
				{"id":"IG123","messaging":[
					{"sender":{"id":"U1"},"recipient":{"id":"IG123"},"message":{"mid":"a","text":"one"}},
					{"sender":{"id":"U2"},"recipient":{"id":"IG123"},"message":{"mid":"b","text":"two"}}
				]},
				{"id":"IG999","messaging":[
					{"sender":{"id":"U3"},"recipient":{"id":"IG999"},"message":{"mid":"c","text":"three"}}
				]}
			]}`
			Expect(processor.Process(ctx, igDelivery(body))).To(Succeed())
			Expect(messages.Created()).To(HaveLen(2))
		})
	})

	Describe("no match", func() {
		It("creates nothing for an unknown account", func() {
			body := `{"object":"instagram","entry":[{"id":"IG404","messaging":[{"sender":{"id":"U1"},"recipient":{"id":"IG404"},"message":{"text":"hi"}}]}]}`
			Expect(processor.Process(ctx, igDelivery(body))).To(Succeed())
			Expect(messages.Created()).To(BeEmpty())
			Expect(sender.Sent()).To(BeEmpty())
		})

		It("ignores credentials of another platform", func() {
			integrations.integrations[0].Platform = model.PlatformFacebook
			Expect(processor.Process(ctx, igDelivery(igHi))).To(Succeed())
			Expect(messages.Created()).To(BeEmpty())
		})
	})

	Describe("malformed input", func() {
		DescribeTable("is acknowledged without lookups",
			func(body string) {
				Expect(processor.Process(ctx, igDelivery(body))).To(Succeed())
				Expect(integrations.findCalls).To(BeZero())
				Expect(messages.Created()).To(BeEmpty())
			},
			Entry("invalid JSON", `{not json`),
			Entry("wrong object", `{"object":"page","entry":[{"id":"IG123","messaging":[{"sender":{"id":"U1"},"message":{"text":"hi"}}]}]}`),
			Entry("no entries", `{"object":"instagram"}`),
			Entry("missing sender", `{"object":"instagram","entry":[{"id":"IG123","messaging":[{"sender":{"id":""},"recipient":{"id":"IG123"},"message":{"text":"hi"}}]}]}`),
			Entry("missing text", `{"object":"instagram","entry":[{"id":"IG123","messaging":[{"sender":{"id":"U1"},"recipient":{"id":"IG123"},"message":{"mid":"x"}}]}]}`),
			Entry("read receipt", `{"object":"instagram","entry":[{"id":"IG123","messaging":[{"sender":{"id":"U1"},"recipient":{"id":"IG123"},"read":{"mid":"x"}}]}]}`),
		)

		It("skips only the bad event in a batch", func() {
			body := `{"object":"instagram","entry":[{"id":"IG123","messaging":[
				{"sender":{"id":""},"recipient":{"id":"IG123"},"message":{"text":"lost"}},
				{"sender":{"id":"U1"},"recipient":{"id":"IG123"},"message":{"text":"hi"}}
			]}]}`
			Expect(processor.Process(ctx, igDelivery(body))).To(Succeed())
			Expect(messages.Created()).To(HaveLen(1))
		})
	})

	Describe("self-echo guard", func() {
		DescribeTable("drops events sent by the account itself",
			func(body string) {
				Expect(processor.Process(ctx, igDelivery(body))).To(Succeed())
				Expect(messages.Created()).To(BeEmpty())
				Expect(sender.Sent()).To(BeEmpty())
			},
			Entry("sender equals account", `{"object":"instagram","entry":[{"id":"IG123","messaging":[{"sender":{"id":"IG123"},"recipient":{"id":"U1"},"message":{"text":"our reply"}}]}]}`),
			Entry("flagged echo", `{"object":"instagram","entry":[{"id":"IG123","messaging":[{"sender":{"id":"IG123-alt"},"recipient":{"id":"U1"},"message":{"text":"our reply","is_echo":true}}]}]}`),
		)
	})

	Describe("duplicate suppression", func() {
		It("replies once to a redelivered message", func() {
			Expect(processor.Process(ctx, igDelivery(igHi))).To(Succeed())
			Expect(processor.Process(ctx, igDelivery(igHi))).To(Succeed())

			Expect(messages.Created()).To(HaveLen(1))
			Expect(sender.Sent()).To(HaveLen(1))
		})

		It("still fans a single message out to every automation", func() {
			automations.automations = append(automations.automations, model.Automation{ID: 101, UserID: 1, Active: true})
			Expect(processor.Process(ctx, igDelivery(igHi))).To(Succeed())
			Expect(messages.Created()).To(HaveLen(2))
		})
	})

	Describe("infrastructure failures", func() {
		It("returns credential lookup errors for retry", func() {
			integrations.findErr = errors.New("db down")
			err := processor.Process(ctx, igDelivery(igHi))
			Expect(err).To(MatchError(ContainSubstring("db down")))
			Expect(sender.Sent()).To(BeEmpty())
		})

		It("returns automation lookup errors for retry", func() {
			automations.listErr = errors.New("db down")
			Expect(processor.Process(ctx, igDelivery(igHi))).NotTo(Succeed())
		})

		It("still replies when persisting fails", func() {
			messages.createErr = errors.New("insert failed")
			Expect(processor.Process(ctx, igDelivery(igHi))).To(Succeed())
			Expect(sender.Sent()).To(HaveLen(1))
		})
	})

	Describe("reply selection", func() {
		It("uses the forwarder reply when available", func() {
			var got forwarder.Request
			fwd.enabled = true
			fwd.forwardFn = func(_ context.Context, req forwarder.Request) (string, error) {
				got = req
				return "from upstream", nil
			}
			Expect(processor.Process(ctx, igDelivery(igHi))).To(Succeed())
			Expect(sender.Sent()[0].Text).To(Equal("from upstream"))
			Expect(got.Automation.ID).To(Equal(int64(100)))
			Expect(got.Integration.ID).To(Equal(int64(10)))
			Expect(got.SenderID).To(Equal("U1"))
			Expect(got.Text).To(Equal("hi"))
		})

		It("sends the default text when the forwarder times out", func() {
			fwd.enabled = true
			fwd.forwardFn = func(ctx context.Context, _ forwarder.Request) (string, error) {
				return "", fmt.Errorf("forward request: %w", context.DeadlineExceeded)
			}
			Expect(processor.Process(ctx, igDelivery(igHi))).To(Succeed())
			Expect(sender.Sent()).To(HaveLen(1))
			Expect(sender.Sent()[0].Text).To(Equal(defaultReply))
		})

		It("uses the keyword reply for a triggered MESSAGE listener", func() {
			automations.automations[0].Listener = &model.Listener{Type: model.ListenerMessage, Prompt: "Here is our price list"}
			automations.automations[0].Keywords = []string{"PRICE"}

			body := `{"object":"instagram","entry":[{"id":"IG123","messaging":[{"sender":{"id":"U1"},"recipient":{"id":"IG123"},"message":{"text":"what's the price?"}}]}]}`
			Expect(processor.Process(ctx, igDelivery(body))).To(Succeed())

			Expect(sender.Sent()[0].Text).To(Equal("Here is our price list"))
			created := messages.Created()
			mark, _ := messages.Mark(created[0].ID)
			Expect(mark.KeywordTriggered).To(BeTrue())
		})

		It("replies with the default when keywords do not trigger", func() {
			automations.automations[0].Listener = &model.Listener{Type: model.ListenerMessage, Prompt: "Here is our price list"}
			automations.automations[0].Keywords = []string{"price"}

			Expect(processor.Process(ctx, igDelivery(igHi))).To(Succeed())
			Expect(sender.Sent()[0].Text).To(Equal(defaultReply))
			mark, _ := messages.Mark(messages.Created()[0].ID)
			Expect(mark.KeywordTriggered).To(BeFalse())
		})

		It("asks the generator for SMART_AI listeners with the automation prompt", func() {
			automations.automations[0].Listener = &model.Listener{Type: model.ListenerSmartAI, Prompt: "Be brief."}

			Expect(processor.Process(ctx, igDelivery(igHi))).To(Succeed())
			Expect(gen.requests).To(HaveLen(1))
			Expect(gen.requests[0]).To(Equal(reply.ReplyRequest{SenderID: "U1", Text: "hi", Instructions: "Be brief."}))
			Expect(sender.Sent()[0].Text).To(Equal("generated"))
		})

		It("asks the generator for every automation when fallback is enabled", func() {
			cfg.GeneratorFallback = true
			build()

			Expect(processor.Process(ctx, igDelivery(igHi))).To(Succeed())
			Expect(gen.requests).To(HaveLen(1))
			Expect(gen.requests[0].Instructions).To(BeEmpty())
		})

		It("sends the default text when generation fails", func() {
			automations.automations[0].Listener = &model.Listener{Type: model.ListenerSmartAI}
			gen.generateFn = func(reply.ReplyRequest) (*reply.Reply, error) {
				return nil, reply.ErrTranscription
			}
			Expect(processor.Process(ctx, igDelivery(igHi))).To(Succeed())
			Expect(sender.Sent()[0].Text).To(Equal(defaultReply))
		})

		It("follows a voice reply with its audio", func() {
			automations.automations[0].Listener = &model.Listener{Type: model.ListenerSmartAI}
			gen.generateFn = func(req reply.ReplyRequest) (*reply.Reply, error) {
				return &reply.Reply{Text: "spoken", AudioURL: "https://audio.example.com/r.mp3"}, nil
			}

			body := `{"object":"instagram","entry":[{"id":"IG123","messaging":[{"sender":{"id":"U1"},"recipient":{"id":"IG123"},"message":{"mid":"v1","attachments":[{"type":"audio","payload":{"url":"https://cdn.example.com/v.mp4"}}]}}]}]}`
			Expect(processor.Process(ctx, igDelivery(body))).To(Succeed())

			Expect(gen.requests).To(HaveLen(1))
			Expect(gen.requests[0].IsVoice).To(BeTrue())
			Expect(gen.requests[0].VoiceURL).To(Equal("https://cdn.example.com/v.mp4"))

			sent := sender.Sent()
			Expect(sent).To(HaveLen(2))
			Expect(sent[0].Text).To(Equal("spoken"))
			Expect(sent[1].AudioURL).To(Equal("https://audio.example.com/r.mp3"))
			Expect(messages.Created()[0].Message).To(Equal("[audio] https://cdn.example.com/v.mp4"))
		})
	})

	Describe("changes payloads", func() {
		It("handles WhatsApp messages routed by phone number id", func() {
			phoneID := "PN555"
			integrations.integrations = append(integrations.integrations, model.Integration{
				ID: 20, UserID: 1, Platform: model.PlatformWhatsApp, AccessToken: "EAAGm0PX4ZCpsBAKZCcbF2ZA", PlatformAccountID: &phoneID,
			})
			automations.automations = []model.Automation{{ID: 200, UserID: 1, Active: true, IntegrationID: bound(20)}}

			body := `{"object":"whatsapp_business_account","entry":[{"id":"WABA1","changes":[{"field":"messages","value":{
				"messaging_product":"whatsapp",
				"metadata":{"display_phone_number":"15550000000","phone_number_id":"PN555"},
				"messages":[{"from":"15551234567","id":"wamid.1","timestamp":"1700000000","type":"text","text":{"body":"hello"}}]
			}}]}]}`
			Expect(processor.Process(ctx, queue.Delivery{Platform: model.PlatformWhatsApp, Payload: []byte(body)})).To(Succeed())

			created := messages.Created()
			Expect(created).To(HaveLen(1))
			Expect(created[0].SenderID).To(Equal("15551234567"))
			Expect(created[0].RecipientID).To(Equal("PN555"))
			Expect(sender.Sent()[0]).To(Equal(sentReply{IntegrationID: 20, RecipientID: "15551234567", Text: defaultReply}))
		})

		It("resolves a WhatsApp voice note before asking the generator", func() {
			phoneID := "PN555"
			integrations.integrations = append(integrations.integrations, model.Integration{
				ID: 20, UserID: 1, Platform: model.PlatformWhatsApp, AccessToken: "EAAGm0PX4ZCpsBAKZCcbF2ZA\n", PlatformAccountID: &phoneID,
			})
			automations.automations = []model.Automation{{
				ID: 200, UserID: 1, Active: true, IntegrationID: bound(20),
				Listener: &model.Listener{Type: model.ListenerSmartAI},
			}}

			Expect(processor.Process(ctx, queue.Delivery{Platform: model.PlatformWhatsApp, Payload: []byte(waVoice)})).To(Succeed())

			Expect(sender.resolved).To(Equal([]string{"1234567890"}))
			Expect(gen.requests).To(HaveLen(1))
			Expect(gen.requests[0].IsVoice).To(BeTrue())
			Expect(gen.requests[0].VoiceURL).To(Equal("https://lookaside.example.com/1234567890"))
			Expect(gen.requests[0].VoiceToken).To(Equal("EAAGm0PX4ZCpsBAKZCcbF2ZA"))
			Expect(gen.requests[0].VoiceMimeType).To(Equal("audio/ogg"))
			Expect(sender.Sent()[0].Text).To(Equal("generated"))
			Expect(messages.Created()[0].Message).To(Equal("[audio] media:1234567890"))
		})

		It("sends the default text when a WhatsApp voice note cannot be resolved", func() {
			phoneID := "PN555"
			integrations.integrations = append(integrations.integrations, model.Integration{
				ID: 20, UserID: 1, Platform: model.PlatformWhatsApp, AccessToken: "EAAGm0PX4ZCpsBAKZCcbF2ZA", PlatformAccountID: &phoneID,
			})
			automations.automations = []model.Automation{{
				ID: 200, UserID: 1, Active: true, IntegrationID: bound(20),
				Listener: &model.Listener{Type: model.ListenerSmartAI},
			}}
			sender.resolveFn = func(model.Integration, string) (messenger.Media, error) {
				return messenger.Media{}, errors.New("graph api returned 404")
			}

			Expect(processor.Process(ctx, queue.Delivery{Platform: model.PlatformWhatsApp, Payload: []byte(waVoice)})).To(Succeed())

			Expect(gen.requests).To(BeEmpty())
			Expect(sender.Sent()).To(HaveLen(1))
			Expect(sender.Sent()[0].Text).To(Equal(defaultReply))
		})

		It("logs comment and mention changes without replying", func() {
			body := `{"object":"instagram","entry":[{"id":"IG123","changes":[
				{"field":"comments","value":{"text":"nice"}},
				{"field":"mentions","value":{"media_id":"1"}},
				{"field":"story_mentions","value":{}}
			]}]}`
			Expect(processor.Process(ctx, igDelivery(body))).To(Succeed())
			Expect(messages.Created()).To(BeEmpty())
			Expect(sender.Sent()).To(BeEmpty())
		})
	})
})
