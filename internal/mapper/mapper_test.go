package mapper_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/husainf4l/baridai-sub000/internal/mapper"
	"github.com/husainf4l/baridai-sub000/internal/model"
)

var _ = Describe("Mapper", func() {
	Describe("MapChange", func() {
		It("maps known change fields", func() {
			Expect(mapper.MapChange("comments")).To(Equal(mapper.EventComment))
			Expect(mapper.MapChange("mentions")).To(Equal(mapper.EventMention))
			Expect(mapper.MapChange("story_mentions")).To(Equal(mapper.EventStoryMention))
			Expect(mapper.MapChange("messages")).To(Equal(mapper.EventMessage))
		})

		It("returns empty for unknown fields", func() {
			Expect(mapper.MapChange("live_comments")).To(BeEmpty())
		})
	})

	Describe("Decode", func() {
		It("decodes an instagram messaging envelope", func() {
			body := []byte(`{"object":"instagram","entry":[{"id":"IG123","time":1,"messaging":[
				{"sender":{"id":"U1"},"recipient":{"id":"IG123"},"timestamp":1700000000000,
				 "message":{"mid":"m_1","text":"price?"}}]}]}`)

			env, err := mapper.Decode(body)
			Expect(err).NotTo(HaveOccurred())
			Expect(env.Object).To(Equal("instagram"))
			Expect(env.Entry).To(HaveLen(1))
			Expect(env.Entry[0].ID).To(Equal("IG123"))
			Expect(env.Entry[0].Messaging).To(HaveLen(1))
		})

		It("treats a body without entries as empty", func() {
			env, err := mapper.Decode([]byte(`{"object":"instagram"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(env.Entry).To(BeEmpty())
		})

		It("rejects malformed json", func() {
			_, err := mapper.Decode([]byte(`{"object":`))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("NormalizeMessaging", func() {
		It("normalizes a text message", func() {
			m := mapper.Messaging{
				Sender:    mapper.Participant{ID: "U1"},
				Recipient: mapper.Participant{ID: "IG123"},
				Timestamp: 1700000000000,
				Message:   &mapper.MessagingMessage{Mid: "m_1", Text: "price?"},
			}

			ev, ok := mapper.NormalizeMessaging(model.PlatformInstagram, "IG123", m)
			Expect(ok).To(BeTrue())
			Expect(ev.SenderID).To(Equal("U1"))
			Expect(ev.RecipientID).To(Equal("IG123"))
			Expect(ev.AccountID).To(Equal("IG123"))
			Expect(ev.Text).To(Equal("price?"))
			Expect(ev.MessageID).To(Equal("m_1"))
			Expect(ev.Timestamp.UnixMilli()).To(Equal(int64(1700000000000)))
			Expect(ev.SelfEcho()).To(BeFalse())
			Expect(ev.Actionable()).To(BeTrue())
		})

		It("detects voice attachments", func() {
			msg := &mapper.MessagingMessage{Mid: "m_2"}
			att := mapper.Attachment{Type: "audio"}
			att.Payload.URL = "https://cdn.example.com/a.mp4"
			msg.Attachments = []mapper.Attachment{att}

			ev, ok := mapper.NormalizeMessaging(model.PlatformInstagram, "IG123", mapper.Messaging{
				Sender:  mapper.Participant{ID: "U1"},
				Message: msg,
			})
			Expect(ok).To(BeTrue())
			Expect(ev.IsVoice).To(BeTrue())
			Expect(ev.VoiceURL).To(Equal("https://cdn.example.com/a.mp4"))
			Expect(ev.Actionable()).To(BeTrue())
		})

		It("skips items without a message", func() {
			_, ok := mapper.NormalizeMessaging(model.PlatformFacebook, "P1", mapper.Messaging{
				Sender: mapper.Participant{ID: "U1"},
			})
			Expect(ok).To(BeFalse())
		})

		It("flags echoes of our own replies", func() {
			ev, ok := mapper.NormalizeMessaging(model.PlatformInstagram, "IG123", mapper.Messaging{
				Sender:  mapper.Participant{ID: "IG123"},
				Message: &mapper.MessagingMessage{Text: "thanks!", IsEcho: true},
			})
			Expect(ok).To(BeTrue())
			Expect(ev.SelfEcho()).To(BeTrue())
		})

		It("marks events without text or audio as not actionable", func() {
			ev, ok := mapper.NormalizeMessaging(model.PlatformInstagram, "IG123", mapper.Messaging{
				Sender:  mapper.Participant{ID: "U1"},
				Message: &mapper.MessagingMessage{Mid: "m_3"},
			})
			Expect(ok).To(BeTrue())
			Expect(ev.Actionable()).To(BeFalse())
		})
	})

	Describe("NormalizeWhatsAppMessages", func() {
		It("uses the phone number id as account id", func() {
			raw := json.RawMessage(`{"messaging_product":"whatsapp",
				"metadata":{"display_phone_number":"15550001","phone_number_id":"PN1"},
				"messages":[{"from":"9715000","id":"wamid.1","timestamp":"1700000000","type":"text","text":{"body":"hi"}}]}`)

			events, accountID, err := mapper.NormalizeWhatsAppMessages(raw, "WABA1")
			Expect(err).NotTo(HaveOccurred())
			Expect(accountID).To(Equal("PN1"))
			Expect(events).To(HaveLen(1))
			Expect(events[0].Platform).To(Equal(model.PlatformWhatsApp))
			Expect(events[0].SenderID).To(Equal("9715000"))
			Expect(events[0].AccountID).To(Equal("PN1"))
			Expect(events[0].Text).To(Equal("hi"))
			Expect(events[0].MessageID).To(Equal("wamid.1"))
			Expect(events[0].Timestamp.Unix()).To(Equal(int64(1700000000)))
		})

		It("falls back to the entry id without metadata", func() {
			raw := json.RawMessage(`{"messages":[{"from":"1","id":"w","type":"text","text":{"body":"x"}}]}`)

			events, accountID, err := mapper.NormalizeWhatsAppMessages(raw, "WABA1")
			Expect(err).NotTo(HaveOccurred())
			Expect(accountID).To(Equal("WABA1"))
			Expect(events[0].AccountID).To(Equal("WABA1"))
		})

		It("keeps the media id of a voice note", func() {
			raw := json.RawMessage(`{"messaging_product":"whatsapp",
				"metadata":{"display_phone_number":"15550001","phone_number_id":"PN1"},
				"contacts":[{"profile":{"name":"Sara"},"wa_id":"9715000"}],
				"messages":[{"from":"9715000","id":"wamid.2","timestamp":"1700000000","type":"audio",
					"audio":{"mime_type":"audio/ogg; codecs=opus","sha256":"abc=","id":"1234567890","voice":true}}]}`)

			events, _, err := mapper.NormalizeWhatsAppMessages(raw, "WABA1")
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].IsVoice).To(BeTrue())
			Expect(events[0].VoiceURL).To(BeEmpty())
			Expect(events[0].VoiceMediaID).To(Equal("1234567890"))
			Expect(events[0].VoiceMimeType).To(Equal("audio/ogg; codecs=opus"))
			Expect(events[0].Text).To(BeEmpty())
			Expect(events[0].Actionable()).To(BeTrue())
		})

		It("returns an error for a malformed value", func() {
			_, _, err := mapper.NormalizeWhatsAppMessages(json.RawMessage(`[`), "WABA1")
			Expect(err).To(HaveOccurred())
		})
	})
})
