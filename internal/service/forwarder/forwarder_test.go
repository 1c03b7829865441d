package forwarder_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/husainf4l/baridai-sub000/internal/model"
	"github.com/husainf4l/baridai-sub000/internal/service/forwarder"
)

var _ = Describe("Forwarder", func() {
	var (
		ctx       context.Context
		handler   http.HandlerFunc
		srv       *httptest.Server
		fwd       forwarder.Forwarder
		lastBody  map[string]any
		lastReqID string
		req       forwarder.Request
	)

	BeforeEach(func() {
		ctx = context.Background()
		lastBody = nil
		lastReqID = ""
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"message":"  custom reply  "}`)
		}
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &lastBody)
			lastReqID = r.Header.Get("X-Request-Id")
			handler(w, r)
		}))
		DeferCleanup(srv.Close)

		fwd = forwarder.New(forwarder.Config{URL: srv.URL, Timeout: 200 * time.Millisecond})

		accountID := "IG123"
		pageName := "Shop"
		req = forwarder.Request{
			Automation:  model.Automation{ID: 42, Name: "Welcome"},
			Integration: model.Integration{ID: 7, Platform: model.PlatformInstagram, PlatformAccountID: &accountID, PageName: &pageName},
			SenderID:    "U1",
			RecipientID: "IG123",
			Text:        "hi",
			Timestamp:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		}
	})

	It("posts the event context and returns the trimmed reply", func() {
		reply, err := fwd.Forward(ctx, req)
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(Equal("custom reply"))

		Expect(uuid.Validate(lastReqID)).To(Succeed())
		Expect(lastBody).To(Equal(map[string]any{
			"automationId":   "42",
			"automationName": "Welcome",
			"senderId":       "U1",
			"recipientId":    "IG123",
			"messageText":    "hi",
			"integration": map[string]any{
				"id":        "7",
				"platform":  "INSTAGRAM",
				"accountId": "IG123",
				"pageName":  "Shop",
			},
			"timestamp": "2026-01-02T03:04:05Z",
		}))
	})

	It("fails when the endpoint is too slow", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		}
		start := time.Now()
		_, err := fwd.Forward(ctx, req)
		Expect(err).To(HaveOccurred())
		Expect(time.Since(start)).To(BeNumerically("<", time.Second))
	})

	It("fails on non-2xx responses", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"message":"ignored"}`)
		}
		_, err := fwd.Forward(ctx, req)
		Expect(err).To(MatchError(ContainSubstring("status 500")))
	})

	It("fails on malformed bodies", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `not json`)
		}
		_, err := fwd.Forward(ctx, req)
		Expect(err).To(HaveOccurred())
	})

	DescribeTable("returns ErrNoReply when the message is unusable",
		func(body string) {
			handler = func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			}
			_, err := fwd.Forward(ctx, req)
			Expect(err).To(MatchError(forwarder.ErrNoReply))
		},
		Entry("missing field", `{}`),
		Entry("blank message", `{"message":"   "}`),
	)

	It("is disabled without a URL", func() {
		disabled := forwarder.New(forwarder.Config{})
		Expect(disabled.Enabled()).To(BeFalse())
		_, err := disabled.Forward(ctx, req)
		Expect(err).To(MatchError(forwarder.ErrNoReply))
	})
})
