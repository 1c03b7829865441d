package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/husainf4l/baridai-sub000/internal/model"
	"github.com/husainf4l/baridai-sub000/internal/service"
	"github.com/husainf4l/baridai-sub000/internal/store"
)

var _ = Describe("Admin services", func() {
	var (
		ctx          context.Context
		integrations *mockIntegrationStore
		automations  *mockAutomationStore
		messages     *mockMessageStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		integrations = &mockIntegrationStore{integrations: []model.Integration{{ID: 10, UserID: 1, AccessToken: "old-token-value-xxxxxxxx"}}}
		automations = &mockAutomationStore{automations: []model.Automation{{ID: 100, UserID: 1, Active: true}}}
		messages = &mockMessageStore{}
	})

	Describe("AutomationService", func() {
		var svc service.AutomationService

		BeforeEach(func() {
			svc = service.NewAutomationService(automations, messages)
		})

		It("returns stats for an existing automation", func() {
			messages.stats = &model.AutomationStats{AutomationID: 100, RunCount: 4, SentCount: 3, SuccessRate: 0.75}
			stats, err := svc.Stats(ctx, 100)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.SuccessRate).To(Equal(0.75))
		})

		It("returns ErrNotFound for unknown automations", func() {
			_, err := svc.Stats(ctx, 999)
			Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())
		})

		It("toggles the active flag", func() {
			a, err := svc.SetActive(ctx, 100, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Active).To(BeFalse())
			Expect(automations.automations[0].Active).To(BeFalse())
		})
	})

	Describe("IntegrationService", func() {
		var (
			tx  *mockTxRunner
			svc service.IntegrationService
		)

		BeforeEach(func() {
			tx = &mockTxRunner{stores: &mockStoreProvider{integrations: integrations, automations: automations, messages: messages}}
			svc = service.NewIntegrationService(tx, 20)
		})

		It("sanitizes and stores the new token inside a transaction", func() {
			expires := time.Now().Add(60 * 24 * time.Hour)
			updated, err := svc.RotateToken(ctx, 10, "  EAAGm0PX4Z\nCpsBAKZCc bF2ZA\t", &expires)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.AccessToken).To(Equal("EAAGm0PX4ZCpsBAKZCcbF2ZA"))
			Expect(integrations.updateTokenTokens).To(Equal([]string{"EAAGm0PX4ZCpsBAKZCcbF2ZA"}))
			Expect(tx.calls).To(Equal(1))
		})

		It("rejects tokens that are too short once sanitized", func() {
			_, err := svc.RotateToken(ctx, 10, " short \n token ", nil)
			Expect(err).To(MatchError(service.ErrTokenTooShort))
			Expect(tx.calls).To(BeZero())
		})

		It("returns ErrNotFound for unknown integrations", func() {
			_, err := svc.RotateToken(ctx, 404, "EAAGm0PX4ZCpsBAKZCcbF2ZA", nil)
			Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())
			Expect(integrations.updateTokenTokens).To(BeEmpty())
		})
	})

	Describe("ConversationService", func() {
		It("clears the sender's history", func() {
			history := &mockHistory{}
			svc := service.NewConversationService(history)
			Expect(svc.Clear(ctx, "U1")).To(Succeed())
			Expect(history.cleared).To(Equal([]string{"U1"}))
		})

		It("requires a sender id", func() {
			svc := service.NewConversationService(&mockHistory{})
			Expect(svc.Clear(ctx, "")).NotTo(Succeed())
		})

		It("wraps store failures", func() {
			svc := service.NewConversationService(&mockHistory{err: errors.New("redis down")})
			Expect(svc.Clear(ctx, "U1")).To(MatchError(ContainSubstring("redis down")))
		})
	})
})
