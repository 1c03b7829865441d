package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/husainf4l/baridai-sub000/common/id"
	"github.com/husainf4l/baridai-sub000/common/logger"
	"github.com/husainf4l/baridai-sub000/internal/domain"
	"github.com/husainf4l/baridai-sub000/internal/mapper"
	"github.com/husainf4l/baridai-sub000/internal/model"
	"github.com/husainf4l/baridai-sub000/internal/queue"
	"github.com/husainf4l/baridai-sub000/internal/reply"
	"github.com/husainf4l/baridai-sub000/internal/service/forwarder"
	"github.com/husainf4l/baridai-sub000/internal/service/messenger"
	"github.com/husainf4l/baridai-sub000/internal/store"
)

// ReplyGenerator is the part of reply.Generator the processor needs.
type ReplyGenerator interface {
	Generate(ctx context.Context, req reply.ReplyRequest) (*reply.Reply, error)
}

// EventProcessor turns one webhook delivery into persisted messages and
// dispatched replies. It returns an error only when credential or automation
// lookup fails, so the delivery can be retried.
type EventProcessor interface {
	Process(ctx context.Context, d queue.Delivery) error
}

type EventProcessorConfig struct {
	DefaultReply      string
	GeneratorFallback bool
	FanOutConcurrency int
	StoreTimeout      time.Duration
}

type EventProcessorDeps struct {
	Integrations store.IntegrationStore
	Automations  store.AutomationStore
	Messages     store.MessageStore
	Messenger    messenger.Messenger
	Forwarder    forwarder.Forwarder // optional
	Generator    ReplyGenerator      // optional
	Deduper      queue.Deduper       // optional
}

type eventProcessor struct {
	deps EventProcessorDeps
	cfg  EventProcessorConfig
}

func NewEventProcessor(deps EventProcessorDeps, cfg EventProcessorConfig) EventProcessor {
	if deps.Deduper == nil {
		deps.Deduper = queue.NewNoopDeduper()
	}
	if cfg.FanOutConcurrency <= 0 {
		cfg.FanOutConcurrency = 8
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	return &eventProcessor{deps: deps, cfg: cfg}
}

func (p *eventProcessor) Process(ctx context.Context, d queue.Delivery) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Platform:  logger.Ptr(string(d.Platform)),
		Component: "relay.service.processor",
	})

	env, err := mapper.Decode(d.Payload)
	if err != nil {
		slog.WarnContext(ctx, "discarding malformed webhook payload", "error", err)
		return nil
	}
	if env.Object != d.Platform.ExpectedObject() {
		slog.InfoContext(ctx, "discarding webhook for unexpected object",
			"object", env.Object,
			"expected", d.Platform.ExpectedObject())
		return nil
	}
	if len(env.Entry) == 0 {
		slog.InfoContext(ctx, "webhook payload has no entries")
		return nil
	}

	var events []domain.MessageEvent
	for _, entry := range env.Entry {
		events = append(events, p.entryEvents(ctx, d.Platform, entry)...)
	}
	events = p.filterEvents(ctx, events)
	if len(events) == 0 {
		return nil
	}

	resolved, err := p.resolve(ctx, d.Platform, events)
	if err != nil {
		return err
	}

	jobs := BuildFanOut(events, resolved)
	jobs = p.dropDuplicates(ctx, jobs)
	if len(jobs) == 0 {
		slog.InfoContext(ctx, "no automations matched", "events", len(events))
		return nil
	}

	p.fanOut(ctx, jobs)
	return nil
}

// entryEvents normalizes an entry's messaging[] items and changes[] values.
func (p *eventProcessor) entryEvents(ctx context.Context, platform model.Platform, entry mapper.Entry) []domain.MessageEvent {
	var events []domain.MessageEvent

	for _, m := range entry.Messaging {
		if ev, ok := mapper.NormalizeMessaging(platform, entry.ID, m); ok {
			events = append(events, ev)
		}
	}

	for _, change := range entry.Changes {
		switch mapper.MapChange(change.Field) {
		case mapper.EventMessage:
			evs, accountID, err := mapper.NormalizeWhatsAppMessages(change.Value, entry.ID)
			if err != nil {
				slog.WarnContext(ctx, "skipping malformed messages change", "entry_id", entry.ID, "error", err)
				continue
			}
			for i := range evs {
				evs[i].Platform = platform
			}
			slog.DebugContext(ctx, "messages change normalized", "account_id", accountID, "count", len(evs))
			events = append(events, evs...)
		case mapper.EventComment:
			p.handleComment(ctx, entry.ID, change)
		case mapper.EventMention:
			p.handleMention(ctx, entry.ID, change)
		case mapper.EventStoryMention:
			p.handleStoryMention(ctx, entry.ID, change)
		default:
			slog.DebugContext(ctx, "ignoring unsupported change", "entry_id", entry.ID, "field", change.Field)
		}
	}

	return events
}

func (p *eventProcessor) handleComment(ctx context.Context, accountID string, change mapper.Change) {
	slog.InfoContext(ctx, "comment change received", "account_id", accountID, "field", change.Field)
}

func (p *eventProcessor) handleMention(ctx context.Context, accountID string, change mapper.Change) {
	slog.InfoContext(ctx, "mention change received", "account_id", accountID, "field", change.Field)
}

func (p *eventProcessor) handleStoryMention(ctx context.Context, accountID string, change mapper.Change) {
	slog.InfoContext(ctx, "story mention change received", "account_id", accountID, "field", change.Field)
}

func (p *eventProcessor) filterEvents(ctx context.Context, events []domain.MessageEvent) []domain.MessageEvent {
	out := events[:0]
	for _, ev := range events {
		switch {
		case ev.SelfEcho():
			slog.DebugContext(ctx, "dropping self-echo event", "account_id", ev.AccountID, "message_id", ev.MessageID)
		case !ev.Actionable():
			slog.InfoContext(ctx, "skipping event without sender or content", "account_id", ev.AccountID, "message_id", ev.MessageID)
		default:
			out = append(out, ev)
		}
	}
	return out
}

// resolve runs resolveCredentials then resolveAutomations for every distinct
// account id in events.
func (p *eventProcessor) resolve(ctx context.Context, platform model.Platform, events []domain.MessageEvent) (map[string][]ResolvedCredential, error) {
	resolved := make(map[string][]ResolvedCredential)
	for _, ev := range events {
		if _, done := resolved[ev.AccountID]; done {
			continue
		}

		creds, err := p.resolveCredentials(ctx, platform, ev.AccountID)
		if err != nil {
			return nil, err
		}
		if len(creds) == 0 {
			slog.InfoContext(ctx, "no integration for account, skipping", "account_id", ev.AccountID)
			resolved[ev.AccountID] = nil
			continue
		}

		list := make([]ResolvedCredential, 0, len(creds))
		for _, cred := range creds {
			automations, err := p.resolveAutomations(ctx, cred)
			if err != nil {
				return nil, err
			}
			list = append(list, ResolvedCredential{Integration: cred, Automations: automations})
		}
		resolved[ev.AccountID] = list
	}
	return resolved, nil
}

func (p *eventProcessor) resolveCredentials(ctx context.Context, platform model.Platform, accountID string) ([]model.Integration, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancel()

	creds, err := p.deps.Integrations.FindByAccountID(ctx, platform, accountID)
	if err != nil {
		return nil, fmt.Errorf("resolving credentials for %s: %w", accountID, err)
	}
	return creds, nil
}

func (p *eventProcessor) resolveAutomations(ctx context.Context, cred model.Integration) ([]model.Automation, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancel()

	automations, err := p.deps.Automations.ListActiveForUser(ctx, cred.UserID, cred.ID)
	if err != nil {
		return nil, fmt.Errorf("resolving automations for integration %d: %w", cred.ID, err)
	}
	return automations, nil
}

// dropDuplicates claims each event's platform message id once. Claim errors
// let the event through.
func (p *eventProcessor) dropDuplicates(ctx context.Context, jobs []FanOutJob) []FanOutJob {
	claimed := make(map[string]bool)
	out := jobs[:0]
	for _, job := range jobs {
		mid := job.Event.MessageID
		if mid == "" {
			out = append(out, job)
			continue
		}

		key := fmt.Sprintf("%s:%s:%s", job.Event.Platform, job.Event.AccountID, mid)
		fresh, ok := claimed[key]
		if !ok {
			var err error
			fresh, err = p.deps.Deduper.Claim(ctx, key)
			if err != nil {
				slog.WarnContext(ctx, "dedupe claim failed, processing anyway", "message_id", mid, "error", err)
				fresh = true
			}
			if !fresh {
				slog.InfoContext(ctx, "dropping redelivered message", "message_id", mid)
			}
			claimed[key] = fresh
		}
		if fresh {
			out = append(out, job)
		}
	}
	return out
}

func (p *eventProcessor) fanOut(ctx context.Context, jobs []FanOutJob) {
	var g errgroup.Group
	g.SetLimit(p.cfg.FanOutConcurrency)

	for _, job := range jobs {
		g.Go(func() error {
			p.runCycle(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	slog.InfoContext(ctx, "fan-out completed", "cycles", len(jobs))
}

func (p *eventProcessor) runCycle(ctx context.Context, job FanOutJob) {
	ev := job.Event
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		IntegrationID: &job.Integration.ID,
		AutomationID:  &job.Automation.ID,
		SenderID:      &ev.SenderID,
	})

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic in reply cycle",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	triggered := job.Automation.Triggered(ev.Text)

	msg := &model.InboundMessage{
		ID:               id.New(),
		AutomationID:     job.Automation.ID,
		SenderID:         ev.SenderID,
		RecipientID:      ev.RecipientID,
		Message:          storedText(ev),
		ReplyStatus:      model.ReplyStatusPending,
		KeywordTriggered: triggered,
	}
	if ev.MessageID != "" {
		msg.PlatformMessageID = &ev.MessageID
	}

	persisted := true
	if err := p.withStoreTimeout(ctx, func(ctx context.Context) error {
		return p.deps.Messages.Create(ctx, msg)
	}); err != nil {
		persisted = false
		slog.ErrorContext(ctx, "failed to persist inbound message", "error", err)
	} else {
		ctx = logger.WithLogFields(ctx, logger.LogFields{InboundMessageID: &msg.ID})
	}

	out := p.chooseReply(ctx, job)

	result := p.deps.Messenger.Send(ctx, job.Integration, ev.SenderID, out.Text)
	if result.Success && out.AudioURL != "" {
		if audio := p.deps.Messenger.SendAudio(ctx, job.Integration, ev.SenderID, out.AudioURL); !audio.Success {
			slog.WarnContext(ctx, "voice reply failed, text reply was delivered", "kind", audio.Kind, "error", audio.Error)
		}
	}

	if !persisted {
		return
	}

	status := model.ReplyStatusSent
	var replyErr *string
	if !result.Success {
		status = model.ReplyStatusFailed
		detail := string(result.Kind)
		if result.Error != nil {
			detail = fmt.Sprintf("%s: %v", result.Kind, result.Error)
		}
		replyErr = &detail
	}

	if err := p.withStoreTimeout(ctx, func(ctx context.Context) error {
		return p.deps.Messages.MarkReplyResult(ctx, msg.ID, status, replyErr, triggered)
	}); err != nil {
		slog.ErrorContext(ctx, "failed to record reply result", "error", err)
	}
}

// chooseReply walks forwarder, keyword rule, generator, default.
func (p *eventProcessor) chooseReply(ctx context.Context, job FanOutJob) reply.Reply {
	ev := job.Event

	if p.deps.Forwarder != nil && p.deps.Forwarder.Enabled() {
		text, err := p.deps.Forwarder.Forward(ctx, forwarder.Request{
			Automation:  job.Automation,
			Integration: job.Integration,
			SenderID:    ev.SenderID,
			RecipientID: ev.RecipientID,
			Text:        ev.Text,
			Timestamp:   ev.Timestamp,
		})
		switch {
		case err == nil:
			return reply.Reply{Text: text}
		case errors.Is(err, forwarder.ErrNoReply):
			slog.DebugContext(ctx, "forwarder had no reply")
		default:
			slog.WarnContext(ctx, "forwarder failed, falling back", "error", err)
		}
	}

	if text, ok := keywordReply(job.Automation, ev.Text); ok {
		return reply.Reply{Text: text}
	}

	if p.deps.Generator != nil && usesGenerator(job.Automation, p.cfg.GeneratorFallback) {
		req := reply.ReplyRequest{
			SenderID:      ev.SenderID,
			Text:          ev.Text,
			IsVoice:       ev.IsVoice,
			VoiceURL:      ev.VoiceURL,
			VoiceMimeType: ev.VoiceMimeType,
		}
		if job.Automation.ListenerType() == model.ListenerSmartAI {
			req.Instructions = job.Automation.Listener.Prompt
		}

		if ev.IsVoice && ev.VoiceURL == "" && ev.VoiceMediaID != "" {
			media, err := p.deps.Messenger.ResolveMedia(ctx, job.Integration, ev.VoiceMediaID)
			if err != nil {
				slog.ErrorContext(ctx, "voice note lookup failed, sending default reply",
					"media_id", ev.VoiceMediaID,
					"error", err)
				return reply.Reply{Text: p.cfg.DefaultReply}
			}
			req.VoiceURL = media.URL
			req.VoiceToken = media.Token
			if media.MimeType != "" {
				req.VoiceMimeType = media.MimeType
			}
		}

		out, err := p.deps.Generator.Generate(ctx, req)
		if err == nil {
			return *out
		}
		slog.ErrorContext(ctx, "reply generation failed, sending default reply", "error", err)
	}

	return reply.Reply{Text: p.cfg.DefaultReply}
}

func (p *eventProcessor) withStoreTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancel()
	return fn(ctx)
}
