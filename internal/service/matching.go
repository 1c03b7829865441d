package service

import (
	"github.com/husainf4l/baridai-sub000/internal/domain"
	"github.com/husainf4l/baridai-sub000/internal/model"
)

// ResolvedCredential is an integration together with the automations that
// resolved for it.
type ResolvedCredential struct {
	Integration model.Integration
	Automations []model.Automation
}

// FanOutJob is one (event, automation) reply cycle.
type FanOutJob struct {
	Event       domain.MessageEvent
	Integration model.Integration
	Automation  model.Automation
}

// BuildFanOut flattens events × credentials × automations into reply cycles.
// resolved is keyed by platform account id. Inactive or out-of-scope
// automations never produce a job, and an automation reachable through
// several credentials of the same account runs once per event.
func BuildFanOut(events []domain.MessageEvent, resolved map[string][]ResolvedCredential) []FanOutJob {
	var jobs []FanOutJob
	for _, ev := range events {
		seen := make(map[int64]struct{})
		for _, cred := range resolved[ev.AccountID] {
			for _, a := range cred.Automations {
				if !a.Active || !a.AppliesTo(cred.Integration.ID) {
					continue
				}
				if _, dup := seen[a.ID]; dup {
					continue
				}
				seen[a.ID] = struct{}{}
				jobs = append(jobs, FanOutJob{
					Event:       ev,
					Integration: cred.Integration,
					Automation:  a,
				})
			}
		}
	}
	return jobs
}

// keywordReply returns the automation's canned reply when a MESSAGE listener
// is triggered by the text.
func keywordReply(a model.Automation, text string) (string, bool) {
	if a.ListenerType() != model.ListenerMessage || a.Listener.Prompt == "" {
		return "", false
	}
	if !a.Triggered(text) {
		return "", false
	}
	return a.Listener.Prompt, true
}

// usesGenerator reports whether the cycle should ask the reply generator.
func usesGenerator(a model.Automation, fallback bool) bool {
	return a.ListenerType() == model.ListenerSmartAI || fallback
}

// storedText is the message text persisted for an event. Voice notes without
// a caption are recorded by their audio URL, or media id on WhatsApp.
func storedText(ev domain.MessageEvent) string {
	if ev.Text == "" && ev.IsVoice {
		if ev.VoiceURL == "" {
			return "[audio] media:" + ev.VoiceMediaID
		}
		return "[audio] " + ev.VoiceURL
	}
	return ev.Text
}
