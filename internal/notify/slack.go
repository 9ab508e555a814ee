package notify

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// postWebhookFunc matches slackapi.PostWebhookContext so tests can stub it.
type postWebhookFunc func(ctx context.Context, url string, msg *slackapi.WebhookMessage) error

// Slack posts to an incoming webhook URL.
type Slack struct {
	url  string
	post postWebhookFunc
}

// NewSlack builds a Slack notifier for the given incoming webhook URL.
func NewSlack(url string) *Slack {
	return &Slack{url: url, post: slackapi.PostWebhookContext}
}

// Name implements Notifier.
func (s *Slack) Name() string { return "slack" }

// Notify implements Notifier.
func (s *Slack) Notify(ctx context.Context, text string) error {
	if err := s.post(ctx, s.url, &slackapi.WebhookMessage{Text: text}); err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	return nil
}
