package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// webhookSession abstracts the discordgo.Session method we use.
type webhookSession interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord executes a channel webhook.
type Discord struct {
	sess      webhookSession
	webhookID string
	token     string
}

// NewDiscord builds a Discord notifier. Webhook execution needs no bot token.
func NewDiscord(webhookID, token string) (*Discord, error) {
	sess, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	return &Discord{sess: sess, webhookID: webhookID, token: token}, nil
}

// Name implements Notifier.
func (d *Discord) Name() string { return "discord" }

// Notify implements Notifier.
func (d *Discord) Notify(ctx context.Context, text string) error {
	params := &discordgo.WebhookParams{
		Content:         text,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if _, err := d.sess.WebhookExecute(d.webhookID, d.token, false, params, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: execute webhook: %w", err)
	}
	return nil
}
