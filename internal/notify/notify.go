// Package notify delivers short plain-text messages to chat webhooks.
package notify

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Notifier sends a rendered message to one destination.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, text string) error
}

// LogNotifier writes messages to the logger. It is used when no webhook is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Name implements Notifier.
func (l *LogNotifier) Name() string { return "log" }

// Notify implements Notifier.
func (l *LogNotifier) Notify(_ context.Context, text string) error {
	l.logger.Info("notification", zap.String("text", text))
	return nil
}

// FromConfig returns the webhook notifiers that have credentials, or a
// LogNotifier when none do.
func FromConfig(slackURL, discordID, discordToken string, logger *zap.Logger) ([]Notifier, error) {
	var out []Notifier
	if strings.TrimSpace(slackURL) != "" {
		out = append(out, NewSlack(slackURL))
	}
	if strings.TrimSpace(discordID) != "" && strings.TrimSpace(discordToken) != "" {
		d, err := NewDiscord(discordID, discordToken)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		out = append(out, NewLogNotifier(logger))
	}
	return out, nil
}
