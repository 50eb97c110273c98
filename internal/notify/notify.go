package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
)

// Notifier reports publishing failures that need a human to look at them.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type slackNotifier struct {
	api     *slack.Client
	channel string
}

// NewSlack posts to a Slack channel. apiURL overrides the Slack endpoint and
// may be empty.
func NewSlack(token, channel, apiURL string) Notifier {
	opts := []slack.Option{}
	if apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	return &slackNotifier{
		api:     slack.New(token, opts...),
		channel: channel,
	}
}

func (n *slackNotifier) Notify(ctx context.Context, message string) error {
	_, _, err := n.api.PostMessageContext(ctx, n.channel, slack.MsgOptionText(message, false))
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("failed to send slack message: %w", err)
	}
	return nil
}

type logNotifier struct{}

// NewLog writes notifications to the structured log only.
func NewLog() Notifier {
	return logNotifier{}
}

func (logNotifier) Notify(_ context.Context, message string) error {
	slog.Warn("notification", "message", message)
	return nil
}
