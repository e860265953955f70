package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/valter-silva-au/reminderwave/pkg/models"
)

// Notifier sends alert notifications to external channels.
type Notifier interface {
	Notify(ctx context.Context, alerts []Alert) error
}

// slackClient posts Block Kit messages to a Slack incoming webhook.
type slackClient struct {
	webhookURL string
	client     *http.Client
}

func newSlackClient(webhookURL string) slackClient {
	return slackClient{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type slackMessage struct {
	Text   string       `json:"text,omitempty"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c slackClient) post(ctx context.Context, msg slackMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

type slackNotifier struct {
	slack slackClient
}

// NewSlackNotifier creates a Notifier that sends alert digests to the given
// Slack webhook URL.
func NewSlackNotifier(webhookURL string) Notifier {
	return &slackNotifier{slack: newSlackClient(webhookURL)}
}

// Notify sends alerts as a single digest. No request is made for an empty
// slice.
func (s *slackNotifier) Notify(ctx context.Context, alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	return s.slack.post(ctx, buildAlertMessage(alerts))
}

func buildAlertMessage(alerts []Alert) slackMessage {
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "ReminderWave Alert Summary"},
		},
	}

	for i, alert := range alerts {
		if i > 0 {
			blocks = append(blocks, slackBlock{Type: "divider"})
		}
		text := fmt.Sprintf("%s *[%s]* %s\n_%s_",
			severityEmoji(alert.Severity),
			strings.ToUpper(string(alert.Severity)),
			alert.Message,
			alert.TriggeredAt.UTC().Format("2006-01-02 15:04 UTC"),
		)
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: text},
		})
	}

	return slackMessage{
		Text:   fmt.Sprintf("%d ReminderWave alerts", len(alerts)),
		Blocks: blocks,
	}
}

func severityEmoji(severity AlertSeverity) string {
	switch severity {
	case SeverityHigh:
		return "\U0001f534"
	case SeverityMedium:
		return "\U0001f7e1"
	case SeverityLow:
		return "\U0001f535"
	default:
		return "❓"
	}
}

// SlackReminderDeliverer posts due reminders to a Slack webhook. It satisfies
// the dispatcher's Deliverer interface.
type SlackReminderDeliverer struct {
	slack slackClient
}

// NewSlackReminderDeliverer creates a reminder channel for the given webhook.
func NewSlackReminderDeliverer(webhookURL string) *SlackReminderDeliverer {
	return &SlackReminderDeliverer{slack: newSlackClient(webhookURL)}
}

func (d *SlackReminderDeliverer) Name() string { return "slack" }

func (d *SlackReminderDeliverer) Deliver(ctx context.Context, n models.Notification) error {
	return d.slack.post(ctx, buildReminderMessage(n))
}

func buildReminderMessage(n models.Notification) slackMessage {
	text := fmt.Sprintf("%s *%s*\n_%s_",
		priorityEmoji(n.Priority),
		n.Body,
		n.FireAt.Local().Format("Mon Jan 2 15:04"),
	)
	return slackMessage{
		Text: n.Title + ": " + n.Body,
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: n.Title}},
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: text}},
		},
	}
}

func priorityEmoji(p models.Priority) string {
	switch p {
	case models.PriorityHigh:
		return "\U0001f534"
	case models.PriorityLow:
		return "\U0001f7e2"
	default:
		return "\U0001f7e1"
	}
}
