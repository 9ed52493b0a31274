package alerts

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	colorTriggered = "#ff0000"
	colorResolved  = "#36a64f"
)

// SlackNotifier posts alerts to a Slack incoming webhook as one attachment each.
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *http.Client
	now        func() time.Time
}

// NewSlackNotifier creates a Slack webhook notifier. An empty channel uses the
// webhook's default.
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		client:     newHTTPClient(),
		now:        time.Now,
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, alert Alert) error {
	return deliver(ctx, s.client, s.Name(), s.webhookURL, s.message(alert), nil)
}

func (s *SlackNotifier) message(alert Alert) slackMessage {
	color := colorResolved
	if alert.Level == AlertTriggered {
		color = colorTriggered
	}

	return slackMessage{
		Channel: s.channel,
		Attachments: []slackAttachment{{
			Color: color,
			Title: fmt.Sprintf("Unicom Bill Guardian: %s %s", alert.Rule, alert.Level),
			Text:  alert.Message,
			Fields: []slackField{
				{Title: "Account", Value: alert.Account, Short: true},
				{Title: "Sensor", Value: alert.Sensor, Short: true},
				{Title: "Value", Value: fmt.Sprintf("%.2f %s", alert.Value, alert.Unit), Short: true},
				{Title: "Threshold", Value: fmt.Sprintf("%s %.2f %s", alert.Comparison, alert.Threshold, alert.Unit), Short: true},
			},
			Footer: "ubg",
			Ts:     s.now().Unix(),
		}},
	}
}

type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text,omitempty"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
