package alerts

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"
)

// WebhookNotifier posts alerts as JSON events to a generic endpoint. With a secret
// each body is signed in the X-Signature-256 header as "sha256=<hex hmac>".
type WebhookNotifier struct {
	url    string
	secret []byte
	client *http.Client
	now    func() time.Time
}

// NewWebhookNotifier creates a generic webhook notifier.
func NewWebhookNotifier(url, secret string) *WebhookNotifier {
	w := &WebhookNotifier{
		url:    url,
		client: newHTTPClient(),
		now:    time.Now,
	}
	if secret != "" {
		w.secret = []byte(secret)
	}
	return w
}

func (w *WebhookNotifier) Name() string { return "webhook" }

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	event := webhookEvent{
		Event:     "reading_alert",
		Timestamp: w.now().UTC().Format(time.RFC3339),
		Alert:     alert,
	}

	var sign func([]byte, http.Header)
	if w.secret != nil {
		sign = func(body []byte, h http.Header) {
			h.Set("X-Signature-256", "sha256="+signature(body, w.secret))
		}
	}
	return deliver(ctx, w.client, w.Name(), w.url, event, sign)
}

type webhookEvent struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Alert     Alert  `json:"alert"`
}

func signature(body, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
