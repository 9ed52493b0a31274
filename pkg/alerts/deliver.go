package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout = 10 * time.Second
	userAgent      = "Unicom-Bill-Guardian/1.0"
)

// DeliveryError is a notification the receiving endpoint rejected.
type DeliveryError struct {
	Notifier   string
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Notifier, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Notifier, e.StatusCode, e.Body)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// deliver POSTs v as JSON. sign, when set, adds headers derived from the body.
func deliver(ctx context.Context, client *http.Client, notifier, url string, v any, sign func(body []byte, h http.Header)) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", notifier, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", notifier, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if sign != nil {
		sign(body, req.Header)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s alert: %w", notifier, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return &DeliveryError{Notifier: notifier, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}
	return nil
}
