// Package unicom is a client for the China Unicom mini-program billing endpoints.
package unicom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/model"
)

const (
	// DefaultBaseURL is the production endpoint prefix.
	DefaultBaseURL = "https://mina.10010.com/wxapplet/weixinNew"
	// DefaultChannel is the channel value the mini-program sends.
	DefaultChannel = "wxmini"
	// SuccessCode is the envelope code of a successful response.
	SuccessCode = "0000"
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 10 * time.Second

	EndpointUsage   = "sspbigball"
	EndpointBalance = "sspbalcbroadcast"
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 1 << 20

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL    string
	Channel    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client issues the usage and balance requests.
type Client struct {
	httpClient *http.Client
	baseURL    string
	channel    string
	logger     *slog.Logger
}

// NewClient creates a provider client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Channel == "" {
		opts.Channel = DefaultChannel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		httpClient: opts.HTTPClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		channel:    opts.Channel,
		logger:     opts.Logger,
	}
}

type requestBody struct {
	OpenID  string `json:"openid"`
	Channel string `json:"channel"`
}

type envelope struct {
	Code model.Text      `json:"code"`
	Msg  model.Text      `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// FetchUsage returns the usage records for openid.
func (c *Client) FetchUsage(ctx context.Context, openid string) ([]model.UsageRecord, error) {
	data, err := c.call(ctx, EndpointUsage, openid)
	if err != nil {
		return nil, err
	}

	var records []model.UsageRecord
	if err := decodeData(data, &records); err != nil {
		return nil, &ProtocolError{Endpoint: EndpointUsage, Message: "decode usage records", Err: err}
	}
	return records, nil
}

// FetchBalance returns the balance record for openid.
func (c *Client) FetchBalance(ctx context.Context, openid string) (model.BalanceRecord, error) {
	data, err := c.call(ctx, EndpointBalance, openid)
	if err != nil {
		return model.BalanceRecord{}, err
	}

	var records []model.BalanceRecord
	if err := decodeData(data, &records); err != nil {
		return model.BalanceRecord{}, &ProtocolError{Endpoint: EndpointBalance, Message: "decode balance records", Err: err}
	}
	if len(records) == 0 {
		return model.BalanceRecord{}, &ProtocolError{Endpoint: EndpointBalance, Message: "empty balance data"}
	}
	return records[0], nil
}

func decodeData(data json.RawMessage, v any) error {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (c *Client) call(ctx context.Context, endpoint, openid string) (json.RawMessage, error) {
	payload, err := json.Marshal(requestBody{OpenID: openid, Channel: c.channel})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("provider request", "endpoint", endpoint, "url", url)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("provider response",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProtocolError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ProtocolError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: "decode envelope", Err: err}
	}
	if env.Code.String() != SuccessCode {
		msg := "provider returned failure"
		if !env.Msg.Empty() {
			msg = env.Msg.String()
		}
		return nil, &ProtocolError{Endpoint: endpoint, StatusCode: resp.StatusCode, Code: env.Code.String(), Message: msg}
	}
	return env.Data, nil
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsProtocol reports whether err is a ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
