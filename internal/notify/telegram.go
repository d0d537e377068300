// Package notify delivers join and leave notifications to Telegram.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrDelivery marks a notification that did not reach the endpoint.
var ErrDelivery = errors.New("delivery failed")

// Request is one outbound message.
type Request struct {
	ChatID string
	Text   string
}

// Sender delivers a Request. *Client implements it.
type Sender interface {
	Send(ctx context.Context, req Request) error
}

// Ensure Client implements Sender at compile time.
var _ Sender = (*Client)(nil)

const (
	// DefaultAPIURL is the public Telegram Bot API.
	DefaultAPIURL    = "https://api.telegram.org"
	defaultUserAgent = "joinwatch/0.1"
	requestTimeout   = 10 * time.Second
	// maxErrorBody caps how much of a failure response is read.
	maxErrorBody = 4 * 1024
)

// Client talks to the Telegram Bot API sendMessage method.
type Client struct {
	baseURL   *url.URL
	token     string
	http      *http.Client
	userAgent string
}

// NewClient builds a Client for the bot identified by token. An empty
// apiURL selects DefaultAPIURL.
func NewClient(apiURL, token string) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("bot token is empty")
	}
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		token:   token,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

type sendMessagePayload struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts req to sendMessage. Any non-2xx status is an error wrapping
// ErrDelivery; the response body is otherwise ignored.
func (c *Client) Send(ctx context.Context, req Request) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	body, err := json.Marshal(sendMessagePayload{ChatID: req.ChatID, Text: req.Text})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	rel := &url.URL{Path: "/bot" + c.token + "/sendMessage"}
	reqURL := c.baseURL.ResolveReference(rel)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", redact(err, c.token))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: execute request: %w", ErrDelivery, redact(err, c.token))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if desc := describe(resp.Body); desc != "" {
			return fmt.Errorf("%w: sendMessage returned status %d: %s", ErrDelivery, resp.StatusCode, desc)
		}
		return fmt.Errorf("%w: sendMessage returned status %d", ErrDelivery, resp.StatusCode)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// describe extracts the API's description field from a failure body.
func describe(r io.Reader) string {
	var payload apiResponse
	if err := json.NewDecoder(io.LimitReader(r, maxErrorBody)).Decode(&payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Description)
}

// redact strips the request URL, which embeds the bot token, from
// transport errors.
func redact(err error, token string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	if token != "" && strings.Contains(err.Error(), token) {
		return errors.New(strings.ReplaceAll(err.Error(), token, "<redacted>"))
	}
	return err
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = DefaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", apiURL, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
