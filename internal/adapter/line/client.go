// Package line implements the channel port for the LINE Messaging API:
// webhook signature verification, inbound event decoding, and reply/push
// delivery.
package line

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harukisa/taskmate/internal/port/channel"
)

const defaultBaseURL = "https://api.line.me"

// maxMessageLen is the channel's limit for a single text message.
const maxMessageLen = 5000

// Client talks to the LINE Messaging API.
type Client struct {
	baseURL       string
	accessToken   string
	channelSecret string
	httpClient    *http.Client
}

// NewClient creates a LINE client with the given channel credentials.
func NewClient(accessToken, channelSecret string) *Client {
	return NewClientWithBaseURL(defaultBaseURL, accessToken, channelSecret)
}

// NewClientWithBaseURL creates a LINE client against a custom API base URL.
// Used by tests.
func NewClientWithBaseURL(baseURL, accessToken, channelSecret string) *Client {
	return &Client{
		baseURL:       baseURL,
		accessToken:   accessToken,
		channelSecret: channelSecret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// VerifySignature checks the X-Line-Signature header value: the base64
// encoding of the HMAC-SHA256 of the raw request body keyed by the channel
// secret.
func (c *Client) VerifySignature(body []byte, signature string) bool {
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(c.channelSecret))
	mac.Write(body)
	expected := mac.Sum(nil)

	return hmac.Equal(sig, expected)
}

// webhookBody mirrors the LINE webhook delivery payload.
type webhookBody struct {
	Events []struct {
		Type           string `json:"type"`
		WebhookEventID string `json:"webhookEventId"`
		ReplyToken     string `json:"replyToken"`
		Source         struct {
			UserID string `json:"userId"`
		} `json:"source"`
		Message struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"message"`
	} `json:"events"`
}

// DecodeEvents extracts text message events from a webhook body. Events of
// other types (stickers, follows, redeliveries of non-message events) are
// skipped.
func (c *Client) DecodeEvents(body []byte) ([]channel.Event, error) {
	var wb webhookBody
	if err := json.Unmarshal(body, &wb); err != nil {
		return nil, fmt.Errorf("line decode webhook: %w", err)
	}

	events := make([]channel.Event, 0, len(wb.Events))
	for _, ev := range wb.Events {
		if ev.Type != "message" || ev.Message.Type != "text" {
			continue
		}
		events = append(events, channel.Event{
			ID:         ev.WebhookEventID,
			UserID:     ev.Source.UserID,
			ReplyToken: ev.ReplyToken,
			Text:       ev.Message.Text,
		})
	}
	return events, nil
}

// Reply sends one text message in response to a reply token.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	payload := map[string]any{
		"replyToken": replyToken,
		"messages":   []textMessage{newTextMessage(text)},
	}
	if err := c.post(ctx, "/v2/bot/message/reply", payload); err != nil {
		return fmt.Errorf("line reply: %w", err)
	}
	return nil
}

// Push sends one text message directly to a user.
func (c *Client) Push(ctx context.Context, userID, text string) error {
	payload := map[string]any{
		"to":       userID,
		"messages": []textMessage{newTextMessage(text)},
	}
	if err := c.post(ctx, "/v2/bot/message/push", payload); err != nil {
		return fmt.Errorf("line push: %w", err)
	}
	return nil
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func newTextMessage(text string) textMessage {
	return textMessage{Type: "text", Text: Truncate(text)}
}

// Truncate caps text at the channel's single-message limit, counted in runes.
func Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxMessageLen {
		return text
	}
	return string(runes[:maxMessageLen])
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("line API %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
