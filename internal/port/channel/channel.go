// Package channel defines the messaging channel port: inbound webhook
// verification and decoding, and outbound reply/push delivery.
package channel

import "context"

// Event is one inbound text message decoded from a webhook delivery.
type Event struct {
	ID         string // channel event id; empty when the channel omits it
	UserID     string
	ReplyToken string
	Text       string
}

// Webhook verifies and decodes inbound webhook requests.
type Webhook interface {
	// VerifySignature checks the signature header against the raw request body.
	VerifySignature(body []byte, signature string) bool

	// DecodeEvents extracts text message events from a webhook body.
	// Non-text events are skipped.
	DecodeEvents(body []byte) ([]Event, error)
}

// Sender delivers outbound messages. Both operations are fire-and-forget from
// the caller's perspective: a returned error is logged, never retried.
type Sender interface {
	Reply(ctx context.Context, replyToken, text string) error
	Push(ctx context.Context, userID, text string) error
}
