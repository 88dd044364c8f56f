package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/harukisa/taskmate/internal/adapter/ristretto"
	"github.com/harukisa/taskmate/internal/port/channel"
)

// Dispatcher fans webhook events out to the agent. Each event runs in its
// own goroutine so the webhook endpoint can acknowledge immediately; a
// weighted semaphore bounds the number of conversations in flight.
type Dispatcher struct {
	agent    *Agent
	sender   channel.Sender
	seen     *ristretto.Cache
	sem      *semaphore.Weighted
	dedupTTL time.Duration
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher. maxConcurrent bounds simultaneous
// conversations; dedupTTL is how long delivered event IDs are remembered.
func NewDispatcher(agent *Agent, sender channel.Sender, seen *ristretto.Cache, maxConcurrent int64, dedupTTL time.Duration) *Dispatcher {
	return &Dispatcher{
		agent:    agent,
		sender:   sender,
		seen:     seen,
		sem:      semaphore.NewWeighted(maxConcurrent),
		dedupTTL: dedupTTL,
	}
}

// Dispatch hands each event to a worker goroutine and returns without
// waiting for the conversations to finish. Redelivered events (same webhook
// event ID within the dedup window) are dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, events []channel.Event) {
	for _, ev := range events {
		id := ev.ID
		if id == "" {
			// No delivery ID on the event; synthesize one so the dedup
			// cache never collides on the empty key.
			id = uuid.NewString()
		}
		if d.seen.Seen(id) {
			slog.Info("dropping redelivered event", "event_id", id, "user_id", ev.UserID)
			continue
		}
		d.seen.Mark(id, d.dedupTTL)

		d.wg.Add(1)
		go func(ev channel.Event) {
			defer d.wg.Done()
			d.handle(ctx, ev)
		}(ev)
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev channel.Event) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		slog.Warn("dispatch canceled before start", "user_id", ev.UserID, "error", err)
		return
	}
	defer d.sem.Release(1)

	reply := d.agent.HandleMessage(ctx, ev.UserID, ev.Text)

	if err := d.sender.Reply(ctx, ev.ReplyToken, reply); err != nil {
		slog.Error("reply delivery failed", "user_id", ev.UserID, "error", err)
		// One best-effort push so the user is not left hanging. Its own
		// failure is logged and dropped.
		if err := d.sender.Push(ctx, ev.UserID, apologyReply); err != nil {
			slog.Error("error notification failed", "user_id", ev.UserID, "error", err)
		}
	}
}

// Wait blocks until all in-flight conversations finish. Called on shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
