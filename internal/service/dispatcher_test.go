package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harukisa/taskmate/internal/adapter/ristretto"
	"github.com/harukisa/taskmate/internal/domain/conversation"
	"github.com/harukisa/taskmate/internal/port/channel"
)

func newTestDispatcher(t *testing.T, agent *Agent, sender channel.Sender) *Dispatcher {
	t.Helper()
	seen, err := ristretto.New(1000)
	if err != nil {
		t.Fatalf("dedup cache: %v", err)
	}
	t.Cleanup(seen.Close)
	return NewDispatcher(agent, sender, seen, 4, time.Minute)
}

func TestDispatchRepliesToEachEvent(t *testing.T) {
	ft := newFakeTracker()
	mock := &scriptedLLM{script: []conversation.Turn{assistantText("That is sufficient.")}}
	sender := &fakeSender{}
	d := newTestDispatcher(t, newTestAgent(mock, ft), sender)

	d.Dispatch(context.Background(), []channel.Event{
		{ID: "ev-1", UserID: "U1", ReplyToken: "r1", Text: "hello"},
		{ID: "ev-2", UserID: "U2", ReplyToken: "r2", Text: "hi there"},
	})
	d.Wait()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.replies) != 2 {
		t.Fatalf("replies = %d, want 2", len(sender.replies))
	}
}

func TestDispatchDropsRedeliveredEvents(t *testing.T) {
	ft := newFakeTracker()
	mock := &scriptedLLM{script: []conversation.Turn{assistantText("That is sufficient.")}}
	sender := &fakeSender{}
	d := newTestDispatcher(t, newTestAgent(mock, ft), sender)

	ev := channel.Event{ID: "ev-1", UserID: "U1", ReplyToken: "r1", Text: "hello"}
	d.Dispatch(context.Background(), []channel.Event{ev})
	d.Dispatch(context.Background(), []channel.Event{ev})
	d.Wait()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.replies) != 1 {
		t.Fatalf("replies = %d, want 1 (redelivery dropped)", len(sender.replies))
	}
}

func TestDispatchSynthesizesMissingEventID(t *testing.T) {
	ft := newFakeTracker()
	mock := &scriptedLLM{script: []conversation.Turn{assistantText("That is sufficient.")}}
	sender := &fakeSender{}
	d := newTestDispatcher(t, newTestAgent(mock, ft), sender)

	// Two events without IDs must not collide in the dedup cache.
	d.Dispatch(context.Background(), []channel.Event{
		{UserID: "U1", ReplyToken: "r1", Text: "one"},
		{UserID: "U2", ReplyToken: "r2", Text: "two"},
	})
	d.Wait()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.replies) != 2 {
		t.Fatalf("replies = %d, want 2", len(sender.replies))
	}
}

func TestDispatchReplyFailureFallsBackToPush(t *testing.T) {
	ft := newFakeTracker()
	mock := &scriptedLLM{script: []conversation.Turn{assistantText("That is sufficient.")}}
	sender := &fakeSender{replyErr: errors.New("reply token expired")}
	d := newTestDispatcher(t, newTestAgent(mock, ft), sender)

	d.Dispatch(context.Background(), []channel.Event{
		{ID: "ev-1", UserID: "U1", ReplyToken: "r1", Text: "hello"},
	})
	d.Wait()

	pushes := sender.pushed()
	if len(pushes) != 1 {
		t.Fatalf("pushes = %d, want 1 fallback notification", len(pushes))
	}
}
