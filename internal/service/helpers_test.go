package service

import (
	"context"
	"sync"
	"time"

	"github.com/harukisa/taskmate/internal/domain/conversation"
	"github.com/harukisa/taskmate/internal/port/llm"
	"github.com/harukisa/taskmate/internal/port/tracker"
)

// fixedNow is the reference clock for date-sensitive tests: a Tuesday.
var fixedNow = time.Date(2025, 6, 10, 9, 0, 0, 0, time.FixedZone("UTC+9", 9*60*60))

func fixedClock() time.Time { return fixedNow }

// fakeTracker implements tracker.Client in memory.
type fakeTracker struct {
	mu sync.Mutex

	nextID  int
	created []tracker.NewIssue

	issues     []tracker.Issue
	priorities []tracker.Priority

	createErr error
	listErr   error

	lastFilter tracker.Filter
	listCalls  int
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		nextID: 100,
		priorities: []tracker.Priority{
			{ID: 1, Name: "Low"},
			{ID: 2, Name: "Normal"},
			{ID: 3, Name: "Urgent"},
		},
	}
}

func (f *fakeTracker) CreateIssue(_ context.Context, issue tracker.NewIssue) (*tracker.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	f.created = append(f.created, issue)
	return &tracker.Issue{ID: f.nextID, Subject: issue.Subject}, nil
}

func (f *fakeTracker) ListPriorities(_ context.Context) ([]tracker.Priority, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.priorities, nil
}

func (f *fakeTracker) ListIssues(_ context.Context, filter tracker.Filter) ([]tracker.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.issues, nil
}

func (f *fakeTracker) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

// scriptedLLM implements llm.Client, replaying a fixed sequence of turns.
type scriptedLLM struct {
	mu       sync.Mutex
	script   []conversation.Turn
	err      error
	calls    int
	requests []llm.Request
}

func (s *scriptedLLM) Generate(_ context.Context, req llm.Request) (*conversation.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	i := s.calls - 1
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	turn := s.script[i]
	return &turn, nil
}

func (s *scriptedLLM) Ping(context.Context) error { return s.err }

func (s *scriptedLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fakeSender records outbound messages.
type fakeSender struct {
	mu       sync.Mutex
	replies  []string
	pushes   []string
	replyErr error
	pushErr  error
}

func (f *fakeSender) Reply(_ context.Context, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyErr != nil {
		return f.replyErr
	}
	f.replies = append(f.replies, text)
	return nil
}

func (f *fakeSender) Push(_ context.Context, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushes = append(f.pushes, text)
	return nil
}

func (f *fakeSender) pushed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pushes...)
}

func assistantText(text string) conversation.Turn {
	return conversation.Turn{Role: conversation.RoleAssistant, Text: text}
}

func assistantCall(name string, args map[string]any) conversation.Turn {
	return conversation.Turn{
		Role:     conversation.RoleAssistant,
		ToolCall: &conversation.ToolCall{Name: name, Args: args},
	}
}

func testRegistry(ft *fakeTracker) *Registry {
	pt, err := NewPriorityTable(map[string]int{"low": 1, "normal": 2, "urgent": 3})
	if err != nil {
		panic(err)
	}
	r := NewRegistry(ft, pt, 1, "https://redmine.example.com", []string{"1", "2", "3"})
	r.SetNow(fixedClock)
	return r
}
