package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harukisa/taskmate/internal/domain/ticket"
	"github.com/harukisa/taskmate/internal/port/channel"
	"github.com/harukisa/taskmate/internal/port/tracker"
)

// OverdueNotifier runs the daily sweep for open tickets whose due date has
// arrived or passed and pushes a single aggregate reminder.
type OverdueNotifier struct {
	tracker       tracker.Client
	sender        channel.Sender
	recipient     string
	openStatusIDs []string
	publicURL     string
	now           func() time.Time
}

// NewOverdueNotifier creates the notifier. recipient may be empty, in which
// case Run is a no-op.
func NewOverdueNotifier(tc tracker.Client, sender channel.Sender, recipient, publicURL string, openStatusIDs []string) *OverdueNotifier {
	return &OverdueNotifier{
		tracker:       tc,
		sender:        sender,
		recipient:     recipient,
		openStatusIDs: openStatusIDs,
		publicURL:     strings.TrimRight(publicURL, "/"),
		now:           time.Now,
	}
}

// SetNow overrides the clock. Used by tests.
func (n *OverdueNotifier) SetNow(now func() time.Time) {
	n.now = now
}

// Run performs one sweep. Failures are logged and dropped; the next
// scheduled run retries from scratch.
func (n *OverdueNotifier) Run(ctx context.Context) {
	if n.recipient == "" {
		slog.Info("overdue sweep skipped, no recipient configured")
		return
	}
	if len(n.openStatusIDs) == 0 {
		slog.Info("overdue sweep skipped, no open statuses configured")
		return
	}

	today := n.now().In(ticket.Zone).Format(ticket.DateLayout)
	issues, err := n.tracker.ListIssues(ctx, tracker.Filter{
		StatusIDs:     n.openStatusIDs,
		DueOnOrBefore: today,
		Sort:          "due_date:asc",
	})
	if err != nil {
		slog.Error("overdue sweep query failed", "error", err)
		return
	}
	if len(issues) == 0 {
		slog.Info("overdue sweep found nothing due")
		return
	}

	msg := n.format(issues, today)
	if err := n.sender.Push(ctx, n.recipient, msg); err != nil {
		slog.Error("overdue notification push failed", "error", err)
		return
	}
	slog.Info("overdue notification sent", "tickets", len(issues))
}

func (n *OverdueNotifier) format(issues []tracker.Issue, today string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Good morning! %d ticket(s) are due today or overdue:\n", len(issues))
	for _, is := range issues {
		label := ""
		if ticket.ClassifyDue(is.DueDate, n.now().In(ticket.Zone)) == ticket.DueOverdue {
			label = " (overdue)"
		}
		fmt.Fprintf(&b, "\n- #%d %s\n  due %s%s\n  %s/issues/%d", is.ID, is.Subject, is.DueDate, label, n.publicURL, is.ID)
	}
	return b.String()
}
