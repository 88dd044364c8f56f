package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harukisa/taskmate/internal/domain/conversation"
	"github.com/harukisa/taskmate/internal/domain/ticket"
	"github.com/harukisa/taskmate/internal/port/llm"
	"github.com/harukisa/taskmate/internal/port/tracker"
)

// The closed tool set the model may invoke. Dispatch is a total switch over
// these names; anything else is an explicit error result, never a fault.
const (
	ToolCreateTicket     = "create_ticket"
	ToolSearchTickets    = "search_tickets"
	ToolSummarizeTickets = "summarize_tickets"
)

// ToolResult is the JSON-serializable outcome of one tool execution. The
// "status" key is always present: success, error, or not_found.
type ToolResult map[string]any

// Status returns the result's status field.
func (r ToolResult) Status() string {
	s, _ := r["status"].(string)
	return s
}

func errorResult(format string, args ...any) ToolResult {
	return ToolResult{"status": "error", "message": fmt.Sprintf(format, args...)}
}

func notFoundResult(message string) ToolResult {
	return ToolResult{"status": "not_found", "message": message}
}

// Registry executes the fixed tool catalog against the issue tracker.
type Registry struct {
	tracker       tracker.Client
	priorities    *PriorityTable
	projectID     int
	publicURL     string
	openStatusIDs []string
	now           func() time.Time
}

// NewRegistry creates the tool registry. publicURL is the user-visible
// tracker base for ticket links; openStatusIDs is the configured set of
// status ids considered not yet completed (may be nil).
func NewRegistry(tc tracker.Client, priorities *PriorityTable, projectID int, publicURL string, openStatusIDs []string) *Registry {
	return &Registry{
		tracker:       tc,
		priorities:    priorities,
		projectID:     projectID,
		publicURL:     strings.TrimSuffix(publicURL, "/"),
		openStatusIDs: openStatusIDs,
		now:           time.Now,
	}
}

// SetNow overrides the clock. Used by tests.
func (g *Registry) SetNow(now func() time.Time) {
	g.now = now
}

// Specs returns the tool declarations submitted with every model turn.
func (g *Registry) Specs() []llm.ToolSpec {
	return []llm.ToolSpec{
		{
			Name: ToolCreateTicket,
			Description: "Create a ticket in the issue tracker. Use this whenever the user's " +
				"message describes anything that can become a task: a to-do, a plan, a request, " +
				"or a passing idea, even when it is not phrased as a command.",
			Parameters: objectSchema(map[string]any{
				"subject":     stringSchema("Ticket subject summarizing the request"),
				"description": stringSchema("Full ticket description; include the user's entire request"),
				"priority_name": stringSchema("Priority name: 'normal' or 'urgent'. " +
					"Choose 'urgent' when the request sounds time-critical."),
			}, "subject", "description"),
		},
		{
			Name: ToolSearchTickets,
			Description: "Search open tickets by keyword, due date, or assignee. " +
				"Filters can be combined; at least one is required.",
			Parameters: objectSchema(map[string]any{
				"query":       stringSchema("Keyword matched against ticket subjects"),
				"due_date":    stringSchema("Relative due date: 'today' or 'this_week'"),
				"assigned_to": stringSchema("Assignee user id, or 'me' for the bot user"),
			}),
		},
		{
			Name: ToolSummarizeTickets,
			Description: "Fetch a priority-ordered ticket summary for secretary-style reporting. " +
				"Use for questions like 'what should I do today' or 'show my tickets'. " +
				"Group similar tasks and weigh due-date urgency when narrating the result.",
			Parameters: objectSchema(map[string]any{
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of tickets to fetch (default 10)",
				},
				"priority_order": stringSchema("'high_to_low' (default) or 'low_to_high'"),
				"status_filter":  stringSchema("'open' (default) or 'all'"),
			}),
		},
	}
}

// Execute dispatches one validated tool call. Unknown names produce an error
// result so the model can recover; they are never fatal.
func (g *Registry) Execute(ctx context.Context, call conversation.ToolCall) ToolResult {
	slog.Info("executing tool", "tool", call.Name, "args", call.Args)

	switch call.Name {
	case ToolCreateTicket:
		return g.createTicket(ctx, call.Args)
	case ToolSearchTickets:
		return g.searchTickets(ctx, call.Args)
	case ToolSummarizeTickets:
		return g.summarizeTickets(ctx, call.Args)
	default:
		return errorResult("unknown tool: %s", call.Name)
	}
}

// createTicket creates one ticket. Unknown priority names fall back to
// normal. Not idempotent: repeated identical calls create duplicates.
func (g *Registry) createTicket(ctx context.Context, args map[string]any) ToolResult {
	subject := stringArg(args, "subject", "")
	if subject == "" {
		return errorResult("subject is required")
	}
	description := stringArg(args, "description", subject)
	priorityName := stringArg(args, "priority_name", PriorityNormal)

	created, err := g.tracker.CreateIssue(ctx, tracker.NewIssue{
		ProjectID:   g.projectID,
		Subject:     subject,
		Description: description,
		PriorityID:  g.priorities.Resolve(priorityName),
	})
	if err != nil {
		return errorResult("ticket creation failed: %s", err)
	}

	return ToolResult{
		"status":     "success",
		"message":    "Ticket created.",
		"ticket_id":  created.ID,
		"ticket_url": g.ticketURL(created.ID),
		"subject":    subject,
		"priority":   priorityName,
	}
}

// searchTickets lists open tickets matching the given filters. At least one
// filter is required; with none supplied the backend is not contacted.
func (g *Registry) searchTickets(ctx context.Context, args map[string]any) ToolResult {
	query := stringArg(args, "query", "")
	dueDate := stringArg(args, "due_date", "")
	assignedTo := stringArg(args, "assigned_to", "")

	filter := tracker.Filter{
		SubjectContains: query,
		AssignedTo:      assignedTo,
		Sort:            "due_date:asc",
	}
	if dueDate != "" {
		if df, ok := ticket.ResolveDueDate(dueDate, g.now()); ok {
			filter.DueOn = df.Exact
			filter.DueStart = df.Start
			filter.DueEnd = df.End
		}
	}

	if filter.SubjectContains == "" && filter.AssignedTo == "" &&
		filter.DueOn == "" && filter.DueStart == "" {
		return errorResult("no search filters supplied")
	}

	filter.StatusIDs = g.openStatusIDs

	issues, err := g.tracker.ListIssues(ctx, filter)
	if err != nil {
		return errorResult("ticket search failed: %s", err)
	}
	if len(issues) == 0 {
		return notFoundResult(fmt.Sprintf("no open tickets matched %s", describeSearch(query, dueDate, assignedTo)))
	}

	summarized := make([]map[string]any, 0, len(issues))
	for i := range issues {
		summarized = append(summarized, map[string]any{
			"id":       issues[i].ID,
			"subject":  issues[i].Subject,
			"status":   issues[i].Status,
			"due_date": orUnset(issues[i].DueDate),
		})
	}
	return ToolResult{"status": "success", "issues": summarized}
}

// summarizeTickets fetches a priority-ordered listing and classifies each
// ticket's due date against today. The result is meant for the model to
// narrate, not to print verbatim.
func (g *Registry) summarizeTickets(ctx context.Context, args map[string]any) ToolResult {
	limit := intArg(args, "limit", 10)
	priorityOrder := stringArg(args, "priority_order", "high_to_low")
	statusFilter := stringArg(args, "status_filter", "open")

	sort := "priority:desc,created_on:desc"
	if priorityOrder == "low_to_high" {
		sort = "priority:asc,created_on:desc"
	}

	filter := tracker.Filter{Sort: sort, Limit: limit}
	if statusFilter == "open" {
		filter.StatusIDs = g.openStatusIDs
	}

	issues, err := g.tracker.ListIssues(ctx, filter)
	if err != nil {
		return errorResult("ticket summary failed: %s", err)
	}
	if len(issues) == 0 {
		return notFoundResult("no tickets matched the summary criteria")
	}

	now := g.now()
	today := now.In(ticket.Zone).Format(ticket.DateLayout)

	var overdue, dueToday int
	tickets := make([]map[string]any, 0, len(issues))
	for i := range issues {
		status := ticket.ClassifyDue(issues[i].DueDate, now)
		switch status {
		case ticket.DueOverdue:
			overdue++
		case ticket.DueToday:
			dueToday++
		}
		tickets = append(tickets, map[string]any{
			"id":          issues[i].ID,
			"subject":     issues[i].Subject,
			"priority":    orUnset(issues[i].Priority),
			"status":      orUnset(issues[i].Status),
			"due_date":    orUnset(issues[i].DueDate),
			"date_status": string(status),
			"created_on":  issues[i].CreatedOn,
		})
	}

	return ToolResult{
		"status":          "success",
		"current_date":    today,
		"total_count":     len(tickets),
		"overdue_count":   overdue,
		"due_today_count": dueToday,
		"tickets":         tickets,
		"instruction": fmt.Sprintf(
			"Today is %s. Report on these tickets as a capable secretary: group similar tasks, "+
				"weigh due-date urgency (%d overdue, %d due today), and give practical advice "+
				"rather than a mechanical list.",
			today, overdue, dueToday),
	}
}

func (g *Registry) ticketURL(id int) string {
	return fmt.Sprintf("%s/issues/%d", g.publicURL, id)
}

func describeSearch(query, dueDate, assignedTo string) string {
	var terms []string
	if query != "" {
		terms = append(terms, fmt.Sprintf("keyword %q", query))
	}
	if dueDate != "" {
		terms = append(terms, fmt.Sprintf("due date %q", dueDate))
	}
	if assignedTo != "" {
		terms = append(terms, fmt.Sprintf("assignee %q", assignedTo))
	}
	return strings.Join(terms, ", ")
}

func orUnset(s string) string {
	if s == "" {
		return "unset"
	}
	return s
}

// stringArg reads a string argument with a default. Model-emitted arguments
// are loosely typed, so non-strings fall back to the default.
func stringArg(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return def
}

// intArg reads an integer argument. JSON numbers decode as float64.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringSchema(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}
