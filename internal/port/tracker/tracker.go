// Package tracker defines the issue tracker port (interface) and its
// request/response shapes.
package tracker

import "context"

// Issue is an issue as reported by the tracker. The tracker owns issue state;
// taskmate never caches it beyond the lifetime of a single tool call.
type Issue struct {
	ID         int
	Subject    string
	Status     string
	Priority   string
	DueDate    string // YYYY-MM-DD, empty when unset
	CreatedOn  string
	AssignedTo string
}

// NewIssue is the payload for creating an issue.
type NewIssue struct {
	ProjectID   int
	Subject     string
	Description string
	PriorityID  int
}

// Priority is one entry of the tracker's priority enumeration.
type Priority struct {
	ID   int
	Name string
}

// Filter describes an issue listing query. Zero-valued fields are omitted
// from the query.
type Filter struct {
	SubjectContains string
	StatusIDs       []string
	DueOn           string // exact date
	DueOnOrBefore   string
	DueStart        string // inclusive range, paired with DueEnd
	DueEnd          string
	AssignedTo      string // user id literal, or "me"
	Sort            string
	Limit           int
}

// Client is the port to the issue tracker. Implementations never panic: every
// transport, HTTP-status, and decode failure is returned as an error value
// carrying the backend's detail, and each call observes a fixed timeout with
// no retries.
type Client interface {
	CreateIssue(ctx context.Context, issue NewIssue) (*Issue, error)
	ListPriorities(ctx context.Context) ([]Priority, error)
	ListIssues(ctx context.Context, filter Filter) ([]Issue, error)
}
