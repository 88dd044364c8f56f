// Package redmine implements the tracker port against the Redmine REST API.
package redmine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harukisa/taskmate/internal/port/tracker"
	"github.com/harukisa/taskmate/internal/resilience"
)

// requestTimeout bounds every tracker call. There is no retry: a failed call
// surfaces immediately to the caller, which decides whether to report or
// degrade.
const requestTimeout = 30 * time.Second

// Client talks to a Redmine instance.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a Redmine client for the given base URL and API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// redmineIssue mirrors the JSON shape of the Redmine issues API.
type redmineIssue struct {
	ID       int    `json:"id"`
	Subject  string `json:"subject"`
	DueDate  string `json:"due_date"`
	Created  string `json:"created_on"`
	Status   named  `json:"status"`
	Priority named  `json:"priority"`
	Assigned named  `json:"assigned_to"`
}

type named struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CreateIssue creates one issue. Repeated identical calls create duplicate
// tickets; the tracker does not deduplicate.
func (c *Client) CreateIssue(ctx context.Context, issue tracker.NewIssue) (*tracker.Issue, error) {
	payload := map[string]any{
		"issue": map[string]any{
			"project_id":  issue.ProjectID,
			"subject":     issue.Subject,
			"description": issue.Description,
			"priority_id": issue.PriorityID,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal issue: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/issues.json", body)
	if err != nil {
		return nil, fmt.Errorf("redmine create issue: %w", err)
	}

	var created struct {
		Issue redmineIssue `json:"issue"`
	}
	if err := json.Unmarshal(resp, &created); err != nil {
		return nil, fmt.Errorf("redmine parse response: %w", err)
	}
	if created.Issue.ID == 0 {
		return nil, fmt.Errorf("redmine response carries no issue id: %s", string(resp))
	}

	out := issueFromWire(&created.Issue)
	return &out, nil
}

// ListPriorities fetches the issue priority enumeration.
func (c *Client) ListPriorities(ctx context.Context) ([]tracker.Priority, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/enumerations/issue_priorities.json", nil)
	if err != nil {
		return nil, fmt.Errorf("redmine list priorities: %w", err)
	}

	var result struct {
		Priorities []named `json:"issue_priorities"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("redmine parse response: %w", err)
	}

	priorities := make([]tracker.Priority, 0, len(result.Priorities))
	for _, p := range result.Priorities {
		priorities = append(priorities, tracker.Priority{ID: p.ID, Name: p.Name})
	}
	return priorities, nil
}

// ListIssues fetches issues matching the filter.
func (c *Client) ListIssues(ctx context.Context, filter tracker.Filter) ([]tracker.Issue, error) {
	path := "/issues.json"
	if q := BuildQuery(filter); q != "" {
		path += "?" + q
	}

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("redmine list issues: %w", err)
	}

	var result struct {
		Issues []redmineIssue `json:"issues"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("redmine parse response: %w", err)
	}

	issues := make([]tracker.Issue, 0, len(result.Issues))
	for i := range result.Issues {
		issues = append(issues, issueFromWire(&result.Issues[i]))
	}
	return issues, nil
}

// BuildQuery composes the Redmine issues query string for a filter.
// Zero-valued fields are omitted. Exported for tests.
func BuildQuery(filter tracker.Filter) string {
	v := url.Values{}
	if filter.SubjectContains != "" {
		v.Set("subject", "~"+filter.SubjectContains)
	}
	if len(filter.StatusIDs) > 0 {
		v.Set("status_id", strings.Join(filter.StatusIDs, "|"))
	}
	switch {
	case filter.DueOn != "":
		v.Set("due_date", filter.DueOn)
	case filter.DueOnOrBefore != "":
		v.Set("due_date", "<="+filter.DueOnOrBefore)
	case filter.DueStart != "" && filter.DueEnd != "":
		v.Set("due_date", "><"+filter.DueStart+"|"+filter.DueEnd)
	}
	if filter.AssignedTo != "" {
		v.Set("assigned_to_id", filter.AssignedTo)
	}
	if filter.Sort != "" {
		v.Set("sort", filter.Sort)
	}
	if filter.Limit > 0 {
		v.Set("limit", fmt.Sprintf("%d", filter.Limit))
	}
	return v.Encode()
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("X-Redmine-API-Key", c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("redmine API %d: %s", resp.StatusCode, string(data))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}

func issueFromWire(issue *redmineIssue) tracker.Issue {
	return tracker.Issue{
		ID:         issue.ID,
		Subject:    issue.Subject,
		Status:     issue.Status.Name,
		Priority:   issue.Priority.Name,
		DueDate:    issue.DueDate,
		CreatedOn:  issue.Created,
		AssignedTo: issue.Assigned.Name,
	}
}
