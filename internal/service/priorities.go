// Package service contains application services: the tool registry, the
// agent loop, message dispatch, and the overdue notification job.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/harukisa/taskmate/internal/port/tracker"
)

// Priority display names the tracker must expose. Resolution is
// case-insensitive.
const (
	PriorityNormal = "normal"
	PriorityUrgent = "urgent"
)

// PriorityTable maps lowercased priority display names to tracker ids.
// Loaded once at startup from the tracker's enumeration endpoint; immutable
// afterwards, so concurrent reads need no locking.
type PriorityTable struct {
	ids      map[string]int
	normalID int
}

// LoadPriorityTable fetches the priority enumeration and asserts that the
// "normal" and "urgent" levels exist. Any failure here is fatal at startup.
func LoadPriorityTable(ctx context.Context, tc tracker.Client) (*PriorityTable, error) {
	priorities, err := tc.ListPriorities(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch priorities: %w", err)
	}
	if len(priorities) == 0 {
		return nil, fmt.Errorf("tracker returned no priorities")
	}

	ids := make(map[string]int, len(priorities))
	for _, p := range priorities {
		ids[strings.ToLower(p.Name)] = p.ID
	}

	normalID, ok := ids[PriorityNormal]
	if !ok {
		return nil, fmt.Errorf("priority %q not found in tracker enumeration", PriorityNormal)
	}
	if _, ok := ids[PriorityUrgent]; !ok {
		return nil, fmt.Errorf("priority %q not found in tracker enumeration", PriorityUrgent)
	}

	return &PriorityTable{ids: ids, normalID: normalID}, nil
}

// NewPriorityTable builds a table directly from name→id pairs. Used by tests.
func NewPriorityTable(ids map[string]int) (*PriorityTable, error) {
	normalID, ok := ids[PriorityNormal]
	if !ok {
		return nil, fmt.Errorf("priority %q is required", PriorityNormal)
	}
	return &PriorityTable{ids: ids, normalID: normalID}, nil
}

// Resolve maps a priority display name to its tracker id, falling back to
// the normal priority for unknown names.
func (t *PriorityTable) Resolve(name string) int {
	if id, ok := t.ids[strings.ToLower(name)]; ok {
		return id
	}
	return t.normalID
}

// NormalID returns the id of the normal priority.
func (t *PriorityTable) NormalID() int {
	return t.normalID
}
