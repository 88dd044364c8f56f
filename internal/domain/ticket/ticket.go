// Package ticket holds date arithmetic and due-status classification for
// tracker issues. All calendar math uses a fixed UTC+9 zone, matching the
// tracker deployment.
package ticket

import "time"

// Zone is the fixed timezone offset used for all date resolution.
var Zone = time.FixedZone("UTC+9", 9*60*60)

// DateLayout is the tracker's date wire format.
const DateLayout = "2006-01-02"

// DueStatus classifies an issue's due date relative to the current date.
type DueStatus string

const (
	DueNormal  DueStatus = "normal"
	DueOverdue DueStatus = "overdue"
	DueToday   DueStatus = "due_today"
)

// ClassifyDue compares a tracker due-date string against today. A missing or
// malformed due date classifies as normal.
func ClassifyDue(dueDate string, now time.Time) DueStatus {
	if dueDate == "" {
		return DueNormal
	}
	due, err := time.ParseInLocation(DateLayout, dueDate, Zone)
	if err != nil {
		return DueNormal
	}
	today := midnight(now.In(Zone))
	switch {
	case due.Before(today):
		return DueOverdue
	case due.Equal(today):
		return DueToday
	default:
		return DueNormal
	}
}

// DateFilter is a resolved relative-date filter: either an exact date or an
// inclusive range.
type DateFilter struct {
	Exact string
	Start string
	End   string
}

// ResolveDueDate resolves the relative due-date keywords the model may emit.
// "today" resolves to an exact match on the current date; "this_week" to the
// inclusive Monday..Sunday range containing it. Unknown keywords resolve to
// nothing.
func ResolveDueDate(keyword string, now time.Time) (DateFilter, bool) {
	local := now.In(Zone)
	switch keyword {
	case "today":
		return DateFilter{Exact: local.Format(DateLayout)}, true
	case "this_week":
		start := midnight(local).AddDate(0, 0, -daysSinceMonday(local.Weekday()))
		end := start.AddDate(0, 0, 6)
		return DateFilter{
			Start: start.Format(DateLayout),
			End:   end.Format(DateLayout),
		}, true
	default:
		return DateFilter{}, false
	}
}

// daysSinceMonday maps a weekday to its offset from Monday, the start of the
// week.
func daysSinceMonday(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
