package service

import (
	"regexp"
	"strings"
)

// The agent loop steers on fixed phrase vocabularies. They live here,
// decoupled from the loop's control logic, so the vocabulary can grow
// without touching the state machine.

// affirmations is the acknowledgment vocabulary for the bulk-confirm
// shortcut. Matching is case-insensitive on the trimmed message with
// trailing punctuation stripped.
var affirmations = map[string]bool{
	"ok":             true,
	"okay":           true,
	"yes":            true,
	"yep":            true,
	"yes please":     true,
	"understood":     true,
	"got it":         true,
	"sounds good":    true,
	"that works":     true,
	"go ahead":       true,
	"please proceed": true,
	"proceed":        true,
	"do it":          true,
	"sure":           true,
}

// terminationPhrases end the agent loop when they appear anywhere in the
// model's produced text.
var terminationPhrases = []string{
	"that is sufficient",
	"this is sufficient",
	"that's sufficient",
	"sufficient for now",
	"no further tickets",
	"no additional tickets",
}

// sufficiencyFillers are terminal replies that carry no substance. When the
// loop ends on one of these and an earlier iteration produced a tool-derived
// reply, that reply is returned instead.
var sufficiencyFillers = map[string]bool{
	"that is sufficient":               true,
	"that is sufficient.":              true,
	"this is sufficient":               true,
	"this is sufficient.":              true,
	"that's sufficient":                true,
	"that's sufficient.":               true,
	"no further tickets are needed":    true,
	"no further tickets are needed.":   true,
	"no additional tickets are needed": true,
	"no additional tickets needed.":    true,
}

// proposalPattern marks the model's proposed sub-tasks in free text: each
// candidate is wrapped in double asterisks.
var proposalPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)

// IsAffirmation reports whether a user message is an acknowledgment of a
// previously proposed task split.
func IsAffirmation(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.TrimRight(t, ".!")
	return affirmations[t]
}

// IsTermination reports whether produced text signals that no further
// decomposition is needed.
func IsTermination(text string) bool {
	t := strings.ToLower(text)
	for _, phrase := range terminationPhrases {
		if strings.Contains(t, phrase) {
			return true
		}
	}
	return false
}

// IsSufficiencyFiller reports whether a terminal reply is a bare sufficiency
// acknowledgment with no content of its own.
func IsSufficiencyFiller(text string) bool {
	return sufficiencyFillers[strings.ToLower(strings.TrimSpace(text))]
}

// ExtractProposal scans free text for marked task candidates, preserving
// their order. Returns nil when the text proposes nothing.
func ExtractProposal(text string) []string {
	matches := proposalPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	tasks := make([]string, 0, len(matches))
	for _, m := range matches {
		if task := strings.TrimSpace(m[1]); task != "" {
			tasks = append(tasks, task)
		}
	}
	if len(tasks) == 0 {
		return nil
	}
	return tasks
}
