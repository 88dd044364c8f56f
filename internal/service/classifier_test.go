package service

import (
	"reflect"
	"testing"
)

func TestIsAffirmation(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"ok", true},
		{"OK", true},
		{"  Yes please!  ", true},
		{"Go ahead.", true},
		{"sounds good", true},
		{"sure!", true},
		{"ok, but change the second task", false},
		{"no", false},
		{"create a ticket for the launch", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsAffirmation(tt.text); got != tt.want {
			t.Errorf("IsAffirmation(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestIsTermination(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"That is sufficient.", true},
		{"I reviewed the plan and this is sufficient for the moment.", true},
		{"No further tickets are needed at this point.", true},
		{"I created ticket #42 for you.", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsTermination(tt.text); got != tt.want {
			t.Errorf("IsTermination(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestIsSufficiencyFiller(t *testing.T) {
	if !IsSufficiencyFiller("That is sufficient.") {
		t.Error("expected bare acknowledgment to be a filler")
	}
	if IsSufficiencyFiller("That is sufficient. I also created ticket #7.") {
		t.Error("expected reply with extra content not to be a filler")
	}
}

func TestExtractProposal(t *testing.T) {
	text := "This looks like three separate tasks:\n" +
		"1. **Design the schema**\n" +
		"2. **Write the migration**\n" +
		"3. **Update the docs**\n" +
		"Shall I create tickets for them?"

	got := ExtractProposal(text)
	want := []string{"Design the schema", "Write the migration", "Update the docs"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractProposal = %v, want %v", got, want)
	}
}

func TestExtractProposalNone(t *testing.T) {
	if got := ExtractProposal("I created the ticket for you."); got != nil {
		t.Errorf("expected nil for plain text, got %v", got)
	}
	if got := ExtractProposal("emphasis only: ** **"); got != nil {
		t.Errorf("expected nil for blank candidates, got %v", got)
	}
}
