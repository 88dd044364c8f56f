// Package conversation defines the per-user conversation model shared by the
// agent loop, the conversation store, and the LLM port.
package conversation

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a structured request emitted by the model naming one registered
// operation and its arguments, in lieu of free text.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ToolResult is the outcome of executing a tool call. It is fed back to the
// model as the function response and is the only channel through which tool
// outcomes affect subsequent model reasoning.
type ToolResult struct {
	Name     string
	Response map[string]any
}

// Turn is one entry in a conversation history. Assistant turns may carry both
// Text and a ToolCall when the model mixes prose with a function call.
type Turn struct {
	Role       Role
	Text       string
	ToolCall   *ToolCall
	ToolResult *ToolResult
}

// State is the conversation state for a single user. Turns always begin with
// exactly one system turn before any user turn. SplitProposal holds the most
// recent set of task candidates the model proposed in free text, remembered
// for a later bulk confirmation; it is overwritten, never merged.
type State struct {
	Turns         []Turn
	SplitProposal []string
}

// Seeded reports whether the history has been initialized with its system turn.
func (s *State) Seeded() bool {
	return len(s.Turns) > 0
}

// Seed initializes the history with the given system instruction.
func (s *State) Seed(instruction string) {
	s.Turns = []Turn{{Role: RoleSystem, Text: instruction}}
}

// Append adds a turn to the history.
func (s *State) Append(t Turn) {
	s.Turns = append(s.Turns, t)
}

// ResetHistory discards the conversation history after an unrecoverable
// fault. The split proposal survives; the next message re-seeds the history.
func (s *State) ResetHistory() {
	s.Turns = nil
}
