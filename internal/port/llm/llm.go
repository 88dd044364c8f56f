// Package llm defines the model-invocation port. The agent loop depends on
// this interface only, so tests can substitute a deterministic fake.
package llm

import (
	"context"

	"github.com/harukisa/taskmate/internal/domain/conversation"
)

// ToolSpec declares one operation the model may invoke. Parameters is a JSON
// schema object in the provider's function-declaration format.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Request is one model submission: the system instruction, the full
// conversation history (the last turn is the new input), and the tool catalog.
type Request struct {
	System  string
	History []conversation.Turn
	Tools   []ToolSpec
}

// Client is the port to the LLM capability. Generate returns the model's
// reply as an assistant turn carrying free text, a tool call, or both. The
// model's behavior is non-deterministic; only this observable contract is
// under test.
type Client interface {
	Generate(ctx context.Context, req Request) (*conversation.Turn, error)

	// Ping verifies the capability is reachable; used by the startup self-check.
	Ping(ctx context.Context) error
}
