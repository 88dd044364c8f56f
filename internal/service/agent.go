package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harukisa/taskmate/internal/adapter/otel"
	"github.com/harukisa/taskmate/internal/domain/conversation"
	"github.com/harukisa/taskmate/internal/domain/ticket"
	"github.com/harukisa/taskmate/internal/port/convstore"
	"github.com/harukisa/taskmate/internal/port/llm"
)

// maxSteps bounds the agent loop. It is the only termination safety net
// independent of model behavior.
const maxSteps = 3

// apologyReply is returned after an unrecoverable fault during a model turn.
// The user's conversation history is discarded; the next message starts fresh.
const apologyReply = "I'm sorry, something went wrong while handling your message. Please try again."

// reflectionPrompt drives iterations after the first: the model is asked
// whether further decomposition or reordering is needed.
const reflectionPrompt = "Given the ticket creation, splitting, and ordering done so far, " +
	"propose any further tasks that should be split out, additional tickets worth creating, " +
	"or dependency/order optimizations. If nothing more is needed, reply \"That is sufficient.\""

// forcedRetryPrompt is issued exactly once when the first turn produced no
// tool call. Whatever comes back is accepted without further retries.
const forcedRetryPrompt = "The message above should be turned into a ticket. " +
	"Call the create_ticket function now."

// Agent drives the multi-step conversation loop: model turns, tool
// execution, result feedback, and termination.
type Agent struct {
	llm     llm.Client
	store   convstore.Store
	tools   *Registry
	metrics *otel.Metrics // optional
	now     func() time.Time
}

// NewAgent creates the agent loop service. metrics may be nil.
func NewAgent(client llm.Client, store convstore.Store, tools *Registry, metrics *otel.Metrics) *Agent {
	return &Agent{
		llm:     client,
		store:   store,
		tools:   tools,
		metrics: metrics,
		now:     time.Now,
	}
}

// SetNow overrides the clock. Used by tests.
func (a *Agent) SetNow(now func() time.Time) {
	a.now = now
}

// HandleMessage processes one inbound user message to completion and returns
// the reply text. Faults never escape: they reset the user's conversation
// and yield a fixed apology.
func (a *Agent) HandleMessage(ctx context.Context, userID, text string) string {
	start := a.now()
	if a.metrics != nil {
		a.metrics.ConversationsStarted.Add(ctx, 1)
	}

	var reply string
	var faulted bool
	a.store.Update(userID, func(st *conversation.State) {
		reply, faulted = a.run(ctx, userID, st, text)
	})

	if a.metrics != nil {
		a.metrics.ConversationDuration.Record(ctx, a.now().Sub(start).Seconds())
		if faulted {
			a.metrics.ConversationsFailed.Add(ctx, 1)
		} else {
			a.metrics.ConversationsCompleted.Add(ctx, 1)
		}
	}
	return reply
}

// run executes the loop with the user's state held under its lock.
func (a *Agent) run(ctx context.Context, userID string, st *conversation.State, text string) (reply string, faulted bool) {
	if !st.Seeded() {
		st.Seed(a.systemInstruction())
	}
	st.Append(conversation.Turn{Role: conversation.RoleUser, Text: text})

	specs := a.tools.Specs()

	var (
		finalReply         string
		lastImportantReply string
		lastToolResult     ToolResult
		retried            bool
	)

	for step := 0; step < maxSteps; step++ {
		// Bulk-confirm shortcut, checked on every loop entry: an affirmative
		// message plus a stored split proposal bypasses the model entirely.
		if IsAffirmation(text) && len(st.SplitProposal) > 0 {
			return a.bulkConfirm(ctx, userID, st), false
		}

		if step > 0 {
			input := reflectionPrompt
			if lastToolResult != nil {
				if data, err := json.Marshal(lastToolResult); err == nil {
					input += "\n\nPrevious tool result:\n" + string(data)
				}
			}
			st.Append(conversation.Turn{Role: conversation.RoleUser, Text: input})
		}

		turn, err := a.generate(ctx, st, specs)
		if err != nil {
			return a.fault(userID, st, err), true
		}
		st.Append(*turn)

		// Forced tool-call retry, once, on the first turn only.
		if step == 0 && !retried && turn.ToolCall == nil {
			retried = true
			slog.Info("no tool call on first turn, forcing retry", "user_id", userID)
			st.Append(conversation.Turn{Role: conversation.RoleUser, Text: forcedRetryPrompt})
			turn, err = a.generate(ctx, st, specs)
			if err != nil {
				return a.fault(userID, st, err), true
			}
			st.Append(*turn)
		}

		if turn.ToolCall != nil {
			result := a.executeTool(ctx, *turn.ToolCall)
			st.Append(conversation.Turn{
				Role: conversation.RoleTool,
				ToolResult: &conversation.ToolResult{
					Name:     turn.ToolCall.Name,
					Response: result,
				},
			})
			lastToolResult = result

			feedback, err := a.generate(ctx, st, specs)
			if err != nil {
				return a.fault(userID, st, err), true
			}
			st.Append(*feedback)
			finalReply = feedback.Text
			lastImportantReply = finalReply
		} else {
			finalReply = turn.Text
			if tasks := ExtractProposal(finalReply); len(tasks) > 0 {
				st.SplitProposal = tasks
				slog.Info("split proposal stored", "user_id", userID, "tasks", len(tasks))
			}
		}

		if IsTermination(finalReply) {
			slog.Debug("model judged result sufficient", "user_id", userID, "step", step)
			break
		}
	}

	// Do not answer an acknowledgment phrase when a substantive tool-derived
	// reply exists from an earlier iteration.
	if IsSufficiencyFiller(finalReply) && lastImportantReply != "" {
		return lastImportantReply, false
	}
	return finalReply, false
}

// bulkConfirm creates one ticket per proposed task and returns an aggregate
// confirmation. No model turn is issued for this message.
func (a *Agent) bulkConfirm(ctx context.Context, userID string, st *conversation.State) string {
	slog.Info("bulk-confirm shortcut triggered", "user_id", userID, "tasks", len(st.SplitProposal))

	var lines []string
	for _, task := range st.SplitProposal {
		result := a.executeTool(ctx, conversation.ToolCall{
			Name: ToolCreateTicket,
			Args: map[string]any{
				"subject":       task,
				"description":   task,
				"priority_name": PriorityNormal,
			},
		})
		if result.Status() != "success" {
			slog.Warn("bulk ticket creation failed", "user_id", userID, "task", task)
			continue
		}
		url, _ := result["ticket_url"].(string)
		lines = append(lines, fmt.Sprintf("- %s\n  %s", task, url))
	}

	if len(lines) == 0 {
		return "Ticket creation failed."
	}

	reply := "I registered the following tasks as tickets:\n\n" + strings.Join(lines, "\n")
	st.Append(conversation.Turn{Role: conversation.RoleAssistant, Text: reply})
	return reply
}

func (a *Agent) executeTool(ctx context.Context, call conversation.ToolCall) ToolResult {
	result := a.tools.Execute(ctx, call)
	if a.metrics != nil {
		a.metrics.ToolCalls.Add(ctx, 1)
		if call.Name == ToolCreateTicket && result.Status() == "success" {
			a.metrics.TicketsCreated.Add(ctx, 1)
		}
	}
	return result
}

func (a *Agent) generate(ctx context.Context, st *conversation.State, specs []llm.ToolSpec) (*conversation.Turn, error) {
	return a.llm.Generate(ctx, llm.Request{
		System:  st.Turns[0].Text,
		History: st.Turns,
		Tools:   specs,
	})
}

// fault discards the conversation after an unexpected model-turn failure.
func (a *Agent) fault(userID string, st *conversation.State, err error) string {
	slog.Error("model turn failed, resetting conversation", "user_id", userID, "error", err)
	st.ResetHistory()
	return apologyReply
}

// systemInstruction builds the instruction turn seeded at the start of every
// conversation.
func (a *Agent) systemInstruction() string {
	date := a.now().In(ticket.Zone).Format("Monday, January 2, 2006")
	return fmt.Sprintf(
		"You are the user's capable secretary and assistant. Today is %s. "+
			"Whenever the user mentions anything that can become a task (a to-do, a plan, "+
			"a request, or a passing idea, even when not phrased as a command), create a "+
			"ticket by calling the create_ticket function. Do not settle for a text-only "+
			"answer when a function call is possible. "+
			"When asked to summarize tickets, do not print a mechanical list: analyze the "+
			"situation as a secretary would, group similar tasks, and give practical advice "+
			"that weighs priorities and due dates. Treat due dates earlier than today as "+
			"overdue and say so. "+
			"Always include the ticket URL when reporting a created ticket, and present "+
			"search results in a well-organized form. Anticipate the user's intent, keep "+
			"task management efficient, and keep a warm, human tone.",
		date)
}
