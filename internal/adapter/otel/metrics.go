// Package otel provides OpenTelemetry metric instruments and HTTP
// instrumentation for taskmate.
package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "taskmate"

// Metrics holds all taskmate metric instruments.
type Metrics struct {
	ConversationsStarted   metric.Int64Counter
	ConversationsCompleted metric.Int64Counter
	ConversationsFailed    metric.Int64Counter
	ToolCalls              metric.Int64Counter
	TicketsCreated         metric.Int64Counter
	ConversationDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.ConversationsStarted, err = meter.Int64Counter("taskmate.conversations.started",
		metric.WithDescription("Number of conversation turns started"))
	if err != nil {
		return nil, err
	}

	m.ConversationsCompleted, err = meter.Int64Counter("taskmate.conversations.completed",
		metric.WithDescription("Number of conversation turns completed"))
	if err != nil {
		return nil, err
	}

	m.ConversationsFailed, err = meter.Int64Counter("taskmate.conversations.failed",
		metric.WithDescription("Number of conversation turns that faulted and reset"))
	if err != nil {
		return nil, err
	}

	m.ToolCalls, err = meter.Int64Counter("taskmate.toolcalls",
		metric.WithDescription("Number of tool calls executed"))
	if err != nil {
		return nil, err
	}

	m.TicketsCreated, err = meter.Int64Counter("taskmate.tickets.created",
		metric.WithDescription("Number of tickets created"))
	if err != nil {
		return nil, err
	}

	m.ConversationDuration, err = meter.Float64Histogram("taskmate.conversation.duration_seconds",
		metric.WithDescription("Conversation turn duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
