package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/harukisa/taskmate/internal/domain/conversation"
	"github.com/harukisa/taskmate/internal/port/llm"
)

func testClient(srvURL string) *Client {
	return New(Config{
		APIKey:      "test-key",
		BaseURL:     srvURL,
		Model:       "gemini-2.5-flash",
		Temperature: 0.7,
	})
}

func TestGenerateRequestMapping(t *testing.T) {
	var gotPath, gotKey string
	var gotReq geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hi!"}]}}]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	turn, err := c.Generate(context.Background(), llm.Request{
		System: "you are an assistant",
		History: []conversation.Turn{
			{Role: conversation.RoleSystem, Text: "you are an assistant"},
			{Role: conversation.RoleUser, Text: "hello"},
			{Role: conversation.RoleAssistant, ToolCall: &conversation.ToolCall{
				Name: "create_ticket", Args: map[string]any{"subject": "x"}}},
			{Role: conversation.RoleTool, ToolResult: &conversation.ToolResult{
				Name: "create_ticket", Response: map[string]any{"status": "success"}}},
		},
		Tools: []llm.ToolSpec{{Name: "create_ticket", Description: "create a ticket"}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if gotPath != "/models/gemini-2.5-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if gotReq.SystemInstruction == nil || gotReq.SystemInstruction.Parts[0].Text != "you are an assistant" {
		t.Error("system turn should travel as systemInstruction")
	}

	// The system turn must not appear in contents; the remaining three turns
	// map to user text, model functionCall, and user functionResponse.
	if len(gotReq.Contents) != 3 {
		t.Fatalf("contents = %d, want 3", len(gotReq.Contents))
	}
	if gotReq.Contents[0].Role != "user" || gotReq.Contents[0].Parts[0].Text != "hello" {
		t.Errorf("contents[0] = %+v", gotReq.Contents[0])
	}
	if gotReq.Contents[1].Role != "model" || gotReq.Contents[1].Parts[0].FunctionCall == nil {
		t.Errorf("contents[1] = %+v", gotReq.Contents[1])
	}
	fr := gotReq.Contents[2].Parts[0].FunctionResponse
	if gotReq.Contents[2].Role != "user" || fr == nil || fr.Name != "create_ticket" {
		t.Errorf("contents[2] = %+v", gotReq.Contents[2])
	}

	if len(gotReq.Tools) != 1 || len(gotReq.Tools[0].FunctionDeclarations) != 1 {
		t.Errorf("tools = %+v", gotReq.Tools)
	}
	if gotReq.GenerationConfig.Temperature != 0.7 {
		t.Errorf("temperature = %v", gotReq.GenerationConfig.Temperature)
	}

	if turn.Role != conversation.RoleAssistant || turn.Text != "Hi!" || turn.ToolCall != nil {
		t.Errorf("turn = %+v", turn)
	}
}

func TestGenerateExtractsFunctionCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[
			{"text":"Creating the ticket now. "},
			{"functionCall":{"name":"create_ticket","args":{"subject":"Buy milk"}}},
			{"functionCall":{"name":"create_ticket","args":{"subject":"ignored second call"}}}
		]}}]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	turn, err := c.Generate(context.Background(), llm.Request{
		History: []conversation.Turn{{Role: conversation.RoleUser, Text: "buy milk"}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if turn.ToolCall == nil {
		t.Fatal("expected a tool call")
	}
	if turn.ToolCall.Name != "create_ticket" || turn.ToolCall.Args["subject"] != "Buy milk" {
		t.Errorf("tool call = %+v", turn.ToolCall)
	}
	if turn.Text != "Creating the ticket now. " {
		t.Errorf("text = %q", turn.Text)
	}
}

func TestGenerateEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Generate(context.Background(), llm.Request{
		History: []conversation.Turn{{Role: conversation.RoleUser, Text: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error for empty candidate list")
	}
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Generate(context.Background(), llm.Request{
		History: []conversation.Turn{{Role: conversation.RoleUser, Text: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "API key not valid") {
		t.Errorf("error = %v", err)
	}
}

func TestPing(t *testing.T) {
	var gotReq geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello!"}]}}]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if len(gotReq.Contents) != 1 || gotReq.Contents[0].Parts[0].Text != "Hello" {
		t.Errorf("ping request = %+v", gotReq.Contents)
	}
}
