// Package gemini implements the llm port against the Gemini generateContent
// REST API, including function-call extraction.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harukisa/taskmate/internal/domain/conversation"
	"github.com/harukisa/taskmate/internal/port/llm"
)

// Config holds connection settings for the Gemini client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Client talks to the Gemini API.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
}

// New creates a Gemini client. Zero-valued config fields fall back to
// defaults.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		model:       model,
		temperature: cfg.Temperature,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Wire types for the generateContent endpoint.

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string              `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResp `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type geminiFunctionResp struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDecl `json:"functionDeclarations"`
}

type geminiFunctionDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig,omitempty"`
	Tools             []geminiTool           `json:"tools,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
			Role  string       `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Generate submits the conversation and returns the model's reply turn.
func (c *Client) Generate(ctx context.Context, req llm.Request) (*conversation.Turn, error) {
	greq := geminiRequest{
		Contents:         contentsFromHistory(req.History),
		GenerationConfig: geminiGenerationConfig{Temperature: c.temperature},
	}
	if req.System != "" {
		greq.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: req.System}},
		}
	}
	if len(req.Tools) > 0 {
		decls := make([]geminiFunctionDecl, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, geminiFunctionDecl{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			})
		}
		greq.Tools = []geminiTool{{FunctionDeclarations: decls}}
	}

	gresp, err := c.generateContent(ctx, greq)
	if err != nil {
		return nil, err
	}
	if len(gresp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: empty candidate list")
	}

	turn := conversation.Turn{Role: conversation.RoleAssistant}
	var text strings.Builder
	for _, part := range gresp.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		// One tool call per turn; further calls in the same candidate are
		// ignored.
		if part.FunctionCall != nil && turn.ToolCall == nil {
			turn.ToolCall = &conversation.ToolCall{
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			}
		}
	}
	turn.Text = text.String()
	return &turn, nil
}

// Ping verifies the API key with a minimal generation. Used by the startup
// self-check.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.generateContent(ctx, geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: "Hello"}}},
		},
	})
	if err != nil {
		return fmt.Errorf("gemini ping: %w", err)
	}
	return nil
}

// contentsFromHistory maps conversation turns to Gemini contents. The system
// turn travels as systemInstruction, not as a content entry; tool results
// travel as user-role functionResponse parts.
func contentsFromHistory(history []conversation.Turn) []geminiContent {
	contents := make([]geminiContent, 0, len(history))
	for i := range history {
		turn := &history[i]
		switch turn.Role {
		case conversation.RoleSystem:
			continue
		case conversation.RoleUser:
			contents = append(contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: turn.Text}},
			})
		case conversation.RoleAssistant:
			var parts []geminiPart
			if turn.Text != "" {
				parts = append(parts, geminiPart{Text: turn.Text})
			}
			if turn.ToolCall != nil {
				parts = append(parts, geminiPart{FunctionCall: &geminiFunctionCall{
					Name: turn.ToolCall.Name,
					Args: turn.ToolCall.Args,
				}})
			}
			if len(parts) == 0 {
				parts = []geminiPart{{Text: ""}}
			}
			contents = append(contents, geminiContent{Role: "model", Parts: parts})
		case conversation.RoleTool:
			if turn.ToolResult == nil {
				continue
			}
			contents = append(contents, geminiContent{
				Role: "user",
				Parts: []geminiPart{{FunctionResponse: &geminiFunctionResp{
					Name:     turn.ToolResult.Name,
					Response: turn.ToolResult.Response,
				}}},
			})
		}
	}
	return contents
}

func (c *Client) generateContent(ctx context.Context, greq geminiRequest) (*geminiResponse, error) {
	body, err := json.Marshal(greq)
	if err != nil {
		return nil, fmt.Errorf("gemini marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini read response: %w", err)
	}

	var gresp geminiResponse
	if err := json.Unmarshal(data, &gresp); err != nil {
		return nil, fmt.Errorf("gemini parse response (status %d): %w", resp.StatusCode, err)
	}
	if gresp.Error != nil {
		return nil, fmt.Errorf("gemini API %d: %s", gresp.Error.Code, gresp.Error.Message)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("gemini API %d: %s", resp.StatusCode, string(data))
	}

	return &gresp, nil
}
