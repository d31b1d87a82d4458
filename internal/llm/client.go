// Package llm talks to an OpenAI-compatible chat-completions endpoint and
// hands back the model's raw text. The pipeline treats that text as fully
// untrusted; nothing here validates it.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const systemPrompt = `You are a Linux system assistant that converts natural language requests into structured commands.

You MUST respond with ONLY valid JSON matching this exact schema:
{"command": {"action": "<action>", "name": "...", "unit": "...", "filter": "...", "program": "...", "args": []}, "error": null, "cannot_process": false}

Valid actions and their fields:
- "start_app": start an application ("name" = binary name like "firefox")
- "kill_process": stop a process ("name" = process name)
- "list_processes": list running processes ("filter" = "cpu", "memory", or omit)
- "restart_service": restart a systemd service ("unit" = service name without .service)
- "shell_query": run a read-only query ("program" = "ps" or "grep", "args" = argument list)

If you cannot process the request, respond with:
{"command": null, "error": "<explanation>", "cannot_process": true}

CRITICAL RULES:
1. Output ONLY JSON - no markdown, no backticks, no explanations
2. Never propose destructive commands (rm, sudo, chmod, reboot, ...)
3. For shell_query, only "ps" and "grep" are available and arguments must be plain strings`

const defaultTimeout = 30 * time.Second

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Propose sends the user's request and returns the model's raw reply for
// the intent parser to pick apart.
func (c *Client) Propose(ctx context.Context, userInput string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("llm: API key not configured (set SYSWARD_API_KEY)")
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userInput},
		},
		Temperature:    0.1,
		ResponseFormat: &respFormat{Type: "json_object"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("llm: API error (%d): %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("llm: API returned status %d", resp.StatusCode)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm: API returned no choices")
	}

	content := parsed.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("llm: API returned empty content")
	}
	return content, nil
}
