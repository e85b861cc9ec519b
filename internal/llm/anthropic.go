package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const anthropicVersion = "2023-06-01"

// anthropicDefaultMaxTokens applies when the caller leaves MaxTokens
// unset; the Anthropic messages API requires the field.
const anthropicDefaultMaxTokens = 4096

// AnthropicClient is a minimal Anthropic messages client with streaming
// support.
type AnthropicClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewAnthropicClient creates an Anthropic client.
func NewAnthropicClient(apiKey, baseURL string) *AnthropicClient {
	return &AnthropicClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

type anthropicChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	System      string    `json:"system,omitempty"`
	Stream      bool      `json:"stream"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
}

type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// StreamChat opens a streaming completion. System messages are carried
// in the out-of-band `system` field the API expects; messages with any
// other unrepresentable role are dropped.
func (c *AnthropicClient) StreamChat(ctx context.Context, model string, messages []Message, opts Options) (Stream, error) {
	var system string
	sendable := make([]Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = m.Content
		case "user", "assistant":
			sendable = append(sendable, m)
		}
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	reqBody := anthropicChatRequest{
		Model:       model,
		Messages:    sendable,
		System:      system,
		Stream:      true,
		MaxTokens:   maxTokens,
		Temperature: opts.Temperature,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("anthropic non-success status=%d body=%s", resp.StatusCode, truncate(string(body), 400))
	}

	return &anthropicStream{body: resp.Body, scanner: newSSEScanner(resp.Body)}, nil
}

type anthropicStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func (s *anthropicStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for s.scanner.Scan() {
		payload, ok := sseData(s.scanner.Text())
		if !ok {
			continue
		}
		var event anthropicStreamEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return "", fmt.Errorf("failed to parse anthropic stream event: %s", truncate(payload, 400))
		}
		switch event.Type {
		case "content_block_delta":
			return event.Delta.Text, nil
		case "message_stop":
			s.done = true
			return "", io.EOF
		case "error":
			return "", fmt.Errorf("anthropic stream error %s: %s", event.Error.Type, event.Error.Message)
		}
	}
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("anthropic stream read failed: %w", err)
	}
	s.done = true
	return "", io.EOF
}

func (s *anthropicStream) Close() error {
	return s.body.Close()
}
