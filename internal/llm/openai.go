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

// OpenAIClient is a minimal OpenAI chat completions client with
// streaming support.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIClient creates an OpenAI client. No client-level timeout is
// set; callers bound streaming duration through the request context.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

type openaiChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type openaiStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// StreamChat opens a streaming chat completion. Messages with roles
// other than user/assistant/system are dropped.
func (c *OpenAIClient) StreamChat(ctx context.Context, model string, messages []Message, opts Options) (Stream, error) {
	sendable := make([]Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "user", "assistant", "system":
			sendable = append(sendable, m)
		}
	}

	reqBody := openaiChatRequest{
		Model:       model,
		Messages:    sendable,
		Stream:      true,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("openai non-success status=%d body=%s", resp.StatusCode, truncate(string(body), 400))
	}

	return &openaiStream{body: resp.Body, scanner: newSSEScanner(resp.Body)}, nil
}

type openaiStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func (s *openaiStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for s.scanner.Scan() {
		payload, ok := sseData(s.scanner.Text())
		if !ok {
			continue
		}
		if payload == "[DONE]" {
			s.done = true
			return "", io.EOF
		}
		var chunk openaiStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return "", fmt.Errorf("failed to parse openai stream chunk: %s", truncate(payload, 400))
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		return chunk.Choices[0].Delta.Content, nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("openai stream read failed: %w", err)
	}
	s.done = true
	return "", io.EOF
}

func (s *openaiStream) Close() error {
	return s.body.Close()
}

// newSSEScanner builds a line scanner sized for large event payloads.
func newSSEScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}

// sseData extracts the payload of a `data:` line, reporting false for
// blank lines, comments, and other event fields.
func sseData(line string) (string, bool) {
	line = strings.TrimRight(line, "\r")
	if !strings.HasPrefix(line, "data:") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, "data:")), true
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
