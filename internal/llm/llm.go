package llm

import (
	"context"
	"errors"
	"io"
)

// Message is a provider-agnostic chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options carries the tunable parameters of a generation call. Zero
// values are omitted from the provider request.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// Stream is a finite, non-restartable sequence of text deltas. Recv
// returns io.EOF once the stream is exhausted.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Provider is a single generation backend bound to one external model
// family. Implementations must drop any message whose role the backend
// cannot represent rather than erroring.
type Provider interface {
	StreamChat(ctx context.Context, model string, messages []Message, opts Options) (Stream, error)
}

// Sentinel errors for model resolution, kept distinct so operators can
// tell "unknown model" from "known model, missing credential".
var (
	ErrUnsupportedModel       = errors.New("unsupported model")
	ErrProviderNotInitialized = errors.New("provider not initialized")
)

// drainStream reads a stream to exhaustion and concatenates the deltas.
func drainStream(stream Stream) (string, error) {
	defer stream.Close()
	var full []byte
	for {
		delta, err := stream.Recv()
		if err == io.EOF {
			return string(full), nil
		}
		if err != nil {
			return "", err
		}
		full = append(full, delta...)
	}
}
