package summary

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/json2x/chatapp-v2-api/internal/llm"
)

// resourcePlaceholder replaces embedded media in message content before
// summarization, keeping prompt size bounded.
const resourcePlaceholder = "<resource />"

var (
	markdownImagePattern = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
	htmlImagePattern     = regexp.MustCompile(`<img[^>]*>`)
	base64ImagePattern   = regexp.MustCompile(`data:image/[^;]+;base64,[^"\s]+`)
	attachmentPattern    = regexp.MustCompile(`\[attachment:.*?\]`)
)

const systemInstruction = "You are a helpful assistant that summarizes conversations. " +
	"Create a concise summary of the following conversation in bullet points. " +
	"Focus on the main topics, questions, and answers. " +
	"Be factual and objective. Do not add information not present in the conversation. " +
	"Format your response as a list of bullet points using the '- ' prefix."

// Completer is the generation call the summarizer runs on. Satisfied by
// *llm.Service.
type Completer interface {
	ChatCompletion(ctx context.Context, model string, messages []llm.Message, opts llm.Options) (string, error)
}

// Summarizer condenses older conversation history into one bullet-point
// synopsis. It always runs on one fixed, cheap model regardless of which
// model the conversation itself uses.
type Summarizer struct {
	completer   Completer
	model       string
	maxTokens   int
	temperature float64
}

// New creates a summarizer bound to the given model and generation
// parameters.
func New(completer Completer, model string, maxTokens int, temperature float64) *Summarizer {
	return &Summarizer{
		completer:   completer,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// Summarize returns a bullet-point summary of the given messages. Any
// error from the underlying generation call propagates to the caller.
func (s *Summarizer) Summarize(ctx context.Context, messages []llm.Message) (string, error) {
	var b strings.Builder
	b.WriteString("Please summarize the following conversation in bullet points:\n\n")
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(scrubMedia(m.Content))
	}

	prompt := []llm.Message{
		{Role: "system", Content: systemInstruction},
		{Role: "user", Content: b.String()},
	}

	text, err := s.completer.ChatCompletion(ctx, s.model, prompt, llm.Options{
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("summarization call failed: %w", err)
	}
	return text, nil
}

// scrubMedia replaces embedded media references with a fixed placeholder:
// Markdown image syntax, inline HTML image tags, base64 data-URI images,
// and bracketed attachment markers.
func scrubMedia(content string) string {
	content = markdownImagePattern.ReplaceAllString(content, resourcePlaceholder)
	content = htmlImagePattern.ReplaceAllString(content, resourcePlaceholder)
	content = base64ImagePattern.ReplaceAllString(content, resourcePlaceholder)
	content = attachmentPattern.ReplaceAllString(content, resourcePlaceholder)
	return content
}
