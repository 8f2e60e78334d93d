package agent

import (
	"context"
	"fmt"
	"strings"

	vellumcontext "github.com/vellum-ai/vellum/internal/context"
	"github.com/vellum-ai/vellum/pkg/models"
)

// summarizationSystemPrompt instructs the provider to produce the kind of
// summary the context manager's compaction protocol requires: one that
// preserves goals, constraints, established facts, open decisions, and
// pending next actions rather than a generic recap.
const summarizationSystemPrompt = "Produce a compact summary of the conversation below. " +
	"Preserve goals, constraints, established facts, open decisions, and pending next actions. Be terse."

// ProviderSummarizer adapts an LLMProvider into a vellumcontext.Summarizer
// by issuing a dedicated, non-streaming-to-the-user completion request.
type ProviderSummarizer struct {
	Provider LLMProvider
	Model    string
}

var _ vellumcontext.Summarizer = (*ProviderSummarizer)(nil)

// Summarize implements vellumcontext.Summarizer.
func (s *ProviderSummarizer) Summarize(ctx context.Context, messages []*models.Message) (string, error) {
	completionMessages := make([]CompletionMessage, 0, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		completionMessages = append(completionMessages, CompletionMessage{
			Role:        string(m.Role),
			Content:     m.Content,
			ToolCalls:   m.ToolCalls,
			ToolResults: m.ToolResults,
		})
	}

	chunks, err := s.Provider.Complete(ctx, &CompletionRequest{
		Model:     s.Model,
		System:    summarizationSystemPrompt,
		Messages:  completionMessages,
		MaxTokens: 1024,
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}

	var out strings.Builder
	for chunk := range chunks {
		if chunk.Error != nil {
			return "", chunk.Error
		}
		out.WriteString(chunk.Text)
	}
	return out.String(), nil
}
