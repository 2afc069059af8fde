package faq

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yanqian/faq-rag/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/faq-rag/pkg/errors"
	"github.com/yanqian/faq-rag/pkg/metrics"
)

const defaultGeneratorPrompt = "You are an expert support assistant for an online course platform.\n" +
	"Use the following FAQs to answer the user's question. If the answer is not in the FAQs, be honest and say you don't know, and suggest contacting support."

// Generator turns a query and its retrieved FAQs into a single answer.
type Generator interface {
	Generate(ctx context.Context, query string, faqs []ContextPair) (Generation, error)
}

// Generation is a generated answer with its token accounting.
type Generation struct {
	Answer string
	Usage  metrics.TokenUsage
}

// ChatClient is the subset of the chat completion API used for generation.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

// ChatGenerator answers through an OpenAI-compatible chat completion endpoint.
type ChatGenerator struct {
	cfg    GeneratorConfig
	client ChatClient
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewChatGenerator constructs the generator.
func NewChatGenerator(cfg GeneratorConfig, client ChatClient, logger *slog.Logger) *ChatGenerator {
	return &ChatGenerator{
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "faq.generator"),
		sleep:  sleepContext,
	}
}

// Generate calls the chat model, retrying transient failures with exponential backoff.
func (g *ChatGenerator) Generate(ctx context.Context, query string, faqs []ContextPair) (Generation, error) {
	req := chatgpt.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []chatgpt.Message{
			{Role: "user", Content: buildPrompt(g.cfg.Prompt, query, faqs)},
		},
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	}

	attempts := g.cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := g.cfg.BaseBackoff * time.Duration(1<<(attempt-2))
			if err := g.sleep(ctx, delay); err != nil {
				return Generation{}, apperrors.Wrap(CodeLLM, "answer generation cancelled", err)
			}
		}
		resp, err := g.client.CreateChatCompletion(ctx, req)
		if err == nil {
			return toGeneration(resp)
		}
		lastErr = err
		if !chatgpt.IsRetryable(err) || attempt == attempts {
			break
		}
		g.logger.Warn("transient llm failure, retrying", "attempt", attempt, "error", err)
	}
	return Generation{}, apperrors.Wrap(CodeLLM, "chat completion request failed", lastErr)
}

func toGeneration(resp chatgpt.ChatCompletionResponse) (Generation, error) {
	if len(resp.Choices) == 0 {
		return Generation{}, apperrors.Wrap(CodeLLM, "chat completion returned no choices", nil)
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return Generation{}, apperrors.Wrap(CodeLLM, "chat completion response empty", nil)
	}
	return Generation{
		Answer: answer,
		Usage: metrics.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func buildPrompt(instructions, query string, faqs []ContextPair) string {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		instructions = defaultGeneratorPrompt
	}
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\nContext:\n")
	for _, faq := range faqs {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", faq.Question, faq.Answer)
	}
	fmt.Fprintf(&b, "User Question: %s\nAnswer:", query)
	return b.String()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
