package faq

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/faq-rag/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/faq-rag/pkg/errors"
)

type stubChatClient struct {
	responses []chatgpt.ChatCompletionResponse
	errs      []error
	calls     int
	lastReq   chatgpt.ChatCompletionRequest
}

func (s *stubChatClient) CreateChatCompletion(_ context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
	idx := s.calls
	s.calls++
	s.lastReq = req
	if idx < len(s.errs) && s.errs[idx] != nil {
		return chatgpt.ChatCompletionResponse{}, s.errs[idx]
	}
	if idx < len(s.responses) {
		return s.responses[idx], nil
	}
	return chatgpt.ChatCompletionResponse{}, nil
}

func chatResponse(content string) chatgpt.ChatCompletionResponse {
	return chatgpt.ChatCompletionResponse{
		Choices: []struct {
			Message chatgpt.Message "json:\"message\""
		}{
			{Message: chatgpt.Message{Role: "assistant", Content: content}},
		},
		Usage: chatgpt.Usage{PromptTokens: 40, CompletionTokens: 10, TotalTokens: 50},
	}
}

func newTestGenerator(client ChatClient, cfg GeneratorConfig) (*ChatGenerator, *[]time.Duration) {
	var delays []time.Duration
	gen := NewChatGenerator(cfg, client, newTestLogger())
	gen.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return gen, &delays
}

func TestGenerateBuildsPromptFromContext(t *testing.T) {
	client := &stubChatClient{responses: []chatgpt.ChatCompletionResponse{chatResponse("  Refunds are available for 30 days.  ")}}
	gen, _ := newTestGenerator(client, GeneratorConfig{Model: "llama-3.1-8b-instant", MaxTokens: 200, MaxAttempts: 3})

	out, err := gen.Generate(context.Background(), "Can I get my money back?", []ContextPair{
		{Question: "What is the refund policy?", Answer: "Courses can be refunded within 30 days of purchase."},
		{Question: "How can I contact support?", Answer: "Email support@example.com."},
	})
	require.NoError(t, err)
	require.Equal(t, "Refunds are available for 30 days.", out.Answer)
	require.Equal(t, 50, out.Usage.TotalTokens)

	require.Equal(t, "llama-3.1-8b-instant", client.lastReq.Model)
	require.Equal(t, 200, client.lastReq.MaxTokens)
	require.Len(t, client.lastReq.Messages, 1)
	prompt := client.lastReq.Messages[0].Content
	require.True(t, strings.HasPrefix(prompt, "You are an expert support assistant for an online course platform."))
	require.Contains(t, prompt, "\n\nContext:\nQ: What is the refund policy?\nA: Courses can be refunded within 30 days of purchase.\n\nQ: How can I contact support?\n")
	require.True(t, strings.HasSuffix(prompt, "User Question: Can I get my money back?\nAnswer:"))
}

func TestGenerateUsesCustomPrompt(t *testing.T) {
	client := &stubChatClient{responses: []chatgpt.ChatCompletionResponse{chatResponse("ok")}}
	gen, _ := newTestGenerator(client, GeneratorConfig{Prompt: "Answer briefly."})

	_, err := gen.Generate(context.Background(), "q", nil)
	require.NoError(t, err)
	require.Equal(t, "Answer briefly.\n\nContext:\nUser Question: q\nAnswer:", client.lastReq.Messages[0].Content)
}

func TestGenerateRetriesTransientFailures(t *testing.T) {
	client := &stubChatClient{
		errs:      []error{&chatgpt.APIError{StatusCode: 503}, &chatgpt.APIError{StatusCode: 429}},
		responses: []chatgpt.ChatCompletionResponse{{}, {}, chatResponse("done")},
	}
	gen, delays := newTestGenerator(client, GeneratorConfig{MaxAttempts: 3, BaseBackoff: 100 * time.Millisecond})

	out, err := gen.Generate(context.Background(), "q", nil)
	require.NoError(t, err)
	require.Equal(t, "done", out.Answer)
	require.Equal(t, 3, client.calls)
	require.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *delays)
}

func TestGenerateStopsOnPermanentFailure(t *testing.T) {
	client := &stubChatClient{errs: []error{&chatgpt.APIError{StatusCode: 401}}}
	gen, delays := newTestGenerator(client, GeneratorConfig{MaxAttempts: 3})

	_, err := gen.Generate(context.Background(), "q", nil)
	require.True(t, apperrors.IsCode(err, CodeLLM))
	require.Equal(t, 1, client.calls)
	require.Empty(t, *delays)
}

func TestGenerateGivesUpAfterMaxAttempts(t *testing.T) {
	failure := &chatgpt.APIError{StatusCode: 500}
	client := &stubChatClient{errs: []error{failure, failure}}
	gen, _ := newTestGenerator(client, GeneratorConfig{MaxAttempts: 2})

	_, err := gen.Generate(context.Background(), "q", nil)
	require.True(t, apperrors.IsCode(err, CodeLLM))
	require.Equal(t, 2, client.calls)
}

func TestGenerateRejectsEmptyResponse(t *testing.T) {
	gen, _ := newTestGenerator(&stubChatClient{}, GeneratorConfig{})
	_, err := gen.Generate(context.Background(), "q", nil)
	require.True(t, apperrors.IsCode(err, CodeLLM))

	gen, _ = newTestGenerator(&stubChatClient{responses: []chatgpt.ChatCompletionResponse{chatResponse("   ")}}, GeneratorConfig{})
	_, err = gen.Generate(context.Background(), "q", nil)
	require.True(t, apperrors.IsCode(err, CodeLLM))
}

func TestGenerateCancelledDuringBackoff(t *testing.T) {
	client := &stubChatClient{errs: []error{&chatgpt.APIError{StatusCode: 502}}}
	gen := NewChatGenerator(GeneratorConfig{MaxAttempts: 2, BaseBackoff: time.Hour}, client, newTestLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.Generate(ctx, "q", nil)
	require.True(t, apperrors.IsCode(err, CodeLLM))
	require.True(t, errors.Is(err, context.Canceled))
}
