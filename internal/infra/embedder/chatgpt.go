package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/yanqian/faq-rag/internal/domain/faq"
	"github.com/yanqian/faq-rag/internal/infra/llm/chatgpt"
)

const (
	defaultMaxBatchTokens = 200_000 // stay well below the provider's 300k cap
	fallbackEncoding      = "cl100k_base"
)

type embeddingClient interface {
	CreateEmbedding(ctx context.Context, req chatgpt.EmbeddingRequest) (chatgpt.EmbeddingResponse, error)
}

// ChatGPTEmbedder calls an OpenAI-compatible embeddings API.
type ChatGPTEmbedder struct {
	client         embeddingClient
	model          string
	dimensions     int
	maxBatchTokens int
	countTokens    func(string) int
	logger         *slog.Logger
}

// NewChatGPTEmbedder constructs an embedder backed by the ChatGPT client.
// dimensions is forwarded to models that support shortened embeddings; zero keeps the model default.
func NewChatGPTEmbedder(client *chatgpt.Client, model string, dimensions, maxBatchTokens int, logger *slog.Logger) *ChatGPTEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "embedder.chatgpt")
	return newChatGPTEmbedder(client, model, dimensions, maxBatchTokens, tokenCounter(model, logger), logger)
}

func newChatGPTEmbedder(client embeddingClient, model string, dimensions, maxBatchTokens int, counter func(string) int, logger *slog.Logger) *ChatGPTEmbedder {
	if maxBatchTokens <= 0 {
		maxBatchTokens = defaultMaxBatchTokens
	}
	if counter == nil {
		counter = estimateTokens
	}
	return &ChatGPTEmbedder{
		client:         client,
		model:          strings.TrimSpace(model),
		dimensions:     dimensions,
		maxBatchTokens: maxBatchTokens,
		countTokens:    counter,
		logger:         logger,
	}
}

// Model implements faq.Embedder.
func (e *ChatGPTEmbedder) Model() string {
	if e.dimensions > 0 {
		return fmt.Sprintf("%s@%d", e.model, e.dimensions)
	}
	return e.model
}

// Embed requests embeddings for the given texts, batching by token count.
func (e *ChatGPTEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	var (
		out         = make([][]float32, 0, len(texts))
		batch       []string
		batchTokens int
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		resp, err := e.client.CreateEmbedding(ctx, chatgpt.EmbeddingRequest{
			Model:      e.model,
			Input:      batch,
			Dimensions: e.dimensions,
		})
		if err != nil {
			return fmt.Errorf("create embedding: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return fmt.Errorf("embedding result count mismatch: expected %d, got %d", len(batch), len(resp.Data))
		}
		items := append([]chatgpt.EmbeddingData(nil), resp.Data...)
		sort.SliceStable(items, func(i, j int) bool { return items[i].Index < items[j].Index })
		for i, item := range items {
			if item.Index != i {
				return fmt.Errorf("embedding result index %d out of range for batch of %d", item.Index, len(batch))
			}
			out = append(out, append([]float32(nil), item.Embedding...))
		}
		e.logger.Debug("embedded batch", "inputs", len(batch), "tokens", batchTokens)
		batch = nil
		batchTokens = 0
		return nil
	}

	for _, text := range texts {
		tokens := e.countTokens(text)
		if tokens > e.maxBatchTokens {
			return nil, fmt.Errorf("text too large for embedding request: tokens=%d", tokens)
		}
		if batchTokens+tokens > e.maxBatchTokens && len(batch) > 0 {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		batch = append(batch, text)
		batchTokens += tokens
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

var _ faq.Embedder = (*ChatGPTEmbedder)(nil)

// tokenCounter returns a tiktoken based counter for model, or the rune
// estimate when no encoding can be loaded.
func tokenCounter(model string, logger *slog.Logger) func(string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
	}
	if err != nil {
		logger.Warn("tiktoken encoding unavailable, estimating tokens", "model", model, "error", err)
		return estimateTokens
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}
}

// estimateTokens provides a rough, upper-biased token count without external dependencies.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	runes := utf8.RuneCountInString(text)
	words := len(strings.Fields(text))
	// assume ~1 token per 2 runes and never below word count
	byRunes := (runes + 1) / 2
	if byRunes < words {
		return words
	}
	return byRunes
}
