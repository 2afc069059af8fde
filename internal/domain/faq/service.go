package faq

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/yanqian/faq-rag/pkg/errors"
	"github.com/yanqian/faq-rag/pkg/metrics"
	"github.com/yanqian/faq-rag/pkg/util"
)

const (
	sourceCache = "cache"
	sourceLLM   = "llm"
)

// Service exposes retrieval-augmented FAQ answering.
type Service interface {
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
	Search(ctx context.Context, req SearchRequest) (SearchResponse, error)
	Trending(ctx context.Context) ([]TrendingQuery, error)
	Entries(ctx context.Context, limit int) ([]Record, error)
	Status(ctx context.Context) Status
}

// StateReader reports the index pipeline state.
type StateReader interface {
	State() State
}

type service struct {
	cfg       Config
	pipeline  StateReader
	snapshot  *Snapshot
	retriever *Retriever
	generator Generator
	store     Store
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires up the FAQ domain over an initialized snapshot.
func NewService(cfg Config, pipeline StateReader, snapshot *Snapshot, retriever *Retriever, generator Generator, store Store, logger *slog.Logger) Service {
	return &service{
		cfg:       cfg,
		pipeline:  pipeline,
		snapshot:  snapshot,
		retriever: retriever,
		generator: generator,
		store:     store,
		logger:    logger.With("component", "faq.service"),
		now:       util.NowUTC,
	}
}

func (s *service) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	start := time.Now()
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return AskResponse{}, apperrors.Wrap(CodeInvalidQuery, "question cannot be empty", nil)
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.retriever.DefaultTopK()
	}

	normalized := normalizeQuestion(question)
	key := cacheKey(s.snapshot.Fingerprint, normalized, topK)

	var (
		answer string
		faqs   []RetrievalResult
		usage  *metrics.TokenUsage
		source = sourceCache
	)

	cached, ok, err := s.store.GetAnswer(ctx, key)
	if err != nil {
		s.logger.Warn("faq cache lookup failed", "error", err)
	}
	if ok {
		answer = cached.Answer
		faqs = cached.FAQs
	} else {
		source = sourceLLM
		faqs, err = s.retriever.Retrieve(ctx, question, topK)
		if err != nil {
			return AskResponse{}, err
		}
		generation, err := s.generator.Generate(ctx, question, contextPairs(faqs))
		if err != nil {
			return AskResponse{}, err
		}
		answer = generation.Answer
		if !generation.Usage.IsZero() {
			u := generation.Usage
			usage = &u
		}
		record := AnswerRecord{
			Key:       key,
			Question:  question,
			Answer:    answer,
			FAQs:      faqs,
			CreatedAt: s.now(),
		}
		if err := s.store.SaveAnswer(ctx, record, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("faq cache save failed", "error", err)
		}
	}

	if err := s.store.IncrementQuery(ctx, normalized, question); err != nil {
		s.logger.Warn("faq trending increment failed", "error", err)
	}
	recs, err := s.store.TopQueries(ctx, s.cfg.TopRecommendations)
	if err != nil {
		s.logger.Warn("faq trending fetch failed", "error", err)
		recs = nil
	}

	return AskResponse{
		Question:        question,
		Answer:          answer,
		FAQs:            faqs,
		Source:          source,
		Recommendations: recs,
		DurationMs:      time.Since(start).Milliseconds(),
		TokenUsage:      usage,
	}, nil
}

func (s *service) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	results, err := s.retriever.Retrieve(ctx, req.Query, req.TopK)
	if err != nil {
		return SearchResponse{}, err
	}
	return SearchResponse{Query: strings.TrimSpace(req.Query), Results: results}, nil
}

func (s *service) Trending(ctx context.Context) ([]TrendingQuery, error) {
	recs, err := s.store.TopQueries(ctx, s.cfg.TopRecommendations)
	if err != nil {
		return nil, apperrors.Wrap(CodeFAQ, "failed to load trending queries", err)
	}
	return recs, nil
}

func (s *service) Entries(_ context.Context, limit int) ([]Record, error) {
	return s.snapshot.Corpus.Head(limit), nil
}

func (s *service) Status(context.Context) Status {
	return Status{
		State:       s.pipeline.State(),
		Outcome:     s.snapshot.Outcome,
		Records:     s.snapshot.Corpus.Len(),
		Dimension:   s.snapshot.Dimension,
		Model:       s.snapshot.Model,
		Fingerprint: s.snapshot.Fingerprint,
	}
}

func contextPairs(results []RetrievalResult) []ContextPair {
	pairs := make([]ContextPair, len(results))
	for i, r := range results {
		pairs[i] = ContextPair{Question: r.Question, Answer: r.Answer}
	}
	return pairs
}

// cacheKey scopes cached answers to the snapshot they were retrieved from.
func cacheKey(fingerprint, normalized string, topK int) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(normalized))
	return fmt.Sprintf("%s:%016x:%d", fingerprint, h.Sum64(), topK)
}
