package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/faq-rag/internal/domain/faq"
	"github.com/yanqian/faq-rag/internal/infra/artifact"
	"github.com/yanqian/faq-rag/internal/infra/config"
	"github.com/yanqian/faq-rag/internal/infra/embedder"
	"github.com/yanqian/faq-rag/internal/infra/faqrepo"
	"github.com/yanqian/faq-rag/internal/infra/faqstore"
	"github.com/yanqian/faq-rag/internal/infra/llm/chatgpt"
	httpiface "github.com/yanqian/faq-rag/internal/interface/http"
)

const (
	matrixObjectName = "embeddings.npy"
	indexObjectName  = "faq_index.idx"
)

func provideFAQConfig(cfg *config.Config) faq.Config {
	return faq.Config{
		DefaultTopK:        cfg.FAQ.DefaultTopK,
		CacheTTL:           cfg.FAQ.CacheTTL,
		TopRecommendations: cfg.FAQ.TopRecommendations,
	}
}

func provideGeneratorConfig(cfg *config.Config) faq.GeneratorConfig {
	return faq.GeneratorConfig{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Prompt:      cfg.FAQ.Prompt,
		MaxAttempts: cfg.LLM.Retry.MaxAttempts,
		BaseBackoff: cfg.LLM.Retry.BaseBackoff,
	}
}

func provideChatGPTClient(cfg *config.Config) (*chatgpt.Client, error) {
	return chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
}

// providePostgresPool returns a nil pool when no DSN is configured.
func providePostgresPool(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, func(), error) {
	dsn := strings.TrimSpace(cfg.FAQ.Postgres.DSN)
	if dsn == "" {
		return nil, func() {}, nil
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	if cfg.FAQ.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.FAQ.Postgres.MaxConns
	}
	if cfg.FAQ.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.FAQ.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("init postgres pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres ping: %w", err)
	}
	logger.Info("postgres pool ready")
	return pool, pool.Close, nil
}

func provideCorpusSource(cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (faq.CorpusSource, error) {
	switch cfg.FAQ.Corpus.Source {
	case config.CorpusSourcePostgres:
		if pool == nil {
			return nil, fmt.Errorf("corpus source %q requires faq.postgres.dsn", cfg.FAQ.Corpus.Source)
		}
		repo, err := faqrepo.NewPostgresRepository(pool, cfg.FAQ.Corpus.Table)
		if err != nil {
			return nil, err
		}
		logger.Info("faq corpus from postgres", "table", cfg.FAQ.Corpus.Table)
		return repo, nil
	default:
		logger.Info("faq corpus from csv", "path", cfg.FAQ.Corpus.Path)
		return faqrepo.NewCSVSource(cfg.FAQ.Corpus.Path), nil
	}
}

func provideArtifactRepository(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (faq.ArtifactRepository, error) {
	artifacts := cfg.FAQ.Artifacts
	switch artifacts.Backend {
	case config.ArtifactBackendS3:
		s3 := artifacts.S3
		store, err := artifact.NewObjectStore(s3.Endpoint, s3.AccessKey, s3.SecretKey, s3.Bucket, s3.Region, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("faq artifacts in object storage", "bucket", s3.Bucket)
		return artifact.NewBlobRepository(store, matrixObjectName, indexObjectName), nil
	case config.ArtifactBackendPostgres:
		if pool == nil {
			return nil, fmt.Errorf("artifact backend %q requires faq.postgres.dsn", artifacts.Backend)
		}
		repo := artifact.NewPostgresRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		logger.Info("faq artifacts in postgres")
		return repo, nil
	default:
		logger.Info("faq artifacts on disk", "embeddings", artifacts.EmbeddingsPath, "index", artifacts.IndexPath)
		return artifact.NewBlobRepository(artifact.NewFileStore(), artifacts.EmbeddingsPath, artifacts.IndexPath), nil
	}
}

func provideEmbedder(cfg *config.Config, logger *slog.Logger) (faq.Embedder, error) {
	emb := cfg.Embedding
	switch emb.Provider {
	case config.EmbeddingProviderDeterministic:
		return embedder.NewDeterministicEmbedder(emb.Dimension), nil
	default:
		client, err := chatgpt.NewClient(emb.APIKey, emb.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("embedding client: %w", err)
		}
		return embedder.NewChatGPTEmbedder(client, emb.Model, emb.Dimension, emb.MaxBatchTokens, logger), nil
	}
}

// provideSnapshot blocks until the index pipeline reaches ready.
func provideSnapshot(ctx context.Context, pipeline *faq.Pipeline) (*faq.Snapshot, error) {
	return pipeline.Run(ctx)
}

func provideHandler(cfg *config.Config, svc faq.Service, logger *slog.Logger) *httpiface.Handler {
	return httpiface.NewHandler(svc, cfg.FAQ.MaxTopK, logger)
}

func provideFAQStore(cfg *config.Config, logger *slog.Logger) faq.Store {
	if cfg.FAQ.Redis.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return faqstore.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return faqstore.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
			client.Close()
		} else {
			logger.Info("faq valkey store enabled", "addr", cfg.FAQ.Redis.Addr)
			return faqstore.NewValkeyStore(client, "faq")
		}
	}
	return faqstore.NewMemoryStore()
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	if strings.Contains(cfg.FAQ.Redis.Addr, "://") {
		return valkey.ParseURL(cfg.FAQ.Redis.Addr)
	}
	return valkey.ClientOption{InitAddress: []string{cfg.FAQ.Redis.Addr}}, nil
}
