//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/yanqian/faq-rag/internal/bootstrap"
	"github.com/yanqian/faq-rag/internal/domain/faq"
	"github.com/yanqian/faq-rag/internal/infra/config"
	"github.com/yanqian/faq-rag/internal/infra/llm/chatgpt"
	httpiface "github.com/yanqian/faq-rag/internal/interface/http"
	"github.com/yanqian/faq-rag/pkg/logger"
)

var pipelineSet = wire.NewSet(
	config.Load,
	logger.New,
	providePostgresPool,
	provideCorpusSource,
	provideArtifactRepository,
	provideEmbedder,
	faq.NewEmbeddingProvider,
	faq.NewPipeline,
)

func initializeApp(ctx context.Context) (*bootstrap.App, func(), error) {
	wire.Build(
		pipelineSet,
		provideFAQConfig,
		provideGeneratorConfig,
		provideChatGPTClient,
		provideSnapshot,
		provideFAQStore,
		faq.NewRetriever,
		faq.NewChatGenerator,
		faq.NewService,
		wire.Bind(new(faq.ChatClient), new(*chatgpt.Client)),
		wire.Bind(new(faq.Generator), new(*faq.ChatGenerator)),
		wire.Bind(new(faq.StateReader), new(*faq.Pipeline)),
		provideHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}

func initializeIndexer(ctx context.Context) (*bootstrap.Indexer, func(), error) {
	wire.Build(
		pipelineSet,
		bootstrap.NewIndexer,
	)
	return nil, nil, nil
}
