package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("EMBED_API_KEY", "openai-key")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Address)
	require.Equal(t, "llama-3.1-8b-instant", cfg.LLM.Model)
	require.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.BaseURL)
	require.Equal(t, 200, cfg.LLM.MaxTokens)
	require.Equal(t, 3, cfg.FAQ.DefaultTopK)
	require.Equal(t, "data/faq.csv", cfg.FAQ.Corpus.Path)
	require.Equal(t, "data/embeddings.npy", cfg.FAQ.Artifacts.EmbeddingsPath)
	require.Equal(t, "data/faq_index.idx", cfg.FAQ.Artifacts.IndexPath)
	require.Equal(t, "openai-key", cfg.Embedding.APIKey)
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  address: ":9090"
faq:
  defaultTopK: 4
  corpus:
    path: faqs/support.csv
embedding:
  provider: deterministic
  dimension: 64
`), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("FAQ_DEFAULT_TOP_K", "5")
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("EMBED_API_KEY", "")
	t.Setenv("LLM_RETRY_BASE_BACKOFF", "1s")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTP.Address)
	require.Equal(t, 5, cfg.FAQ.DefaultTopK)
	require.Equal(t, "faqs/support.csv", cfg.FAQ.Corpus.Path)
	require.Equal(t, EmbeddingProviderDeterministic, cfg.Embedding.Provider)
	require.Equal(t, 64, cfg.Embedding.Dimension)
	require.Equal(t, "groq-key", cfg.LLM.APIKey)
	require.Empty(t, cfg.Embedding.APIKey)
	require.Equal(t, time.Second, cfg.LLM.Retry.BaseBackoff)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("EMBED_API_KEY", "openai-key")
	require.NoError(t, os.Unsetenv("FAQ_MAX_TOP_K"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FAQ_MAX_TOP_K=12\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("FAQ_MAX_TOP_K") })

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 12, cfg.FAQ.MaxTopK)
}

func TestEmbeddingKeyFallsBackOnlyForSameEndpoint(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("EMBED_API_KEY", "")
	t.Setenv("EMBED_PROVIDER", "")
	t.Setenv("EMBED_BASE_URL", "")
	t.Setenv("LLM_BASE_URL", "")
	t.Setenv("GROQ_API_KEY", "groq-key")

	_, err := Load()
	require.ErrorContains(t, err, "embedding.apiKey required")

	t.Setenv("EMBED_BASE_URL", "https://api.groq.com/openai/v1/")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "groq-key", cfg.Embedding.APIKey)
}

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Embedding.APIKey = "openai-key"
	return cfg
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty address", func(c *Config) { c.HTTP.Address = "" }},
		{"unknown embedding provider", func(c *Config) { c.Embedding.Provider = "sbert" }},
		{"negative dimension", func(c *Config) { c.Embedding.Dimension = -1 }},
		{"zero batch tokens", func(c *Config) { c.Embedding.MaxBatchTokens = 0 }},
		{"unknown corpus source", func(c *Config) { c.FAQ.Corpus.Source = "xlsx" }},
		{"postgres corpus without dsn", func(c *Config) { c.FAQ.Corpus.Source = CorpusSourcePostgres }},
		{"s3 without bucket", func(c *Config) { c.FAQ.Artifacts.Backend = ArtifactBackendS3 }},
		{"postgres artifacts without dsn", func(c *Config) { c.FAQ.Artifacts.Backend = ArtifactBackendPostgres }},
		{"zero top k", func(c *Config) { c.FAQ.DefaultTopK = 0 }},
		{"max below default", func(c *Config) { c.FAQ.MaxTopK = 1 }},
		{"redis without addr", func(c *Config) { c.FAQ.Redis.Enabled = true }},
		{"zero retry attempts", func(c *Config) { c.LLM.Retry.MaxAttempts = 0 }},
		{"openai embedding without key", func(c *Config) { c.Embedding.APIKey = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
	require.NoError(t, validConfig().Validate())

	deterministic := defaultConfig()
	deterministic.Embedding.Provider = EmbeddingProviderDeterministic
	require.NoError(t, deterministic.Validate())
}
