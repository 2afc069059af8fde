package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	FAQ       FAQConfig       `yaml:"faq"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// AuthConfig enables bearer token checks on the API. An empty secret disables them.
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
}

// LLMConfig contains the OpenAI-compatible chat settings used for answer generation.
type LLMConfig struct {
	APIKey      string      `yaml:"apiKey"`
	BaseURL     string      `yaml:"baseUrl"`
	Model       string      `yaml:"model"`
	Temperature float32     `yaml:"temperature"`
	MaxTokens   int         `yaml:"maxTokens"`
	Retry       RetryConfig `yaml:"retry"`
}

// RetryConfig configures retries of transient generation failures.
type RetryConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
}

// EmbeddingConfig selects and configures the embedding model.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"apiKey"`
	BaseURL        string `yaml:"baseUrl"`
	Dimension      int    `yaml:"dimension"`
	MaxBatchTokens int    `yaml:"maxBatchTokens"`
}

// FAQConfig controls corpus loading, artifact persistence and answering.
type FAQConfig struct {
	Corpus             CorpusConfig    `yaml:"corpus"`
	Artifacts          ArtifactsConfig `yaml:"artifacts"`
	DefaultTopK        int             `yaml:"defaultTopK"`
	MaxTopK            int             `yaml:"maxTopK"`
	Prompt             string          `yaml:"prompt"`
	CacheTTL           time.Duration   `yaml:"cacheTtl"`
	TopRecommendations int             `yaml:"topRecommendations"`
	Redis              RedisConfig     `yaml:"redis"`
	Postgres           PostgresConfig  `yaml:"postgres"`
}

// CorpusConfig points at the FAQ question/answer rows.
type CorpusConfig struct {
	Source string `yaml:"source"`
	Path   string `yaml:"path"`
	Table  string `yaml:"table"`
}

// ArtifactsConfig selects where the embedding matrix and index are persisted.
type ArtifactsConfig struct {
	Backend        string   `yaml:"backend"`
	EmbeddingsPath string   `yaml:"embeddingsPath"`
	IndexPath      string   `yaml:"indexPath"`
	S3             S3Config `yaml:"s3"`
}

// S3Config holds S3/R2 compatible object storage settings.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// RedisConfig contains connection information for cache storage.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// Corpus sources.
const (
	CorpusSourceCSV      = "csv"
	CorpusSourcePostgres = "postgres"
)

// Artifact backends.
const (
	ArtifactBackendFile     = "file"
	ArtifactBackendS3       = "s3"
	ArtifactBackendPostgres = "postgres"
)

// Embedding providers.
const (
	EmbeddingProviderOpenAI        = "openai"
	EmbeddingProviderDeterministic = "deterministic"
)

// Load reads configuration from .env, a YAML file and environment variables.
func Load() (*Config, error) {
	// real environment variables take precedence over .env entries
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}

	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("LLM_MAX_TOKENS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.LLM.MaxTokens = parsed
		}
	}
	if v := os.Getenv("LLM_RETRY_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.LLM.Retry.MaxAttempts = parsed
		}
	}
	if v := os.Getenv("LLM_RETRY_BASE_BACKOFF"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Retry.BaseBackoff = parsed
		}
	}

	if v := os.Getenv("EMBED_PROVIDER"); v != "" {
		cfg.Embedding.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("EMBED_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("EMBED_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("EMBED_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("EMBED_DIMENSION"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Dimension = parsed
		}
	}
	// the chat key is only valid against the chat endpoint
	if cfg.Embedding.APIKey == "" && sameBaseURL(cfg.Embedding.BaseURL, cfg.LLM.BaseURL) {
		cfg.Embedding.APIKey = cfg.LLM.APIKey
	}

	if v := os.Getenv("FAQ_CORPUS_SOURCE"); v != "" {
		cfg.FAQ.Corpus.Source = strings.ToLower(v)
	}
	if v := os.Getenv("FAQ_CORPUS_PATH"); v != "" {
		cfg.FAQ.Corpus.Path = v
	}
	if v := os.Getenv("FAQ_CORPUS_TABLE"); v != "" {
		cfg.FAQ.Corpus.Table = v
	}
	if v := os.Getenv("FAQ_ARTIFACT_BACKEND"); v != "" {
		cfg.FAQ.Artifacts.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("FAQ_EMBEDDINGS_PATH"); v != "" {
		cfg.FAQ.Artifacts.EmbeddingsPath = v
	}
	if v := os.Getenv("FAQ_INDEX_PATH"); v != "" {
		cfg.FAQ.Artifacts.IndexPath = v
	}
	if v := os.Getenv("FAQ_S3_ENDPOINT"); v != "" {
		cfg.FAQ.Artifacts.S3.Endpoint = v
	}
	if v := os.Getenv("FAQ_S3_ACCESS_KEY"); v != "" {
		cfg.FAQ.Artifacts.S3.AccessKey = v
	}
	if v := os.Getenv("FAQ_S3_SECRET_KEY"); v != "" {
		cfg.FAQ.Artifacts.S3.SecretKey = v
	}
	if v := os.Getenv("FAQ_S3_BUCKET"); v != "" {
		cfg.FAQ.Artifacts.S3.Bucket = v
	}
	if v := os.Getenv("FAQ_S3_REGION"); v != "" {
		cfg.FAQ.Artifacts.S3.Region = v
	}
	if v := os.Getenv("FAQ_DEFAULT_TOP_K"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.FAQ.DefaultTopK = parsed
		}
	}
	if v := os.Getenv("FAQ_MAX_TOP_K"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.FAQ.MaxTopK = parsed
		}
	}
	if v := os.Getenv("FAQ_PROMPT"); v != "" {
		cfg.FAQ.Prompt = v
	}
	if v := os.Getenv("FAQ_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.FAQ.CacheTTL = parsed
		}
	}
	if v := os.Getenv("FAQ_RECOMMENDATIONS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.FAQ.TopRecommendations = parsed
		}
	}
	if v := os.Getenv("FAQ_REDIS_ENABLED"); v != "" {
		cfg.FAQ.Redis.Enabled = parseBool(v)
	}
	if v := os.Getenv("FAQ_REDIS_ADDR"); v != "" {
		cfg.FAQ.Redis.Addr = v
	}
	if v := os.Getenv("FAQ_POSTGRES_DSN"); v != "" {
		cfg.FAQ.Postgres.DSN = v
	}
	if v := os.Getenv("FAQ_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.FAQ.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("FAQ_POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.FAQ.Postgres.MinConns = int32(parsed)
		}
	}
}

func sameBaseURL(a, b string) bool {
	return strings.TrimRight(strings.TrimSpace(a), "/") == strings.TrimRight(strings.TrimSpace(b), "/")
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 30 * time.Second,
			AllowedOrigins: []string{
				"http://localhost:5173",
				"http://127.0.0.1:5173",
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.1-8b-instant",
			Temperature: 0.2,
			MaxTokens:   200,
			Retry: RetryConfig{
				MaxAttempts: 3,
				BaseBackoff: 200 * time.Millisecond,
			},
		},
		Embedding: EmbeddingConfig{
			Provider:       EmbeddingProviderOpenAI,
			Model:          "text-embedding-3-small",
			BaseURL:        "https://api.openai.com/v1",
			MaxBatchTokens: 200000,
		},
		FAQ: FAQConfig{
			Corpus: CorpusConfig{
				Source: CorpusSourceCSV,
				Path:   "data/faq.csv",
				Table:  "faqs",
			},
			Artifacts: ArtifactsConfig{
				Backend:        ArtifactBackendFile,
				EmbeddingsPath: "data/embeddings.npy",
				IndexPath:      "data/faq_index.idx",
			},
			DefaultTopK:        3,
			MaxTopK:            50,
			Prompt:             "You are an expert support assistant for an online course platform.\nUse the following FAQs to answer the user's question. If the answer is not in the FAQs, be honest and say you don't know, and suggest contacting support.",
			CacheTTL:           6 * time.Hour,
			TopRecommendations: 10,
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.Embedding.Dimension < 0 {
		return errors.New("embedding.dimension cannot be negative")
	}
	if c.Embedding.MaxBatchTokens <= 0 {
		return errors.New("embedding.maxBatchTokens must be positive")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	if c.LLM.MaxTokens <= 0 {
		return errors.New("llm.maxTokens must be positive")
	}
	if c.LLM.Retry.MaxAttempts <= 0 {
		return errors.New("llm.retry.maxAttempts must be positive")
	}
	if c.LLM.Retry.BaseBackoff < 0 {
		return errors.New("llm.retry.baseBackoff cannot be negative")
	}
	switch c.Embedding.Provider {
	case EmbeddingProviderOpenAI:
		if strings.TrimSpace(c.Embedding.Model) == "" {
			return errors.New("embedding.model cannot be empty")
		}
		if strings.TrimSpace(c.Embedding.APIKey) == "" {
			return errors.New("embedding.apiKey required: set EMBED_API_KEY (llm.apiKey is reused only when embedding.baseUrl equals llm.baseUrl)")
		}
	case EmbeddingProviderDeterministic:
	default:
		return fmt.Errorf("embedding.provider %q is not supported", c.Embedding.Provider)
	}
	switch c.FAQ.Corpus.Source {
	case CorpusSourceCSV:
		if strings.TrimSpace(c.FAQ.Corpus.Path) == "" {
			return errors.New("faq.corpus.path cannot be empty")
		}
	case CorpusSourcePostgres:
		if strings.TrimSpace(c.FAQ.Postgres.DSN) == "" {
			return errors.New("faq.postgres.dsn is required for the postgres corpus source")
		}
		if strings.TrimSpace(c.FAQ.Corpus.Table) == "" {
			return errors.New("faq.corpus.table cannot be empty")
		}
	default:
		return fmt.Errorf("faq.corpus.source %q is not supported", c.FAQ.Corpus.Source)
	}
	switch c.FAQ.Artifacts.Backend {
	case ArtifactBackendFile:
		if strings.TrimSpace(c.FAQ.Artifacts.EmbeddingsPath) == "" || strings.TrimSpace(c.FAQ.Artifacts.IndexPath) == "" {
			return errors.New("faq.artifacts.embeddingsPath and faq.artifacts.indexPath cannot be empty")
		}
	case ArtifactBackendS3:
		s3 := c.FAQ.Artifacts.S3
		if s3.Endpoint == "" || s3.AccessKey == "" || s3.SecretKey == "" || s3.Bucket == "" {
			return errors.New("faq.artifacts.s3 requires endpoint, accessKey, secretKey and bucket")
		}
	case ArtifactBackendPostgres:
		if strings.TrimSpace(c.FAQ.Postgres.DSN) == "" {
			return errors.New("faq.postgres.dsn is required for the postgres artifact backend")
		}
	default:
		return fmt.Errorf("faq.artifacts.backend %q is not supported", c.FAQ.Artifacts.Backend)
	}
	if c.FAQ.DefaultTopK <= 0 {
		return errors.New("faq.defaultTopK must be positive")
	}
	if c.FAQ.MaxTopK < c.FAQ.DefaultTopK {
		return errors.New("faq.maxTopK cannot be smaller than faq.defaultTopK")
	}
	if c.FAQ.Prompt == "" {
		return errors.New("faq.prompt cannot be empty")
	}
	if c.FAQ.CacheTTL < 0 {
		return errors.New("faq.cacheTtl cannot be negative")
	}
	if c.FAQ.TopRecommendations < 0 {
		return errors.New("faq.topRecommendations cannot be negative")
	}
	if c.FAQ.Redis.Enabled && strings.TrimSpace(c.FAQ.Redis.Addr) == "" {
		return errors.New("faq.redis.addr cannot be empty when redis cache is enabled")
	}
	return nil
}
