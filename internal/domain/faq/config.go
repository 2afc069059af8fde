package faq

import "time"

// Config holds runtime knobs for the FAQ service.
type Config struct {
	DefaultTopK        int
	CacheTTL           time.Duration
	TopRecommendations int
}

// GeneratorConfig controls the answer generation call.
type GeneratorConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Prompt      string
	MaxAttempts int
	BaseBackoff time.Duration
}
