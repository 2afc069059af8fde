package faq

import (
	"time"

	"github.com/yanqian/faq-rag/pkg/metrics"
)

// Record is one FAQ row. ID is the row position and never changes while the corpus is loaded.
type Record struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// RetrievalResult is a ranked FAQ match, closest first.
type RetrievalResult struct {
	ID       int     `json:"id"`
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Distance float32 `json:"distance"`
}

// ContextPair is what the generator receives for each retrieved FAQ.
type ContextPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// AskRequest is a question to answer with retrieved context.
type AskRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"topK"`
}

// AskResponse is returned to the HTTP transport.
type AskResponse struct {
	Question        string              `json:"question"`
	Answer          string              `json:"answer"`
	FAQs            []RetrievalResult   `json:"faqs"`
	Source          string              `json:"source"`
	Recommendations []TrendingQuery     `json:"recommendations"`
	DurationMs      int64               `json:"durationMs"`
	TokenUsage      *metrics.TokenUsage `json:"tokenUsage,omitempty"`
}

// SearchRequest asks for the nearest FAQ entries only.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK"`
}

// SearchResponse carries ranked retrieval results.
type SearchResponse struct {
	Query   string            `json:"query"`
	Results []RetrievalResult `json:"results"`
}

// TrendingQuery represents a frequently asked question.
type TrendingQuery struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// AnswerRecord captures the payload persisted in the answer cache.
type AnswerRecord struct {
	Key       string            `json:"key"`
	Question  string            `json:"question"`
	Answer    string            `json:"answer"`
	FAQs      []RetrievalResult `json:"faqs"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Status reports how the retrieval backend was initialized.
type Status struct {
	State       State   `json:"state"`
	Outcome     Outcome `json:"outcome,omitempty"`
	Records     int     `json:"records"`
	Dimension   int     `json:"dimension"`
	Model       string  `json:"model"`
	Fingerprint string  `json:"fingerprint,omitempty"`
}
