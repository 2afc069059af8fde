package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/faq-rag/internal/domain/faq"
	"github.com/yanqian/faq-rag/internal/infra/config"
	apperrors "github.com/yanqian/faq-rag/pkg/errors"
)

const testSecret = "test-secret"

func TestRouter_AskSuccess(t *testing.T) {
	resp := faq.AskResponse{
		Question: "Can I get my money back?",
		Answer:   "Yes, within 30 days.",
		FAQs:     []faq.RetrievalResult{{ID: 1, Question: "What is the refund policy?", Answer: "30 days.", Distance: 0.06}},
		Source:   "llm",
	}
	svc := &stubService{
		askFn: func(ctx context.Context, req faq.AskRequest) (faq.AskResponse, error) {
			require.Equal(t, "Can I get my money back?", req.Question)
			require.Equal(t, 3, req.TopK)
			return resp, nil
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/faq/ask", `{"question":"Can I get my money back?","topK":3}`, newRouterUnderTest(t, svc, ""))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NotEmpty(t, recorder.Header().Get("X-Request-ID"))

	var got faq.AskResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, resp, got)
}

func TestRouter_AskInvalidJSON(t *testing.T) {
	recorder := performRequest(http.MethodPost, "/api/v1/faq/ask", `{"question":123}`, newRouterUnderTest(t, &stubService{}, ""))
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
	require.NotEmpty(t, errBody["error"]["message"])
}

func TestRouter_AskTopKAboveLimit(t *testing.T) {
	svc := &stubService{}
	recorder := performRequest(http.MethodPost, "/api/v1/faq/ask", `{"question":"q","topK":51}`, newRouterUnderTest(t, svc, ""))
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Equal(t, "invalid_request", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
	require.Zero(t, svc.calls)
}

func TestRouter_AskErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid query", apperrors.Wrap(faq.CodeInvalidQuery, "question cannot be empty", nil), http.StatusBadRequest, "invalid_query"},
		{"llm failure", apperrors.Wrap(faq.CodeLLM, "chat completion request failed", nil), http.StatusBadGateway, "llm_error"},
		{"model unavailable", apperrors.Wrap(faq.CodeModelUnavailable, "embedding model unavailable", nil), http.StatusServiceUnavailable, "service_unavailable"},
		{"other", apperrors.Wrap(faq.CodeFAQ, "query embedding failed", nil), http.StatusInternalServerError, "faq_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{
				askFn: func(context.Context, faq.AskRequest) (faq.AskResponse, error) {
					return faq.AskResponse{}, tc.err
				},
			}
			recorder := performRequest(http.MethodPost, "/api/v1/faq/ask", `{"question":" "}`, newRouterUnderTest(t, svc, ""))
			require.Equal(t, tc.status, recorder.Code)
			errBody := decodeErrorBody(t, recorder.Body.Bytes())
			require.Equal(t, tc.code, errBody["error"]["code"])
		})
	}
}

func TestRouter_Search(t *testing.T) {
	svc := &stubService{
		searchFn: func(ctx context.Context, req faq.SearchRequest) (faq.SearchResponse, error) {
			require.Equal(t, 10, req.TopK)
			return faq.SearchResponse{Query: req.Query, Results: []faq.RetrievalResult{{ID: 2}, {ID: 0}, {ID: 1}}}, nil
		},
	}
	recorder := performRequest(http.MethodPost, "/api/v1/faq/search", `{"query":"password","topK":10}`, newRouterUnderTest(t, svc, ""))
	require.Equal(t, http.StatusOK, recorder.Code)

	var got faq.SearchResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Len(t, got.Results, 3)
	require.Equal(t, 2, got.Results[0].ID)
}

func TestRouter_EntriesDefaultLimit(t *testing.T) {
	svc := &stubService{}
	recorder := performRequest(http.MethodGet, "/api/v1/faq/entries", "", newRouterUnderTest(t, svc, ""))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, 10, svc.lastLimit)

	recorder = performRequest(http.MethodGet, "/api/v1/faq/entries?limit=abc", "", newRouterUnderTest(t, svc, ""))
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRouter_Trending(t *testing.T) {
	svc := &stubService{trending: []faq.TrendingQuery{{Query: "refund", Count: 4}}}
	recorder := performRequest(http.MethodGet, "/api/v1/faq/trending", "", newRouterUnderTest(t, svc, ""))
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Recommendations []faq.TrendingQuery `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Equal(t, svc.trending, body.Recommendations)
}

func TestRouter_Healthz(t *testing.T) {
	svc := &stubService{status: faq.Status{State: faq.StateReady, Outcome: faq.OutcomeLoaded, Records: 3, Dimension: 3, Model: "m"}}
	recorder := performRequest(http.MethodGet, "/healthz", "", newRouterUnderTest(t, svc, testSecret))
	require.Equal(t, http.StatusOK, recorder.Code)

	svc.status.State = faq.StateRebuilding
	recorder = performRequest(http.MethodGet, "/healthz", "", newRouterUnderTest(t, svc, testSecret))
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

func TestRouter_AuthRequiredWhenSecretSet(t *testing.T) {
	server := newRouterUnderTest(t, &stubService{}, testSecret)

	recorder := performRequest(http.MethodGet, "/api/v1/faq/trending", "", server)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/faq/trending", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "wrong-secret", time.Hour))
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/faq/trending", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, -time.Minute))
	rec = httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/faq/trending", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, time.Hour))
	req.Header.Set("X-Request-ID", "req-123")
	rec = httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig("")
	cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	server := NewRouter(cfg, NewHandler(&stubService{}, 50, newTestLogger()))

	require.Equal(t, http.StatusOK, performRequest(http.MethodGet, "/api/v1/faq/trending", "", server).Code)
	recorder := performRequest(http.MethodGet, "/api/v1/faq/trending", "", server)
	require.Equal(t, http.StatusTooManyRequests, recorder.Code)
	require.Equal(t, "rate_limit_exceeded", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
}

func performRequest(method, path, body string, server *http.Server) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func testConfig(secret string) *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		Auth: config.AuthConfig{JWTSecret: secret},
	}
}

func newRouterUnderTest(t *testing.T, svc faq.Service, secret string) *http.Server {
	t.Helper()
	return NewRouter(testConfig(secret), NewHandler(svc, 50, newTestLogger()))
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

func signToken(t *testing.T, secret string, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "faqchat",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

type stubService struct {
	askFn     func(ctx context.Context, req faq.AskRequest) (faq.AskResponse, error)
	searchFn  func(ctx context.Context, req faq.SearchRequest) (faq.SearchResponse, error)
	trending  []faq.TrendingQuery
	status    faq.Status
	calls     int
	lastLimit int
}

func (s *stubService) Ask(ctx context.Context, req faq.AskRequest) (faq.AskResponse, error) {
	s.calls++
	if s.askFn != nil {
		return s.askFn(ctx, req)
	}
	return faq.AskResponse{}, nil
}

func (s *stubService) Search(ctx context.Context, req faq.SearchRequest) (faq.SearchResponse, error) {
	s.calls++
	if s.searchFn != nil {
		return s.searchFn(ctx, req)
	}
	return faq.SearchResponse{}, nil
}

func (s *stubService) Trending(context.Context) ([]faq.TrendingQuery, error) {
	return s.trending, nil
}

func (s *stubService) Entries(_ context.Context, limit int) ([]faq.Record, error) {
	s.lastLimit = limit
	return []faq.Record{}, nil
}

func (s *stubService) Status(context.Context) faq.Status {
	return s.status
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}
