package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/faq-rag/internal/domain/faq"
	apperrors "github.com/yanqian/faq-rag/pkg/errors"
)

const defaultEntriesLimit = 10

// Handler serves the FAQ endpoints.
type Handler struct {
	faqSvc  faq.Service
	maxTopK int
	logger  *slog.Logger
}

// NewHandler constructs the HTTP handler.
func NewHandler(faqSvc faq.Service, maxTopK int, logger *slog.Logger) *Handler {
	return &Handler{
		faqSvc:  faqSvc,
		maxTopK: maxTopK,
		logger:  logger.With("component", "http.handler"),
	}
}

// Ask answers a question from the retrieved FAQs.
func (h *Handler) Ask(c *gin.Context) {
	var req faq.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	if httpErr := h.checkTopK(req.TopK); httpErr != nil {
		abortWithError(c, httpErr)
		return
	}

	resp, err := h.faqSvc.Ask(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, faqHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Search returns the nearest FAQ entries without generating an answer.
func (h *Handler) Search(c *gin.Context) {
	var req faq.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	if httpErr := h.checkTopK(req.TopK); httpErr != nil {
		abortWithError(c, httpErr)
		return
	}

	resp, err := h.faqSvc.Search(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, faqHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Trending returns the most common questions.
func (h *Handler) Trending(c *gin.Context) {
	items, err := h.faqSvc.Trending(c.Request.Context())
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "faq_failed", errMessage(err), err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": items})
}

// Entries lists the first FAQ records in corpus order.
func (h *Handler) Entries(c *gin.Context) {
	limit := defaultEntriesLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "limit must be a positive integer", err))
			return
		}
		limit = parsed
	}

	entries, err := h.faqSvc.Entries(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, faqHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Health reports readiness along with the loaded index metadata.
func (h *Handler) Health(c *gin.Context) {
	status := h.faqSvc.Status(c.Request.Context())
	code := http.StatusOK
	if status.State != faq.StateReady {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (h *Handler) checkTopK(topK int) *HTTPError {
	if topK < 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid_request", "topK cannot be negative", nil)
	}
	if h.maxTopK > 0 && topK > h.maxTopK {
		return NewHTTPError(http.StatusBadRequest, "invalid_request", fmt.Sprintf("topK cannot exceed %d", h.maxTopK), nil)
	}
	return nil
}

func faqHTTPError(err error) *HTTPError {
	switch {
	case apperrors.IsCode(err, faq.CodeInvalidQuery):
		return NewHTTPError(http.StatusBadRequest, faq.CodeInvalidQuery, errMessage(err), err)
	case apperrors.IsCode(err, faq.CodeLLM):
		return NewHTTPError(http.StatusBadGateway, faq.CodeLLM, errMessage(err), err)
	case apperrors.IsCode(err, faq.CodeModelUnavailable):
		return NewHTTPError(http.StatusServiceUnavailable, "service_unavailable", errMessage(err), err)
	default:
		return NewHTTPError(http.StatusInternalServerError, "faq_failed", errMessage(err), err)
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
