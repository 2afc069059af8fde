package faq

import "errors"

// Error codes carried by apperrors.AppError values returned from this package.
const (
	CodeModelUnavailable = "model_unavailable"
	CodeCorpusLoad       = "corpus_load_error"
	CodeIndexBuildFailed = "index_build_failed"
	CodeInvalidQuery     = "invalid_query"
	CodeIndexCorrupt     = "index_corrupt"
	CodeLLM              = "llm_error"
	CodeFAQ              = "faq_error"
)

// ErrArtifactNotFound is returned by artifact repositories when nothing has been persisted yet.
var ErrArtifactNotFound = errors.New("artifact not found")
