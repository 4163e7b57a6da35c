package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rag-chatbot-platform/internal/rag"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// RespondWithUnauthorized sends a 401 Unauthorized error
func RespondWithUnauthorized(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnauthorized, "unauthorized", message, nil)
}

// RespondWithForbidden sends a 403 Forbidden error
func RespondWithForbidden(c *gin.Context, message string) {
	RespondWithError(c, http.StatusForbidden, "forbidden", message, nil)
}

// RespondWithNotFound sends a 404 Not Found error
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}

// RespondWithPipelineError maps document/retrieval pipeline errors to HTTP
// responses. Caller-correctable errors map to 400, upstream outages to 503,
// bad generations to 502, everything else to 500.
func RespondWithPipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, rag.ErrInvalidConfig):
		RespondWithError(c, http.StatusBadRequest, "invalid_config", err.Error(), nil)
	case errors.Is(err, rag.ErrUnsupportedFileType):
		RespondWithError(c, http.StatusBadRequest, "unsupported_file_type", err.Error(), nil)
	case errors.Is(err, rag.ErrDocumentParse):
		RespondWithError(c, http.StatusBadRequest, "document_parse_failed", err.Error(), nil)
	case errors.Is(err, rag.ErrEmbeddingUnavailable):
		RespondWithError(c, http.StatusServiceUnavailable, "embedding_unavailable", "Embedding service is unavailable", nil)
	case errors.Is(err, rag.ErrLLMUnavailable):
		RespondWithError(c, http.StatusServiceUnavailable, "llm_unavailable", "Language model is unavailable", nil)
	case errors.Is(err, rag.ErrLLMGeneration):
		RespondWithError(c, http.StatusBadGateway, "llm_generation_failed", "Language model returned an invalid response", nil)
	default:
		RespondWithInternalError(c, "Internal server error", nil)
	}
}

