package rag

import (
	"context"

	"rag-chatbot-platform/models"
)

// Embedder maps text to fixed-dimension vectors. Implementations must be
// deterministic: the same text always yields the same vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch is semantically equivalent to mapping Embed over texts;
	// it exists for throughput only.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
}

// GenerateOptions configures a single generation call. A nil Temperature and
// zero MaxTokens fall back to the client's configured defaults; an explicit
// zero temperature is passed through.
type GenerateOptions struct {
	Model       string
	Temperature *float64
	MaxTokens   int
}

// LLMClient sends chat messages to a generation endpoint and returns the
// generated text. Failures are classified as ErrLLMUnavailable (retryable)
// or ErrLLMGeneration (not).
type LLMClient interface {
	Generate(ctx context.Context, messages []models.ChatTurn, opts GenerateOptions) (string, error)
	ModelName() string
}

// ChunkRepository persists a snapshot of stored entries so collections can be
// rebuilt at startup. A nil repository disables persistence.
type ChunkRepository interface {
	InsertChunks(ctx context.Context, records []models.ChunkRecord) error
	DeleteDocument(ctx context.Context, userID, documentID string) error
	LoadAll(ctx context.Context) ([]models.ChunkRecord, error)
}
