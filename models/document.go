package models

import "time"

// Document is a logical unit of ingested text belonging to one user.
// The raw text is transient: once chunked and embedded it is not retained,
// only the DocumentRecord below survives in the database.
type Document struct {
	Content  string            `json:"content" binding:"required"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Chunk is a contiguous slice of a document's text, the unit of retrieval.
// Immutable once created.
type Chunk struct {
	DocumentID string            `bson:"document_id" json:"document_id"`
	UserID     string            `bson:"user_id" json:"user_id"`
	Index      int               `bson:"index" json:"index"`
	Text       string            `bson:"text" json:"text"`
	Start      int               `bson:"start" json:"start"`
	End        int               `bson:"end" json:"end"`
	Metadata   map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

// ChunkRecord is the persisted form of a stored vector entry. It mirrors the
// in-memory vector store so collections can be rebuilt on startup.
type ChunkRecord struct {
	EntryID string    `bson:"entry_id"`
	UserID  string    `bson:"user_id"`
	Chunk   Chunk     `bson:"chunk"`
	Vector  []float32 `bson:"vector"`
}

// DocumentRecord tracks an ingested document for listing and deletion.
type DocumentRecord struct {
	ID         string            `bson:"_id" json:"id"`
	UserID     string            `bson:"user_id" json:"user_id"`
	Source     string            `bson:"source,omitempty" json:"source,omitempty"`
	Type       string            `bson:"type,omitempty" json:"type,omitempty"`
	ChunkCount int               `bson:"chunk_count" json:"chunk_count"`
	Metadata   map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
	IngestedAt time.Time         `bson:"ingested_at" json:"ingested_at"`
}

// SearchResult pairs a retrieved chunk with its similarity score.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

type IngestRequest struct {
	Documents []Document `json:"documents" binding:"required,min=1,dive"`
}

type IngestResponse struct {
	IngestedCount    int   `json:"ingested_count"`
	ChunkCount       int   `json:"chunk_count"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

type UploadResponse struct {
	DocumentID       string `json:"document_id"`
	Filename         string `json:"filename"`
	ChunkCount       int    `json:"chunk_count"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

type CollectionStats struct {
	DocumentCount  int    `json:"document_count"`
	ChunkCount     int    `json:"chunk_count"`
	Dimension      int    `json:"dimension"`
	EmbeddingModel string `json:"embedding_model"`
	LLMModel       string `json:"llm_model"`
}
