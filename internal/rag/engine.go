package rag

import (
	"context"
	"fmt"
	"strings"

	"rag-chatbot-platform/internal/logger"
	"rag-chatbot-platform/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ragSystemPrompt is the fixed instruction block sent with every retrieval-
// augmented request. The retrieved context is substituted for %s.
const ragSystemPrompt = `You are a helpful AI assistant. Answer the user's question based on the provided context.

Instructions:
- Use ONLY the information from the context to answer
- If the context doesn't contain relevant information, say so
- Be concise and direct in your response
- Do not make up information

Context:
%s`

const emptyContextNote = "No relevant context found."

// EngineConfig carries the tunables of the pipeline. Validation happens in
// NewEngine so a misconfigured engine is never constructed.
type EngineConfig struct {
	ChunkSize        int
	ChunkOverlap     int
	RetrievalTopK    int
	MaxContextLength int
	Temperature      float64
	MaxTokens        int
}

// Engine orchestrates the full pipeline: ingestion (chunk, embed, store) and
// answering (retrieve, assemble prompt, generate). One engine serves all
// users; isolation lives in the vector store's per-user collections.
type Engine struct {
	cfg       EngineConfig
	chunker   *Chunker
	embedder  Embedder
	store     *VectorStore
	retriever *Retriever
	llm       LLMClient
	repo      ChunkRepository
}

// NewEngine wires the pipeline. repo may be nil to disable chunk persistence.
func NewEngine(cfg EngineConfig, embedder Embedder, store *VectorStore, llm LLMClient, repo ChunkRepository) (*Engine, error) {
	chunker, err := NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if cfg.RetrievalTopK <= 0 {
		return nil, fmt.Errorf("%w: retrieval top_k must be positive, got %d", ErrInvalidConfig, cfg.RetrievalTopK)
	}
	if cfg.MaxContextLength <= 0 {
		return nil, fmt.Errorf("%w: max context length must be positive, got %d", ErrInvalidConfig, cfg.MaxContextLength)
	}
	return &Engine{
		cfg:       cfg,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		retriever: NewRetriever(embedder, store),
		llm:       llm,
		repo:      repo,
	}, nil
}

// IngestDocument chunks, embeds, and stores one document for the user.
// Atomic: if embedding or persistence fails partway, nothing is stored.
// Returns the generated document id and the number of chunks created.
func (e *Engine) IngestDocument(ctx context.Context, userID string, doc models.Document) (string, int, error) {
	tracer := otel.Tracer("rag-engine")
	ctx, span := tracer.Start(ctx, "rag.ingest_document")
	defer span.End()

	documentID := uuid.NewString()
	chunks := e.chunker.Split(CleanText(doc.Content))
	span.SetAttributes(attribute.Int("rag.chunks", len(chunks)))
	if len(chunks) == 0 {
		return documentID, 0, nil
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		chunks[i].DocumentID = documentID
		chunks[i].UserID = userID
		chunks[i].Metadata = doc.Metadata
		texts[i] = chunks[i].Text
	}

	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return "", 0, fmt.Errorf("embed document: %w", err)
	}

	// Memory first: AddBatch validates every vector against the user's
	// established dimension, so a rejected batch never reaches the snapshot.
	if _, err := e.store.AddBatch(userID, chunks, vectors); err != nil {
		return "", 0, err
	}

	if e.repo != nil {
		records := make([]models.ChunkRecord, len(chunks))
		for i := range chunks {
			records[i] = models.ChunkRecord{
				EntryID: uuid.NewString(),
				UserID:  userID,
				Chunk:   chunks[i],
				Vector:  vectors[i],
			}
		}
		if err := e.repo.InsertChunks(ctx, records); err != nil {
			e.store.DeleteDocument(userID, documentID)
			return "", 0, fmt.Errorf("persist chunks: %w", err)
		}
	}

	logger.Info("document ingested", "user_id", userID, "document_id", documentID, "chunks", len(chunks))
	return documentID, len(chunks), nil
}

// Ingest processes a batch of documents and returns the document ids and the
// total chunk count. Atomicity is per document, not per batch.
func (e *Engine) Ingest(ctx context.Context, userID string, docs []models.Document) ([]string, int, error) {
	ids := make([]string, 0, len(docs))
	total := 0
	for i, doc := range docs {
		id, n, err := e.IngestDocument(ctx, userID, doc)
		if err != nil {
			return nil, 0, fmt.Errorf("document %d: %w", i, err)
		}
		ids = append(ids, id)
		total += n
	}
	return ids, total, nil
}

// Retrieve embeds the query and returns the user's top-K chunks.
func (e *Engine) Retrieve(ctx context.Context, userID, query string, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		topK = e.cfg.RetrievalTopK
	}
	return e.retriever.Retrieve(ctx, userID, query, topK)
}

// Answer runs the full query path: retrieve context for the user, assemble
// the prompt, generate. Zero retrieved chunks is not an error; the model is
// told the context is empty. Upstream ErrEmbeddingUnavailable and
// ErrLLMUnavailable propagate unchanged.
func (e *Engine) Answer(ctx context.Context, userID, message string, history []models.ChatTurn) (string, []models.SearchResult, error) {
	tracer := otel.Tracer("rag-engine")
	ctx, span := tracer.Start(ctx, "rag.answer")
	defer span.End()

	sources, err := e.Retrieve(ctx, userID, message, e.cfg.RetrievalTopK)
	if err != nil {
		return "", nil, err
	}
	span.SetAttributes(attribute.Int("rag.context_chunks", len(sources)))

	messages := e.assembleMessages(sources, history, message)
	answer, err := e.llm.Generate(ctx, messages, e.generateOptions())
	if err != nil {
		return "", nil, err
	}

	return answer, sources, nil
}

// AnswerDirect generates without retrieval. Used by the direct chat endpoint.
func (e *Engine) AnswerDirect(ctx context.Context, message string, history []models.ChatTurn) (string, error) {
	messages := make([]models.ChatTurn, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, models.ChatTurn{Role: "user", Content: message})
	return e.llm.Generate(ctx, messages, e.generateOptions())
}

func (e *Engine) generateOptions() GenerateOptions {
	return GenerateOptions{Temperature: &e.cfg.Temperature, MaxTokens: e.cfg.MaxTokens}
}

// assembleMessages builds the chat payload: system instructions with the
// enumerated context, prior turns in chronological order, then the user's
// message.
func (e *Engine) assembleMessages(sources []models.SearchResult, history []models.ChatTurn, message string) []models.ChatTurn {
	messages := make([]models.ChatTurn, 0, len(history)+2)
	messages = append(messages, models.ChatTurn{
		Role:    "system",
		Content: fmt.Sprintf(ragSystemPrompt, e.buildContext(sources)),
	})
	messages = append(messages, history...)
	messages = append(messages, models.ChatTurn{Role: "user", Content: message})
	return messages
}

// buildContext enumerates retrieved chunks, tagging each with its source, and
// caps the result at the configured context length.
func (e *Engine) buildContext(sources []models.SearchResult) string {
	if len(sources) == 0 {
		return emptyContextNote
	}

	parts := make([]string, len(sources))
	for i, src := range sources {
		if source := src.Chunk.Metadata["source"]; source != "" {
			parts[i] = fmt.Sprintf("[%d] (%s) %s", i+1, source, src.Chunk.Text)
		} else {
			parts[i] = fmt.Sprintf("[%d] %s", i+1, src.Chunk.Text)
		}
	}

	context := strings.Join(parts, "\n\n")
	if runes := []rune(context); len(runes) > e.cfg.MaxContextLength {
		context = string(runes[:e.cfg.MaxContextLength]) + "..."
	}
	return context
}

// DeleteDocument removes a document's chunks from memory and the snapshot.
// Idempotent: deleting an absent document removes nothing and succeeds.
func (e *Engine) DeleteDocument(ctx context.Context, userID, documentID string) (int, error) {
	if e.repo != nil {
		if err := e.repo.DeleteDocument(ctx, userID, documentID); err != nil {
			return 0, fmt.Errorf("delete chunk snapshot: %w", err)
		}
	}
	removed := e.store.DeleteDocument(userID, documentID)
	if removed > 0 {
		logger.Info("document deleted", "user_id", userID, "document_id", documentID, "chunks_removed", removed)
	}
	return removed, nil
}

// Stats reports the user's collection state and the configured models.
func (e *Engine) Stats(userID string) models.CollectionStats {
	return models.CollectionStats{
		ChunkCount:     e.store.Count(userID),
		Dimension:      e.store.Dimension(userID),
		EmbeddingModel: e.embedder.ModelName(),
		LLMModel:       e.llm.ModelName(),
	}
}

// WarmStart rebuilds the in-memory collections from the persisted snapshot.
// Called once at process start, before the store serves requests.
func (e *Engine) WarmStart(ctx context.Context) error {
	if e.repo == nil {
		return nil
	}
	records, err := e.repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load chunk snapshot: %w", err)
	}
	if len(records) == 0 {
		return nil
	}
	if err := e.store.Restore(records); err != nil {
		return err
	}
	logger.Info("vector store restored", "entries", len(records))
	return nil
}
