package rag

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-chatbot-platform/models"
)

// fakeEmbedder hashes each rune into a small fixed-dimension vector. It is
// deterministic, which is all the pipeline needs.
type fakeEmbedder struct {
	dim     int
	failing bool
	calls   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.failing {
		return nil, ErrEmbeddingUnavailable
	}
	dim := f.dim
	if dim == 0 {
		dim = 4
	}
	vec := make([]float32, dim)
	for i, r := range text {
		vec[i%dim] += float32(r)
	}
	return vec, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (f *fakeEmbedder) Dimensions() int   { return 4 }
func (f *fakeEmbedder) ModelName() string { return "fake-embedder" }

type fakeLLM struct {
	reply    string
	err      error
	received []models.ChatTurn
}

func (f *fakeLLM) Generate(ctx context.Context, messages []models.ChatTurn, opts GenerateOptions) (string, error) {
	f.received = messages
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) ModelName() string { return "fake-llm" }

type fakeRepo struct {
	inserted  []models.ChunkRecord
	deleted   []string
	insertErr error
	loadErr   error
}

func (f *fakeRepo) InsertChunks(ctx context.Context, records []models.ChunkRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, records...)
	return nil
}

func (f *fakeRepo) DeleteDocument(ctx context.Context, userID, documentID string) error {
	f.deleted = append(f.deleted, documentID)
	return nil
}

func (f *fakeRepo) LoadAll(ctx context.Context) ([]models.ChunkRecord, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.inserted, nil
}

func newTestEngine(t *testing.T, embedder Embedder, llm LLMClient, repo ChunkRepository) (*Engine, *VectorStore) {
	t.Helper()
	store := NewVectorStore()
	engine, err := NewEngine(EngineConfig{
		ChunkSize:        50,
		ChunkOverlap:     10,
		RetrievalTopK:    3,
		MaxContextLength: 2000,
		Temperature:      0.7,
		MaxTokens:        512,
	}, embedder, store, llm, repo)
	require.NoError(t, err)
	return engine, store
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	store := NewVectorStore()
	embedder := &fakeEmbedder{}
	llm := &fakeLLM{}

	_, err := NewEngine(EngineConfig{ChunkSize: 0, RetrievalTopK: 3, MaxContextLength: 2000}, embedder, store, llm, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewEngine(EngineConfig{ChunkSize: 500, ChunkOverlap: 50, RetrievalTopK: 0, MaxContextLength: 2000}, embedder, store, llm, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEngine_IngestDocument(t *testing.T) {
	repo := &fakeRepo{}
	engine, store := newTestEngine(t, &fakeEmbedder{}, &fakeLLM{}, repo)

	docID, chunkCount, err := engine.IngestDocument(context.Background(), "u1", models.Document{
		Content:  strings.Repeat("science ", 20),
		Metadata: map[string]string{"source": "notes.txt"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, docID)
	assert.Greater(t, chunkCount, 1)
	assert.Equal(t, chunkCount, store.Count("u1"))
	assert.Len(t, repo.inserted, chunkCount)

	for _, rec := range repo.inserted {
		assert.Equal(t, "u1", rec.UserID)
		assert.Equal(t, docID, rec.Chunk.DocumentID)
		assert.Equal(t, "notes.txt", rec.Chunk.Metadata["source"])
	}
}

func TestEngine_IngestEmptyDocument(t *testing.T) {
	engine, store := newTestEngine(t, &fakeEmbedder{}, &fakeLLM{}, nil)

	docID, chunkCount, err := engine.IngestDocument(context.Background(), "u1", models.Document{Content: "   \n\t "})
	require.NoError(t, err)
	assert.NotEmpty(t, docID)
	assert.Equal(t, 0, chunkCount)
	assert.Equal(t, 0, store.Count("u1"))
}

func TestEngine_IngestEmbedFailureLeavesStoreUnchanged(t *testing.T) {
	repo := &fakeRepo{}
	engine, store := newTestEngine(t, &fakeEmbedder{failing: true}, &fakeLLM{}, repo)

	_, _, err := engine.IngestDocument(context.Background(), "u1", models.Document{Content: "some text"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.Equal(t, 0, store.Count("u1"))
	assert.Empty(t, repo.inserted)
}

func TestEngine_IngestDimensionMismatchLeavesSnapshotUnchanged(t *testing.T) {
	repo := &fakeRepo{}
	engine, store := newTestEngine(t, &fakeEmbedder{}, &fakeLLM{}, repo)

	// Collection restored at a different dimension than the embedder produces.
	require.NoError(t, store.Restore([]models.ChunkRecord{
		{EntryID: "e1", UserID: "u1", Chunk: models.Chunk{DocumentID: "old", Text: "old text"}, Vector: []float32{1, 0, 0, 0, 0}},
	}))

	_, _, err := engine.IngestDocument(context.Background(), "u1", models.Document{Content: "new text"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	// Neither memory nor the snapshot may carry the failed document.
	assert.Equal(t, 1, store.Count("u1"))
	assert.Empty(t, repo.inserted)
}

func TestEngine_IngestSnapshotFailureRollsBackMemory(t *testing.T) {
	repo := &fakeRepo{insertErr: context.DeadlineExceeded}
	engine, store := newTestEngine(t, &fakeEmbedder{}, &fakeLLM{}, repo)

	_, _, err := engine.IngestDocument(context.Background(), "u1", models.Document{Content: "some text"})
	require.Error(t, err)
	assert.Equal(t, 0, store.Count("u1"))
	assert.Empty(t, repo.inserted)
}

func TestEngine_Answer(t *testing.T) {
	llm := &fakeLLM{reply: "the answer"}
	engine, _ := newTestEngine(t, &fakeEmbedder{}, llm, nil)

	_, _, err := engine.IngestDocument(context.Background(), "u1", models.Document{Content: "the sky is blue"})
	require.NoError(t, err)

	reply, sources, err := engine.Answer(context.Background(), "u1", "what color is the sky?", nil)
	require.NoError(t, err)
	assert.Equal(t, "the answer", reply)
	require.NotEmpty(t, sources)

	// System message carries the retrieved context, user message comes last.
	require.NotEmpty(t, llm.received)
	assert.Equal(t, "system", llm.received[0].Role)
	assert.Contains(t, llm.received[0].Content, "the sky is blue")
	last := llm.received[len(llm.received)-1]
	assert.Equal(t, "user", last.Role)
	assert.Equal(t, "what color is the sky?", last.Content)
}

func TestEngine_AnswerEmptyCollection(t *testing.T) {
	llm := &fakeLLM{reply: "no idea"}
	engine, _ := newTestEngine(t, &fakeEmbedder{}, llm, nil)

	reply, sources, err := engine.Answer(context.Background(), "u1", "anything?", nil)
	require.NoError(t, err)
	assert.Equal(t, "no idea", reply)
	assert.Empty(t, sources)
	assert.Contains(t, llm.received[0].Content, "No relevant context found.")
}

func TestEngine_AnswerIncludesHistory(t *testing.T) {
	llm := &fakeLLM{reply: "follow-up answer"}
	engine, _ := newTestEngine(t, &fakeEmbedder{}, llm, nil)

	history := []models.ChatTurn{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
	}
	_, _, err := engine.Answer(context.Background(), "u1", "second question", history)
	require.NoError(t, err)

	require.Len(t, llm.received, 4)
	assert.Equal(t, "system", llm.received[0].Role)
	assert.Equal(t, "first question", llm.received[1].Content)
	assert.Equal(t, "first answer", llm.received[2].Content)
	assert.Equal(t, "second question", llm.received[3].Content)
}

func TestEngine_AnswerLLMFailure(t *testing.T) {
	llm := &fakeLLM{err: ErrLLMUnavailable}
	engine, store := newTestEngine(t, &fakeEmbedder{}, llm, nil)

	_, _, err := engine.IngestDocument(context.Background(), "u1", models.Document{Content: "stored fact"})
	require.NoError(t, err)
	before := store.Count("u1")

	_, _, err = engine.Answer(context.Background(), "u1", "question", nil)
	assert.ErrorIs(t, err, ErrLLMUnavailable)
	assert.Equal(t, before, store.Count("u1"))
}

func TestEngine_AnswerDirectSkipsRetrieval(t *testing.T) {
	llm := &fakeLLM{reply: "direct"}
	embedder := &fakeEmbedder{}
	engine, _ := newTestEngine(t, embedder, llm, nil)

	reply, err := engine.AnswerDirect(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "direct", reply)
	assert.Equal(t, 0, embedder.calls)

	// No system context message, just the user turn.
	require.Len(t, llm.received, 1)
	assert.Equal(t, "user", llm.received[0].Role)
}

func TestEngine_UserIsolation(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	engine, _ := newTestEngine(t, &fakeEmbedder{}, llm, nil)

	_, _, err := engine.IngestDocument(context.Background(), "alice", models.Document{Content: "alice's private notes"})
	require.NoError(t, err)

	_, sources, err := engine.Answer(context.Background(), "bob", "alice's private notes", nil)
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestEngine_DeleteDocument(t *testing.T) {
	repo := &fakeRepo{}
	engine, store := newTestEngine(t, &fakeEmbedder{}, &fakeLLM{}, repo)

	docID, chunkCount, err := engine.IngestDocument(context.Background(), "u1", models.Document{Content: strings.Repeat("text ", 30)})
	require.NoError(t, err)

	removed, err := engine.DeleteDocument(context.Background(), "u1", docID)
	require.NoError(t, err)
	assert.Equal(t, chunkCount, removed)
	assert.Equal(t, 0, store.Count("u1"))
	assert.Contains(t, repo.deleted, docID)

	// Idempotent
	removed, err = engine.DeleteDocument(context.Background(), "u1", docID)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestEngine_WarmStart(t *testing.T) {
	repo := &fakeRepo{}
	first, _ := newTestEngine(t, &fakeEmbedder{}, &fakeLLM{}, repo)

	_, chunkCount, err := first.IngestDocument(context.Background(), "u1", models.Document{Content: strings.Repeat("persisted ", 20)})
	require.NoError(t, err)

	// A fresh engine sharing the repo rebuilds the collection.
	second, store := newTestEngine(t, &fakeEmbedder{}, &fakeLLM{}, repo)
	require.NoError(t, second.WarmStart(context.Background()))
	assert.Equal(t, chunkCount, store.Count("u1"))
}

func TestEngine_Stats(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeEmbedder{}, &fakeLLM{}, nil)

	_, chunkCount, err := engine.IngestDocument(context.Background(), "u1", models.Document{Content: strings.Repeat("stat ", 40)})
	require.NoError(t, err)

	stats := engine.Stats("u1")
	assert.Equal(t, chunkCount, stats.ChunkCount)
	assert.Equal(t, 4, stats.Dimension)
	assert.Equal(t, "fake-embedder", stats.EmbeddingModel)
	assert.Equal(t, "fake-llm", stats.LLMModel)
}

func TestEngine_BuildContextTruncation(t *testing.T) {
	store := NewVectorStore()
	engine, err := NewEngine(EngineConfig{
		ChunkSize:        50,
		ChunkOverlap:     10,
		RetrievalTopK:    3,
		MaxContextLength: 30,
	}, &fakeEmbedder{}, store, &fakeLLM{}, nil)
	require.NoError(t, err)

	sources := []models.SearchResult{
		{Chunk: models.Chunk{Text: strings.Repeat("long ", 20)}, Score: 1},
	}
	ctx := engine.buildContext(sources)
	assert.True(t, strings.HasSuffix(ctx, "..."))
	assert.Len(t, []rune(ctx), 33)
}
