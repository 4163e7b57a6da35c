package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-chatbot-platform/models"
)

func addChunk(t *testing.T, store *VectorStore, userID, documentID, text string, vector []float32) {
	t.Helper()
	_, err := store.Add(userID, models.Chunk{
		DocumentID: documentID,
		UserID:     userID,
		Text:       text,
	}, vector)
	require.NoError(t, err)
}

func TestVectorStore_SearchEmptyCollection(t *testing.T) {
	store := NewVectorStore()

	results, err := store.Search("nobody", []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorStore_SearchExactMatch(t *testing.T) {
	store := NewVectorStore()
	addChunk(t, store, "u1", "d1", "alpha", []float32{1, 0, 0})
	addChunk(t, store, "u1", "d1", "beta", []float32{0, 1, 0})

	results, err := store.Search("u1", []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alpha", results[0].Chunk.Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestVectorStore_SearchOrderedByScore(t *testing.T) {
	store := NewVectorStore()
	addChunk(t, store, "u1", "d1", "far", []float32{0, 1})
	addChunk(t, store, "u1", "d1", "near", []float32{1, 0.1})
	addChunk(t, store, "u1", "d1", "exact", []float32{1, 0})

	results, err := store.Search("u1", []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "exact", results[0].Chunk.Text)
	assert.Equal(t, "near", results[1].Chunk.Text)
	assert.Equal(t, "far", results[2].Chunk.Text)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestVectorStore_SearchTopKBound(t *testing.T) {
	store := NewVectorStore()
	for i := 0; i < 5; i++ {
		addChunk(t, store, "u1", "d1", "chunk", []float32{1, float32(i)})
	}

	results, err := store.Search("u1", []float32{1, 1}, 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	// Asking for more than stored returns everything.
	results, err = store.Search("u1", []float32{1, 1}, 50)
	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func TestVectorStore_SearchInvalidTopK(t *testing.T) {
	store := NewVectorStore()
	addChunk(t, store, "u1", "d1", "alpha", []float32{1, 0})

	_, err := store.Search("u1", []float32{1, 0}, 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestVectorStore_SearchDimensionMismatch(t *testing.T) {
	store := NewVectorStore()
	addChunk(t, store, "u1", "d1", "alpha", []float32{1, 0, 0})

	_, err := store.Search("u1", []float32{1, 0}, 1)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestVectorStore_AddDimensionMismatch(t *testing.T) {
	store := NewVectorStore()
	addChunk(t, store, "u1", "d1", "alpha", []float32{1, 0, 0})

	_, err := store.Add("u1", models.Chunk{Text: "beta"}, []float32{1, 0})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestVectorStore_AddBatchLengthMismatch(t *testing.T) {
	store := NewVectorStore()

	_, err := store.AddBatch("u1", []models.Chunk{{Text: "a"}, {Text: "b"}}, [][]float32{{1, 0}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, 0, store.Count("u1"))
}

func TestVectorStore_UserIsolation(t *testing.T) {
	store := NewVectorStore()
	addChunk(t, store, "alice", "d1", "alice secret", []float32{1, 0})
	addChunk(t, store, "bob", "d2", "bob secret", []float32{1, 0})

	results, err := store.Search("alice", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alice secret", results[0].Chunk.Text)

	results, err = store.Search("bob", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "bob secret", results[0].Chunk.Text)
}

func TestVectorStore_TieBreakByInsertionOrder(t *testing.T) {
	store := NewVectorStore()
	addChunk(t, store, "u1", "d1", "first", []float32{1, 0})
	addChunk(t, store, "u1", "d1", "second", []float32{1, 0})

	results, err := store.Search("u1", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].Chunk.Text)
	assert.Equal(t, "second", results[1].Chunk.Text)
}

func TestVectorStore_DeleteDocument(t *testing.T) {
	store := NewVectorStore()
	addChunk(t, store, "u1", "d1", "keep", []float32{1, 0})
	addChunk(t, store, "u1", "d2", "drop", []float32{0, 1})
	addChunk(t, store, "u1", "d2", "drop too", []float32{0, 1})

	removed := store.DeleteDocument("u1", "d2")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, store.Count("u1"))

	// Deleting again is a no-op.
	assert.Equal(t, 0, store.DeleteDocument("u1", "d2"))

	results, err := store.Search("u1", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "keep", results[0].Chunk.Text)
}

func TestVectorStore_DeleteDoesNotTouchOtherUsers(t *testing.T) {
	store := NewVectorStore()
	addChunk(t, store, "alice", "d1", "alice chunk", []float32{1, 0})
	addChunk(t, store, "bob", "d1", "bob chunk", []float32{1, 0})

	store.DeleteDocument("alice", "d1")
	assert.Equal(t, 0, store.Count("alice"))
	assert.Equal(t, 1, store.Count("bob"))
}

func TestVectorStore_Restore(t *testing.T) {
	store := NewVectorStore()

	records := []models.ChunkRecord{
		{EntryID: "e1", UserID: "u1", Chunk: models.Chunk{DocumentID: "d1", Text: "restored"}, Vector: []float32{1, 0}},
		{EntryID: "e2", UserID: "u2", Chunk: models.Chunk{DocumentID: "d2", Text: "other user"}, Vector: []float32{0, 1}},
	}
	require.NoError(t, store.Restore(records))

	assert.Equal(t, 1, store.Count("u1"))
	assert.Equal(t, 1, store.Count("u2"))

	results, err := store.Search("u1", []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "restored", results[0].Chunk.Text)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// Scale invariance
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{2, 0}, []float32{7, 0}), 1e-9)

	// Zero vector yields zero similarity, not NaN
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
