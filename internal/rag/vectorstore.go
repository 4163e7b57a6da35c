package rag

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"rag-chatbot-platform/models"

	"github.com/google/uuid"
)

// entry is one stored (vector, chunk) pair.
type entry struct {
	id     string
	chunk  models.Chunk
	vector []float32
}

// collection holds one user's entries. Append-only except for
// delete-by-document; the RWMutex serializes mutation against search so a
// reader sees either the pre- or post-mutation state.
type collection struct {
	mu        sync.RWMutex
	dimension int
	entries   []entry
}

// VectorStore keeps per-user in-memory collections with brute-force cosine
// similarity search. Collections are independent: no operation on one user
// can observe another user's entries.
type VectorStore struct {
	mu          sync.Mutex
	collections map[string]*collection
}

func NewVectorStore() *VectorStore {
	return &VectorStore{collections: make(map[string]*collection)}
}

func (s *VectorStore) collectionFor(userID string) *collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[userID]
	if !ok {
		col = &collection{}
		s.collections[userID] = col
	}
	return col
}

// Add appends a single entry to the user's collection and returns its entry id.
// The first Add establishes the collection's dimension; later vectors must
// match it.
func (s *VectorStore) Add(userID string, chunk models.Chunk, vector []float32) (string, error) {
	ids, err := s.AddBatch(userID, []models.Chunk{chunk}, [][]float32{vector})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AddBatch appends a document's chunks under one lock acquisition. All vectors
// are validated before anything is stored, so a dimension error leaves the
// collection unchanged.
func (s *VectorStore) AddBatch(userID string, chunks []models.Chunk, vectors [][]float32) ([]string, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%w: %d chunks but %d vectors", ErrInvalidConfig, len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	col := s.collectionFor(userID)
	col.mu.Lock()
	defer col.mu.Unlock()

	dim := col.dimension
	if dim == 0 {
		dim = len(vectors[0])
		if dim == 0 {
			return nil, fmt.Errorf("%w: empty embedding vector", ErrInvalidConfig)
		}
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, collection has %d", ErrInvalidConfig, i, len(v), dim)
		}
	}

	col.dimension = dim
	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = uuid.NewString()
		col.entries = append(col.entries, entry{id: ids[i], chunk: chunks[i], vector: vectors[i]})
	}
	return ids, nil
}

// Search returns up to topK entries for the user ordered by descending cosine
// similarity, ties broken by insertion order. An empty collection returns an
// empty result, not an error.
func (s *VectorStore) Search(userID string, query []float32, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidConfig, topK)
	}

	col := s.collectionFor(userID)
	col.mu.RLock()
	defer col.mu.RUnlock()

	if len(col.entries) == 0 {
		return []models.SearchResult{}, nil
	}
	if len(query) != col.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, collection has %d", ErrInvalidConfig, len(query), col.dimension)
	}

	type scored struct {
		pos   int
		score float64
	}
	scores := make([]scored, len(col.entries))
	for i := range col.entries {
		scores[i] = scored{pos: i, score: cosineSimilarity(query, col.entries[i].vector)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if topK > len(scores) {
		topK = len(scores)
	}
	results := make([]models.SearchResult, topK)
	for i := 0; i < topK; i++ {
		results[i] = models.SearchResult{
			Chunk: col.entries[scores[i].pos].chunk,
			Score: scores[i].score,
		}
	}
	return results, nil
}

// DeleteDocument removes every entry belonging to the document from the
// user's collection and reports how many were removed. Absent documents are a
// no-op.
func (s *VectorStore) DeleteDocument(userID, documentID string) int {
	col := s.collectionFor(userID)
	col.mu.Lock()
	defer col.mu.Unlock()

	kept := col.entries[:0]
	removed := 0
	for _, e := range col.entries {
		if e.chunk.DocumentID == documentID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	col.entries = kept
	return removed
}

// Count reports the number of stored entries for the user.
func (s *VectorStore) Count(userID string) int {
	col := s.collectionFor(userID)
	col.mu.RLock()
	defer col.mu.RUnlock()
	return len(col.entries)
}

// Dimension reports the user's established vector dimension, 0 if none yet.
func (s *VectorStore) Dimension(userID string) int {
	col := s.collectionFor(userID)
	col.mu.RLock()
	defer col.mu.RUnlock()
	return col.dimension
}

// Restore rebuilds collections from persisted records, preserving entry ids
// and insertion order. Used once at startup before the store serves requests.
func (s *VectorStore) Restore(records []models.ChunkRecord) error {
	for _, rec := range records {
		col := s.collectionFor(rec.UserID)
		col.mu.Lock()
		if col.dimension == 0 {
			col.dimension = len(rec.Vector)
		}
		if len(rec.Vector) != col.dimension {
			col.mu.Unlock()
			return fmt.Errorf("%w: record %s has dimension %d, collection has %d", ErrInvalidConfig, rec.EntryID, len(rec.Vector), col.dimension)
		}
		col.entries = append(col.entries, entry{id: rec.EntryID, chunk: rec.Chunk, vector: rec.Vector})
		col.mu.Unlock()
	}
	return nil
}

// cosineSimilarity is the reference similarity metric: the dot product of the
// vectors divided by the product of their magnitudes, in [-1, 1].
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
