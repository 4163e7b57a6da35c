package rag

import (
	"context"
	"fmt"

	"rag-chatbot-platform/models"
)

// Retriever composes the embedder and the vector store: it embeds a query and
// searches the requesting user's collection. It holds no state of its own.
type Retriever struct {
	embedder Embedder
	store    *VectorStore
}

func NewRetriever(embedder Embedder, store *VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve returns the user's topK most similar chunks for the query, best
// first.
func (r *Retriever) Retrieve(ctx context.Context, userID, query string, topK int) ([]models.SearchResult, error) {
	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return r.store.Search(userID, queryVec, topK)
}
