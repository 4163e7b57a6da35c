package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"rag-chatbot-platform/models"
)

// MongoChunkRepository snapshots vector store entries to MongoDB so the
// in-memory collections can be rebuilt after a restart.
type MongoChunkRepository struct {
	collection *mongo.Collection
}

func NewMongoChunkRepository(client *mongo.Client, dbName string) *MongoChunkRepository {
	return &MongoChunkRepository{
		collection: client.Database(dbName).Collection("chunks"),
	}
}

func (r *MongoChunkRepository) InsertChunks(ctx context.Context, records []models.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]interface{}, len(records))
	for i, record := range records {
		docs[i] = record
	}

	_, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to insert chunks: %v", err)
	}

	return nil
}

func (r *MongoChunkRepository) DeleteDocument(ctx context.Context, userID, documentID string) error {
	filter := bson.M{
		"user_id":           userID,
		"chunk.document_id": documentID,
	}

	_, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete chunks for document %s: %v", documentID, err)
	}

	return nil
}

func (r *MongoChunkRepository) LoadAll(ctx context.Context) ([]models.ChunkRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %v", err)
	}
	defer cursor.Close(ctx)

	var records []models.ChunkRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode chunks: %v", err)
	}

	return records, nil
}
