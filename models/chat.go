package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatTurn is one prior exchange supplied by the client. Role is "user" or
// "assistant".
type ChatTurn struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required"`
}

type ChatRequest struct {
	Message        string     `json:"message" binding:"required,min=1,max=2000"`
	ConversationID string     `json:"conversation_id,omitempty"`
	History        []ChatTurn `json:"history,omitempty" binding:"omitempty,dive"`
	IncludeSources bool       `json:"include_sources"`
}

type SourceDocument struct {
	Content  string            `json:"content"`
	Score    float64           `json:"score"`
	Source   string            `json:"source,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type ChatResponse struct {
	Reply            string           `json:"reply"`
	Sources          []SourceDocument `json:"sources"`
	ConversationID   string           `json:"conversation_id"`
	Timestamp        time.Time        `json:"timestamp"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
}

// Message is a persisted chat exchange.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         string             `bson:"user_id" json:"user_id"`
	ConversationID string             `bson:"conversation_id" json:"conversation_id"`
	Message        string             `bson:"message" json:"message"`
	Reply          string             `bson:"reply" json:"reply"`
	SourceCount    int                `bson:"source_count" json:"source_count"`
	Timestamp      time.Time          `bson:"timestamp" json:"timestamp"`
}

type ConversationHistory struct {
	ConversationID string    `json:"conversation_id"`
	Messages       []Message `json:"messages"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
