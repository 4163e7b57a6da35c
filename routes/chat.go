package routes

import (
	"context"
	"net/http"
	"time"

	"rag-chatbot-platform/internal/config"
	"rag-chatbot-platform/internal/logger"
	"rag-chatbot-platform/internal/rag"
	"rag-chatbot-platform/middleware"
	"rag-chatbot-platform/models"
	"rag-chatbot-platform/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func SetupChatRoutes(router *gin.Engine, cfg *config.Config, mongoClient *mongo.Client, engine *rag.Engine, authMw *middleware.AuthMiddleware) {
	api := router.Group("/api/v1")
	api.Use(authMw.RequireAuth())

	db := mongoClient.Database(cfg.DBName)
	messagesCollection := db.Collection("messages")

	// Retrieval-augmented chat
	api.POST("/chat", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error_code": "invalid_input",
				"message":    "Invalid request data",
				"details":    gin.H{"error": err.Error()},
			})
			return
		}

		userID := middleware.GetUserID(c)
		start := time.Now()

		conversationID := req.ConversationID
		if conversationID == "" {
			conversationID = uuid.NewString()
		}

		history := req.History
		if len(history) == 0 && req.ConversationID != "" {
			history = loadConversationHistory(messagesCollection, userID, req.ConversationID)
		}

		reply, sources, err := engine.Answer(c.Request.Context(), userID, req.Message, history)
		if err != nil {
			logger.Error("chat failed", "user_id", userID, "conversation_id", conversationID, "error", err)
			utils.RespondWithPipelineError(c, err)
			return
		}

		// Persist the exchange
		msg := models.Message{
			UserID:         userID,
			ConversationID: conversationID,
			Message:        req.Message,
			Reply:          reply,
			SourceCount:    len(sources),
			Timestamp:      time.Now(),
		}
		if _, err := messagesCollection.InsertOne(context.Background(), msg); err != nil {
			logger.Error("failed to persist message", "conversation_id", conversationID, "error", err)
		}

		resp := models.ChatResponse{
			Reply:            reply,
			Sources:          []models.SourceDocument{},
			ConversationID:   conversationID,
			Timestamp:        time.Now(),
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		}
		if req.IncludeSources {
			for _, s := range sources {
				resp.Sources = append(resp.Sources, models.SourceDocument{
					Content:  s.Chunk.Text,
					Score:    s.Score,
					Source:   s.Chunk.Metadata["source"],
					Metadata: s.Chunk.Metadata,
				})
			}
		}

		c.JSON(http.StatusOK, resp)
	})

	// Direct chat without retrieval
	api.POST("/chat/direct", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error_code": "invalid_input",
				"message":    "Invalid request data",
				"details":    gin.H{"error": err.Error()},
			})
			return
		}

		userID := middleware.GetUserID(c)
		start := time.Now()

		conversationID := req.ConversationID
		if conversationID == "" {
			conversationID = uuid.NewString()
		}

		reply, err := engine.AnswerDirect(c.Request.Context(), req.Message, req.History)
		if err != nil {
			logger.Error("direct chat failed", "user_id", userID, "error", err)
			utils.RespondWithPipelineError(c, err)
			return
		}

		msg := models.Message{
			UserID:         userID,
			ConversationID: conversationID,
			Message:        req.Message,
			Reply:          reply,
			Timestamp:      time.Now(),
		}
		if _, err := messagesCollection.InsertOne(context.Background(), msg); err != nil {
			logger.Error("failed to persist message", "conversation_id", conversationID, "error", err)
		}

		c.JSON(http.StatusOK, models.ChatResponse{
			Reply:            reply,
			Sources:          []models.SourceDocument{},
			ConversationID:   conversationID,
			Timestamp:        time.Now(),
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		})
	})

	// Conversation history
	api.GET("/conversations/:id", func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		conversationID := c.Param("id")

		findOpts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
		cursor, err := messagesCollection.Find(context.Background(), bson.M{
			"user_id":         userID,
			"conversation_id": conversationID,
		}, findOpts)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load conversation", nil)
			return
		}
		defer cursor.Close(context.Background())

		messages := []models.Message{}
		if err := cursor.All(context.Background(), &messages); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode conversation", nil)
			return
		}

		if len(messages) == 0 {
			utils.RespondWithNotFound(c, "Conversation not found")
			return
		}

		c.JSON(http.StatusOK, models.ConversationHistory{
			ConversationID: conversationID,
			Messages:       messages,
			CreatedAt:      messages[0].Timestamp,
			UpdatedAt:      messages[len(messages)-1].Timestamp,
		})
	})
}

// loadConversationHistory reconstructs chat turns from persisted exchanges so
// clients can continue a conversation by id without resending the transcript.
func loadConversationHistory(messagesCollection *mongo.Collection, userID, conversationID string) []models.ChatTurn {
	findOpts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}).SetLimit(20)
	cursor, err := messagesCollection.Find(context.Background(), bson.M{
		"user_id":         userID,
		"conversation_id": conversationID,
	}, findOpts)
	if err != nil {
		return nil
	}
	defer cursor.Close(context.Background())

	var messages []models.Message
	if err := cursor.All(context.Background(), &messages); err != nil {
		return nil
	}

	turns := make([]models.ChatTurn, 0, len(messages)*2)
	for _, m := range messages {
		turns = append(turns, models.ChatTurn{Role: "user", Content: m.Message})
		turns = append(turns, models.ChatTurn{Role: "assistant", Content: m.Reply})
	}
	return turns
}
