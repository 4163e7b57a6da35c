package routes

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"rag-chatbot-platform/internal/config"
	"rag-chatbot-platform/internal/logger"
	"rag-chatbot-platform/internal/rag"
	"rag-chatbot-platform/middleware"
	"rag-chatbot-platform/models"
	"rag-chatbot-platform/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func SetupDocumentRoutes(router *gin.Engine, cfg *config.Config, mongoClient *mongo.Client, engine *rag.Engine, authMw *middleware.AuthMiddleware) {
	docs := router.Group("/api/v1/documents")
	docs.Use(authMw.RequireAuth())

	db := mongoClient.Database(cfg.DBName)
	documentsCollection := db.Collection("documents")
	loader := rag.NewDocumentLoader()

	// Ingest raw text documents
	docs.POST("/ingest", func(c *gin.Context) {
		var req models.IngestRequest
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

		totalChunks := 0
		for i, doc := range req.Documents {
			docID, chunkCount, err := engine.IngestDocument(c.Request.Context(), userID, doc)
			if err != nil {
				logger.Error("ingest failed", "user_id", userID, "document_index", i, "error", err)
				utils.RespondWithPipelineError(c, err)
				return
			}
			totalChunks += chunkCount

			record := models.DocumentRecord{
				ID:         docID,
				UserID:     userID,
				Source:     doc.Metadata["source"],
				Type:       "text",
				ChunkCount: chunkCount,
				Metadata:   doc.Metadata,
				IngestedAt: time.Now(),
			}
			if _, err := documentsCollection.InsertOne(context.Background(), record); err != nil {
				logger.Error("failed to record document", "document_id", docID, "error", err)
			}
		}

		c.JSON(http.StatusOK, models.IngestResponse{
			IngestedCount:    len(req.Documents),
			ChunkCount:       totalChunks,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		})
	})

	// Upload a single file
	docs.POST("/upload", func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error_code": "invalid_input",
				"message":    "No file provided",
			})
			return
		}

		if fileHeader.Size > cfg.MaxFileSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error_code": "file_too_large",
				"message":    "File exceeds the maximum allowed size",
				"details":    gin.H{"max_size": cfg.MaxFileSize},
			})
			return
		}

		userID := middleware.GetUserID(c)
		start := time.Now()

		resp, err := ingestUploadedFile(c, engine, loader, documentsCollection, userID, fileHeader)
		if err != nil {
			utils.RespondWithPipelineError(c, err)
			return
		}
		resp.ProcessingTimeMs = time.Since(start).Milliseconds()

		c.JSON(http.StatusOK, resp)
	})

	// Upload multiple files in one request
	docs.POST("/upload-multiple", func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error_code": "invalid_input",
				"message":    "Invalid multipart form",
			})
			return
		}

		files := form.File["files"]
		if len(files) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error_code": "invalid_input",
				"message":    "No files provided",
			})
			return
		}

		userID := middleware.GetUserID(c)
		start := time.Now()

		results := make([]models.UploadResponse, 0, len(files))
		var failures []gin.H
		for _, fileHeader := range files {
			if fileHeader.Size > cfg.MaxFileSize {
				failures = append(failures, gin.H{
					"filename": fileHeader.Filename,
					"error":    "file exceeds the maximum allowed size",
				})
				continue
			}
			resp, err := ingestUploadedFile(c, engine, loader, documentsCollection, userID, fileHeader)
			if err != nil {
				failures = append(failures, gin.H{
					"filename": fileHeader.Filename,
					"error":    err.Error(),
				})
				continue
			}
			resp.ProcessingTimeMs = time.Since(start).Milliseconds()
			results = append(results, resp)
		}

		c.JSON(http.StatusOK, gin.H{
			"uploaded": results,
			"failed":   failures,
		})
	})

	// List ingested documents
	docs.GET("", func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		findOpts := options.Find().SetSort(bson.D{{Key: "ingested_at", Value: -1}})
		cursor, err := documentsCollection.Find(context.Background(), bson.M{"user_id": userID}, findOpts)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list documents", nil)
			return
		}
		defer cursor.Close(context.Background())

		records := []models.DocumentRecord{}
		if err := cursor.All(context.Background(), &records); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode documents", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"documents": records,
			"count":     len(records),
		})
	})

	// Collection statistics
	docs.GET("/stats", func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		stats := engine.Stats(userID)
		count, err := documentsCollection.CountDocuments(context.Background(), bson.M{"user_id": userID})
		if err == nil {
			stats.DocumentCount = int(count)
		}

		c.JSON(http.StatusOK, stats)
	})

	// Delete a document and its chunks
	docs.DELETE("/:id", func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		documentID := c.Param("id")

		removed, err := engine.DeleteDocument(c.Request.Context(), userID, documentID)
		if err != nil {
			utils.RespondWithPipelineError(c, err)
			return
		}

		if _, err := documentsCollection.DeleteOne(context.Background(), bson.M{"_id": documentID, "user_id": userID}); err != nil {
			logger.Error("failed to delete document record", "document_id", documentID, "error", err)
		}

		c.JSON(http.StatusOK, gin.H{
			"document_id":    documentID,
			"chunks_removed": removed,
		})
	})
}

func ingestUploadedFile(c *gin.Context, engine *rag.Engine, loader *rag.DocumentLoader, documentsCollection *mongo.Collection, userID string, fileHeader *multipart.FileHeader) (models.UploadResponse, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return models.UploadResponse{}, rag.ErrDocumentParse
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return models.UploadResponse{}, rag.ErrDocumentParse
	}

	doc, err := loader.Load(content, fileHeader.Filename, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		return models.UploadResponse{}, err
	}

	docID, chunkCount, err := engine.IngestDocument(c.Request.Context(), userID, doc)
	if err != nil {
		return models.UploadResponse{}, err
	}

	record := models.DocumentRecord{
		ID:         docID,
		UserID:     userID,
		Source:     fileHeader.Filename,
		Type:       doc.Metadata["type"],
		ChunkCount: chunkCount,
		Metadata:   doc.Metadata,
		IngestedAt: time.Now(),
	}
	if _, err := documentsCollection.InsertOne(context.Background(), record); err != nil {
		logger.Error("failed to record document", "document_id", docID, "error", err)
	}

	return models.UploadResponse{
		DocumentID: docID,
		Filename:   fileHeader.Filename,
		ChunkCount: chunkCount,
	}, nil
}
