package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rag-chatbot-platform/internal/ai"
	"rag-chatbot-platform/internal/config"
	"rag-chatbot-platform/internal/database"
	"rag-chatbot-platform/internal/logger"
	"rag-chatbot-platform/internal/rag"
	"rag-chatbot-platform/internal/telemetry"
	"rag-chatbot-platform/middleware"
	"rag-chatbot-platform/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Initialize structured logging
	logger.InitLogger(cfg)

	// Initialize tracing
	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("rag-chatbot-platform", cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("Failed to initialize tracer, continuing without tracing", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	// Connect to Redis for rate limiting
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	// Wire up the retrieval pipeline
	embedder := ai.NewOllamaEmbedder(ai.EmbedderConfig{
		BaseURL:    cfg.OllamaBaseURL,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.VectorDim,
		Timeout:    cfg.EmbedTimeout,
	})
	llm := ai.NewOllamaClient(ai.LLMConfig{
		BaseURL:           cfg.OllamaBaseURL,
		Model:             cfg.OllamaModel,
		Timeout:           cfg.OllamaTimeout,
		RequestsPerMinute: cfg.OllamaRPM,
	})

	store := rag.NewVectorStore()
	repo := database.NewMongoChunkRepository(mongoClient, cfg.DBName)

	engine, err := rag.NewEngine(rag.EngineConfig{
		ChunkSize:        cfg.ChunkSize,
		ChunkOverlap:     cfg.ChunkOverlap,
		RetrievalTopK:    cfg.RetrievalTopK,
		MaxContextLength: cfg.MaxContextLength,
		Temperature:      cfg.Temperature,
		MaxTokens:        cfg.MaxTokens,
	}, embedder, store, llm, repo)
	if err != nil {
		log.Fatal("Failed to initialize engine:", err)
	}

	// Rebuild in-memory collections from the persisted snapshot
	warmCtx, warmCancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := engine.WarmStart(warmCtx); err != nil {
		logger.Warn("Failed to restore vector store, starting empty", "error", err)
	}
	warmCancel()

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	if cfg.TracingEnabled {
		router.Use(middleware.TracingMiddleware())
		router.Use(middleware.EnrichTrace())
	}
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	// Readiness check: verifies the database and the generation backend
	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Ping(ctx, nil); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"detail": "database unreachable",
			})
			return
		}
		if err := llm.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"detail": "generation backend unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg)

	// Setup routes
	routes.SetupAuthRoutes(router, cfg, mongoClient, authMiddleware)
	routes.SetupDocumentRoutes(router, cfg, mongoClient, engine, authMiddleware)
	routes.SetupChatRoutes(router, cfg, mongoClient, engine, authMiddleware)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
