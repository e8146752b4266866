package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fieldmate/backend/internal/api/handlers"
	"github.com/fieldmate/backend/internal/coverage"
	"github.com/fieldmate/backend/internal/gap"
	graphdb "github.com/fieldmate/backend/internal/graph/neo4j"
	"github.com/fieldmate/backend/internal/handler"
	"github.com/fieldmate/backend/internal/llm"
	"github.com/fieldmate/backend/internal/middleware/ratelimit"
	"github.com/fieldmate/backend/internal/middleware/security"
	"github.com/fieldmate/backend/internal/middleware/validation"
	"github.com/fieldmate/backend/internal/research"
	"github.com/fieldmate/backend/internal/retrieval"
	"github.com/fieldmate/backend/internal/router"
	"github.com/fieldmate/backend/internal/storage/sqlite"
	"github.com/fieldmate/backend/internal/vector/milvus"
	"github.com/fieldmate/backend/pkg/config"
	appLogger "github.com/fieldmate/backend/pkg/logger"

	cacheredis "github.com/fieldmate/backend/internal/cache/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting FieldMate Query Router API")

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	neo4jClient, err := graphdb.NewClient(
		cfg.Neo4j.URI,
		cfg.Neo4j.Username,
		cfg.Neo4j.Password,
		cfg.Neo4j.Database,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Neo4j client", zap.Error(err))
	}
	defer neo4jClient.Close(context.Background())

	milvusClient, err := milvus.NewClient(
		cfg.Milvus.Endpoint,
		cfg.Milvus.APIKey,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
	}
	defer milvusClient.Close()

	err = milvusClient.EnsureCollection(context.Background())
	if err != nil {
		appLogger.Fatal("Failed to ensure collection", zap.Error(err))
	}

	redisClient, err := cacheredis.NewClient(
		fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
	)

	lexicon := gap.NewLexicon(cfg.Vendors.Known)

	retrievalClient := retrieval.NewClient(milvusClient, neo4jClient, llmClient, lexicon)

	scorer := coverage.NewScorer(coverage.ScorerConfig{
		Weights: coverage.Weights{
			Similarity: cfg.Routing.Weights.Similarity,
			Count:      cfg.Routing.Weights.Count,
			Quality:    cfg.Routing.Weights.Quality,
			Breadth:    cfg.Routing.Weights.Breadth,
		},
		TopK: cfg.Routing.TopK,
	})

	evaluator := coverage.NewEvaluator(retrievalClient, scorer, lexicon, coverage.EvaluatorConfig{
		Thresholds: coverage.Thresholds{
			Strong:   cfg.Routing.StrongThreshold,
			Moderate: cfg.Routing.ModerateThreshold,
			Thin:     cfg.Routing.ThinThreshold,
		},
		TopK:             cfg.Routing.TopK,
		RetrievalTimeout: cfg.Routing.RetrievalTimeoutDuration(),
	})

	detector := gap.NewDetector(lexicon, sqliteClient, cfg.Gaps.FaultCodeBonus)

	registry, err := handler.NewRegistry(handler.NewGenericHandler(llmClient))
	if err != nil {
		appLogger.Fatal("Failed to create handler registry", zap.Error(err))
	}
	for vendor := range cfg.Vendors.Known {
		registry.Register(vendor, handler.NewSpecialistHandler(llmClient, vendor))
	}

	dispatcher := handler.NewDispatcher(registry, cfg.Routing.HandlerTimeoutDuration())
	trigger := research.NewTrigger(redisClient, cfg.Research.QueueName)

	queryRouter := router.New(
		evaluator,
		detector,
		sqliteClient,
		redisClient,
		trigger,
		dispatcher,
		sqliteClient,
		router.Config{
			EnqueueSuppressionWindow: cfg.Gaps.EnqueueSuppressionWindow(),
		},
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 60,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Technician-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	queryHandler := handlers.NewQueryHandler(
		queryRouter,
		redisClient,
		time.Duration(cfg.Routing.CacheTTLSec)*time.Second,
	)
	gapsHandler := handlers.NewGapsHandler(sqliteClient)
	wsHandler := handlers.NewWebSocketHandler(queryRouter, 60*time.Second)

	api := app.Group("/api/v1")

	api.Post("/ask", queryHandler.Ask)

	api.Get("/gaps", gapsHandler.List)
	api.Get("/gaps/:id", gapsHandler.Get)
	api.Post("/gaps/:id/resolve", gapsHandler.Resolve)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/ask", websocket.New(wsHandler.Handle))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
