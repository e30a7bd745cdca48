package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/infra-agent/backend/internal/agent"
	"github.com/infra-agent/backend/internal/analysis"
	"github.com/infra-agent/backend/internal/api/handlers"
	"github.com/infra-agent/backend/internal/cache"
	"github.com/infra-agent/backend/internal/knowledge"
	"github.com/infra-agent/backend/internal/llm"
	"github.com/infra-agent/backend/internal/metrics"
	"github.com/infra-agent/backend/internal/middleware/ratelimit"
	"github.com/infra-agent/backend/internal/middleware/security"
	"github.com/infra-agent/backend/internal/middleware/validation"
	"github.com/infra-agent/backend/internal/planner"
	"github.com/infra-agent/backend/internal/plugin"
	"github.com/infra-agent/backend/internal/requirements"
	"github.com/infra-agent/backend/internal/session"
	"github.com/infra-agent/backend/internal/storage/sqlite"
	"github.com/infra-agent/backend/pkg/config"
	appLogger "github.com/infra-agent/backend/pkg/logger"
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
	log := appLogger.GetLogger()

	appLogger.Info("Starting infrastructure agent API server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	knowledgeStore, err := knowledge.NewStore(sqliteClient, log)
	if err != nil {
		appLogger.Fatal("Failed to load knowledge store", zap.Error(err))
	}
	importer := knowledge.NewImporter(knowledgeStore, log)

	registry := plugin.NewRegistry()
	registry.Register(plugin.NewTerraformPlugin())
	registry.Register(plugin.NewSecurityPlugin())
	registry.Register(plugin.NewCostPlugin())
	router := plugin.NewRouter(registry, log)

	sessionStore := session.NewStore(session.Config{
		MaxSessions:     cfg.Session.MaxSessions,
		Timeout:         time.Duration(cfg.Session.TimeoutMinutes) * time.Minute,
		CleanupInterval: time.Duration(cfg.Session.CleanupInterval) * time.Minute,
		HistorySize:     cfg.Session.HistorySize,
	}, log)
	sessionStore.Start()
	defer sessionStore.Stop()

	var replyCache *cache.ReplyCache
	if cfg.Redis.Enabled {
		replyCache = cache.New(context.Background(), cache.Config{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      time.Duration(cfg.Redis.ReplyTTL) * time.Second,
		}, log)
		defer replyCache.Close()
	}

	var llmClient *llm.Client
	if cfg.LLM.Enabled {
		llmClient = llm.NewClient(llm.Config{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		}, log)
	}

	catalog := requirements.NewCatalog(log)
	pipeline := agent.NewPipeline(agent.Deps{
		Analyzer:    analysis.NewAnalyzer(log),
		Knowledge:   knowledgeStore,
		Router:      router,
		Sessions:    sessionStore,
		Catalog:     catalog,
		Synthesizer: agent.NewSynthesizer(planner.New(llmClient, log), registry.Capabilities(), log),
		Cache:       replyCache,
		Transcripts: sqliteClient,
		MatchLimit:  cfg.Knowledge.MatchLimit,
		Logger:      log,
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-Session-ID",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	limiter := ratelimit.New(ratelimit.Config{Logger: log})
	defer limiter.Stop()

	chatHandler := handlers.NewChatHandler(pipeline, sqliteClient)
	requirementsHandler := handlers.NewRequirementsHandler(catalog, sessionStore)
	knowledgeHandler := handlers.NewKnowledgeHandler(knowledgeStore, importer)
	wsHandler := handlers.NewWebSocketHandler(pipeline)

	api := app.Group("/api/v1", limiter.Middleware(), validation.Middleware(validation.Config{Logger: log}))

	api.Post("/chat", chatHandler.HandleChat)
	api.Get("/chat/history", chatHandler.GetHistory)
	api.Delete("/session/:sessionID", chatHandler.ResetSession)

	api.Get("/requirements/:requestType", requirementsHandler.GetCatalog)
	api.Post("/requirements/answer", requirementsHandler.SubmitAnswer)

	api.Post("/knowledge/import", knowledgeHandler.ImportFromURL)
	api.Get("/knowledge/stats", knowledgeHandler.Stats)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ready",
			"patterns": knowledgeStore.Len(),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(wsHandler.HandleConnection))

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
