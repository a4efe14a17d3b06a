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
	"go.uber.org/zap"

	"alfredoptarigan/underwriting-intake/internal/config"
	"alfredoptarigan/underwriting-intake/internal/handlers"
	"alfredoptarigan/underwriting-intake/internal/logger"
	"alfredoptarigan/underwriting-intake/internal/metrics"
	"alfredoptarigan/underwriting-intake/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log := logger.Must(cfg.Server.LogDebug)
	defer func() { _ = log.Sync() }()
	log.Info("✅ Config loaded successfully", zap.String("env", cfg.Server.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize repositories
	repos, err := config.InitRepositories(cfg, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize repositories", zap.Error(err))
	}
	repos.StartJanitor(ctx, cfg.Store.SweepInterval, log)
	log.Info("✅ Repositories initialized successfully", zap.String("driver", cfg.Store.Driver))

	// Load question catalog and condition dictionary
	catalog, err := services.LoadQuestionCatalog(cfg.Catalog.QuestionsPath)
	if err != nil {
		log.Fatal("❌ Failed to load question catalog", zap.Error(err))
	}
	dict, err := services.LoadConditionDictionary(cfg.Catalog.DictionaryPath)
	if err != nil {
		log.Fatal("❌ Failed to load condition dictionary", zap.Error(err))
	}
	log.Info("✅ Catalog loaded",
		zap.Int("questions", catalog.Len()),
		zap.Int("conditions", len(dict.Entries())),
	)

	// Initialize storage
	storageService := services.NewStorageService(cfg.Storage.UploadPath, cfg.Storage.MaxFileSize)
	if err := storageService.EnsureUploadDir(); err != nil {
		log.Fatal("❌ Failed to create upload directory", zap.Error(err))
	}

	// Initialize AI providers
	var gemini services.GeminiService
	if cfg.Gemini.APIKey != "" {
		gemini, err = services.NewGeminiService(cfg.Gemini, cfg.Extraction.MaxTextChars, log)
		if err != nil {
			log.Fatal("❌ Failed to initialize Gemini AI", zap.Error(err))
		}
		log.Info("✅ Gemini AI initialized successfully", zap.String("model", cfg.Gemini.Model))
	}

	extractor := selectExtractor(cfg, gemini, log)
	semantic := initSemanticMatcher(ctx, cfg, gemini, log)

	var transcriber services.ImageTranscriber
	if gemini != nil {
		transcriber = gemini
	}

	// Initialize extraction pipeline
	pipeline := services.NewExtractionPipeline(
		services.NewDocumentTextExtractor(transcriber),
		extractor,
		dict,
		services.NewConditionMatcher(dict, semantic, log),
		services.PipelineOptions{
			FallbackText: cfg.Extraction.FallbackText,
			MaxTextChars: cfg.Extraction.MaxTextChars,
			RateLimit:    cfg.Extraction.RateLimit,
			RateBurst:    cfg.Extraction.RateBurst,
		},
		log,
	)
	log.Info("✅ Services initialized successfully")

	coordinator := services.NewIntakeCoordinator(
		repos,
		storageService,
		pipeline,
		catalog,
		dict,
		services.IntakeOptions{
			ExtractionTimeout: cfg.Extraction.Timeout,
			PollInterval:      cfg.Extraction.PollInterval,
			PollAttempts:      cfg.Extraction.PollAttempts,
		},
		log,
	)

	// Initialize worker
	worker := services.NewWorker(
		repos.Files,
		coordinator,
		cfg.Worker.Concurrency,
		cfg.Worker.QueueSize,
		cfg.Worker.RescanInterval,
		log,
	)
	coordinator.SetQueue(worker)
	worker.Start(ctx)
	log.Info("✅ Worker started successfully", zap.Int("concurrency", cfg.Worker.Concurrency))

	orchestrator := services.NewSessionOrchestrator(
		repos.Sessions,
		repos.Transcripts,
		catalog,
		services.NewDecisionEngine(),
		coordinator,
		log,
	)

	// Initialize Handlers
	routes := handlers.Handlers{
		Sessions:   handlers.NewSessionHandler(orchestrator, repos.Idempotency, log),
		Intake:     handlers.NewIntakeHandler(coordinator),
		Dictionary: handlers.NewDictionaryHandler(dict),
	}
	log.Info("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Underwriting Intake API",
		Immutable:    true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Extraction.PollCeiling() + 30*time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize) + 1024*1024,
		ErrorHandler: handlers.ErrorHandler(log),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key, X-Session-Id",
	}))
	app.Use(metrics.Middleware())

	handlers.RegisterRoutes(app, routes)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("🛑 Shutting down server...")
		worker.Stop()
		cancel()
		if err := app.Shutdown(); err != nil {
			log.Error("❌ Server forced to shutdown", zap.Error(err))
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("🚀 Server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		log.Fatal("❌ Failed to start server", zap.Error(err))
	}
}

// selectExtractor resolves EXTRACTION_PROVIDER. A nil result means the
// pipeline uses keyword matching only.
func selectExtractor(cfg *config.Config, gemini services.GeminiService, log *zap.Logger) services.ConditionExtractor {
	openAIReady := cfg.OpenAI.APIKey != ""

	switch cfg.Extraction.Provider {
	case "keyword":
		log.Info("✅ Using keyword condition extraction")
		return nil
	case "gemini":
		if gemini == nil {
			log.Warn("GEMINI_API_KEY not set, using keyword extraction")
			return nil
		}
		return gemini
	case "openai":
		if !openAIReady {
			log.Warn("OPENAI_API_KEY not set, using keyword extraction")
			return nil
		}
		log.Info("✅ OpenAI initialized successfully", zap.String("model", cfg.OpenAI.Model))
		return services.NewOpenAIConditionExtractor(cfg.OpenAI, cfg.Extraction.MaxTextChars, log)
	default:
		if gemini != nil {
			return gemini
		}
		if openAIReady {
			log.Info("✅ OpenAI initialized successfully", zap.String("model", cfg.OpenAI.Model))
			return services.NewOpenAIConditionExtractor(cfg.OpenAI, cfg.Extraction.MaxTextChars, log)
		}
		log.Info("No AI provider configured, using keyword extraction")
		return nil
	}
}

// initSemanticMatcher enables vector lookup of unmatched terms when both
// Qdrant and an embedder are available.
func initSemanticMatcher(ctx context.Context, cfg *config.Config, gemini services.GeminiService, log *zap.Logger) services.SemanticMatcher {
	if cfg.Qdrant.URL == "" || gemini == nil {
		return nil
	}

	qdrantService, err := services.NewQdrantService(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
		log,
	)
	if err != nil {
		log.Warn("Qdrant unavailable, semantic matching disabled", zap.Error(err))
		return nil
	}

	if err := qdrantService.InitCollection(ctx); err != nil {
		log.Warn("Failed to initialize Qdrant collection, semantic matching disabled", zap.Error(err))
		return nil
	}
	log.Info("✅ Qdrant initialized successfully", zap.String("collection", cfg.Qdrant.Collection))

	return services.NewSemanticMatcher(gemini, qdrantService, cfg.Qdrant.MinScore)
}
