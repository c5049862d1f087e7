package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"taalcoach/internal/config"
	"taalcoach/internal/database"
	"taalcoach/internal/handlers"
	"taalcoach/internal/jobs"
	"taalcoach/internal/logging"
	"taalcoach/internal/middleware"
	"taalcoach/internal/services"
	"taalcoach/pkg/auth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting TaalCoach Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s)", cfg.Port)

	// MongoDB holds every learner document; the server cannot run without it.
	log.Println("🔗 Connecting to MongoDB...")
	mongoDB, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Close(context.Background())

	if err := mongoDB.Initialize(context.Background()); err != nil {
		log.Fatalf("❌ Failed to initialize MongoDB indexes: %v", err)
	}
	log.Println("✅ MongoDB connected successfully")

	// Redis backs the daily usage limiter; optional.
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		log.Println("🔗 Connecting to Redis...")
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (usage limiter disabled)", err)
			redisService = nil
		} else {
			defer redisService.Close()
		}
	} else {
		log.Println("⚠️ REDIS_URL not set - daily usage limiter disabled")
	}

	// Prometheus metrics
	services.InitMetrics()

	// Prompt templates (built-in defaults, optionally layered with a YAML file)
	prompts, err := config.LoadPrompts(cfg.PromptsFile)
	if err != nil {
		log.Fatalf("❌ Failed to load prompts: %v", err)
	}
	if cfg.PromptsFile != "" {
		log.Printf("✅ Prompt overrides loaded from %s", cfg.PromptsFile)
	}

	if cfg.LLMAPIKey == "" {
		log.Println("⚠️ LLM_API_KEY not set - language service calls will fail")
	}

	// Core services
	store := services.NewMongoDocumentStore(mongoDB)
	migrator := services.NewMigrationService()
	repo := services.NewLearnerRepository(store, migrator)
	ledger := services.NewDailyLedger(repo)
	languageService := services.NewLanguageService(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, prompts, cfg.LLMRequestsPerSecond)
	usageLimiter := services.NewUsageLimiter(redisService, cfg.DailyLLMLimit)
	questionService := services.NewQuestionService(repo, ledger, languageService, usageLimiter)
	log.Println("✅ Question lifecycle services initialized")

	// JWT verification for tokens minted by the identity frontend
	var jwtAuth *auth.LocalJWTAuth
	if cfg.JWTSecret != "" {
		jwtAuth, err = auth.NewLocalJWTAuth(cfg.JWTSecret, 0)
		if err != nil {
			log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
		}
		log.Println("✅ JWT authentication enabled")
	} else {
		log.Println("⚠️ JWT_SECRET not set - authentication disabled (development only)")
	}

	// Background jobs
	jobScheduler := jobs.NewJobScheduler()
	jobScheduler.Register("activity-rollup", jobs.NewActivityRollupJob(mongoDB))
	if err := jobScheduler.Start(); err != nil {
		log.Printf("⚠️ Failed to start job scheduler: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      "TaalCoach v1.0",
		ReadTimeout:  150 * time.Second, // language model completions can take up to two minutes
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  150 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // answers are short free text
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("taalcoach")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Auth=%d/min, Generate=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.AuthenticatedMax,
		rateLimitConfig.GenerateMax,
	)

	// Fiber's CORS middleware does not allow AllowCredentials with wildcard
	// origins; with a wildcard the frontend is same-origin anyway.
	allowCredentials := cfg.AllowedOrigins != "*"

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowCredentials,
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", cfg.AllowedOrigins)

	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))

	// Handlers
	healthHandler := handlers.NewHealthHandler(mongoDB, redisService)
	questionHandler := handlers.NewQuestionHandler(questionService)
	profileHandler := handlers.NewProfileHandler(repo)
	activityHandler := handlers.NewActivityHandler(repo)

	// Routes
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api", middleware.LocalAuthMiddleware(jwtAuth))
	api.Use(middleware.AuthenticatedRateLimiter(rateLimitConfig))

	api.Get("/profile", profileHandler.Get)
	api.Put("/profile/level", profileHandler.UpdateLevel)

	api.Get("/questions", questionHandler.List)
	api.Post("/questions/generate", middleware.GenerateRateLimiter(rateLimitConfig), questionHandler.Generate)
	api.Post("/questions/:id/answers", middleware.GenerateRateLimiter(rateLimitConfig), questionHandler.SubmitAnswer)
	api.Post("/questions/:id/context", middleware.GenerateRateLimiter(rateLimitConfig), questionHandler.Context)
	api.Post("/questions/:id/explanation", middleware.GenerateRateLimiter(rateLimitConfig), questionHandler.Explain)

	api.Get("/activity", activityHandler.List)
	api.Get("/activity/today", activityHandler.Today)

	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("🕐 Background jobs: activity rollup (daily 00:10 UTC)")

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		jobScheduler.Stop()

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
