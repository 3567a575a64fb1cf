package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/wingerb7/findly-sub001/internal/cache"
	"github.com/wingerb7/findly-sub001/internal/config"
	"github.com/wingerb7/findly-sub001/internal/handler"
	"github.com/wingerb7/findly-sub001/internal/logger"
	"github.com/wingerb7/findly-sub001/internal/middleware"
	"github.com/wingerb7/findly-sub001/internal/price"
	"github.com/wingerb7/findly-sub001/internal/repository"
	"github.com/wingerb7/findly-sub001/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Print version info
	log.Printf("Findly Product Search")
	log.Printf("Version: %s", Version)
	log.Printf("Build Time: %s", BuildTime)
	log.Printf("Git Commit: %s", GitCommit)
	log.Println("")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	sugar := zapLogger.Sugar()

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Initialize database connection
	repo, err := repository.NewPostgresRepository(
		cfg.GetPostgreSQLDSN(),
		cfg.PostgreSQL.MaxConnections,
		cfg.PostgreSQL.MaxIdleConnections,
	)
	if err != nil {
		sugar.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	sugar.Info("✅ Connected to PostgreSQL database")

	// Initialize response cache
	var responseCache *cache.Cache
	if cfg.Redis.Enabled {
		c, err := cache.New(
			cfg.Redis.Addr,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.CacheTTL)*time.Second,
			sugar,
		)
		if err != nil {
			sugar.Warnf("⚠️  Redis unavailable, response caching disabled: %v", err)
		} else {
			responseCache = c
			defer responseCache.Close()
			sugar.Infof("✅ Connected to Redis at %s", cfg.Redis.Addr)
		}
	}

	// Initialize OpenAI client
	var aiClient service.AIClient
	var estimator price.Estimator
	if cfg.OpenAI.Enabled {
		client := service.NewOpenAIClient(&cfg.OpenAI, &cfg.Price, sugar)
		client.SetStatsSource(repo)
		aiClient = client
		if cfg.Price.EstimationEnabled {
			estimator = client
		}
		sugar.Info("✅ OpenAI client initialized")
		sugar.Infof("   - API Base: %s", cfg.OpenAI.APIBase)
		sugar.Infof("   - Chat model: %s", cfg.OpenAI.ChatModel)
		sugar.Infof("   - Embedding model: %s (%d dims)", cfg.OpenAI.EmbeddingModel, cfg.OpenAI.EmbeddingDimensions)
		sugar.Infof("   - Price estimation: %v", cfg.Price.EstimationEnabled)
	} else {
		sugar.Warn("⚠️  OpenAI is disabled - semantic search and price estimation will not work")
		sugar.Warn("   Set OPENAI_API_KEY environment variable to enable AI features")
	}

	// Initialize price intent components
	keywords, err := price.LoadKeywords(cfg.Price.KeywordsFile)
	if err != nil {
		sugar.Fatalf("Failed to load price keywords: %v", err)
	}
	rules, err := price.NewRuleTable(keywords)
	if err != nil {
		sugar.Fatalf("Failed to build price rules: %v", err)
	}
	classifier, err := price.NewClassifier(keywords)
	if err != nil {
		sugar.Fatalf("Failed to build context classifier: %v", err)
	}
	fallback, err := price.NewFallbackMatcher(keywords)
	if err != nil {
		sugar.Fatalf("Failed to build fallback matcher: %v", err)
	}
	resolver, err := price.NewResolver(price.ResolverConfig{
		Rules:        rules,
		Classifier:   classifier,
		Fallback:     fallback,
		Estimator:    estimator,
		MemoCapacity: cfg.Price.MemoCapacity,
		Logger:       sugar,
	})
	if err != nil {
		sugar.Fatalf("Failed to build price resolver: %v", err)
	}

	// Initialize services
	ranker := service.NewRanker(
		cfg.Ranking.WeightText,
		cfg.Ranking.WeightPrice,
		cfg.Ranking.WeightRecency,
	)
	searchService, err := service.NewSearchService(service.SearchServiceConfig{
		Repo:     repo,
		Resolver: resolver,
		Cleaner:  price.NewCleaner(rules),
		Ranker:   ranker,
		AI:       aiClient,
		Cache:    responseCache,
		Search:   &cfg.Search,
		Logger:   sugar,
	})
	if err != nil {
		sugar.Fatalf("Failed to initialize search service: %v", err)
	}

	sugar.Info("✅ Services initialized")

	// Initialize handlers
	searchHandler := handler.NewSearchHandler(searchService)
	intentHandler := handler.NewPriceIntentHandler(searchService)
	feedbackHandler := handler.NewFeedbackHandler(searchService)
	embeddingHandler := handler.NewEmbeddingHandler(searchService, cfg.OpenAI.EmbeddingDimensions)

	// Setup Gin router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.Server.AllowedOrigins, ",")
	corsConfig.AllowMethods = strings.Split(cfg.Server.AllowedMethods, ",")
	corsConfig.AllowHeaders = strings.Split(cfg.Server.AllowedHeaders, ",")
	router.Use(cors.New(corsConfig))

	// Health check endpoint. Database failure makes the service
	// unavailable; a missing cache only degrades it.
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := "healthy"
		code := http.StatusOK
		components := gin.H{"database": "up"}
		if err := repo.Ping(ctx); err != nil {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
			components["database"] = "down"
		}
		if responseCache != nil {
			components["redis"] = "up"
			if err := responseCache.Client().Ping(ctx).Err(); err != nil {
				if status == "healthy" {
					status = "degraded"
				}
				components["redis"] = "down"
			}
		}
		c.JSON(code, gin.H{
			"status":     status,
			"service":    "findly-search",
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
			"components": components,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	apiV1 := router.Group("/api/v1")
	if cfg.RateLimit.Enabled && responseCache != nil {
		limiter := middleware.NewRateLimiter(
			responseCache.Client(),
			cfg.RateLimit.MaxRequests,
			cfg.RateLimit.Window,
			sugar,
		)
		apiV1.Use(limiter.Middleware())
		sugar.Infof("✅ Rate limiting enabled: %d requests per %ds", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	}
	{
		// Search endpoints
		apiV1.POST("/search", searchHandler.Search)
		apiV1.POST("/search/stream", searchHandler.SearchStream) // Streaming search
		apiV1.GET("/products/:id", searchHandler.GetProduct)

		// Price intent endpoint
		apiV1.POST("/price-intent", intentHandler.Resolve)

		// Embedding endpoints
		apiV1.POST("/embeddings/batch", embeddingHandler.BatchUpdate)

		// Feedback endpoint
		apiV1.POST("/feedback", feedbackHandler.Submit)
	}

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sugar.Infof("🚀 Starting server on %s", addr)
	sugar.Infof("📝 API base: http://localhost:%d/api/v1", cfg.Server.Port)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorf("Forced shutdown: %v", err)
	}

	sugar.Info("✅ Server stopped")
}
