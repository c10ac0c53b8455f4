package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"fragrance-sync-layer/internal/application"
	"fragrance-sync-layer/internal/config"
	"fragrance-sync-layer/internal/infrastructure/ai"
	"fragrance-sync-layer/internal/infrastructure/airtable"
	apiinfra "fragrance-sync-layer/internal/infrastructure/api"
	"fragrance-sync-layer/internal/infrastructure/cache"
	"fragrance-sync-layer/internal/infrastructure/metrics"
	"fragrance-sync-layer/internal/infrastructure/repository"
	shopifyinfra "fragrance-sync-layer/internal/infrastructure/shopify"
	"fragrance-sync-layer/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultChatModel = "gpt-4o-mini"

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mtr := metrics.New(registry)

	// Sync log repository: MongoDB when configured, otherwise discard.
	var repo ports.SyncLogRepository = repository.NewNoopSyncLogRepository()
	if cfg.MongoURI != "" {
		client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer client.Disconnect(context.Background())
		repo = repository.NewMongoSyncLogRepository(client.Database(cfg.MongoDatabase))
		logger.Info().Str("database", cfg.MongoDatabase).Msg("Sync log persistence enabled")
	}

	// Optional shared topology cache backing.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis topology cache enabled")
	}

	// External platform clients.
	commerce, err := shopifyinfra.NewClientWithOptions(
		cfg.Shopify,
		nil,
		shopifyinfra.DefaultRetryConfig(),
		mtr.CommerceObserver(),
		logger,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create commerce client")
	}
	inventory := airtable.NewClient(cfg.Airtable, nil, logger)

	topology, err := cache.NewTopologyCache(commerce, rdb, cfg.TopologyTTL, cfg.Shopify.LocationID, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid location override")
	}

	researcher := ai.NewPerplexityClient(cfg.PerplexityKey, logger)
	chatModel := ai.NewOpenAIClient(cfg.OpenAIKey, defaultChatModel, logger)

	// Application services.
	syncService := application.NewSyncService(inventory, commerce, topology, repo, mtr, logger)
	copyService := application.NewCopyService(researcher, chatModel, mtr, logger)

	handler := apiinfra.NewHandler(syncService, copyService, topology, repo, cfg.WebhookSecret, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Post("/generate", handler.Generate)
	r.Post("/create-shopify-item", handler.CreateProduct)
	r.Post("/airtable-webhook", handler.Webhook)

	r.Route("/admin", func(r chi.Router) {
		r.Use(handler.RequireSecret)
		r.Post("/cache/refresh", handler.RefreshTopology)
		r.Get("/sync-reports", handler.RecentRuns)
	})

	logger.Info().Str("port", cfg.Port).Msg("Starting API server")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}
