package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ashmere/reverie/internal/api"
	"github.com/ashmere/reverie/internal/chat"
	"github.com/ashmere/reverie/internal/concepts"
	"github.com/ashmere/reverie/internal/config"
	"github.com/ashmere/reverie/internal/kv"
	"github.com/ashmere/reverie/internal/memory"
	"github.com/ashmere/reverie/internal/provider"
	pgstore "github.com/ashmere/reverie/internal/store"
)

const defaultDebounce = 2 * time.Second

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting Reverie...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/reverie.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Snapshot store for the association graph. Without Redis the graph
	// still works, it just forgets its associations on restart.
	var graphStore kv.Store
	var redisStore *kv.RedisStore
	if cfg.Database.Redis.URL != "" {
		rs, rErr := kv.NewRedisStore(cfg.Database.Redis.URL, logger)
		if rErr != nil {
			logger.Warn("Redis unavailable, graph snapshots held in memory only", zap.Error(rErr))
			graphStore = kv.NewMapStore()
		} else {
			redisStore = rs
			graphStore = rs
		}
	} else {
		logger.Info("no Redis configured, graph snapshots held in memory only")
		graphStore = kv.NewMapStore()
	}

	window := defaultDebounce
	if cfg.Recall.DebounceMillis > 0 {
		window = time.Duration(cfg.Recall.DebounceMillis) * time.Millisecond
	}
	graph := memory.NewGraph(graphStore, window, logger)
	graph.Load(context.Background())
	engine := memory.NewEngine(graph)

	// PostgreSQL atom log
	var pgStore *pgstore.Store
	if cfg.Database.Postgres.DSN != "" {
		ps, pgErr := pgstore.New(cfg.Database.Postgres.DSN, logger)
		if pgErr != nil {
			logger.Warn("PostgreSQL unavailable, running without persistence", zap.Error(pgErr))
		} else {
			if mErr := ps.Migrate(context.Background(), "migrations"); mErr != nil {
				logger.Fatal("migration failed", zap.Error(mErr))
			}
			pgStore = ps
		}
	}

	// Concept extractor
	var extractor concepts.Extractor
	extractorCfg := concepts.Config{
		Provider:    cfg.Extractor.Provider,
		Endpoint:    cfg.Extractor.Endpoint,
		Model:       cfg.Extractor.Model,
		APIKey:      cfg.Extractor.APIKey,
		MaxConcepts: cfg.Extractor.MaxConcepts,
	}
	switch cfg.Extractor.Provider {
	case "api":
		extractor = concepts.NewAPIExtractor(extractorCfg)
		logger.Info("using API concept extractor", zap.String("endpoint", cfg.Extractor.Endpoint))
	default:
		extractor = concepts.NewLocalExtractor(extractorCfg)
		logger.Info("using local concept extractor")
	}

	// Model provider
	llm := provider.NewOpenAIProvider(provider.Config{
		ID:       cfg.Provider.ID,
		Name:     cfg.Provider.Name,
		Endpoint: cfg.Provider.Endpoint,
		APIKey:   cfg.Provider.APIKey,
		Model:    cfg.Provider.Model,
	}, logger)

	svc := chat.NewService(extractor, llm, engine, graph, pgStore, logger)
	handler := api.NewHandler(svc, graph, logger)

	// Start server
	port := fmt.Sprintf("%d", cfg.Server.Port)
	if port == "0" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("Reverie listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Reverie...")
	srv.Shutdown(context.Background())
	graph.Close()
	if redisStore != nil {
		redisStore.Close()
	}
	if pgStore != nil {
		pgStore.Close()
	}
}
