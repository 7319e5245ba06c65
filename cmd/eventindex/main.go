package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/madlife/eventindex/internal/config"
	"github.com/madlife/eventindex/internal/domain"
	"github.com/madlife/eventindex/internal/loader"
	logpkg "github.com/madlife/eventindex/internal/logger"
	"github.com/madlife/eventindex/internal/metrics"
	"github.com/madlife/eventindex/internal/repository/embcache"
	"github.com/madlife/eventindex/internal/repository/index"
	chiTransport "github.com/madlife/eventindex/internal/transport/chi"
	openaiEmb "github.com/madlife/eventindex/internal/transport/openai"
	collectionuc "github.com/madlife/eventindex/internal/usecase/collection"
	embeddinguc "github.com/madlife/eventindex/internal/usecase/embedding"
	ingestuc "github.com/madlife/eventindex/internal/usecase/ingest"
	searchuc "github.com/madlife/eventindex/internal/usecase/search"
	"github.com/madlife/eventindex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting eventindex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_path", cfg.Index.Path),
		zap.String("collection", cfg.Index.Collection),
	)

	// Open the vector index store
	store, err := index.Open(cfg.Index.Path, cfg.Index.Collection)
	if err != nil {
		logger.Fatal("Failed to open index store", zap.Error(err))
	}
	defer store.Close()

	// Register embedding metrics explicitly (no init())
	metrics.Register()

	// Build embedder chain — composition root
	embedder, health := buildEmbedder(cfg.Embedding, store, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Create use case services
	ingestSvc := ingestuc.New(store, embedder, logger).
		WithBatchSize(cfg.Index.BatchSize)
	searchSvc := searchuc.New(store, embedder, logger).
		WithTopKBounds(cfg.Index.DefaultTopK, cfg.Index.MaxTopK)
	collSvc := collectionuc.New(store, cfg.Embedding.Model, logger)

	ctx := context.Background()

	// Optional startup ingestion from the catalog CSV
	if cfg.Dataset.Path != "" {
		if err := ingestDataset(ctx, cfg.Dataset.Path, ingestSvc, logger); err != nil {
			logger.Fatal("Startup ingestion failed", zap.Error(err))
		}
	}

	// Create chi server
	server := chiTransport.NewServer(searchSvc, collSvc, health, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	r.Handle("/metrics", promhttp.Handler())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
// The base provider doubles as the health checker; the decorators do not
// forward HealthCheck.
func buildEmbedder(cfg config.EmbeddingConfig, store *index.Store, logger *zap.Logger) (*embeddinguc.InstrumentedEmbedder, domain.HealthChecker) {
	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, cfg.Model, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (metrics + logging, chunks large batches)
	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger), base
}

// ingestDataset loads the catalog CSV and indexes every event with a
// non-empty composed text. Re-running over the same file is safe: rows
// are upserted by event ID.
func ingestDataset(ctx context.Context, path string, svc *ingestuc.Service, logger *zap.Logger) error {
	start := time.Now()

	records, err := loader.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load dataset %s: %w", path, err)
	}

	added, err := svc.AddEvents(ctx, records)
	if err != nil {
		return fmt.Errorf("index dataset: %w", err)
	}

	logger.Info("Dataset ingested",
		zap.String("path", path),
		zap.Int("rows", len(records)),
		zap.Int("indexed", added),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
