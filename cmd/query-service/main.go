// cmd/query-service/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/JourneytoNewland/chatBI-sub000/internal/common/config"
	"github.com/JourneytoNewland/chatBI-sub000/internal/common/database"
	"github.com/JourneytoNewland/chatBI-sub000/internal/common/logger"
	"github.com/JourneytoNewland/chatBI-sub000/internal/common/observability"
	"github.com/JourneytoNewland/chatBI-sub000/internal/conversation"
	"github.com/JourneytoNewland/chatBI-sub000/internal/engine"
	"github.com/JourneytoNewland/chatBI-sub000/internal/intent"
	"github.com/JourneytoNewland/chatBI-sub000/internal/recognition"
	"github.com/JourneytoNewland/chatBI-sub000/internal/sqlgen"
	"github.com/JourneytoNewland/chatBI-sub000/pkg/registry"

	cms "github.com/JourneytoNewland/chatBI-sub000/internal/workers/bi/compile-metric-sql"
	emq "github.com/JourneytoNewland/chatBI-sub000/internal/workers/bi/execute-metric-query"
	rqi "github.com/JourneytoNewland/chatBI-sub000/internal/workers/bi/recognize-query-intent"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting query service...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("query-service")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry (optional) ---
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			// Test the connection
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init Redis with retry (optional) ---
	var redisClient *database.RedisClient
	if cfg.Database.Redis.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			// Test the connection with context
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Load Subject Catalog ---
	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("subject catalog load failed", zap.Error(err))
	}
	zapLog.Info("Subject catalog loaded",
		zap.String("path", cfg.Registry.Path),
		zap.String("version", reg.Version()),
		zap.Int("subjects", len(reg.Subjects())),
	)

	// --- Build Recognition Pipeline ---
	var searcher recognition.SemanticSearcher
	switch {
	case cfg.Services.VectorSearch.Enabled:
		searcher = recognition.NewHTTPSearcher(recognition.HTTPSearcherConfig{
			BaseURL:    cfg.Services.VectorSearch.BaseURL,
			Timeout:    config.GetDuration(cfg.Services.VectorSearch.Timeout),
			MaxRetries: cfg.Services.VectorSearch.MaxRetries,
		})
		zapLog.Info("Semantic tier: vector search service", zap.String("baseURL", cfg.Services.VectorSearch.BaseURL))
	case esClient != nil:
		searcher = recognition.NewElasticSearcher(esClient.Client, cfg.Database.Elasticsearch.Index)
		zapLog.Info("Semantic tier: elasticsearch", zap.String("index", cfg.Database.Elasticsearch.Index))
	default:
		searcher = recognition.NewRegistrySearcher(reg)
		zapLog.Info("Semantic tier: in-process catalog matching")
	}

	var inferrer recognition.GenerativeInferrer
	if cfg.Services.Reasoning.Enabled {
		inferrer = recognition.NewHTTPInferrer(recognition.HTTPInferrerConfig{
			BaseURL:    cfg.Services.Reasoning.BaseURL,
			APIKey:     cfg.Services.Reasoning.APIKey,
			Model:      cfg.Services.Reasoning.Model,
			Timeout:    config.GetDuration(cfg.Services.Reasoning.Timeout),
			MaxRetries: cfg.Services.Reasoning.MaxRetries,
		})
		zapLog.Info("Generative tier: reasoning service", zap.String("model", cfg.Services.Reasoning.Model))
	}

	orchestrator := recognition.NewOrchestrator(
		recognition.Config{
			RuleThreshold:     cfg.Recognition.RuleThreshold,
			SemanticThreshold: cfg.Recognition.SemanticThreshold,
			SemanticTimeout:   config.GetDuration(cfg.Recognition.SemanticTimeout),
			GenerativeTimeout: config.GetDuration(cfg.Recognition.GenerativeTimeout),
			TopK:              cfg.Recognition.TopK,
		},
		intent.NewRecognizer(),
		searcher,
		inferrer,
		recognition.NewPrometheusSink(),
		log,
	)

	compiler := sqlgen.NewCompiler(reg)
	eng := engine.New(pg.DB, compiler, log)

	// --- Conversation Store ---
	var store conversation.Store
	if redisClient != nil {
		store = conversation.NewRedisStore(redisClient.Client, time.Duration(cfg.Conversation.TTL)*time.Second)
		zapLog.Info("Conversation store: redis", zap.Int("ttl_s", cfg.Conversation.TTL))
	} else {
		store = conversation.NewMemoryStore()
		zapLog.Info("Conversation store: in-memory")
	}

	// --- Register Workers ---
	if cfg.Workers[rqi.TaskType].Enabled {
		handler := rqi.NewHandler(
			&rqi.Config{
				Timeout: config.GetDuration(cfg.Workers[rqi.TaskType].Timeout),
			},
			orchestrator, store, log,
		)
		startWorker(zeebeClient, rqi.TaskType, cfg.Workers[rqi.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[cms.TaskType].Enabled {
		handler := cms.NewHandler(
			&cms.Config{
				Timeout: config.GetDuration(cfg.Workers[cms.TaskType].Timeout),
			},
			compiler, log,
		)
		startWorker(zeebeClient, cms.TaskType, cfg.Workers[cms.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[emq.TaskType].Enabled {
		handler := emq.NewHandler(
			&emq.Config{
				Timeout: config.GetDuration(cfg.Workers[emq.TaskType].Timeout),
				MaxRows: 1000,
			},
			eng, log,
		)
		startWorker(zeebeClient, emq.TaskType, cfg.Workers[emq.TaskType], handler.Handle, zapLog)
	}

	zapLog.Info("All workers registered successfully")

	// --- Health & Metrics Server ---
	if cfg.Metrics.Enabled {
		go func() {
			http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "healthy",
					"time":   time.Now().Format(time.RFC3339),
				})
			})
			http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "ready",
					"time":   time.Now().Format(time.RFC3339),
				})
			})
			http.Handle("/metrics", promhttp.Handler())
			zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
			if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
				zapLog.Error("Health/Metrics server failed", zap.Error(err))
			}
		}()
	}

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Query service stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
}
