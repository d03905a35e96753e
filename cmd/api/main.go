package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/kp-analyzer/backend/internal/application"
	appanalysis "github.com/kp-analyzer/backend/internal/application/analysis"
	"github.com/kp-analyzer/backend/internal/config"
	domain "github.com/kp-analyzer/backend/internal/domain/analysis"
	"github.com/kp-analyzer/backend/internal/domain/documents"
	aiopenai "github.com/kp-analyzer/backend/internal/infra/ai/openai"
	mysqlp "github.com/kp-analyzer/backend/internal/infra/db/mysql"
	postgresp "github.com/kp-analyzer/backend/internal/infra/db/postgres"
	"github.com/kp-analyzer/backend/internal/infra/httpserver"
	progressStore "github.com/kp-analyzer/backend/internal/infra/progress"
	minioStore "github.com/kp-analyzer/backend/internal/infra/storage"
	"github.com/kp-analyzer/backend/internal/logger"
	"github.com/kp-analyzer/backend/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zlog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zlog.Sync()

	ctx := context.Background()

	// connect database, driver picks the repo flavour
	var (
		runs     domain.Repository
		docs     documents.Repository
		dbHealth middleware.HealthChecker
	)
	switch cfg.Database.Driver {
	case "postgres":
		pg, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			zlog.Fatal("postgres connect error", zap.Error(err))
		}
		defer pg.Close()
		runs = postgresp.NewRunRepository(pg)
		docs = postgresp.NewDocumentRepository(pg)
		dbHealth = &middleware.DatabaseHealthChecker{DB: pg}
	default:
		my, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			zlog.Fatal("mysql connect error", zap.Error(err))
		}
		defer my.Close()
		runs = mysqlp.NewRunRepository(my)
		docs = mysqlp.NewDocumentRepository(my)
		dbHealth = &middleware.DatabaseHealthChecker{DB: my}
	}

	// init minio
	files, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		zlog.Fatal("minio init error", zap.Error(err))
	}

	// init redis progress store
	progress, err := progressStore.New(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		zlog.Fatal("redis init error", zap.Error(err))
	}
	defer progress.Close()

	// init openai comparer
	comparer := aiopenai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)

	// init service
	svc := &appanalysis.Service{
		Runs:         runs,
		Docs:         docs,
		Files:        files,
		AI:           comparer,
		Progress:     progress,
		Sim:          domain.NewSimulator(),
		Clock:        application.SystemClock{},
		Log:          zlog,
		HistoryLimit: cfg.History.Limit,
	}

	// init router
	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))
	mux.Use(middleware.LoggingMiddleware(zlog))
	mux.Use(middleware.MetricsMiddleware)
	if cfg.RateLimit.Capacity > 0 {
		mux.Use(middleware.RateLimitMiddleware(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate))
	}
	if len(cfg.Auth.APIKeys) > 0 {
		mux.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	}

	mux.Get("/health", middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database": dbHealth,
		"redis":    &middleware.PingHealthChecker{Target: progress},
	}))
	mux.Get("/health/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)
	mux.Mount("/", httpserver.NewRouter(svc, zlog))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		zlog.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	zlog.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		zlog.Warn("shutdown error", zap.Error(err))
	}
}
