package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/smarttask/backend/api/handler"
	"github.com/smarttask/backend/internal/config"
	"github.com/smarttask/backend/internal/infrastructure/buffer"
	"github.com/smarttask/backend/internal/infrastructure/monitor"
	pgInfra "github.com/smarttask/backend/internal/infrastructure/postgres"
	redisInfra "github.com/smarttask/backend/internal/infrastructure/redis"
	"github.com/smarttask/backend/internal/llm"
	"github.com/smarttask/backend/internal/middleware"
	"github.com/smarttask/backend/internal/router"
	"github.com/smarttask/backend/internal/services"
	"github.com/smarttask/backend/internal/services/lifecycle"
	"github.com/smarttask/backend/pkg/httpcontext"
	"github.com/smarttask/backend/pkg/logger"
	"github.com/smarttask/backend/repository/postgres"
	redisRepo "github.com/smarttask/backend/repository/redis"
	authUC "github.com/smarttask/backend/usecase/auth"
	"github.com/smarttask/backend/usecase/extract"
	taskUC "github.com/smarttask/backend/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	bufferStore, err := buffer.Open(cfg.Buffer.Path, "pending")
	if err != nil {
		zapLogger.Fatal("failed to open buffer store", zap.Error(err))
	}
	manager.Register("buffer", func(ctx context.Context) error {
		return bufferStore.Close()
	})

	mon := monitor.New(pool, redisClient, bufferStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	userRepo := postgres.NewUserRepository(pool)
	taskRepo := postgres.NewTaskRepository(pool)
	sessionRepo := redisRepo.NewSessionRepository(redisClient, cfg.Auth.SessionTTL)

	replayer := services.NewTaskReplayer(
		bufferStore,
		mon,
		taskRepo,
		zapLogger,
		services.ReplayConfig{
			Interval:   cfg.Buffer.SyncInterval,
			BatchSize:  50,
			MaxRetries: cfg.Buffer.MaxRetry,
		},
	)
	replayer.Start()
	manager.Register("task_replayer", func(ctx context.Context) error {
		replayer.Stop(ctx)
		return nil
	})

	bufferBridge := services.NewBufferBridge(replayer)

	modelClient := llm.New(llm.Config{
		APIKey:     cfg.Model.APIKey,
		Model:      cfg.Model.Name,
		BaseURL:    cfg.Model.BaseURL,
		Timeout:    cfg.Model.Timeout,
		MaxRetries: cfg.Model.MaxRetries,
	}, zapLogger)

	pipeline := extract.New(modelClient, cfg.Model.Timeout, zapLogger)

	authUseCase := authUC.New(userRepo, sessionRepo, authUC.Config{
		JWTSecret:  cfg.Auth.JWTSecret,
		JWTIssuer:  cfg.Auth.JWTIssuer,
		SessionTTL: cfg.Auth.SessionTTL,
	}, zapLogger)
	taskUseCase := taskUC.New(taskRepo, pipeline, bufferBridge, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:   apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger),
		Task:   apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.Auth(cfg.Auth.JWTSecret, authUseCase, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
