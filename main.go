package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"examquiz/config"
	"examquiz/handlers"
	"examquiz/logger"
	"examquiz/middleware"
	"examquiz/observability"
	"examquiz/routes"
	"examquiz/services"
	"examquiz/templates"

	"github.com/gin-gonic/gin"
)

func main() {
	initDB := flag.Bool("init-db", false, "create the question table and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, *initDB)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "examquiz: %v\n", err)
		os.Exit(1)
	}
}

// run starts the server and blocks until ctx is cancelled. With initOnly it creates
// the question table and returns.
func run(ctx context.Context, initOnly bool) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	shutdownTracing, err := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: cfg.OtelServiceName,
		Environment: cfg.Env,
		Endpoint:    cfg.OtelEndpoint,
		SampleRatio: cfg.OtelSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("Tracing shutdown failed", "error", err)
		}
	}()

	questionService, closeDB, err := openQuestionStore(ctx, cfg, log)
	if err != nil {
		log.Error("Database setup failed", "driver", cfg.DBDriver, "error", err)
		return err
	}
	defer closeDB()
	if initOnly {
		log.Info("Database tables created successfully")
		return nil
	}

	tmpl, err := templates.Load(cfg.TemplateDir)
	if err != nil {
		log.Error("Failed to load templates", "dir", cfg.TemplateDir, "error", err)
		return fmt.Errorf("failed to load templates: %w", err)
	}

	routerCfg := routes.RouterConfig{
		Logger:          log,
		Templates:       tmpl,
		QuestionHandler: handlers.NewQuestionHandler(questionService, log),
	}
	if cfg.OtelEnabled {
		routerCfg.TracingService = cfg.OtelServiceName
	}
	if redisClient := config.InitRedis(cfg); redisClient != nil && cfg.RateLimitPerMinute > 0 {
		defer redisClient.Close()
		routerCfg.Limiter = middleware.NewRedisLimiter(redisClient, cfg.RateLimitPerMinute, time.Minute)
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.NewRouter(routerCfg)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	log.Info("Server starting", "addr", cfg.Addr(), "db_driver", cfg.DBDriver)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		}
		log.Info("Server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		log.Error("Server exited", "error", err)
		return fmt.Errorf("server exited: %w", err)
	}
}

// openQuestionStore connects to the configured database and makes sure the question
// table exists. The returned func closes the connection pool.
func openQuestionStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*services.QuestionService, func(), error) {
	db, err := config.InitDB(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	closeDB := func() { _ = sqlDB.Close() }

	questionService := services.NewQuestionService(db, log)
	if err := questionService.EnsureSchema(ctx); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("database table creation failed: %w", err)
	}
	return questionService, closeDB, nil
}
