package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"jar-translator/internal/cleanup"
	"jar-translator/internal/llm"
	"jar-translator/internal/llm/provider"
	"jar-translator/internal/queue"
	"jar-translator/internal/scheduler"
	"jar-translator/internal/shared/config"
	"jar-translator/internal/shared/server"
	"jar-translator/internal/shared/storage/db"
	"jar-translator/internal/shared/storage/object"
	localstore "jar-translator/internal/shared/storage/object/local"
	s3store "jar-translator/internal/shared/storage/object/s3"
	"jar-translator/internal/shared/telemetry"
	"jar-translator/internal/tasks"
	"jar-translator/internal/usage"
)

// App holds the wired dependencies of the API process.
type App struct {
	Config       config.Config
	Router       *gin.Engine
	DB           *sql.DB
	Store        object.ObjectStore
	Queue        *queue.Bounded
	UsageService *usage.Service
	TaskService  *tasks.Service
	TaskHandler  *tasks.Handler
	UsageHandler *usage.Handler
	Janitor      *cleanup.Janitor
}

// Build prepares shared dependencies and registers routes.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if strings.TrimSpace(cfg.ScratchDir) == "" {
		cfg.ScratchDir = os.TempDir()
	}
	if err := os.MkdirAll(cfg.ScratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("scratch dir: %w", err)
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queue.NewBounded(cfg.QueueMaxSize),
	}
	buildServices(app)

	if app.TaskHandler == nil || app.UsageHandler == nil {
		closeDB(sqlDB)
		return nil, errors.New("failed to initialize handlers")
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:       app.Config,
		TaskHandler:  app.TaskHandler,
		UsageHandler: app.UsageHandler,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"object_store": cfg.ObjectStoreType,
		"database":     sqlDB != nil,
		"queue_max":    app.Queue.Cap(),
		"review_mode":  cfg.ReviewMode,
	})
	return app, nil
}

// Close releases the database pool.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		telemetry.Info("bootstrap.db_disabled", map[string]any{"reason": "DATABASE_URL empty; statistics kept in memory"})
		return nil, nil
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
		if err != nil {
			sqlDB.Close()
			sqlDB = nil
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db_fallback", map[string]any{"error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(app *App) {
	cfg := app.Config

	var usageSvc *usage.Service
	if app.DB != nil {
		usageSvc = usage.NewPostgresService(usage.NewPGStore(app.DB))
	} else {
		usageSvc = usage.NewService()
	}

	taskSvc := &tasks.Service{
		Repo:          tasks.NewMemoryRepo(),
		Queue:         app.Queue,
		Store:         app.Store,
		NewTranslator: translatorFactory(cfg),
		Usage:         usageSvc,
		Scheduler: scheduler.Scheduler{
			BatchSize:    cfg.BatchSize,
			Window:       cfg.BatchWindow,
			BatchTimeout: cfg.BatchTimeout,
		},
		ScratchDir: cfg.ScratchDir,
		ReviewMode: cfg.ReviewMode,
	}

	app.UsageService = usageSvc
	app.TaskService = taskSvc
	app.UsageHandler = usage.NewHandler(usageSvc)
	app.TaskHandler = tasks.NewHandler(taskSvc, cfg.MaxUploadBytes)
	app.Janitor = cleanup.NewJanitor(app.Store, cfg.FileMaxAge, cfg.CleanupInterval)
}

func translatorFactory(cfg config.Config) tasks.TranslatorFactory {
	return func(model, apiKey string) (llm.Translator, error) {
		return provider.New(model, apiKey, provider.Options{
			Timeout: cfg.TranslatorTimeout,
			Retries: cfg.TranslatorRetries,
			Fields:  map[string]any{"ai_model": model},
		})
	}
}

func closeDB(sqlDB *sql.DB) {
	if sqlDB != nil {
		sqlDB.Close()
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
