package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/filesense/internal/ai"
	"github.com/xxxsen/filesense/internal/config"
	"github.com/xxxsen/filesense/internal/handler"
	"github.com/xxxsen/filesense/internal/job"
	"github.com/xxxsen/filesense/internal/middleware"
	"github.com/xxxsen/filesense/internal/repo"
	"github.com/xxxsen/filesense/internal/schedule"
	"github.com/xxxsen/filesense/internal/service"
	"github.com/xxxsen/filesense/internal/vectorstore"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "filesense",
		Short: "filesense image indexing server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run filesense server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			db, err := repo.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := repo.ApplyMigrations(db); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, db)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, db *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_path", cfg.DBPath),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	store, err := vectorstore.New(cfg.VectorStore)
	if err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}
	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}

	indexRepo := repo.NewIndexRepo(db)
	runner := job.NewRunner(cfg.Indexer.Workers, cfg.Indexer.QueueSize)
	indexService := service.NewIndexService(indexRepo, store, provider, runner)
	searchService := service.NewSearchService(indexRepo, store, provider)
	taskService := service.NewTaskService(provider, runner, time.Duration(cfg.TaskTTLMinutes)*time.Minute)

	deps := handler.RouterDeps{
		Indexes: handler.NewIndexHandler(indexService),
		Search:  handler.NewSearchHandler(searchService),
		Tasks:   handler.NewTaskHandler(taskService),
		AI:      handler.NewAIHandler(provider),
		Status:  handler.NewStatusHandler(store),
	}

	engine, err := webapi.NewEngine(
		"/",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner.Start(ctx)

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewFailedIndexCleanupJob(indexRepo, store), "*/10 * * * *"); err != nil {
		return err
	}
	if err := scheduler.AddJob(job.NewTaskExpiryJob(taskService), "*/5 * * * *"); err != nil {
		return err
	}
	scheduler.Start(ctx)

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	scheduler.Stop()
	runner.Stop()
	return nil
}
