package main

import (
	"context"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rankstat/adapters/excel"
	"rankstat/adapters/memory"
	"rankstat/adapters/postgres"
	"rankstat/adapters/stats/nonparametric"
	"rankstat/app"
	"rankstat/internal"
	"rankstat/internal/api"
	"rankstat/internal/config"
	"rankstat/internal/errors"
	"rankstat/internal/executor"
	"rankstat/ports"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
)

// initResultStore connects the configured result database, or falls back to memory
func initResultStore(ctx context.Context, appConfig *config.Config, logger *internal.Logger) (ports.ResultSink, ports.ResultReader, *sqlx.DB, error) {
	driver := appConfig.Database.Driver()
	if driver == "" {
		logger.Warn("No DATABASE_URL or SQLITE_PATH configured, results are kept in memory")
		sink := memory.NewSink()
		return sink, sink, nil, nil
	}

	db, err := postgres.Connect(ctx, driver, appConfig.Database.DSN())
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Info("Result store ready (%s)", driver)
	repo := postgres.NewResultRepository(db)
	return repo, repo, db, nil
}

// initDataSource loads the configured spreadsheet
func initDataSource(appConfig *config.Config, logger *internal.Logger) (*memory.Provider, error) {
	if appConfig.Data.ExcelFile == "" {
		logger.Warn("No EXCEL_FILE configured, no variables are available")
		return memory.NewProvider(), nil
	}

	excelConfig := excel.DefaultConfig()
	excelConfig.FilePath = appConfig.Data.ExcelFile
	excelConfig.Sheet = appConfig.Data.Sheet
	logger.Info("Using data source: %s", excelConfig.FilePath)

	provider, err := excel.Load(excelConfig, logger)
	if err != nil {
		return nil, errors.DataUnavailable(excelConfig.FilePath, err)
	}
	return provider, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()
	defer logger.Sync()
	internal.DefaultLogger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, reader, db, err := initResultStore(ctx, appConfig, logger)
	if err != nil {
		logger.Error("Failed to initialize result store: %v", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	provider, err := initDataSource(appConfig, logger)
	if err != nil {
		logger.Error("Failed to load data: %v", err)
		os.Exit(1)
	}

	engine := nonparametric.NewEngine()
	runner := executor.NewRunner(appConfig.Engine.WorkerPoolSize, engine.Compute, logger)
	logger.Info("Worker pool ready (%d workers)", runner.PoolSize())

	hub := api.NewSSEHub(logger)
	defer hub.Close()

	service := app.NewSubmissionService(app.ServiceDeps{
		Data:     provider,
		Catalog:  provider,
		Sink:     sink,
		Runner:   runner,
		Listener: api.NewHubListener(hub),
		Logger:   logger,
	}, appConfig.Engine.SubmissionTimeout)

	// Finished submissions are kept for an hour
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := service.Forget(time.Hour); n > 0 {
					logger.Debug("Dropped %d finished submissions", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Start pprof server for performance profiling
	if appConfig.Profiling.Enabled {
		go func() {
			logger.Info("Performance profiling server starting on :%s", appConfig.Profiling.Port)
			if err := http.ListenAndServe(":"+appConfig.Profiling.Port, nil); err != nil {
				logger.Error("pprof server failed: %v", err)
			}
		}()
	}

	gin.SetMode(appConfig.Server.GinMode)
	handler := api.NewSubmissionHandler(service, reader, hub, logger)
	server := &http.Server{
		Addr:    ":" + appConfig.Server.Port,
		Handler: api.NewRouter(handler, logger),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed: %v", err)
		}
	}()

	logger.Info("Starting rankstat server on port %s", appConfig.Server.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server failed: %v", err)
		os.Exit(1)
	}
}
