package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"smartwaste/internal/config"
	"smartwaste/internal/logger"
	"smartwaste/internal/models"
	"smartwaste/internal/repository"
	"smartwaste/internal/repository/file"
	"smartwaste/internal/repository/postgres"
	"smartwaste/internal/repository/sqlite"
	"smartwaste/internal/routes"
	"smartwaste/internal/service"
	"smartwaste/internal/service/ai"
	"smartwaste/internal/service/inference"
	"smartwaste/internal/service/storage"
	"smartwaste/internal/service/store"
	"smartwaste/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config        *config.Config
	logger        *logger.Logger
	detector      *ai.DetectorService
	bufferService *storage.BufferService
	hubService    *websocket.HubService
	manager       *service.Manager
	closers       []func()
}

// durable is the backend picked at startup.
type durable struct {
	name    string
	results repository.ResultRepository
	status  repository.BinStatusRepository
	close   func()
}

func NewApp() (*App, error) {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.LogDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &App{config: cfg, logger: log}

	backend := a.openDurable()
	var resultStore *store.ResultStore
	var status repository.BinStatusRepository
	if backend != nil {
		a.closers = append(a.closers, backend.close)
		resultStore = store.New(backend.results, backend.name, cfg.StoreTimeout, log)
		status = backend.status
	} else {
		resultStore = store.New(nil, "", cfg.StoreTimeout, log)
	}
	if cfg.BinStatusFile != "" {
		status = file.NewBinStatusRepository(cfg.BinStatusFile)
		log.Info("Bin status read from %s", cfg.BinStatusFile)
	}

	a.hubService = websocket.NewHubService(log)
	if cfg.DebugImageDir != "" {
		a.bufferService = storage.NewBufferService(cfg.DebugImageDir, cfg.DebugImageLimit, cfg.DebugFlushInterval, log)
	}

	defaultType, known := models.ParseWasteLabel(cfg.DefaultWasteType)
	if !known {
		log.Warning("Unknown DEFAULT_WASTE_TYPE %q, using %s", cfg.DefaultWasteType, defaultType)
	}

	a.manager = service.NewManager(service.Components{
		Inferencer:   a.openInferencer(),
		Store:        resultStore,
		Status:       status,
		Hub:          a.hubService,
		Buffer:       a.bufferService,
		DefaultType:  defaultType,
		Capacity:     cfg.BinCapacity,
		TodayTotal:   cfg.TodayIsTotal,
		StoreTimeout: cfg.StoreTimeout,
	}, log)

	return a, nil
}

// openDurable connects to postgres when configured, otherwise sqlite. It
// returns nil when neither answers within StoreTimeout.
func (a *App) openDurable() *durable {
	ctx, cancel := context.WithTimeout(context.Background(), a.config.StoreTimeout)
	defer cancel()

	if a.config.DatabaseURL != "" {
		db, err := postgres.New(ctx, a.config.DatabaseURL)
		if err == nil {
			a.logger.Info("Connected to postgres")
			return &durable{
				name:    "postgres",
				results: postgres.NewResultRepository(db),
				status:  postgres.NewBinStatusRepository(db),
				close:   db.Close,
			}
		}
		a.logger.Warning("Postgres unavailable, trying sqlite: %v", err)
	}

	if a.config.SQLitePath != "" {
		db, err := sqlite.New(ctx, a.config.SQLitePath)
		if err == nil {
			a.logger.Info("Connected to sqlite at %s", a.config.SQLitePath)
			return &durable{
				name:    "sqlite",
				results: sqlite.NewResultRepository(db),
				status:  sqlite.NewBinStatusRepository(db),
				close:   func() { db.Close() },
			}
		}
		a.logger.Warning("SQLite unavailable: %v", err)
	}

	a.logger.Warning("No durable store available, classification results are kept in memory only")
	return nil
}

func (a *App) openInferencer() inference.Inferencer {
	if a.config.InferenceMode == "dummy" {
		a.logger.Info("Inference disabled, running in dummy mode")
		return inference.Dummy{}
	}

	a.detector = ai.NewDetectorService(a.config.ModelPath, a.config.ClassNames, a.config.ConfidenceThreshold, a.logger)
	a.closers = append(a.closers, func() { a.detector.Close() })
	if !a.detector.Available() {
		a.logger.Warning("Model not loaded, predictions fall back to dummy mode")
	}
	return a.detector
}

// Run serves HTTP until ctx is done, then shuts down background services
// and closes the durable store.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.close()

	go a.hubService.Run(ctx)
	if a.bufferService != nil {
		go a.bufferService.Run(ctx)
	}

	srv := &http.Server{
		Addr:    a.config.ListenAddr(),
		Handler: routes.SetupRoutes(a.manager, a.config, a.logger),
	}

	health := a.manager.Health()
	a.logger.Info("Smart waste backend listening on %s (store: %s, dummy mode: %v)",
		a.config.ListenAddr(), health.StoreBackend, health.DummyMode)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		a.logger.Info("Shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
