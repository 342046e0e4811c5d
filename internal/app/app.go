// Package app initializes and runs the exercise tracker service.
// It configures logging, storage, routing and the background snapshotter,
// and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/fittrack/internal/config"
	"github.com/patric-chuzhbe/fittrack/internal/db/jsondb"
	"github.com/patric-chuzhbe/fittrack/internal/db/memorystorage"
	"github.com/patric-chuzhbe/fittrack/internal/db/postgresdb"
	"github.com/patric-chuzhbe/fittrack/internal/db/storage"
	"github.com/patric-chuzhbe/fittrack/internal/ipchecker"
	"github.com/patric-chuzhbe/fittrack/internal/logger"
	"github.com/patric-chuzhbe/fittrack/internal/models"
	"github.com/patric-chuzhbe/fittrack/internal/router"
	"github.com/patric-chuzhbe/fittrack/internal/service"
	"github.com/patric-chuzhbe/fittrack/internal/snapshotter"
)

// App encapsulates the configuration, HTTP handler, storage backend
// and background snapshotter needed to run the exercise tracker service.
type App struct {
	cfg             *config.Config
	db              storage.Storage
	snapshotter     *snapshotter.Snapshotter
	stopSnapshotter context.CancelFunc
	httpHandler     http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - starting the snapshotter for the file-backed storage
// - setting up the router and middleware
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	if fileDB, ok := app.db.(*jsondb.JSONDB); ok && app.cfg.DBFileName != "" {
		app.snapshotter = snapshotter.New(fileDB, app.cfg.SnapshotInterval)
		snapshotterRunCtx, stopSnapshotter := context.WithCancel(context.Background())
		app.stopSnapshotter = stopSnapshotter

		app.snapshotter.Run(snapshotterRunCtx)
		app.snapshotter.ListenErrors(func(err error) {
			logger.Log.Errorln("Error passed from the `app.snapshotter.ListenErrors()`:", zap.Error(err))
		})
	}

	ipChecker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	app.httpHandler = router.New(
		service.New(app.db),
		ipChecker,
	)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Saving database and exiting...")
		if a.stopSnapshotter != nil {
			a.stopSnapshotter()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}
