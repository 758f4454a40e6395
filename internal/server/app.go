// Package server initializes and runs the catalog server. It wires the
// database, the blob relay and the HTTP API, and handles graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/imgvault/internal/logging"
	"github.com/dmitrijs2005/imgvault/internal/server/config"
	"github.com/dmitrijs2005/imgvault/internal/server/httpapi"
	"github.com/dmitrijs2005/imgvault/internal/server/relay"
	"github.com/dmitrijs2005/imgvault/internal/server/services"
	"github.com/dmitrijs2005/imgvault/internal/server/shared/db"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	manager db.RepositoryManager
	relay   relay.Relay
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	manager, err := db.NewPostgresRepositoryManager(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rl, err := relay.NewS3Relay(ctx, relay.Options{
		User:         c.S3RootUser,
		Password:     c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("relay init error: %w", err)
	}

	return &App{config: c, logger: logger, manager: manager, relay: rl}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	repo := app.manager.Images()

	engine := httpapi.NewRouter(httpapi.Options{
		Uploads:        services.NewUploadService(repo, app.relay, app.logger),
		Catalog:        services.NewCatalogService(repo, app.logger),
		Folders:        services.NewFolderService(app.manager.Conn(), app.manager.ImagesOn, app.logger),
		Dedup:          services.NewDedupService(repo, app.relay, app.logger),
		Relay:          app.relay,
		Log:            app.logger,
		RateLimitRPS:   app.config.RateLimitRPS,
		RateLimitBurst: app.config.RateLimitBurst,
	})

	srv := &http.Server{Addr: app.config.EndpointAddrHTTP, Handler: engine}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "shutdown error", "error", err.Error())
		}
	}()

	app.logger.Info(ctx, "http server listening", "addr", app.config.EndpointAddrHTTP)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	if err := app.manager.RunMigrations(ctx); err != nil {
		app.logger.Error(ctx, "migration error", "error", err.Error())
		return
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.manager.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}
