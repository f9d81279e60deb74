// Package server initializes and runs the secret link service: it wires the
// token codec, the consumption ledger, the background sweeper, and the HTTP
// endpoint, and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/secretlink/secretlink/internal/logging"
	"github.com/secretlink/secretlink/internal/server/config"
	"github.com/secretlink/secretlink/internal/server/db"
	"github.com/secretlink/secretlink/internal/server/httpserver"
	"github.com/secretlink/secretlink/internal/server/services"
	"github.com/secretlink/secretlink/internal/server/sweeper"
	"github.com/secretlink/secretlink/internal/server/token"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	manager *db.Manager
	links   *services.LinkService
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout)

	signer, err := token.NewSigner(cfg.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("signer init error: %w", err)
	}
	if len(cfg.SigningKey) < token.RecommendedKeyLength {
		logger.Warn(context.Background(), "signing key is shorter than recommended",
			"length", len(cfg.SigningKey), "recommended", token.RecommendedKeyLength)
	}

	manager, err := db.NewManager(context.Background(), cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	links := services.NewLinkService(manager.Links(), token.NewCodec(signer), cfg)

	return &App{config: cfg, logger: logger, manager: manager, links: links}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app", "addr", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	sw := sweeper.New(app.manager.Links(), app.logger, app.config.CleanupInterval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sw.Run(ctx)
	}()

	srv := httpserver.New(app.config, app.links, app.logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.manager.Close(); err != nil {
		app.logger.Error(ctx, "error closing db", "error", err.Error())
	}
	app.logger.Info(ctx, "app stopped")
}
