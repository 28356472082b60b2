// Package server wires and runs the reference owner registry: storage
// selection, the HTTP router, and graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/havengate/internal/logging"
	"github.com/dmitrijs2005/havengate/internal/server/config"
	"github.com/dmitrijs2005/havengate/internal/server/httpapi"
	"github.com/dmitrijs2005/havengate/internal/server/repositories/claims"
	"github.com/dmitrijs2005/havengate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/havengate/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	srv    *http.Server
}

// seams for tests
var (
	sqlOpen    = sql.Open
	netListen  = net.Listen
	newManager = func() repomanager.RepositoryManager { return repomanager.NewPostgresRepositoryManager() }
)

// NewApp selects the claims store (Postgres when DatabaseDSN is set,
// memory otherwise) and builds the HTTP server.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	app := &App{config: c, logger: logger}

	var repo claims.Repository
	if c.DatabaseDSN != "" {
		db, err := sqlOpen("pgx", c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("db ping error: %w", err)
		}
		m := newManager()
		if err := m.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("db migrations error: %w", err)
		}
		app.db = db
		repo = m.Claims(db)
		logger.Info(ctx, "claims store: postgres")
	} else {
		repo = claims.NewMemoryRepository()
		logger.Warn(ctx, "claims store: memory; claims are lost on restart")
	}

	if c.TokenSecret == "" {
		logger.Warn(ctx, "token secret not set; claims will carry no owner token")
	}

	reg := services.NewRegistry(repo, []byte(c.TokenSecret), c.TokenTTL, logger)
	app.srv = &http.Server{
		Addr:         c.ListenAddr,
		Handler:      httpapi.NewRouter(httpapi.NewHandler(reg, logger), logger),
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
	return app, nil
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// the server down within ShutdownTimeout.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := netListen("tcp", app.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", app.config.ListenAddr, err)
	}

	app.logger.Info(ctx, "starting owner registry", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := app.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		app.close()
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()
	if err := app.srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "graceful shutdown failed", "error", err)
		app.close()
		return err
	}
	<-errCh
	app.logger.Info(shutdownCtx, "owner registry stopped")
	app.close()
	return nil
}

func (app *App) close() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(context.Background(), "db close failed", "error", err)
		}
	}
}
