package injector

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lk2023060901/chat-proxy/internal/conf"
	"github.com/lk2023060901/chat-proxy/internal/pkg/logger"
	"github.com/lk2023060901/chat-proxy/internal/server"
)

// App encapsulates all application dependencies
type App struct {
	Config     *conf.Config
	Logger     *logger.Logger
	HTTPServer *server.HTTPServer
	GRPCServer *server.GRPCServer // nil when disabled
}

// Run starts the servers and blocks until ctx is canceled or one of them
// fails, then shuts everything down within the configured timeout.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(a.HTTPServer.Start)
	if a.GRPCServer != nil {
		g.Go(a.GRPCServer.Start)
	}

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("shutting down servers...")

		timeout := a.Config.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if a.GRPCServer != nil {
			a.GRPCServer.Stop()
		}
		if err := a.HTTPServer.Stop(shutdownCtx); err != nil {
			a.Logger.Error("HTTP server forced to shutdown", zap.Error(err))
			return err
		}
		return nil
	})

	return g.Wait()
}
