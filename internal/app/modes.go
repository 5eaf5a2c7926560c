package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/resolverd/resolverd/internal/domain"
	"github.com/resolverd/resolverd/internal/server"
	"github.com/resolverd/resolverd/internal/server/handler"
)

// ResolveMode runs a single resolution pass over all due markets and exits.
// This is the cron-invoked batch mode.
func (a *App) ResolveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting resolve mode (one-shot)")

	resolved, err := deps.Scheduler.ProcessAllPendingResolutions(ctx)
	if err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "resolve mode finished",
		slog.Int("resolved", resolved),
	)
	return nil
}

// WatchMode runs the polling scheduler as a long-lived daemon, without the
// HTTP API.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting watch mode")
	return deps.Scheduler.Run(ctx)
}

// ServerMode serves the HTTP API only; resolutions run solely when triggered
// via POST /api/resolutions/run.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// FullMode runs the polling scheduler and the HTTP API together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Scheduler.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}

	return g.Wait()
}

// startHTTPServer builds the API server from deps and runs it on the group,
// shutting it down gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	// A nil *s3blob.Reader must stay a nil interface inside the handler.
	var archiveReader domain.BlobReader
	if deps.ArchiveReader != nil {
		archiveReader = deps.ArchiveReader
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.ApiKey,
	}, server.Handlers{
		Health:     handler.NewHealthHandler(a.logger),
		Stats:      handler.NewStatsHandler(deps.Scheduler, a.logger),
		Resolution: handler.NewResolutionHandler(deps.MarketStore, deps.Scheduler, a.logger),
		Archive:    handler.NewArchiveHandler(archiveReader, a.logger),
	}, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
