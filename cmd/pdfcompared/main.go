// Command pdfcompared serves the comparison service over gRPC.
package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/pdf-compare/internal/common"
	"github.com/joseph-ayodele/pdf-compare/internal/compare"
	"github.com/joseph-ayodele/pdf-compare/internal/jobs"
	"github.com/joseph-ayodele/pdf-compare/internal/render"
	"github.com/joseph-ayodele/pdf-compare/internal/server"
	"github.com/joseph-ayodele/pdf-compare/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.ValidateServer(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("pdfcompared stopped with error", "error", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *common.Config, logger *slog.Logger) error {
	base, err := compare.ConfigFromSettings(cfg.Compare)
	if err != nil {
		return err
	}
	if base.TextStrategy, err = render.NewTextStrategy(cfg.Render, logger); err != nil {
		return err
	}
	opener, err := render.NewOpener(cfg.Render, render.ExecRunner{Logger: logger}, logger)
	if err != nil {
		return err
	}

	execOpts := []jobs.ExecutorOption{}
	if cfg.Compare.ImageDir != "" {
		execOpts = append(execOpts, jobs.WithImageDir(cfg.Compare.ImageDir))
	}
	var runs store.RunRepository
	if cfg.Database.DSN != "" {
		db, err := store.Open(ctx, store.ConfigFromSettings(cfg.Database), logger)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Ping(ctx, cfg.Database.DialTimeout); err != nil {
			return err
		}
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		runs = store.NewRunRepository(db, logger)
		execOpts = append(execOpts, jobs.WithRunRepository(runs))
	} else {
		logger.Warn("DB_URL not set, run history disabled")
	}

	exec := jobs.NewExecutor(opener, logger, execOpts...)
	svc := server.NewComparisonService(exec, base, runs, logger)
	gs, hs := server.NewGRPCServer(svc, logger)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return common.ResourceError("listen", err)
	}
	logger.Info("gRPC serving", "addr", lis.Addr().String(), "backend", cfg.Render.Backend)

	errCh := make(chan error, 1)
	go func() { errCh <- gs.Serve(lis) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	hs.Shutdown()
	stopped := make(chan struct{})
	go func() { gs.GracefulStop(); close(stopped) }()
	select {
	case <-stopped:
	case <-time.After(cfg.Jobs.JobTimeout):
		logger.Warn("graceful stop timed out, forcing")
		gs.Stop()
	}
	logger.Info("stopped")
	return nil
}
