package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/reviewer-calls/internal/app"
	"github.com/JakeFAU/reviewer-calls/internal/config"
	"github.com/JakeFAU/reviewer-calls/internal/scheduler"
	"github.com/JakeFAU/reviewer-calls/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run discovery on a schedule and serve run status over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), rt.cfg, rt.logger)
		},
	}
}

func runServe(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		svc.close(closeCtx)
	}()

	req := app.Request{Window: cfg.RecruitWindow(), EvalDest: cfg.Report.Eval}
	job := func(ctx context.Context) error {
		_, err := svc.app.Discover(ctx, req)
		return err
	}
	sched, err := scheduler.New(cfg.Schedule.Spec, job, logger.Named("scheduler"))
	if err != nil {
		return err
	}
	sched.Start()
	if cfg.Schedule.RunOnStart {
		if err := sched.Trigger(); err != nil {
			logger.Warn("Initial run not started", zap.Error(err))
		}
	}

	srv := server.New(server.Config{APIKey: cfg.Server.APIKey}, svc.status, sched, logger.Named("server"))
	serveErr := srv.ListenAndServe(ctx, cfg.Server.Addr)

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		logger.Warn("Scheduler did not stop cleanly", zap.Error(err))
	}
	return serveErr
}
