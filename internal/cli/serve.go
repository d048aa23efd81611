package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/accio/servicemeow/internal/api/http"
	"github.com/accio/servicemeow/internal/api/http/handlers"
	"github.com/accio/servicemeow/internal/persistence"
)

// multipart overhead allowed on top of the upload limit.
const bodyLimitSlack = 1 << 20

func newServeCommand() *cobra.Command {
	var skipMonitor bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and the SLA monitor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), skipMonitor)
		},
	}
	cmd.Flags().BoolVar(&skipMonitor, "no-monitor", false, "Do not start the background SLA monitor")
	return cmd
}

func runServe(ctx context.Context, skipMonitor bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rt, err := newBootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, logger := rt.cfg, rt.logger

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, rt.pg.PoolHandle(), logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	dependencies := map[string]handlers.Pinger{"postgres": rt.pg}
	if redis != nil {
		dependencies["redis"] = redis
	}

	c, err := newContainer(rt, redis)
	if err != nil {
		return err
	}

	if !skipMonitor {
		monitor := c.slaMonitor(rt)
		if err := monitor.Start(ctx); err != nil {
			return fmt.Errorf("failed to start sla monitor: %w", err)
		}
		defer func() {
			if err := monitor.Stop(); err != nil {
				logger.Warn("sla monitor shutdown", zap.Error(err))
			}
		}()
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             int(cfg.Storage.MaxUploadBytes()) + bodyLimitSlack,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, c.metrics, httptransport.MiddlewareConfig{
		Timeout:        cfg.App.RequestTimeout(),
		AllowedOrigins: cfg.App.AllowedOrigins,
	})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies, c.metrics),
		Auth:           handlers.NewAuthHandler(c.authService, cfg.App.Env != "development"),
		Users:          handlers.NewUsersHandler(c.users, c.authService),
		APIKeys:        handlers.NewAPIKeysHandler(c.authService),
		Tickets:        handlers.NewTicketsHandler(c.ticketService, c.audit, c.groups, c.users),
		TicketChildren: handlers.NewTicketChildrenHandler(c.ticketService, c.notes, c.attachments, c.authService.TokenManager(), httptransport.EditorImagesPath),
		Groups:         handlers.NewGroupsHandler(c.groups),
		SLAConfig:      handlers.NewSLAConfigHandler(c.slaConfigs),
		Dashboard:      handlers.NewDashboardHandler(c.dashboard, c.groups),
		System:         handlers.NewSystemHandler(cfg.App.Name, cfg.App.Version),
		AuthMiddleware: c.authMW,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("fiber listen: %w", err)
		}
	case <-ctx.Done():
	}

	cancel()
	return app.Shutdown()
}
