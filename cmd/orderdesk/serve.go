package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vaidashi/order-status-sync/internal/api"
	"github.com/vaidashi/order-status-sync/internal/auth"
	"github.com/vaidashi/order-status-sync/internal/config"
	"github.com/vaidashi/order-status-sync/internal/notice"
	"github.com/vaidashi/order-status-sync/internal/session"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the order desk HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), c)
		},
	}

	cmd.Flags().Int("port", 0, "Port to listen on")
	c.bind("PORT", cmd.Flags().Lookup("port"))

	return cmd
}

func runServe(ctx context.Context, c *cli) error {
	l := c.log
	l.Info("Starting order desk server...", "env", c.cfg.Env, "driver", c.cfg.DB.Driver)

	a, err := newApp(ctx, c.cfg, l, serveConnectAttempts, true)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	authn, err := auth.NewAuthenticator(c.cfg.Auth.JWTSecret, c.cfg.Auth.JWTIssuer)
	if err != nil {
		return err
	}
	if !c.cfg.IsProduction() && c.cfg.Auth.JWTSecret == config.DevJWTSecret {
		l.Warn("Using the development JWT secret, set AUTH_JWT_SECRET")
	}

	notices := notice.NewBoard(c.cfg.Feed.NoticeTTL)
	defer notices.Close()

	sessions := session.NewManager(a.newFeed, a.orders, c.cfg.Feed.PageSize, l)

	deps := api.Dependencies{
		Auth:     authn,
		Sessions: sessions,
		Orders:   a.orders,
		Tracking: a.tracking,
		Status:   a.statusService(notices),
		Notices:  notices,
		Metrics:  a.telemetry.Handler(),
	}
	if a.publisher != nil {
		deps.Publisher = a.publisher
	}

	server := api.NewServer(c.cfg, deps, l)

	processor := a.outboxProcessor()
	processor.Start()
	defer processor.Stop()

	errCh := make(chan error, 1)
	go func() {
		l.Info("Server is starting", "port", c.cfg.Port)

		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown via interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case <-ctx.Done():
	case err := <-errCh:
		l.Error("Failed to start server", "error", err)
		sessions.Close()
		return err
	}

	l.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Error("Server forced to shutdown", "error", err)
		return err
	}

	l.Info("Server exiting")
	return nil
}
