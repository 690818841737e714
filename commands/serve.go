package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"elms-backend/controllers"
	"elms-backend/routes"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
	cmd.Flags().Bool("routes", false, "Print the registered routes on startup")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svcs, err := a.services(ctx)
	if err != nil {
		return err
	}
	controllers.Setup(svcs)

	if a.cfg.Reminders.Enabled {
		scheduler, err := svcs.Reminders.StartScheduler(a.cfg.Reminders.Schedule)
		if err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	if a.cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := routes.SetupRouter(a.cfg, a.db, a.logger)

	if printRoutes, _ := cmd.Flags().GetBool("routes"); printRoutes {
		for _, route := range r.Routes() {
			a.logger.Info("route", zap.String("method", route.Method), zap.String("path", route.Path))
		}
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
