// Package commands holds the elms command line: the API server and its maintenance jobs.
package commands

import (
	"context"
	"fmt"
	"os"

	"elms-backend/config"
	"elms-backend/controllers"
	"elms-backend/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Execute runs the root command. Without a subcommand it serves the API.
func Execute() {
	root := &cobra.Command{
		Use:          "elms",
		Short:        "Estate and lease management back office",
		SilenceUsage: true,
		RunE:         runServe,
	}

	root.AddCommand(
		ServeCmd(),
		MigrateCmd(),
		SweepOverdueCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is what every command needs: settings, a logger and a database.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
}

func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := config.NewLogger(cfg.Log)

	db, err := config.ConnectDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, db: db}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.logger.Sync()
}

func (a *app) services(ctx context.Context) (controllers.Services, error) {
	blobs, err := services.NewBlobStore(ctx, a.cfg.Storage, a.logger)
	if err != nil {
		return controllers.Services{}, err
	}

	billing := services.NewBillingService(a.db, a.logger)
	tenancy := services.NewTenancyService(a.db, blobs, a.logger)
	return controllers.Services{
		Users:       services.NewUserService(a.db),
		Portfolio:   services.NewPortfolioService(a.db, a.logger),
		Tenancy:     tenancy,
		Billing:     billing,
		Maintenance: services.NewMaintenanceService(a.db, tenancy, blobs, a.logger),
		Reminders:   services.NewReminderService(a.db, billing, services.NewTwilioSender(a.cfg.Reminders), a.logger),
	}, nil
}
