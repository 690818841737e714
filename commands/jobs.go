package commands

import (
	"fmt"

	"elms-backend/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.db.AutoMigrate(models.All()...); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
			a.logger.Info("database migrated", zap.Int("models", len(models.All())))
			return nil
		},
	}
}

// SweepOverdueCmd runs one overdue sweep, the job the scheduler runs daily.
func SweepOverdueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-overdue",
		Short: "Mark past-due invoices OVERDUE and text the tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			svcs, err := a.services(cmd.Context())
			if err != nil {
				return err
			}
			n, err := svcs.Reminders.RunOverdueSweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d invoice(s) marked overdue\n", n)
			return nil
		},
	}
}
