package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/accio/servicemeow/internal/persistence"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *persistence.Migrator) error { return m.Down(cmd.Context(), steps) })
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Run all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(m *persistence.Migrator) error { return m.Up(cmd.Context()) })
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(m *persistence.Migrator) error { return m.Status(cmd.Context()) })
			},
		},
	)
	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(*persistence.Migrator) error) error {
	rt, err := newBootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	migrator, err := persistence.NewMigrator(rt.pg.PoolHandle(), rt.logger)
	if err != nil {
		return err
	}
	if err := fn(migrator); err != nil {
		rt.logger.Error("migration failed", zap.Error(err))
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install default SLA targets and the bootstrap admin account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := newBootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			c, err := newContainer(rt, nil)
			if err != nil {
				return err
			}

			inserted, err := c.slaConfigs.SeedDefaults(ctx, rt.cfg.SLA)
			if err != nil {
				return fmt.Errorf("seed sla config: %w", err)
			}
			created, err := c.users.EnsureAdmin(ctx, rt.cfg.Bootstrap)
			if err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
			rt.logger.Info("seed complete",
				zap.Int("sla_rows_inserted", inserted),
				zap.Bool("admin_created", created),
				zap.String("admin_username", rt.cfg.Bootstrap.AdminUsername))
			return nil
		},
	}
}

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sla-sweep",
		Short: "Run one SLA breach sweep and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := newBootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			c, err := newContainer(rt, nil)
			if err != nil {
				return err
			}
			breached, err := c.slaMonitor(rt).Sweep(ctx)
			if err != nil {
				return fmt.Errorf("sla sweep: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d ticket(s) newly breached\n", breached)
			return nil
		},
	}
}
