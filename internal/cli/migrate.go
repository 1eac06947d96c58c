package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/config"
	"github.com/Vishwagit2006/Final-Project-sub000/migrations"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/database"
)

// MigrateResult is the json output of the migrate command.
type MigrateResult struct {
	Migrations []string `json:"migrations"`
	Applied    bool     `json:"applied"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		Long: `Apply every embedded *.up.sql migration that is not yet recorded in
schema_migrations. With --dry-run the migrations are listed without
connecting to the database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, rootOpts, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list migrations without applying them")

	return cmd
}

func runMigrate(cmd *cobra.Command, opts *RootOptions, dryRun bool) error {
	names, err := database.PendingMigrations(migrations.FS)
	if err != nil {
		return err
	}
	out := &output{format: opts.Format, w: cmd.OutOrStdout()}

	if dryRun {
		return out.migrations(MigrateResult{Migrations: names})
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.DriverPostgres {
		return fmt.Errorf("migrate needs the %s driver, got %s", config.DriverPostgres, cfg.StoreDriver)
	}

	log := opts.logger(cmd)
	pool, err := database.NewPostgresPool(cmd.Context(), cfg.Postgres(), log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(cmd.Context(), pool, migrations.FS, log); err != nil {
		return err
	}
	return out.migrations(MigrateResult{Migrations: names, Applied: true})
}
