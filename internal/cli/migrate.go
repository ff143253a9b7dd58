package cli

import (
	"errors"

	"github.com/phrazzld/taskboard-api/internal/config"
	"github.com/phrazzld/taskboard-api/internal/platform/postgres"
	"github.com/spf13/cobra"
)

var errNoDatabase = errors.New("command requires a SQL database backend")

// NewMigrateCommand creates the migrate command group.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withBackend(cmd.Context(), func(_ *config.Config, b *Backend) error {
				if b.DB == nil {
					return errNoDatabase
				}
				return postgres.Migrate(cmd.Context(), b.DB, opts.env.Logger)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withBackend(cmd.Context(), func(_ *config.Config, b *Backend) error {
				if b.DB == nil {
					return errNoDatabase
				}
				return postgres.MigrationStatus(cmd.Context(), b.DB, opts.env.Logger)
			})
		},
	})

	return cmd
}
