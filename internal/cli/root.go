// Package cli implements boardctl, the operator tool for the task board:
// schema migrations, column inspection and repair, and development tokens.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "text" | "json"
	env    *Env
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the boardctl root command backed by env.
func NewRootCommand(env *Env) *cobra.Command {
	opts := &RootOptions{env: env}

	cmd := &cobra.Command{
		Use:   "boardctl",
		Short: "Operate a taskboard deployment",
		Long:  "Operator tool for the taskboard API: migrations, column inspection, rebalancing and dev tokens.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewColumnCommand(opts))
	cmd.AddCommand(NewRebalanceCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}
