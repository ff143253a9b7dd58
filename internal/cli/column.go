package cli

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/config"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/ordering"
	"github.com/spf13/cobra"
)

// ErrOrderViolation is returned by column verify when a column breaks the
// ordering rules. main maps it to exit status 1.
var ErrOrderViolation = ordering.ErrOrderViolation

type columnFlags struct {
	workspace string
	project   string
	status    string
}

func (f *columnFlags) register(cmd *cobra.Command, allowProject bool) {
	cmd.Flags().StringVar(&f.workspace, "workspace", "", "workspace ID")
	cmd.Flags().StringVar(&f.status, "status", "", "column status (backlog, todo, in-progress, in-review, done)")
	if allowProject {
		cmd.Flags().StringVar(&f.project, "project", "", "project ID, instead of --workspace")
	}
	_ = cmd.MarkFlagRequired("status")
}

func (f *columnFlags) scope() (ordering.Scope, domain.TaskStatus, error) {
	status, err := domain.ParseTaskStatus(f.status)
	if err != nil {
		return ordering.Scope{}, "", err
	}
	switch {
	case f.project != "" && f.workspace != "":
		return ordering.Scope{}, "", errors.New("use either --workspace or --project")
	case f.project != "":
		id, err := uuid.Parse(f.project)
		if err != nil {
			return ordering.Scope{}, "", fmt.Errorf("invalid --project: %w", err)
		}
		return ordering.ProjectScope(id), status, nil
	case f.workspace != "":
		id, err := uuid.Parse(f.workspace)
		if err != nil {
			return ordering.Scope{}, "", fmt.Errorf("invalid --workspace: %w", err)
		}
		return ordering.WorkspaceScope(id), status, nil
	default:
		return ordering.Scope{}, "", errors.New("--workspace or --project is required")
	}
}

// NewColumnCommand creates the column command group.
func NewColumnCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "column",
		Short: "Inspect board columns",
	}
	cmd.AddCommand(newColumnShowCommand(opts), newColumnVerifyCommand(opts))
	return cmd
}

func newColumnShowCommand(opts *RootOptions) *cobra.Command {
	var flags columnFlags
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a column in position order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, status, err := flags.scope()
			if err != nil {
				return err
			}
			return opts.withBackend(cmd.Context(), func(_ *config.Config, b *Backend) error {
				col, err := b.Tasks.LoadColumn(cmd.Context(), scope, status)
				if err != nil {
					return err
				}
				return newPrinter(cmd, opts.Format).column(col)
			})
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newColumnVerifyCommand(opts *RootOptions) *cobra.Command {
	var flags columnFlags
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a column's positions are strictly ascending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, status, err := flags.scope()
			if err != nil {
				return err
			}
			return opts.withBackend(cmd.Context(), func(_ *config.Config, b *Backend) error {
				col, err := b.Tasks.LoadColumn(cmd.Context(), scope, status)
				if err != nil {
					return err
				}
				verr := ordering.Verify(col)
				if err := newPrinter(cmd, opts.Format).verification(col, verr); err != nil {
					return err
				}
				return verr
			})
		},
	}
	flags.register(cmd, true)
	return cmd
}
