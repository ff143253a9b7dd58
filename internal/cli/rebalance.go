package cli

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/access"
	"github.com/phrazzld/taskboard-api/internal/broadcast"
	"github.com/phrazzld/taskboard-api/internal/config"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/events"
	"github.com/phrazzld/taskboard-api/internal/service/board"
	"github.com/spf13/cobra"
)

// operatorDirectory attributes nothing: rebalancing publishes no events.
type operatorDirectory struct{}

func (operatorDirectory) GetUser(context.Context, uuid.UUID) (*domain.User, error) {
	return &domain.User{Name: "boardctl"}, nil
}

// NewRebalanceCommand creates the rebalance command. It runs under the
// same column lock as the API, so it is safe against a live server.
func NewRebalanceCommand(opts *RootOptions) *cobra.Command {
	var flags columnFlags
	cmd := &cobra.Command{
		Use:   "rebalance",
		Short: "Respace a workspace column to even intervals, keeping its order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, status, err := flags.scope()
			if err != nil {
				return err
			}
			return opts.withBackend(cmd.Context(), func(cfg *config.Config, b *Backend) error {
				svc, err := board.NewService(
					b.Tasks,
					operatorDirectory{},
					access.AllowAll{},
					broadcast.PublisherFunc(func(context.Context, events.Topic, any) {}),
					board.ConfigFromOrdering(cfg.Ordering),
					opts.env.Logger,
				)
				if err != nil {
					return err
				}
				col, err := svc.Rebalance(cmd.Context(), uuid.Nil, scope.ID, status)
				if err != nil {
					return err
				}
				return newPrinter(cmd, opts.Format).column(col)
			})
		},
	}
	flags.register(cmd, false)
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}
