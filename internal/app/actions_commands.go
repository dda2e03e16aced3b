package app

import (
	"github.com/spf13/cobra"

	clierr "github.com/sixthCow/rebalance-cli/internal/errors"
	"github.com/sixthCow/rebalance-cli/internal/execution"
)

func (s *runtimeState) newActionsCommand() *cobra.Command {
	root := &cobra.Command{Use: "actions", Short: "Inspect persisted execution actions"}
	root.AddCommand(s.newActionsListCommand())
	root.AddCommand(s.newActionsShowCommand())
	return root
}

func (s *runtimeState) openActionStore() (*execution.Store, error) {
	store, err := execution.OpenStore(s.settings.ActionStorePath, s.settings.ActionLockPath)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "open action store", err)
	}
	return store, nil
}

func (s *runtimeState) newActionsListCommand() *cobra.Command {
	var status string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent execution actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := s.openActionStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			actions, err := store.List(status, limit)
			if err != nil {
				return clierr.Wrap(clierr.CodeInternal, "list actions", err)
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), actions, nil, cacheMetaBypass(), nil, false)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (planned|running|completed|failed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum actions to return")
	return cmd
}

func (s *runtimeState) newActionsShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <action-id>",
		Short: "Show one action with all of its steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := s.openActionStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			action, err := store.Get(args[0])
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "look up action", err)
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), action, nil, cacheMetaBypass(), nil, false)
		},
	}
	return cmd
}
