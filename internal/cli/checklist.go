package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/assetaudit/internal/audit"
)

// NewChecklistCommand creates the checklist command group.
func NewChecklistCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checklist",
		Short: "Add and toggle checklist items",
	}

	var required bool
	add := &cobra.Command{
		Use:           "add <task-id> <description>",
		Short:         "Append an open checklist item",
		Example:       `  assetaudit checklist add AUD-001 "Verify rack seals" --required`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(rootOpts, cmd, func(a *app) (audit.AuditTask, error) {
				return a.svc.AddChecklistItem(cmd.Context(), args[0], args[1], required)
			})
		},
	}
	add.Flags().BoolVar(&required, "required", false, "item must be done before completion (when enforced)")

	toggle := &cobra.Command{
		Use:           "toggle <task-id> <item-id>",
		Short:         "Flip a checklist item between done and open",
		Example:       `  assetaudit checklist toggle AUD-001 2`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(rootOpts, cmd, func(a *app) (audit.AuditTask, error) {
				return a.svc.ToggleChecklistItem(cmd.Context(), args[0], args[1])
			})
		},
	}

	cmd.AddCommand(add, toggle)
	return cmd
}
