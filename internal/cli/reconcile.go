package cli

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type reconcileRow struct {
	UserID        uuid.UUID `json:"user_id"`
	EventsApplied int       `json:"events_applied"`
	Day           int       `json:"current_day_target"`
	Complete      bool      `json:"is_quest_complete"`
	Changed       bool      `json:"changed"`
}

func NewReconcileCommand(root *RootOptions) *cobra.Command {
	var (
		user string
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Fold unapplied progression events into the stored projection",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			p := newPrinter(root, cmd.OutOrStdout())
			return rt.forEachUser(ctx, user, all, func(id uuid.UUID) error {
				res, err := rt.progression.Reconcile(ctx, id, rt.cfg.QuestSlug)
				if err != nil {
					return fmt.Errorf("reconcile %s: %w", id, err)
				}
				row := reconcileRow{
					UserID:        id,
					EventsApplied: res.EventsApplied,
					Day:           res.Projection.CurrentDayTarget,
					Complete:      res.Projection.IsQuestComplete,
					Changed:       res.Changed,
				}
				return p.emit(row, func(w io.Writer) {
					fmt.Fprintf(w, "%s\tapplied=%d day=%d complete=%t changed=%t\n",
						id, row.EventsApplied, row.Day, row.Complete, row.Changed)
				})
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id to reconcile")
	cmd.Flags().BoolVar(&all, "all", false, "reconcile every user with a projection")
	cmd.MarkFlagsMutuallyExclusive("user", "all")
	return cmd
}
