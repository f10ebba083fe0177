package cli

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type verifyRow struct {
	UserID         uuid.UUID `json:"user_id"`
	Events         int       `json:"events"`
	StoredDay      int       `json:"stored_day"`
	ReplayedDay    int       `json:"replayed_day"`
	StoredComplete bool      `json:"stored_complete"`
	ReplayComplete bool      `json:"replayed_complete"`
	Diverged       bool      `json:"diverged"`
}

func NewVerifyCommand(root *RootOptions) *cobra.Command {
	var (
		user string
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Replay the progression log and compare it with the stored projection",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			p := newPrinter(root, cmd.OutOrStdout())
			diverged := 0
			err = rt.forEachUser(ctx, user, all, func(id uuid.UUID) error {
				res, err := rt.progression.Verify(ctx, id, rt.cfg.QuestSlug)
				if err != nil {
					return fmt.Errorf("verify %s: %w", id, err)
				}
				row := verifyRow{
					UserID:         id,
					Events:         res.Events,
					ReplayedDay:    res.Replayed.CurrentDayTarget,
					ReplayComplete: res.Replayed.IsQuestComplete,
					Diverged:       res.Diverged,
				}
				if res.Stored != nil {
					row.StoredDay = res.Stored.CurrentDayTarget
					row.StoredComplete = res.Stored.IsQuestComplete
				}
				if row.Diverged {
					diverged++
				}
				return p.emit(row, func(w io.Writer) {
					status := "ok"
					if row.Diverged {
						status = "DIVERGED"
					}
					fmt.Fprintf(w, "%s\t%s\tevents=%d stored=%d replayed=%d complete=%t/%t\n",
						id, status, row.Events, row.StoredDay, row.ReplayedDay, row.StoredComplete, row.ReplayComplete)
				})
			})
			if err != nil {
				return err
			}
			if diverged > 0 {
				return fmt.Errorf("%d projection(s) diverged from the log; run reconcile", diverged)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id to verify")
	cmd.Flags().BoolVar(&all, "all", false, "verify every user with a projection")
	cmd.MarkFlagsMutuallyExclusive("user", "all")
	return cmd
}
