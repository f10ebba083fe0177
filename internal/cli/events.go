package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/firstflame-backend/internal/platform/dbctx"
)

func NewEventsCommand(root *RootOptions) *cobra.Command {
	var (
		user  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List a user's most recent progression events",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUser(user)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rt, err := openRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			rows, err := rt.repos.Events.ListRecentByUser(dbctx.Of(ctx), id, limit)
			if err != nil {
				return fmt.Errorf("list events: %w", err)
			}
			p := newPrinter(root, cmd.OutOrStdout())
			for _, ev := range rows {
				if err := p.emit(ev, func(w io.Writer) {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ev.CreatedAt.Format(time.RFC3339Nano), ev.Stage, ev.QuestID, string(ev.Context))
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum events to list, newest first")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
