package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func NewSeedCommand(root *RootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Ensure the quest, participant and day-1 projection exist for a user",
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

			st, err := rt.ritual.EnsureFlameState(ctx, id)
			if err != nil {
				return fmt.Errorf("seed %s: %w", id, err)
			}
			return newPrinter(root, cmd.OutOrStdout()).emit(st, func(w io.Writer) {
				fmt.Fprintf(w, "%s\tday=%d complete=%t created=%t\n",
					id, st.Projection.CurrentDayTarget, st.Projection.IsQuestComplete, st.Created)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id to seed")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
