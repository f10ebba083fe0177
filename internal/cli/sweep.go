package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yungbote/firstflame-backend/internal/app"
	"github.com/yungbote/firstflame-backend/internal/ritual/lease"
)

func NewSweepLeasesCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-leases",
		Short: "Delete expired advancement leases from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			p := newPrinter(root, cmd.OutOrStdout())
			if rt.cfg.LeaseBackend == app.LeaseBackendRedis {
				// Redis leases expire with their keys.
				p.textf("lease backend is redis; stale database leases are swept anyway\n")
			}
			mgr := lease.NewGormManager(rt.repos.Leases, rt.cfg.LeaseTTL, rt.log)
			n := lease.NewSweeper(mgr, rt.cfg.SweepInterval, rt.log, nil).SweepOnce(ctx)
			return p.emit(map[string]int64{"swept": n}, func(w io.Writer) {
				fmt.Fprintf(w, "swept %d expired lease(s)\n", n)
			})
		},
	}
}
