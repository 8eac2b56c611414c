package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"electiontracker/internal/components/chrono"
	"electiontracker/internal/pusher"
	"electiontracker/lib/util/serviceutil"

	"github.com/spf13/cobra"
)

var pushTarget *string
var pushWatch *bool

func init() {
	pushTarget = pushCmd.Flags().String("target", "", "The push-data url, overrides push.target in the config.")
	pushWatch = pushCmd.Flags().Bool("watch", false, "Keep pushing on the configured schedule until interrupted.")
	rootCmd.AddCommand(pushCmd)
}

var pushCmd = &cobra.Command{
	Use:   "push [--target <url>] [--watch]",
	Short: "Crawls locally and pushes the snapshot to a remote tracker.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		target := e.cfg.Push.Target
		if *pushTarget != "" {
			target = *pushTarget
		}
		if target == "" {
			return errors.New("no push target, set push.target or pass --target")
		}

		p := pusher.New(target, e.crawler, e.tel)
		res, err := p.Push(cmd.Context())
		if err != nil && !*pushWatch {
			return err
		}
		if err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "pushed %d constituencies: %s\n", res.ConstituenciesCount, res.Changes)
		}
		if !*pushWatch {
			return nil
		}

		ctx := serviceutil.SignalContext()
		cron := chrono.NewStandardCron(e.tel, e.clock.Location())
		err = p.Schedule(cron, e.cfg.Push.Schedule)
		if err != nil {
			return err
		}
		slog.Info("pushing on schedule", "schedule", e.cfg.Push.Schedule, "target", target)

		<-ctx.Done()
		<-cron.Stop().Done()
		return nil
	},
}
