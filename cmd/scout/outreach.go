package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/daviddao/scout/internal/briefing"
	"github.com/daviddao/scout/internal/display"
	"github.com/daviddao/scout/internal/types"
	"github.com/spf13/cobra"
)

var (
	outreachWatch    bool
	outreachInterval time.Duration
)

var outreachCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Show outreach status (Outlook connection, paused/active)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !outreachWatch {
			st, err := client.OutreachStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("outreach status: %w", err)
			}
			if jsonOutput {
				return printJSON(cmd, st)
			}
			printOutreach(cmd.OutOrStdout(), st)
			return nil
		}

		interval := outreachInterval
		if interval <= 0 {
			interval = cfg.Outreach.PollInterval.Std()
		}
		var last *types.OutreachStatus
		p := &briefing.Poller{
			Fetch:    client.OutreachStatus,
			Interval: interval,
			Logger:   logger,
			OnUpdate: func(st *types.OutreachStatus) {
				if last != nil && *last == *st {
					return
				}
				last = st
				if jsonOutput {
					printJSON(cmd, st)
					return
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  ", display.Dim.Render(time.Now().Format("15:04:05")))
				printOutreach(cmd.OutOrStdout(), st)
			},
		}
		if !quietFlag && !jsonOutput {
			display.SubHeader(fmt.Sprintf("Watching outreach status every %s (Ctrl-C to stop)", interval))
		}
		err := p.Run(cmd.Context())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func printOutreach(w io.Writer, st *types.OutreachStatus) {
	fmt.Fprintln(w, display.OutreachLine(st))
	if st != nil && !st.CanApprove() {
		fmt.Fprintln(w, display.Warn.Render("  approvals are blocked until outreach is active and Outlook is connected"))
	}
}

func init() {
	outreachCmd.Flags().BoolVarP(&outreachWatch, "watch", "w", false, "Keep polling and print changes")
	outreachCmd.Flags().DurationVar(&outreachInterval, "interval", 0, "Poll interval (default: outreach.poll_interval)")
	rootCmd.AddCommand(outreachCmd)
}
