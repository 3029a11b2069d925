package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/daviddao/scout/internal/db"
	"github.com/daviddao/scout/internal/display"
	"github.com/daviddao/scout/internal/types"
	"github.com/spf13/cobra"
)

var (
	statsSince string
	statsDays  int

	activityCandidate string
	activityAction    string
	activityFailed    bool
	activityLimit     int
	activityPrune     string
)

type statsOutput struct {
	*db.Stats
	Daily []db.DayCount `json:"daily_approvals"`
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show review performance from the activity journal",
	Example: `  scout stats
  scout stats --since 7d`,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := sinceTime(statsSince)
		if err != nil {
			return err
		}
		s, err := store.Stats(since)
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		daily, err := store.DailyApprovals(statsDays)
		if err != nil {
			return fmt.Errorf("daily approvals: %w", err)
		}

		if jsonOutput {
			return printJSON(cmd, statsOutput{Stats: s, Daily: daily})
		}

		title := "Scout stats"
		if statsSince != "" {
			title += " (last " + statsSince + ")"
		}
		display.Header(title)
		fmt.Printf("  Actions:      %d across %d candidates\n", s.Total, s.Candidates)
		fmt.Printf("  Approval rate %s\n", display.ConfidenceBar(s.ApprovalRate))
		if s.LastAt != "" {
			fmt.Printf("  Last action:  %s\n", display.TimeAgo(s.LastAt))
		}
		fmt.Println()

		display.SubHeader("By action")
		names := make([]string, 0, len(s.Actions))
		for a := range s.Actions {
			names = append(names, a)
		}
		sort.Strings(names)
		for _, a := range names {
			c := s.Actions[a]
			line := fmt.Sprintf("  %-12s %s", a, display.Success.Render(fmt.Sprintf("%4d ok", c.OK)))
			if c.Failed > 0 {
				line += "  " + display.ErrStyle.Render(fmt.Sprintf("%d failed", c.Failed))
			}
			if c.Reverted > 0 {
				line += "  " + display.Warn.Render(fmt.Sprintf("%d reverted", c.Reverted))
			}
			fmt.Println(line)
		}

		if len(daily) > 0 {
			fmt.Println()
			display.SubHeader(fmt.Sprintf("Approvals, last %d days", len(daily)))
			for _, d := range daily {
				fmt.Printf("  %s %s %d\n", display.Dim.Render(d.Day), display.Accent.Render(strings.Repeat("▇", min(d.Count, 40))), d.Count)
			}
		}
		return nil
	},
}

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "List recent actions from the activity journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		if activityPrune != "" {
			before, err := sinceTime(activityPrune)
			if err != nil {
				return err
			}
			n, err := store.Prune(before)
			if err != nil {
				return err
			}
			if !quietFlag {
				display.SuccessMsg("Pruned %d entries older than %s", n, activityPrune)
			}
			return nil
		}

		f := db.ActivityFilter{
			CandidateID: activityCandidate,
			Action:      activityAction,
			Limit:       activityLimit,
		}
		if activityFailed {
			f.Failed = true
		}
		entries, err := store.RecentActivity(f)
		if err != nil {
			return fmt.Errorf("activity: %w", err)
		}

		if jsonOutput {
			if entries == nil {
				entries = []*types.Activity{}
			}
			return printJSON(cmd, entries)
		}
		if len(entries) == 0 {
			fmt.Println(display.Dim.Render("No activity recorded."))
			return nil
		}
		for _, a := range entries {
			mark := display.Success.Render("✓")
			if a.Outcome != types.OutcomeOK {
				mark = display.ErrStyle.Render("✗")
			}
			line := fmt.Sprintf("%s %-10s %-12s %s", mark, display.Dim.Render(display.TimeAgo(a.CreatedAt)), a.Action, a.CandidateID)
			if a.Detail != "" {
				line += "  " + display.Muted.Render(display.Truncate(a.Detail, 60))
			}
			fmt.Println(line)
		}
		return nil
	},
}

// sinceTime turns a relative window such as "7d" or "36h" into an ISO
// timestamp that far in the past. "" means no bound.
func sinceTime(window string) (string, error) {
	if window == "" {
		return "", nil
	}
	var d time.Duration
	if days, ok := strings.CutSuffix(window, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return "", fmt.Errorf("invalid window %q", window)
		}
		d = time.Duration(n) * 24 * time.Hour
	} else {
		var err error
		if d, err = time.ParseDuration(window); err != nil {
			return "", fmt.Errorf("invalid window %q: %w", window, err)
		}
	}
	return time.Now().Add(-d).UTC().Format(time.RFC3339), nil
}

func init() {
	statsCmd.Flags().StringVar(&statsSince, "since", "", "Only count actions in this window (e.g. 7d, 12h)")
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "Days of approval history to chart")

	activityCmd.Flags().StringVar(&activityCandidate, "candidate", "", "Only this candidate")
	activityCmd.Flags().StringVar(&activityAction, "action", "", "Only this action (approve, dismiss, pause, save_draft, regenerate)")
	activityCmd.Flags().BoolVar(&activityFailed, "failed", false, "Only failed or reverted actions")
	activityCmd.Flags().IntVarP(&activityLimit, "limit", "n", 20, "Maximum entries")
	activityCmd.Flags().StringVar(&activityPrune, "prune", "", "Delete entries older than this window instead of listing")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(activityCmd)
}
