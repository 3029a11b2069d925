package main

import (
	"fmt"

	"github.com/daviddao/scout/internal/briefing"
	"github.com/daviddao/scout/internal/display"
	"github.com/daviddao/scout/internal/types"
	"github.com/spf13/cobra"
)

var (
	queueActionable bool
	queueStatus     string
	queueLimit      int
)

type queueOutput struct {
	Outreach   *types.OutreachStatus `json:"outreach,omitempty"`
	Candidates []briefing.Entry      `json:"candidates"`
	Drafts     map[string]types.Draft `json:"drafts"`
}

var queueCmd = &cobra.Command{
	Use:     "queue",
	Aliases: []string{"briefing", "ls"},
	Short:   "List the morning briefing queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		if queueStatus != "" && !types.Status(queueStatus).IsValid() {
			return fmt.Errorf("unknown status %q (valid: %v)", queueStatus, types.ValidStatuses)
		}
		if err := loadQueue(cmd); err != nil {
			return err
		}

		entries := filterEntries(session.Candidates(), queueActionable, types.Status(queueStatus), queueLimit)

		if jsonOutput {
			return printJSON(cmd, queueOutput{
				Outreach:   session.OutreachStatus(),
				Candidates: entries,
				Drafts:     session.Drafts().Snapshot(),
			})
		}

		if len(entries) == 0 {
			if !quietFlag {
				fmt.Println(display.Dim.Render("Queue is empty."))
			}
			return nil
		}

		if !quietFlag {
			display.Header(fmt.Sprintf("Briefing (%d)", len(entries)))
			fmt.Println("  " + display.OutreachLine(session.OutreachStatus()))
			fmt.Println()
		}
		for _, e := range entries {
			fmt.Println(display.CandidateLine(e.Candidate, entryMarks(e)...))
		}
		return nil
	},
}

// filterEntries applies the queue flags. Zero values mean no filtering.
func filterEntries(entries []briefing.Entry, actionable bool, status types.Status, limit int) []briefing.Entry {
	out := make([]briefing.Entry, 0, len(entries))
	for _, e := range entries {
		if actionable && (e.Dismissed || !e.Status.IsActionable()) {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func entryMarks(e briefing.Entry) []string {
	var marks []string
	if e.Edited {
		marks = append(marks, "edited")
	}
	if e.Dismissed {
		marks = append(marks, "dismissed")
	}
	if e.Paused {
		marks = append(marks, "paused")
	}
	if e.Draft == nil {
		marks = append(marks, "no-draft")
	}
	return marks
}

func init() {
	queueCmd.Flags().BoolVar(&queueActionable, "actionable", false, "Only candidates that can still be approved or dismissed")
	queueCmd.Flags().StringVar(&queueStatus, "status", "", "Filter by status")
	queueCmd.Flags().IntVarP(&queueLimit, "limit", "n", 0, "Maximum rows")
	rootCmd.AddCommand(queueCmd)
}
