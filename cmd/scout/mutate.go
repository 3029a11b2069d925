package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/daviddao/scout/internal/briefing"
	"github.com/daviddao/scout/internal/display"
	"github.com/daviddao/scout/internal/types"
	"github.com/spf13/cobra"
)

var (
	dismissReason string
	pauseReason   string
)

type actionResult struct {
	ID     string       `json:"id"`
	Action string       `json:"action"`
	OK     bool         `json:"ok"`
	Status types.Status `json:"status,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// runEach applies fn to every id, reporting each outcome. It fails only if
// every id failed.
func runEach(cmd *cobra.Command, action string, ids []string, fn func(ctx context.Context, id string) error, done string) error {
	if err := loadQueue(cmd); err != nil {
		return err
	}

	var results []actionResult
	failed := 0
	for _, id := range ids {
		r := actionResult{ID: id, Action: action}
		if err := fn(cmd.Context(), id); err != nil {
			failed++
			r.Error = err.Error()
			if !jsonOutput {
				display.ErrorMsg("%s %s: %v", action, id, err)
			}
		} else {
			r.OK = true
			if !jsonOutput && !quietFlag {
				display.SuccessMsg("%s: %s", done, id)
			}
		}
		if e, err := session.Candidate(id); err == nil {
			r.Status = e.Status
		}
		results = append(results, r)
	}

	if jsonOutput {
		if err := printJSON(cmd, results); err != nil {
			return err
		}
	}
	if failed == len(ids) {
		return fmt.Errorf("%s failed for all %d candidate(s)", action, failed)
	}
	return nil
}

var approveCmd = &cobra.Command{
	Use:   "approve ID [ID...]",
	Short: "Approve and send the current draft",
	Long: `Approve sends each candidate's current draft.

Approval is refused while outreach is paused or Outlook is disconnected.
Save any edits first: approve sends what the backend holds.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEach(cmd, types.ActionApprove, args, func(ctx context.Context, id string) error {
			err := session.Approve(ctx, id)
			if errors.Is(err, briefing.ErrApproveBlocked) {
				return fmt.Errorf("%w (%s)", err, display.OutreachLine(session.OutreachStatus()))
			}
			return err
		}, "Approved")
	},
}

var dismissCmd = &cobra.Command{
	Use:   "dismiss ID [ID...]",
	Short: "Dismiss candidates from the briefing",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEach(cmd, types.ActionDismiss, args, func(ctx context.Context, id string) error {
			return session.Dismiss(ctx, id, dismissReason)
		}, "Dismissed")
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause ID [ID...]",
	Short: "Pause outreach to candidates",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEach(cmd, types.ActionPause, args, func(ctx context.Context, id string) error {
			return session.Pause(ctx, id, pauseReason)
		}, "Paused")
	},
}

func init() {
	dismissCmd.Flags().StringVarP(&dismissReason, "reason", "r", "", "Why the candidate is not a fit")
	pauseCmd.Flags().StringVarP(&pauseReason, "reason", "r", "", "Why outreach is on hold")
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(dismissCmd)
	rootCmd.AddCommand(pauseCmd)
}
