package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/daviddao/scout/internal/briefing"
	"github.com/daviddao/scout/internal/display"
	"github.com/daviddao/scout/internal/types"
	"github.com/spf13/cobra"
)

var (
	proposalApply bool
	proposalYes   bool
)

type proposalOutput struct {
	CandidateID string                `json:"candidate_id"`
	Proposal    *types.SignalProposal `json:"proposal"`
	Applied     *types.Draft          `json:"applied,omitempty"`
}

var proposalCmd = &cobra.Command{
	Use:   "proposal ID",
	Short: "Show or apply the signal proposal for a candidate",
	Long: `Show the AI-suggested edit for a candidate's draft.

With --apply the proposed subject and body replace the current draft and
are saved. When the draft holds edits the backend does not know about,
you are asked first unless --yes is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if err := loadQueue(cmd); err != nil {
			return err
		}
		if err := session.Select(id); err != nil {
			return err
		}
		session.WaitProposal()

		p := session.Proposal()
		if p == nil {
			if jsonOutput {
				return printJSON(cmd, proposalOutput{CandidateID: id})
			}
			if !quietFlag {
				fmt.Println(display.Dim.Render("No signal proposal for " + id + "."))
			}
			return nil
		}

		out := proposalOutput{CandidateID: id, Proposal: p}
		if !proposalApply {
			if jsonOutput {
				return printJSON(cmd, out)
			}
			printProposal(cmd.OutOrStdout(), p)
			return nil
		}

		confirm := func(current, proposed types.Draft) bool {
			if proposalYes {
				return true
			}
			return promptYesNo(cmd.InOrStdin(), cmd.ErrOrStderr(),
				fmt.Sprintf("Replace your unsaved edit (%q) with the proposal?", display.Truncate(current.Subject, 40)))
		}
		d, err := session.ApplyProposal(confirm)
		if errors.Is(err, briefing.ErrApplyDeclined) {
			if !quietFlag {
				fmt.Println(display.Dim.Render("Left the draft unchanged."))
			}
			return nil
		}
		if err != nil {
			return err
		}
		if err := session.SaveDraft(cmd.Context(), id, d.Subject, d.Body); err != nil {
			return fmt.Errorf("save draft: %w", err)
		}

		out.Applied = d
		if jsonOutput {
			return printJSON(cmd, out)
		}
		if !quietFlag {
			display.SuccessMsg("Applied %s proposal to %s", p.Intent, id)
		}
		fmt.Print(display.DraftBlock(d, 0))
		return nil
	},
}

// promptYesNo asks question on w and reads a y/n answer from r. Anything but
// an explicit yes declines.
func promptYesNo(r io.Reader, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s [y/N] ", question)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func init() {
	proposalCmd.Flags().BoolVar(&proposalApply, "apply", false, "Apply the proposal to the draft and save it")
	proposalCmd.Flags().BoolVarP(&proposalYes, "yes", "y", false, "Do not ask before overwriting unsaved edits")
	rootCmd.AddCommand(proposalCmd)
}
