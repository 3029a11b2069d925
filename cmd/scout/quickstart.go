package main

import (
	"fmt"

	"github.com/daviddao/scout/internal/display"
	"github.com/spf13/cobra"
)

var quickstartCmd = &cobra.Command{
	Use:   "quickstart",
	Short: "Quick start guide for scout",
	Long:  "Display a quick start guide showing the morning briefing workflow.",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		b := display.Bold.Render
		a := display.Success.Render
		d := display.Dim.Render

		fmt.Fprintf(w, "\n%s\n\n", b("scout: the morning outreach briefing"))
		fmt.Fprintln(w, "Review AI-drafted outreach, edit it, and decide who gets an email today.")
		fmt.Fprintln(w)

		fmt.Fprintln(w, b("GETTING STARTED"))
		fmt.Fprintf(w, "  %s  Create .scout/ with config.yaml and scout.db\n", a("scout init --backend-url URL"))
		fmt.Fprintf(w, "  %s                        Work through the briefing interactively\n\n", a("scout review"))

		fmt.Fprintln(w, b("READING THE QUEUE"))
		fmt.Fprintf(w, "  %s              Today's candidates\n", a("scout queue"))
		fmt.Fprintf(w, "  %s Only ones still awaiting a decision\n", a("scout queue --actionable"))
		fmt.Fprintf(w, "  %s            Candidate, draft and signal proposal\n", a("scout show ID"))
		fmt.Fprintf(w, "  %s  Include the research dossier\n\n", a("scout show ID --dossier"))

		fmt.Fprintln(w, b("EDITING DRAFTS"))
		fmt.Fprintf(w, "  %s            Open the draft in $EDITOR\n", a("scout edit ID"))
		fmt.Fprintf(w, "  %s\n", a(`scout edit ID --subject "Quick question" --body-file -`))
		fmt.Fprintf(w, "  %s      Ask for a fresh draft\n", a("scout regenerate ID"))
		fmt.Fprintf(w, "  %s\n", a(`scout regenerate ID -f "shorter, mention the launch"`))
		fmt.Fprintf(w, "  %s  Apply the signal proposal\n\n", a("scout proposal ID --apply"))

		fmt.Fprintln(w, b("DECIDING"))
		fmt.Fprintf(w, "  %s     Send the draft\n", a("scout approve ID"))
		fmt.Fprintf(w, "  %s  Not a fit\n", a(`scout dismiss ID -r "wrong team"`))
		fmt.Fprintf(w, "  %s  Hold for later\n", a(`scout pause ID -r "after Q3"`))
		fmt.Fprintf(w, "  %s\n\n", d("  Approvals are refused while outreach is paused or Outlook is disconnected"))

		fmt.Fprintln(w, b("OUTREACH AND HISTORY"))
		fmt.Fprintf(w, "  %s          Outreach status\n", a("scout outreach"))
		fmt.Fprintf(w, "  %s  Follow it as it changes\n", a("scout outreach --watch"))
		fmt.Fprintf(w, "  %s      Approval rate and daily approvals\n", a("scout stats"))
		fmt.Fprintf(w, "  %s  Failed actions this session and before\n\n", a("scout activity --failed"))

		fmt.Fprintln(w, b("GMAIL"))
		fmt.Fprintf(w, "  %s\n", a("scout gmail draft ID --credentials credentials.json"))
		fmt.Fprintf(w, "  %s\n\n", d("  Copy a candidate's draft into your Gmail drafts"))

		fmt.Fprintln(w, b("JSON OUTPUT"))
		fmt.Fprintf(w, "  Read commands support %s for machine-readable output:\n", a("--json"))
		fmt.Fprintf(w, "  %s\n", a("scout queue --json"))
		fmt.Fprintf(w, "  %s\n\n", a("scout show ID --json"))

		fmt.Fprintf(w, "%s Run %s for the command list inside a review.\n\n",
			display.Success.Render("Ready!"), a("help"))
	},
}

func init() {
	rootCmd.AddCommand(quickstartCmd)
}
