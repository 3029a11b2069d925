package main

import (
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
	showDossier bool
	showFull    bool
)

type showOutput struct {
	briefing.Entry
	CurrentDraft *types.Draft          `json:"current_draft,omitempty"`
	Proposal     *types.SignalProposal `json:"proposal,omitempty"`
	Dossier      *types.Dossier        `json:"dossier,omitempty"`
	DossierError string                `json:"dossier_error,omitempty"`
}

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Display a candidate with its draft, signal proposal and dossier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if err := loadQueue(cmd); err != nil {
			return err
		}
		if err := session.Select(id); err != nil {
			return err
		}
		session.SetDossierTab(showDossier)

		entry, err := session.Candidate(id)
		if err != nil {
			return err
		}
		draft, err := session.Draft(id)
		if err != nil && !errors.Is(err, briefing.ErrNoDraft) {
			return err
		}

		if jsonOutput {
			session.Wait()
			panel := session.Dossier()
			res := showOutput{
				Entry:        entry,
				CurrentDraft: draft,
				Proposal:     session.Proposal(),
				Dossier:      panel.Data,
			}
			if panel.Err != nil {
				res.DossierError = panel.Err.Error()
			}
			return printJSON(cmd, res)
		}

		out := cmd.OutOrStdout()
		printCandidate(out, entry)
		fmt.Fprintln(out)
		maxLines := 12
		if showFull {
			maxLines = 0
		}
		fmt.Fprint(out, display.DraftBlock(draft, maxLines))

		if showDossier {
			session.WaitDossier()
			fmt.Fprintln(out)
			printDossier(out, session.Dossier())
		}

		session.WaitProposal()
		if p := session.Proposal(); p != nil {
			fmt.Fprintln(out)
			printProposal(out, p)
		}
		return nil
	},
}

func printCandidate(w io.Writer, e briefing.Entry) {
	name := e.Name
	if name == "" {
		name = e.ID
	}
	fmt.Fprintf(w, "%s %s  %s\n", display.StatusDot(e.Status), display.Bold.Render(name), display.Muted.Render(e.ID))
	var role []string
	for _, part := range []string{e.Title, e.Company} {
		if part != "" {
			role = append(role, part)
		}
	}
	if len(role) > 0 {
		fmt.Fprintf(w, "  %s\n", strings.Join(role, " · "))
	}
	if e.Email != "" {
		fmt.Fprintf(w, "  %s\n", e.Email)
	}
	if e.LinkedInURL != "" {
		fmt.Fprintf(w, "  %s\n", display.Dim.Render(e.LinkedInURL))
	}
	fmt.Fprintf(w, "  Status: %s  Confidence: %s\n", display.StatusLabel(e.Status), display.ConfidenceBar(e.Confidence))
	if marks := entryMarks(e); len(marks) > 0 {
		fmt.Fprintf(w, "  %s\n", display.Accent.Render(strings.Join(marks, " ")))
	}
	if e.Paused && e.PausedReason != "" {
		fmt.Fprintf(w, "  Paused: %s\n", e.PausedReason)
	}
}

func printProposal(w io.Writer, p *types.SignalProposal) {
	fmt.Fprintln(w, display.Muted.Render(fmt.Sprintf("Signal proposal · %s", p.Intent)))
	fmt.Fprintf(w, "  Confidence: %s\n", display.ConfidenceBar(p.Confidence))
	if p.Reasoning != "" {
		fmt.Fprintf(w, "  %s\n", p.Reasoning)
	}
	if m := p.ProposedMutations; m != nil {
		if m.Subject != nil {
			fmt.Fprintf(w, "  Subject → %s\n", display.Bold.Render(*m.Subject))
		}
		if m.Body != nil {
			fmt.Fprintf(w, "  Body → %s\n", display.Dim.Render(display.Truncate(strings.ReplaceAll(*m.Body, "\n", " "), 100)))
		}
	}
}

func printDossier(w io.Writer, panel briefing.DossierPanel) {
	fmt.Fprintln(w, display.Muted.Render("Dossier"))
	switch {
	case panel.Err != nil:
		fmt.Fprintf(w, "  %s\n", display.ErrStyle.Render("could not load dossier: "+panel.Err.Error()))
		return
	case panel.Loading:
		fmt.Fprintf(w, "  %s\n", display.Dim.Render("loading..."))
		return
	case panel.Data == nil:
		fmt.Fprintf(w, "  %s\n", display.Dim.Render("(none)"))
		return
	}
	d := panel.Data
	if d.CompanySummary != "" {
		fmt.Fprintf(w, "  %s\n", d.CompanySummary)
	}
	if d.CommercialContext != "" {
		fmt.Fprintf(w, "  %s\n", display.Dim.Render(d.CommercialContext))
	}
	for _, s := range d.Signals {
		line := fmt.Sprintf("  • %s", s.Kind)
		if s.Summary != "" {
			line += ": " + s.Summary
		}
		fmt.Fprintln(w, line)
	}
	for _, p := range d.Provenance {
		fmt.Fprintf(w, "  %s\n", display.Muted.Render(p.Source+" "+p.URL))
	}
}

func init() {
	showCmd.Flags().BoolVar(&showDossier, "dossier", false, "Fetch and show the full dossier")
	showCmd.Flags().BoolVar(&showFull, "full", false, "Show the whole draft body")
	rootCmd.AddCommand(showCmd)
}
