package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/daviddao/scout/internal/briefing"
	"github.com/daviddao/scout/internal/display"
	"github.com/daviddao/scout/internal/types"
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Work through the briefing interactively",
	Long: `Open the morning briefing as an interactive loop.

Edits are kept for the whole session: move between candidates freely and
your changes stay put. Type 'help' for commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadQueue(cmd); err != nil {
			return err
		}
		session.StartOutreachPolling(cfg.Outreach.PollInterval.Std())
		r := newReviewer(session, cmd.InOrStdin(), cmd.OutOrStdout())
		return r.run(cmd.Context())
	},
}

// reviewer drives a Session from line-oriented input.
type reviewer struct {
	s   *briefing.Session
	in  *bufio.Scanner
	out io.Writer

	// pending holds unsaved edits by candidate. They survive navigation.
	pending       map[string]*types.Draft
	lastDismissed string
	dossierOpen   bool
}

func newReviewer(s *briefing.Session, in io.Reader, out io.Writer) *reviewer {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	return &reviewer{s: s, in: sc, out: out, pending: make(map[string]*types.Draft)}
}

const reviewHelp = `Navigation   n/next  p/prev  go ID  l/list  s/show
Draft        subject TEXT  body (end with a line '.')  save  discard
             r/regen [FEEDBACK]
Actions      a/approve  d/dismiss [REASON]  undo  pause REASON  unpause
Detail       dossier (toggle)  retry  proposal  apply
Other        status  reload  notices  h/help  q/quit`

func (r *reviewer) run(ctx context.Context) error {
	r.printf("%s\n", display.Bold.Render(fmt.Sprintf("Morning briefing · %d candidates", len(r.s.Candidates()))))
	r.printf("  %s\n", display.OutreachLine(r.s.OutreachStatus()))
	r.show()

	for {
		if ctx.Err() != nil {
			return nil
		}
		r.printf("%s ", display.Accent.Render(r.prompt()))
		if !r.in.Scan() {
			r.printf("\n")
			return r.in.Err()
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		quit, err := r.exec(ctx, cmd, arg)
		if err != nil {
			r.printf("%s %v\n", display.ErrStyle.Render("✗"), err)
		}
		r.flushNotices()
		if quit {
			return nil
		}
	}
}

func (r *reviewer) prompt() string {
	id := r.s.Selected()
	if id == "" {
		return "scout>"
	}
	if r.pending[id] != nil {
		return "scout:" + id + "*>"
	}
	return "scout:" + id + ">"
}

func (r *reviewer) exec(ctx context.Context, cmd, arg string) (quit bool, err error) {
	switch cmd {
	case "q", "quit", "exit":
		if n := len(r.pending); n > 0 {
			r.printf("%s\n", display.Warn.Render(fmt.Sprintf("%d unsaved edit(s) discarded", n)))
		}
		return true, nil
	case "h", "help", "?":
		r.printf("%s\n", reviewHelp)
	case "n", "next":
		r.move(r.s.SelectNext)
	case "p", "prev":
		r.move(r.s.SelectPrev)
	case "go":
		if err := r.s.Select(arg); err != nil {
			return false, err
		}
		r.show()
	case "l", "list":
		for _, e := range r.s.Candidates() {
			cursor := "  "
			if e.ID == r.s.Selected() {
				cursor = display.Accent.Render("▸ ")
			}
			r.printf("%s%s\n", cursor, display.CandidateLine(e.Candidate, entryMarks(e)...))
		}
	case "s", "show":
		r.show()
	case "subject":
		d, err := r.editable()
		if err != nil {
			return false, err
		}
		d.Subject = arg
	case "body":
		d, err := r.editable()
		if err != nil {
			return false, err
		}
		d.Body = r.readBlock()
	case "save":
		return false, r.save(ctx)
	case "discard":
		delete(r.pending, r.s.Selected())
		r.printf("%s\n", display.Dim.Render("edit discarded"))
	case "r", "regen", "regenerate":
		return false, r.regenerate(ctx, arg)
	case "a", "approve":
		return false, r.approve(ctx)
	case "d", "dismiss":
		return false, r.dismiss(ctx, arg)
	case "undo":
		if r.lastDismissed == "" {
			return false, errors.New("nothing to undo")
		}
		if err := r.s.UndoDismiss(r.lastDismissed); err != nil {
			return false, err
		}
		r.printf("%s restored %s\n", display.Success.Render("✓"), r.lastDismissed)
		r.lastDismissed = ""
	case "pause":
		return false, r.pause(ctx, arg)
	case "unpause":
		id, err := r.selected()
		if err != nil {
			return false, err
		}
		return false, r.s.Unpause(id)
	case "dossier":
		r.dossierOpen = !r.dossierOpen
		r.s.SetDossierTab(r.dossierOpen)
		if !r.dossierOpen {
			r.printf("%s\n", display.Dim.Render("dossier closed"))
			return false, nil
		}
		r.s.WaitDossier()
		printDossier(r.out, r.s.Dossier())
	case "retry":
		if err := r.s.RetryDossier(); err != nil {
			return false, err
		}
		r.s.WaitDossier()
		printDossier(r.out, r.s.Dossier())
	case "proposal":
		r.s.WaitProposal()
		p := r.s.Proposal()
		if p == nil {
			r.printf("%s\n", display.Dim.Render("no signal proposal"))
			return false, nil
		}
		printProposal(r.out, p)
	case "apply":
		return false, r.apply()
	case "status":
		r.printf("%s\n", display.OutreachLine(r.s.OutreachStatus()))
	case "reload":
		if err := r.s.Load(ctx); err != nil {
			return false, err
		}
		r.printf("%s reloaded %d candidates\n", display.Success.Render("✓"), len(r.s.Candidates()))
	case "notices":
		for _, n := range r.s.Notices() {
			r.printf("  %s %s %s\n", display.Dim.Render(n.At.Format("15:04:05")), n.CandidateID, n.Message)
		}
	default:
		return false, fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
	return false, nil
}

func (r *reviewer) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

func (r *reviewer) selected() (string, error) {
	id := r.s.Selected()
	if id == "" {
		return "", briefing.ErrNoSelection
	}
	return id, nil
}

func (r *reviewer) move(step func() string) {
	step()
	r.show()
}

func (r *reviewer) show() {
	id := r.s.Selected()
	if id == "" {
		r.printf("%s\n", display.Dim.Render("Nothing to review."))
		return
	}
	e, err := r.s.Candidate(id)
	if err != nil {
		return
	}
	r.printf("\n")
	printCandidate(r.out, e)
	d := r.pending[id]
	if d != nil {
		r.printf("  %s\n", display.Warn.Render("unsaved edit ('save' or 'discard')"))
	} else {
		d, _ = r.s.Draft(id)
	}
	fmt.Fprint(r.out, display.DraftBlock(d, 0))
	if p := r.s.Proposal(); p != nil {
		r.printf("  %s\n", display.Accent.Render("signal proposal available ('proposal' to view)"))
	}
}

// editable returns the pending edit for the selection, starting one from the
// current draft if needed.
func (r *reviewer) editable() (*types.Draft, error) {
	id, err := r.selected()
	if err != nil {
		return nil, err
	}
	if d := r.pending[id]; d != nil {
		return d, nil
	}
	d, err := r.s.Draft(id)
	if errors.Is(err, briefing.ErrNoDraft) {
		d = &types.Draft{}
	} else if err != nil {
		return nil, err
	}
	r.pending[id] = d
	return d, nil
}

// readBlock reads lines until one holding only ".".
func (r *reviewer) readBlock() string {
	var lines []string
	for r.in.Scan() {
		line := r.in.Text()
		if line == "." {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (r *reviewer) save(ctx context.Context) error {
	id, err := r.selected()
	if err != nil {
		return err
	}
	d := r.pending[id]
	if d == nil {
		// Nothing typed: persist the cached draft, e.g. an applied proposal.
		if d, err = r.s.Draft(id); err != nil {
			return err
		}
	}
	// A failed save keeps the edit so it can be retried.
	if err := r.s.SaveDraft(ctx, id, d.Subject, d.Body); err != nil {
		return err
	}
	delete(r.pending, id)
	r.printf("%s saved\n", display.Success.Render("✓"))
	return nil
}

func (r *reviewer) regenerate(ctx context.Context, feedback string) error {
	id, err := r.selected()
	if err != nil {
		return err
	}
	var d *types.Draft
	if feedback != "" {
		d, err = r.s.RegenerateWithFeedback(ctx, id, feedback)
	} else {
		d, err = r.s.Regenerate(ctx, id)
	}
	if err != nil {
		return err
	}
	delete(r.pending, id)
	fmt.Fprint(r.out, display.DraftBlock(d, 0))
	return nil
}

func (r *reviewer) approve(ctx context.Context) error {
	id, err := r.selected()
	if err != nil {
		return err
	}
	if r.pending[id] != nil {
		return errors.New("save or discard your edit before approving")
	}
	if err := r.s.Approve(ctx, id); err != nil {
		return err
	}
	r.printf("%s approved %s\n", display.Success.Render("✓"), id)
	r.show()
	return nil
}

func (r *reviewer) dismiss(ctx context.Context, reason string) error {
	id, err := r.selected()
	if err != nil {
		return err
	}
	if err := r.s.Dismiss(ctx, id, reason); err != nil {
		return err
	}
	delete(r.pending, id)
	r.lastDismissed = id
	r.printf("%s dismissed %s ('undo' to restore)\n", display.Dim.Render("✗"), id)
	r.show()
	return nil
}

func (r *reviewer) pause(ctx context.Context, reason string) error {
	id, err := r.selected()
	if err != nil {
		return err
	}
	if reason == "" {
		return errors.New("pause needs a reason")
	}
	if err := r.s.Pause(ctx, id, reason); err != nil {
		return err
	}
	r.printf("%s paused %s\n", display.Success.Render("✓"), id)
	return nil
}

func (r *reviewer) apply() error {
	if r.pending[r.s.Selected()] != nil {
		return errors.New("save or discard your edit before applying a proposal")
	}
	d, err := r.s.ApplyProposal(func(current, proposed types.Draft) bool {
		r.printf("Replace your edited draft (%q) with the proposal? [y/N] ", display.Truncate(current.Subject, 40))
		if !r.in.Scan() {
			return false
		}
		ans := strings.ToLower(strings.TrimSpace(r.in.Text()))
		return ans == "y" || ans == "yes"
	})
	if errors.Is(err, briefing.ErrApplyDeclined) {
		r.printf("%s\n", display.Dim.Render("left the draft unchanged"))
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprint(r.out, display.DraftBlock(d, 0))
	r.printf("%s\n", display.Dim.Render("'save' to keep it"))
	return nil
}

func (r *reviewer) flushNotices() {
	for _, n := range r.s.DrainNotices() {
		r.printf("%s %s\n", display.Warn.Render("!"), n.Message)
	}
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}
