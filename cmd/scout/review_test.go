package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/daviddao/scout/internal/briefing"
	"github.com/daviddao/scout/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	mu      sync.Mutex
	saved   map[string]types.Draft
	failing map[string]bool
	calls   []string
}

func newStubBackend() *stubBackend {
	return &stubBackend{saved: map[string]types.Draft{}, failing: map[string]bool{}}
}

func (b *stubBackend) note(call string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
	action, _, _ := strings.Cut(call, " ")
	if b.failing[action] {
		return errors.New("backend unavailable")
	}
	return nil
}

func (b *stubBackend) Queue(ctx context.Context) ([]types.Candidate, error) {
	return []types.Candidate{
		{ID: "a", Name: "Ada", Status: types.StatusPendingReview, Draft: &types.Draft{Subject: "X", Body: "Y"}},
		{ID: "b", Name: "Bob", Status: types.StatusPendingReview, Draft: &types.Draft{Subject: "Hi", Body: "..."}},
	}, nil
}

func (b *stubBackend) Approve(ctx context.Context, id string) (types.Status, error) {
	return types.StatusSent, b.note("approve " + id)
}

func (b *stubBackend) Dismiss(ctx context.Context, id, reason string) error {
	return b.note("dismiss " + id)
}

func (b *stubBackend) Pause(ctx context.Context, id, reason string) error {
	return b.note("pause " + id)
}

func (b *stubBackend) SaveDraft(ctx context.Context, id, subject, body string) error {
	if err := b.note("save " + id); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saved[id] = types.Draft{Subject: subject, Body: body}
	return nil
}

func (b *stubBackend) Regenerate(ctx context.Context, id string) (*types.Draft, error) {
	return &types.Draft{Subject: "fresh", Body: "new"}, b.note("regenerate " + id)
}

func (b *stubBackend) RegenerateWithFeedback(ctx context.Context, id string, current types.Draft, comments string) (*types.Draft, error) {
	return &types.Draft{Subject: current.Subject, Body: comments}, b.note("feedback " + id)
}

func (b *stubBackend) Dossier(ctx context.Context, id string) (*types.Dossier, error) {
	return &types.Dossier{CandidateID: id, CompanySummary: "Builds engines"}, nil
}

func (b *stubBackend) Proposal(ctx context.Context, id string) (*types.SignalProposal, error) {
	subject := "Saw the launch"
	return &types.SignalProposal{ID: "p", CandidateID: id, Intent: "launch",
		ProposedMutations: &types.ProposedMutations{Subject: &subject}}, nil
}

func (b *stubBackend) OutreachStatus(ctx context.Context) (*types.OutreachStatus, error) {
	return &types.OutreachStatus{OutlookConnected: true, Status: types.OutreachActive}, nil
}

func runScript(t *testing.T, b *stubBackend, script string) (*briefing.Session, string) {
	t.Helper()
	s := briefing.NewSession(b, briefing.Options{})
	t.Cleanup(s.Close)
	require.NoError(t, s.Load(context.Background()))
	s.Wait()

	var out bytes.Buffer
	r := newReviewer(s, strings.NewReader(script), &out)
	require.NoError(t, r.run(context.Background()))
	return s, out.String()
}

func TestReview_EditSaveAndNavigate(t *testing.T) {
	b := newStubBackend()
	s, out := runScript(t, b, strings.Join([]string{
		"subject X2",
		"body",
		"line one",
		"line two",
		".",
		"save",
		"n",
		"p",
		"q",
	}, "\n"))

	assert.Equal(t, types.Draft{Subject: "X2", Body: "line one\nline two"}, b.saved["a"])
	d, err := s.Draft("a")
	require.NoError(t, err)
	assert.Equal(t, "X2", d.Subject)
	assert.Contains(t, out, "saved")
}

func TestReview_FailedSaveKeepsEditAndShowsNotice(t *testing.T) {
	b := newStubBackend()
	b.failing["save"] = true
	s, out := runScript(t, b, "subject X2\nsave\nq\n")

	d, err := s.Draft("a")
	require.NoError(t, err)
	assert.Equal(t, "X", d.Subject, "cache reverts to the previous draft")
	assert.Contains(t, out, "save draft failed")
	assert.Contains(t, out, "1 unsaved edit(s) discarded")
}

func TestReview_PendingEditSurvivesNavigation(t *testing.T) {
	b := newStubBackend()
	s, out := runScript(t, b, "subject X2\nn\ngo b\ngo a\nsave\nq\n")

	assert.Equal(t, "X2", b.saved["a"].Subject)
	assert.Equal(t, "Y", b.saved["a"].Body)
	assert.Contains(t, out, "unsaved edit ('save' or 'discard')")
	assert.NotContains(t, out, "discarded")

	d, err := s.Draft("b")
	require.NoError(t, err)
	assert.Equal(t, "Hi", d.Subject)
}

func TestReview_DismissUndoAndApprove(t *testing.T) {
	b := newStubBackend()
	s, out := runScript(t, b, "d not a fit\nundo\ngo a\na\nq\n")

	e, err := s.Candidate("a")
	require.NoError(t, err)
	assert.False(t, e.Dismissed)
	assert.Equal(t, types.StatusSent, e.Status)
	assert.Contains(t, out, "restored a")
	assert.Contains(t, out, "approved a")
	assert.Equal(t, "b", s.Selected())
}

func TestReview_ApplyProposalThenSave(t *testing.T) {
	b := newStubBackend()
	_, out := runScript(t, b, "proposal\napply\nsave\nq\n")

	assert.Contains(t, out, "Signal proposal")
	assert.Equal(t, "Saw the launch", b.saved["a"].Subject)
	assert.Equal(t, "Y", b.saved["a"].Body)
}

func TestReview_DossierAndUnknownCommand(t *testing.T) {
	b := newStubBackend()
	_, out := runScript(t, b, "dossier\nbogus\nq\n")

	assert.Contains(t, out, "Builds engines")
	assert.Contains(t, out, `unknown command "bogus"`)
}

func TestParseDraftBuffer(t *testing.T) {
	subject, body, err := parseDraftBuffer("Subject: Hello there\n\nFirst line\n\nSecond\n\n")
	require.NoError(t, err)
	assert.Equal(t, "Hello there", subject)
	assert.Equal(t, "First line\n\nSecond", body)

	d := &types.Draft{Subject: "S", Body: "B\nC"}
	subject, body, err = parseDraftBuffer(formatDraftBuffer(d))
	require.NoError(t, err)
	assert.Equal(t, d.Subject, subject)
	assert.Equal(t, d.Body, body)

	_, _, err = parseDraftBuffer("no subject line")
	assert.Error(t, err)
}

func TestEditorCommand(t *testing.T) {
	t.Setenv("VISUAL", "  ")
	t.Setenv("EDITOR", "")
	assert.Equal(t, []string{"vi"}, editorCommand())

	t.Setenv("EDITOR", "code --wait")
	assert.Equal(t, []string{"code", "--wait"}, editorCommand())

	t.Setenv("VISUAL", "nano")
	assert.Equal(t, []string{"nano"}, editorCommand())
}

func TestFilterEntries(t *testing.T) {
	entries := []briefing.Entry{
		{Candidate: types.Candidate{ID: "a", Status: types.StatusPendingReview}},
		{Candidate: types.Candidate{ID: "b", Status: types.StatusSent}},
		{Candidate: types.Candidate{ID: "c", Status: types.StatusPendingReview}, Dismissed: true},
		{Candidate: types.Candidate{ID: "d", Status: types.StatusPendingReview}},
		{Candidate: types.Candidate{ID: "e", Status: types.StatusRejected}},
	}

	ids := func(es []briefing.Entry) []string {
		var out []string
		for _, e := range es {
			out = append(out, e.ID)
		}
		return out
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(filterEntries(entries, false, "", 0)))
	assert.Equal(t, []string{"a", "d"}, ids(filterEntries(entries, true, "", 0)))
	assert.Equal(t, []string{"b"}, ids(filterEntries(entries, false, types.StatusSent, 0)))
	assert.Equal(t, []string{"a"}, ids(filterEntries(entries, true, "", 1)))
}

func TestSinceTime(t *testing.T) {
	got, err := sinceTime("")
	require.NoError(t, err)
	assert.Empty(t, got)

	for _, w := range []string{"7d", "36h", "0d"} {
		_, err := sinceTime(w)
		assert.NoError(t, err, w)
	}
	for _, w := range []string{"7x", "xd", "-1d"} {
		_, err := sinceTime(w)
		assert.Error(t, err, w)
	}
}

func TestPromptYesNo(t *testing.T) {
	var w bytes.Buffer
	assert.True(t, promptYesNo(strings.NewReader("y\n"), &w, "ok?"))
	assert.True(t, promptYesNo(strings.NewReader("YES\n"), &w, "ok?"))
	assert.False(t, promptYesNo(strings.NewReader("\n"), &w, "ok?"))
	assert.False(t, promptYesNo(strings.NewReader(""), &w, "ok?"))
	assert.Contains(t, w.String(), "[y/N]")
}
