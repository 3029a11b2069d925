package briefing

import (
	"context"
	"errors"
	"testing"

	"github.com/daviddao/scout/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_SelectsFirstActionable(t *testing.T) {
	f := &fakeBackend{queue: []types.Candidate{
		{ID: "a", Status: types.StatusSent},
		{ID: "b", Status: types.StatusPendingReview},
	}}
	s := newLoadedSession(t, f, Options{})

	assert.Equal(t, "b", s.Selected())
	assert.Len(t, s.Candidates(), 2)
}

func TestLoad_QueueFailure(t *testing.T) {
	f := &fakeBackend{queueErr: errBoom}
	s := NewSession(f, Options{})
	defer s.Close()

	err := s.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, s.Candidates())
}

func TestLoad_OutreachFailureIsIgnored(t *testing.T) {
	f := &fakeBackend{queue: threeCandidates(), outreachErr: errBoom}
	s := newLoadedSession(t, f, Options{})

	assert.Len(t, s.Candidates(), 3)
	assert.Nil(t, s.OutreachStatus())
}

func TestLoad_ProposalFailureDoesNotAffectQueue(t *testing.T) {
	f := &fakeBackend{
		queue: threeCandidates(),
		proposal: func(ctx context.Context, id string) (*types.SignalProposal, error) {
			return nil, errBoom
		},
	}
	s := newLoadedSession(t, f, Options{})

	assert.Len(t, s.Candidates(), 3)
	assert.Equal(t, "a", s.Selected())
	assert.Nil(t, s.Proposal())
	assert.Empty(t, s.Notices(), "proposal failures are silent")
}

func TestLoad_ReloadKeepsCachedEdits(t *testing.T) {
	f := &fakeBackend{queue: threeCandidates()}
	s := newLoadedSession(t, f, Options{})

	require.NoError(t, s.SaveDraft(context.Background(), "a", "X2", "Y2"))
	require.NoError(t, s.Load(context.Background()))

	d, err := s.Draft("a")
	require.NoError(t, err)
	assert.Equal(t, "X2", d.Subject)
	assert.Equal(t, "Y2", d.Body)
}

func TestLoad_NewCandidatesAreSeeded(t *testing.T) {
	f := &fakeBackend{queue: threeCandidates()[:1]}
	s := newLoadedSession(t, f, Options{})
	assert.Equal(t, 1, s.Drafts().Len())

	f.mu.Lock()
	f.queue = threeCandidates()
	f.mu.Unlock()
	require.NoError(t, s.Load(context.Background()))

	assert.Equal(t, 2, s.Drafts().Len())
	d, err := s.Draft("b")
	require.NoError(t, err)
	assert.Equal(t, "Hi Bob", d.Subject)
}

func TestDraft_Errors(t *testing.T) {
	s := newLoadedSession(t, &fakeBackend{queue: threeCandidates()}, Options{})

	_, err := s.Draft("zzz")
	assert.ErrorIs(t, err, ErrUnknownCandidate)

	_, err = s.Draft("c")
	assert.ErrorIs(t, err, ErrNoDraft)
}

func TestSelection_ReselectShowsCachedDraft(t *testing.T) {
	s := newLoadedSession(t, &fakeBackend{queue: threeCandidates()}, Options{})
	ctx := context.Background()

	require.NoError(t, s.SaveDraft(ctx, "a", "X2", "Y"))
	require.NoError(t, s.Select("b"))
	require.NoError(t, s.Select("a"))

	d, err := s.Draft("a")
	require.NoError(t, err)
	assert.Equal(t, "X2", d.Subject)
}

func TestSelection_NextPrevWrap(t *testing.T) {
	s := newLoadedSession(t, &fakeBackend{queue: threeCandidates()}, Options{})

	assert.Equal(t, "b", s.SelectNext())
	assert.Equal(t, "c", s.SelectNext())
	assert.Equal(t, "a", s.SelectNext())
	assert.Equal(t, "c", s.SelectPrev())

	assert.ErrorIs(t, s.Select("nope"), ErrUnknownCandidate)
	assert.Equal(t, "c", s.Selected())
}

func TestCandidates_EditedMarker(t *testing.T) {
	s := newLoadedSession(t, &fakeBackend{queue: threeCandidates()}, Options{})

	e, err := s.Candidate("a")
	require.NoError(t, err)
	assert.False(t, e.Edited)

	require.NoError(t, s.SaveDraft(context.Background(), "a", "X2", "Y"))
	e, err = s.Candidate("a")
	require.NoError(t, err)
	assert.True(t, e.Edited)
}

func TestClear_DropsEverything(t *testing.T) {
	s := newLoadedSession(t, &fakeBackend{queue: threeCandidates()}, Options{})
	require.NoError(t, s.SaveDraft(context.Background(), "a", "X2", "Y"))

	s.Clear()

	assert.Empty(t, s.Candidates())
	assert.Equal(t, "", s.Selected())
	assert.Equal(t, 0, s.Drafts().Len())
}

func TestDrainNotices(t *testing.T) {
	f := &fakeBackend{
		queue: threeCandidates(),
		dismiss: func(ctx context.Context, id, reason string) error {
			return errBoom
		},
	}
	s := newLoadedSession(t, f, Options{})

	require.Error(t, s.Dismiss(context.Background(), "b", "not a fit"))
	notices := s.DrainNotices()
	require.Len(t, notices, 1)
	assert.Equal(t, "b", notices[0].CandidateID)
	assert.Empty(t, s.Notices())
}

func TestOutreachStatus_Copies(t *testing.T) {
	s := NewSession(&fakeBackend{}, Options{})
	defer s.Close()

	st := &types.OutreachStatus{OutlookConnected: true, Status: types.OutreachActive}
	s.SetOutreachStatus(st)
	st.Status = types.OutreachPaused

	got := s.OutreachStatus()
	require.NotNil(t, got)
	assert.Equal(t, types.OutreachActive, got.Status)

	s.SetOutreachStatus(nil)
	assert.Nil(t, s.OutreachStatus())
}

func TestClose_CancelsBlockedFetches(t *testing.T) {
	f := &fakeBackend{
		queue: threeCandidates(),
		proposal: func(ctx context.Context, id string) (*types.SignalProposal, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
		dossier: func(ctx context.Context, id string) (*types.Dossier, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	s := NewSession(f, Options{})
	s.SetDossierTab(true)
	require.NoError(t, s.Load(context.Background()))
	assert.True(t, s.Dossier().Loading)

	s.Close()
	assert.False(t, errors.Is(s.Dossier().Err, context.Canceled), "canceled results are dropped")
}
