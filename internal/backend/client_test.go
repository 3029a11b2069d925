package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/daviddao/scout/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadScheme(t *testing.T) {
	_, err := New(Options{BaseURL: "ftp://example.com"})
	require.Error(t, err)
}

func TestQueue_DecodesAndSkipsInvalidRows(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/briefing/queue", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		io.WriteString(w, `[
			{"id":"a","name":"Ada","company":"Acme","confidence":0.8,"status":"pending_review",
			 "draft":{"subject":"X","body":"Y","asset_html":"<b>hi</b>"}},
			{"id":"b","name":"Bob","status":"sent"},
			{"name":"no id"},
			{"id":"c","status":"archived"},
			{"id":"d","confidence":7},
			{"id":"e","draft":{"subject":"only subject"}},
			{"id":"f"}
		]`)
	}))

	got, err := c.Queue(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, types.StatusPendingReview, got[0].Status)
	require.NotNil(t, got[0].Draft)
	assert.Equal(t, types.Draft{Subject: "X", Body: "Y", AssetHTML: "<b>hi</b>"}, *got[0].Draft)
	assert.InDelta(t, 0.8, got[0].Confidence, 1e-9)

	assert.Equal(t, types.StatusSent, got[1].Status)
	assert.Nil(t, got[1].Draft)

	assert.Equal(t, "f", got[2].ID)
	assert.Equal(t, types.StatusPendingReview, got[2].Status, "missing status defaults to pending review")
}

func TestQueue_NonArrayIsDecodeError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"targets":[]}`)
	}))

	_, err := c.Queue(context.Background())
	var de *DecodeError
	require.ErrorAs(t, err, &de)
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, `{"error":"upstream down"}`)
	}))

	err := c.Dismiss(context.Background(), "a", "wrong fit")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Equal(t, "upstream down", se.Message)
	assert.Contains(t, err.Error(), "upstream down")
	assert.False(t, IsNotFound(err))
}

func TestMutations_SendExpectedRequests(t *testing.T) {
	type seen struct {
		method, path string
		body         map[string]any
	}
	var (
		mu    sync.Mutex
		calls []seen
	)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := seen{method: r.Method, path: r.URL.Path}
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			assert.NoError(t, json.Unmarshal(data, &s.body))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		}
		mu.Lock()
		calls = append(calls, s)
		mu.Unlock()
		switch r.URL.Path {
		case "/api/targets/a/approve":
			io.WriteString(w, `{"status":"sending"}`)
		case "/api/targets/a/regenerate":
			io.WriteString(w, `{"subject":"new","body":"fresh"}`)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	ctx := context.Background()

	status, err := c.Approve(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, types.StatusSending, status)

	require.NoError(t, c.Dismiss(ctx, "a", "not a fit"))
	require.NoError(t, c.Pause(ctx, "a", "ooo until monday"))
	require.NoError(t, c.SaveDraft(ctx, "a", "S", "B"))

	d, err := c.Regenerate(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "new", d.Subject)

	d, err = c.RegenerateWithFeedback(ctx, "a", types.Draft{Subject: "old", Body: "stale"}, "shorter")
	require.NoError(t, err)
	assert.Equal(t, "fresh", d.Body)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 6)
	assert.Equal(t, http.MethodPost, calls[1].method)
	assert.Equal(t, "not a fit", calls[1].body["reason"])
	assert.Equal(t, "/api/targets/a/pause", calls[2].path)
	assert.Equal(t, http.MethodPut, calls[3].method)
	assert.Equal(t, "S", calls[3].body["subject"])
	assert.Nil(t, calls[4].body)
	assert.Equal(t, "shorter", calls[5].body["comments"])
	current := calls[5].body["current_draft"].(map[string]any)
	assert.Equal(t, "old", current["subject"])
}

func TestApprove_EmptyStatusMeansSent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	}))
	status, err := c.Approve(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, types.StatusSent, status)
}

func TestRegenerate_MissingBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"subject":"only"}`)
	}))
	_, err := c.Regenerate(context.Background(), "a")
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, err.Error(), "body missing")
}

func TestProposal(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/signals/proposal", r.URL.Path)
		assert.Equal(t, "a", r.URL.Query().Get("candidate_id"))
		io.WriteString(w, `{"id":"p1","intent":"reference_funding","reasoning":"Series B","confidence":0.7,
			"proposed_mutations":{"subject":"Congrats on the raise"}}`)
	}))

	p, err := c.Proposal(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "a", p.CandidateID)
	require.NotNil(t, p.ProposedMutations)
	require.NotNil(t, p.ProposedMutations.Subject)
	assert.Equal(t, "Congrats on the raise", *p.ProposedMutations.Subject)
	assert.Nil(t, p.ProposedMutations.Body)
}

func TestProposal_WrongCandidate(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id":"p1","intent":"x","candidate_id":"other"}`)
	}))
	_, err := c.Proposal(context.Background(), "a")
	var de *DecodeError
	require.ErrorAs(t, err, &de)
}

func TestDossier(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"company_summary":"Widgets","signals":[{"kind":"hiring","summary":"3 SDR roles","score":0.6}],
			"provenance":[{"source":"linkedin"}]}`)
	}))

	d, err := c.Dossier(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "a", d.CandidateID)
	require.Len(t, d.Signals, 1)
	assert.Equal(t, "hiring", d.Signals[0].Kind)
}

func TestDossier_Canceled(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := c.Dossier(ctx, "a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestOutreachStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"outlook_connected":true,"status":"paused","warning_due":true}`)
	}))
	s, err := c.OutreachStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, s.OutlookConnected)
	assert.Equal(t, types.OutreachPaused, s.Status)
	assert.True(t, s.WarningDue)
	assert.False(t, s.CanApprove())
}

func TestOutreachStatus_MissingConnected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"active"}`)
	}))
	_, err := c.OutreachStatus(context.Background())
	var de *DecodeError
	require.ErrorAs(t, err, &de)
}

func TestBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c, err := New(Options{
		BaseURL:     srv.URL,
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok-123"}),
		Timeout:     time.Second,
	})
	require.NoError(t, err)

	got, err := c.Queue(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPathEscaping(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/targets/a%2Fb/dismiss", r.URL.RawPath)
		w.WriteHeader(http.StatusNoContent)
	}))
	require.NoError(t, c.Dismiss(context.Background(), "a/b", ""))
}
