package briefing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/daviddao/scout/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_UpdatesUntilCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var updates []*types.OutreachStatus
	fetches := 0
	p := &Poller{
		Interval: time.Millisecond,
		Fetch: func(ctx context.Context) (*types.OutreachStatus, error) {
			mu.Lock()
			defer mu.Unlock()
			fetches++
			if fetches == 2 {
				return nil, errBoom
			}
			return &types.OutreachStatus{OutlookConnected: true, Status: types.OutreachActive}, nil
		},
		OnUpdate: func(st *types.OutreachStatus) {
			mu.Lock()
			defer mu.Unlock()
			updates = append(updates, st)
		},
	}

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(updates) >= 2
	}, waitFor, tick)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	assert.Less(t, len(updates), fetches, "failed fetches do not produce updates")
}

func TestSession_OutreachPolling(t *testing.T) {
	f := &fakeBackend{outreach: &types.OutreachStatus{OutlookConnected: true, Status: types.OutreachActive}}
	s := NewSession(f, Options{})
	defer s.Close()

	s.StartOutreachPolling(time.Millisecond)
	require.Eventually(t, func() bool { return s.OutreachStatus() != nil }, waitFor, tick)

	f.setOutreach(&types.OutreachStatus{OutlookConnected: true, Status: types.OutreachPaused})
	require.Eventually(t, func() bool {
		st := s.OutreachStatus()
		return st != nil && st.Status == types.OutreachPaused
	}, waitFor, tick)
}
