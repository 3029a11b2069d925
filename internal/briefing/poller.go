package briefing

import (
	"context"
	"time"

	"github.com/daviddao/scout/internal/logging"
	"github.com/daviddao/scout/internal/types"
	"go.uber.org/zap"
)

// DefaultPollInterval is how often outreach status is refreshed.
const DefaultPollInterval = 60 * time.Second

// StatusFetcher returns the current outreach status.
type StatusFetcher func(ctx context.Context) (*types.OutreachStatus, error)

// Poller refreshes outreach status on a fixed interval.
type Poller struct {
	Fetch    StatusFetcher
	Interval time.Duration
	OnUpdate func(*types.OutreachStatus)
	Logger   *zap.Logger
}

// Run polls immediately and then every Interval until ctx is done. Fetch
// errors are logged and the previous status is kept.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	log := logging.OrNop(p.Logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		st, err := p.Fetch(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			log.Warn("poll outreach status", zap.Error(err))
		case p.OnUpdate != nil:
			p.OnUpdate(st)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// StartOutreachPolling keeps the session's outreach status fresh until the
// session is closed.
func (s *Session) StartOutreachPolling(interval time.Duration) {
	p := &Poller{
		Fetch:    s.backend.OutreachStatus,
		Interval: interval,
		OnUpdate: s.SetOutreachStatus,
		Logger:   s.log,
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		p.Run(s.ctx)
	}()
}
