// Package briefing holds the review-session state behind the morning
// briefing: the queue, the per-candidate draft cache, selection, and the
// mutation dispatcher that keeps local state and the backend in step.
package briefing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/daviddao/scout/internal/logging"
	"github.com/daviddao/scout/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Errors returned by Session operations.
var (
	ErrUnknownCandidate = errors.New("unknown candidate")
	ErrNoDraft          = errors.New("no draft")
	ErrInFlight         = errors.New("action already in progress")
	ErrApproveBlocked   = errors.New("outreach is not accepting approvals")
	ErrNotActionable    = errors.New("candidate is not actionable")
	ErrNoProposal       = errors.New("no signal proposal")
	ErrApplyDeclined    = errors.New("proposal not applied")
	ErrNoSelection      = errors.New("no candidate selected")
)

// Backend is the subset of the backend client a session needs.
type Backend interface {
	Queue(ctx context.Context) ([]types.Candidate, error)
	Approve(ctx context.Context, id string) (types.Status, error)
	Dismiss(ctx context.Context, id, reason string) error
	Pause(ctx context.Context, id, reason string) error
	SaveDraft(ctx context.Context, id, subject, body string) error
	Regenerate(ctx context.Context, id string) (*types.Draft, error)
	RegenerateWithFeedback(ctx context.Context, id string, current types.Draft, comments string) (*types.Draft, error)
	Dossier(ctx context.Context, id string) (*types.Dossier, error)
	Proposal(ctx context.Context, candidateID string) (*types.SignalProposal, error)
	OutreachStatus(ctx context.Context) (*types.OutreachStatus, error)
}

// Journal records mutation outcomes.
type Journal interface {
	RecordActivity(candidateID, action, outcome, detail string) error
}

// Notice is a transient, user-visible message about a failed action.
type Notice struct {
	CandidateID string    `json:"candidate_id"`
	Action      string    `json:"action"`
	Message     string    `json:"message"`
	At          time.Time `json:"at"`
}

// Options configures a Session.
type Options struct {
	Journal  Journal
	Logger   *zap.Logger
	OnNotice func(Notice)
}

// Entry is a candidate together with the session-local markers layered over it.
type Entry struct {
	types.Candidate
	Dismissed    bool   `json:"dismissed,omitempty"`
	PausedReason string `json:"paused_reason,omitempty"`
	Paused       bool   `json:"paused,omitempty"`
	Edited       bool   `json:"edited,omitempty"`
}

// Session is one reviewer's view of the briefing queue. It is safe for
// concurrent use; no lock is held across network calls.
type Session struct {
	backend  Backend
	journal  Journal
	log      *zap.Logger
	onNotice func(Notice)
	drafts   *DraftCache

	ctx    context.Context
	cancel context.CancelFunc
	dossierTasks  sync.WaitGroup
	proposalTasks sync.WaitGroup
	wg            sync.WaitGroup // long-running pollers

	mu         sync.Mutex
	candidates []types.Candidate
	index      map[string]int
	dismissed  map[string]bool
	paused     map[string]string
	inflight   map[string]bool
	selected   string
	outreach   *types.OutreachStatus
	notices    []Notice

	dossierTab    bool
	dossier       DossierPanel
	dossierSeq    uint64
	dossierCancel context.CancelFunc

	proposal       *types.SignalProposal
	proposalSeq    uint64
	proposalCancel context.CancelFunc
}

// NewSession returns an empty session backed by b.
func NewSession(b Backend, opts Options) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		backend:  b,
		journal:  opts.Journal,
		log:      logging.OrNop(opts.Logger),
		onNotice: opts.OnNotice,
		drafts:   NewDraftCache(),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.resetLocked()
	return s
}

func (s *Session) resetLocked() {
	s.candidates = nil
	s.index = make(map[string]int)
	s.dismissed = make(map[string]bool)
	s.paused = make(map[string]string)
	s.inflight = make(map[string]bool)
	s.selected = ""
	s.notices = nil
	s.cancelTasksLocked()
	s.dossier = DossierPanel{}
	s.proposal = nil
}

func (s *Session) cancelTasksLocked() {
	if s.dossierCancel != nil {
		s.dossierCancel()
		s.dossierCancel = nil
	}
	if s.proposalCancel != nil {
		s.proposalCancel()
		s.proposalCancel = nil
	}
	s.dossierSeq++
	s.proposalSeq++
}

// Clear drops all session state, including cached drafts, as a page reload
// would.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.drafts.Clear()
}

// Close cancels background work and waits for it to finish.
func (s *Session) Close() {
	s.cancel()
	s.mu.Lock()
	s.cancelTasksLocked()
	s.mu.Unlock()
	s.Wait()
	s.wg.Wait()
}

// Wait blocks until in-flight dossier and proposal fetches have finished.
func (s *Session) Wait() {
	s.dossierTasks.Wait()
	s.proposalTasks.Wait()
}

// WaitDossier blocks until the dossier fetch, if any, has finished. A slow
// proposal fetch does not hold it up.
func (s *Session) WaitDossier() {
	s.dossierTasks.Wait()
}

// WaitProposal blocks until the proposal fetch, if any, has finished.
func (s *Session) WaitProposal() {
	s.proposalTasks.Wait()
}

// Drafts exposes the session's draft cache.
func (s *Session) Drafts() *DraftCache {
	return s.drafts
}

// Load fetches the queue and the outreach status concurrently, replaces the
// candidate list, and seeds the draft cache for candidates it has not seen.
// An outreach status failure never fails the load.
func (s *Session) Load(ctx context.Context) error {
	var queue []types.Candidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := s.backend.Queue(gctx)
		if err != nil {
			return err
		}
		queue = q
		return nil
	})
	g.Go(func() error {
		st, err := s.backend.OutreachStatus(gctx)
		if err != nil {
			s.log.Debug("outreach status unavailable", zap.Error(err))
			return nil
		}
		s.SetOutreachStatus(st)
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load queue: %w", err)
	}

	seeded := s.drafts.Hydrate(queue)
	s.log.Debug("queue loaded", zap.Int("candidates", len(queue)), zap.Int("seeded", seeded))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = queue
	s.index = make(map[string]int, len(queue))
	for i, c := range queue {
		s.index[c.ID] = i
	}
	if _, ok := s.index[s.selected]; !ok || s.selected == "" {
		s.selectLocked(s.firstActionableLocked())
	}
	return nil
}

// Candidates returns the queue with session-local markers applied.
func (s *Session) Candidates() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.candidates))
	for i, c := range s.candidates {
		out[i] = s.entryLocked(c)
	}
	return out
}

// Candidate returns one queue entry.
func (s *Session) Candidate(id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.lookupLocked(id)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownCandidate, id)
	}
	return s.entryLocked(*c), nil
}

func (s *Session) entryLocked(c types.Candidate) Entry {
	reason, paused := s.paused[c.ID]
	return Entry{
		Candidate:    c,
		Dismissed:    s.dismissed[c.ID],
		Paused:       paused,
		PausedReason: reason,
		Edited:       s.drafts.Dirty(c.ID, c.Draft),
	}
}

func (s *Session) lookupLocked(id string) (*types.Candidate, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return &s.candidates[i], true
}

// Draft returns the current draft for id: the cache entry if present, else
// the queue snapshot. ErrNoDraft means neither exists.
func (s *Session) Draft(id string) (*types.Draft, error) {
	s.mu.Lock()
	c, ok := s.lookupLocked(id)
	var snapshot *types.Draft
	if ok {
		snapshot = c.Draft
	}
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCandidate, id)
	}
	d, ok := s.drafts.Get(id, snapshot)
	if !ok {
		return nil, ErrNoDraft
	}
	return d, nil
}

// SetOutreachStatus records the latest outreach status used to gate approvals.
func (s *Session) SetOutreachStatus(st *types.OutreachStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st == nil {
		s.outreach = nil
		return
	}
	cp := *st
	s.outreach = &cp
}

// OutreachStatus returns the last known outreach status, or nil.
func (s *Session) OutreachStatus() *types.OutreachStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outreach == nil {
		return nil
	}
	cp := *s.outreach
	return &cp
}

// Notices returns the failure notices raised so far.
func (s *Session) Notices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notice(nil), s.notices...)
}

// DrainNotices returns and clears the pending notices.
func (s *Session) DrainNotices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notices
	s.notices = nil
	return out
}

func (s *Session) isActionableLocked(c *types.Candidate) bool {
	return !s.dismissed[c.ID] && c.Status.IsActionable()
}

func (s *Session) firstActionableLocked() string {
	for i := range s.candidates {
		if s.isActionableLocked(&s.candidates[i]) {
			return s.candidates[i].ID
		}
	}
	if len(s.candidates) > 0 {
		return s.candidates[0].ID
	}
	return ""
}

// nextAfterLocked picks the candidate to show after id is resolved: the next
// actionable one in queue order (wrapping), else the next one of any kind,
// else none.
func (s *Session) nextAfterLocked(id string) string {
	n := len(s.candidates)
	start, ok := s.index[id]
	if !ok {
		start = -1
	}
	order := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		j := ((start+i)%n + n) % n
		if s.candidates[j].ID == id {
			continue
		}
		order = append(order, j)
	}
	for _, j := range order {
		if s.isActionableLocked(&s.candidates[j]) {
			return s.candidates[j].ID
		}
	}
	if len(order) > 0 {
		return s.candidates[order[0]].ID
	}
	return ""
}
