package briefing

import (
	"context"
	"fmt"

	"github.com/daviddao/scout/internal/backend"
	"github.com/daviddao/scout/internal/types"
	"go.uber.org/zap"
)

// Proposal returns the signal proposal for the selected candidate, or nil.
func (s *Session) Proposal() *types.SignalProposal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proposal
}

// RefreshProposal refetches the proposal for the current selection.
func (s *Session) RefreshProposal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == "" {
		return
	}
	s.startProposalLocked(s.selected)
}

// startProposalLocked runs the proposal fetch as a background task keyed by
// candidate. The previous task is canceled first and a canceled task's
// result is dropped. Failures only clear the proposal.
func (s *Session) startProposalLocked(id string) {
	if s.proposalCancel != nil {
		s.proposalCancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.proposalSeq++
	seq := s.proposalSeq
	s.proposalCancel = cancel
	s.proposal = nil

	s.proposalTasks.Add(1)
	go func() {
		defer s.proposalTasks.Done()
		defer cancel()

		p, err := s.backend.Proposal(ctx, id)

		s.mu.Lock()
		defer s.mu.Unlock()
		if ctx.Err() != nil || seq != s.proposalSeq || s.selected != id {
			return
		}
		s.proposalCancel = nil
		switch {
		case backend.IsNotFound(err):
			s.log.Debug("no signal proposal", zap.String("id", id))
			return
		case err != nil:
			s.log.Debug("proposal fetch failed", zap.String("id", id), zap.Error(err))
			return
		}
		s.proposal = p
	}()
}

// ConfirmFunc is asked before a proposal overwrites unsaved edits.
type ConfirmFunc func(current, proposed types.Draft) bool

// ApplyProposal overwrites the selected candidate's cached subject and body
// with the proposal's values. When the cached draft holds edits that differ
// from the queue snapshot, confirm decides whether to proceed; a nil confirm
// declines. The cache is written only; saving is a separate action.
func (s *Session) ApplyProposal(confirm ConfirmFunc) (*types.Draft, error) {
	s.mu.Lock()
	p := s.proposal
	id := s.selected
	var snapshot *types.Draft
	if c, ok := s.lookupLocked(id); ok {
		snapshot = c.Draft
	}
	s.mu.Unlock()

	if id == "" {
		return nil, ErrNoSelection
	}
	if p == nil || p.ProposedMutations == nil ||
		(p.ProposedMutations.Subject == nil && p.ProposedMutations.Body == nil) {
		return nil, ErrNoProposal
	}

	current, ok := s.drafts.Get(id, snapshot)
	if !ok {
		current = &types.Draft{}
	}
	next := current.Clone()
	if m := p.ProposedMutations.Subject; m != nil {
		next.Subject = *m
	}
	if m := p.ProposedMutations.Body; m != nil {
		next.Body = *m
	}

	if s.drafts.Dirty(id, snapshot) {
		if confirm == nil || !confirm(*current, *next) {
			return nil, ErrApplyDeclined
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected != id || s.proposal != p {
		return nil, fmt.Errorf("%w: selection changed", ErrNoProposal)
	}
	s.drafts.Put(id, next)
	return next.Clone(), nil
}
