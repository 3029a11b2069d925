package briefing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/daviddao/scout/internal/types"
	"go.uber.org/zap"
)

// mutation describes one optimistic change. apply, rollback and commit run
// with s.mu held; remote runs without it.
type mutation struct {
	action string
	id     string
	apply  func() (rollback func())
	remote func(ctx context.Context) error
	commit func()
}

// optimistic applies m locally, issues the remote call, and on failure rolls
// the local change back and raises a notice. The remote error is returned so
// callers can react to it.
func (s *Session) optimistic(ctx context.Context, m mutation) error {
	key := m.action + "/" + m.id

	s.mu.Lock()
	if s.inflight[key] {
		s.mu.Unlock()
		return ErrInFlight
	}
	s.inflight[key] = true
	rollback := m.apply()
	s.mu.Unlock()

	err := m.remote(ctx)

	var notice *Notice
	s.mu.Lock()
	delete(s.inflight, key)
	if err != nil {
		if rollback != nil {
			rollback()
		}
		notice = s.noticeLocked(m.action, m.id, err)
	} else if m.commit != nil {
		m.commit()
	}
	s.mu.Unlock()

	s.finish(m.action, m.id, err, err != nil && rollback != nil, notice)
	return err
}

// guarded runs a non-optimistic remote action under the same in-flight guard
// and failure reporting as optimistic.
func (s *Session) guarded(ctx context.Context, action, id string, remote func(ctx context.Context) error) error {
	return s.optimistic(ctx, mutation{
		action: action,
		id:     id,
		apply:  func() func() { return nil },
		remote: remote,
	})
}

// noticeLocked queues a notice for err unless err is a cancellation.
func (s *Session) noticeLocked(action, id string, err error) *Notice {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	n := Notice{
		CandidateID: id,
		Action:      action,
		Message:     fmt.Sprintf("%s failed: %v", strings.ReplaceAll(action, "_", " "), err),
		At:          time.Now(),
	}
	s.notices = append(s.notices, n)
	return &n
}

func (s *Session) finish(action, id string, err error, reverted bool, notice *Notice) {
	if notice != nil && s.onNotice != nil {
		s.onNotice(*notice)
	}
	if err != nil {
		s.log.Warn("action failed", zap.String("action", action), zap.String("id", id), zap.Error(err))
	}
	if s.journal == nil {
		return
	}
	outcome, detail := types.OutcomeOK, ""
	switch {
	case reverted:
		outcome, detail = types.OutcomeReverted, err.Error()
	case err != nil:
		outcome, detail = types.OutcomeFailed, err.Error()
	}
	if jerr := s.journal.RecordActivity(id, action, outcome, detail); jerr != nil {
		s.log.Warn("record activity", zap.String("action", action), zap.Error(jerr))
	}
}

func (s *Session) requireCandidate(id string) (types.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.lookupLocked(id)
	if !ok {
		return types.Candidate{}, fmt.Errorf("%w: %s", ErrUnknownCandidate, id)
	}
	return *c, nil
}

func (s *Session) setStatusLocked(id string, status types.Status) {
	if c, ok := s.lookupLocked(id); ok {
		c.Status = status
	}
}

// advanceLocked moves selection past id if id is the active candidate.
func (s *Session) advanceLocked(id string) {
	if s.selected == id {
		s.selectLocked(s.nextAfterLocked(id))
	}
}

// Approve sends the candidate's draft. The status flips to sending at once
// and settles on the backend's answer; on failure it reverts. A successful
// approve of the active candidate advances the selection.
func (s *Session) Approve(ctx context.Context, id string) error {
	s.mu.Lock()
	c, ok := s.lookupLocked(id)
	switch {
	case !ok:
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownCandidate, id)
	case !s.isActionableLocked(c), !c.Status.CanTransition(types.StatusSending):
		s.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrNotActionable, id, c.Status)
	case s.outreach != nil && !s.outreach.CanApprove():
		s.mu.Unlock()
		return ErrApproveBlocked
	}
	s.mu.Unlock()

	var result types.Status
	return s.optimistic(ctx, mutation{
		action: types.ActionApprove,
		id:     id,
		apply: func() func() {
			c, ok := s.lookupLocked(id)
			if !ok {
				return nil
			}
			prev := c.Status
			c.Status = types.StatusSending
			return func() {
				if c, ok := s.lookupLocked(id); ok && c.Status == types.StatusSending {
					c.Status = prev
				}
			}
		},
		remote: func(ctx context.Context) error {
			st, err := s.backend.Approve(ctx, id)
			result = st
			return err
		},
		commit: func() {
			if !types.StatusSending.CanTransition(result) {
				s.log.Warn("unexpected status after approve", zap.String("id", id), zap.String("status", string(result)))
			}
			s.setStatusLocked(id, result)
			s.advanceLocked(id)
		},
	})
}

// Dismiss hides the candidate from the actionable queue and tells the
// backend. A successful dismiss of the active candidate advances selection.
func (s *Session) Dismiss(ctx context.Context, id, reason string) error {
	if _, err := s.requireCandidate(id); err != nil {
		return err
	}
	return s.optimistic(ctx, mutation{
		action: types.ActionDismiss,
		id:     id,
		apply: func() func() {
			was := s.dismissed[id]
			s.dismissed[id] = true
			return func() {
				if !was {
					delete(s.dismissed, id)
				}
			}
		},
		remote: func(ctx context.Context) error {
			return s.backend.Dismiss(ctx, id, reason)
		},
		commit: func() {
			s.advanceLocked(id)
		},
	})
}

// UndoDismiss clears the local dismissed marker. No backend call is made.
func (s *Session) UndoDismiss(id string) error {
	if _, err := s.requireCandidate(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dismissed, id)
	return nil
}

// Pause marks the candidate paused with a reason and tells the backend.
func (s *Session) Pause(ctx context.Context, id, reason string) error {
	if _, err := s.requireCandidate(id); err != nil {
		return err
	}
	return s.optimistic(ctx, mutation{
		action: types.ActionPause,
		id:     id,
		apply: func() func() {
			prev, had := s.paused[id]
			s.paused[id] = reason
			return func() {
				if had {
					s.paused[id] = prev
				} else {
					delete(s.paused, id)
				}
			}
		},
		remote: func(ctx context.Context) error {
			return s.backend.Pause(ctx, id, reason)
		},
	})
}

// Unpause clears the local paused marker. No backend call is made.
func (s *Session) Unpause(id string) error {
	if _, err := s.requireCandidate(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.paused, id)
	return nil
}

// SaveDraft writes the edit into the cache immediately and persists it. If
// the backend rejects it the cache goes back to exactly what it held before,
// and the error is returned so an editor can stay open.
func (s *Session) SaveDraft(ctx context.Context, id, subject, body string) error {
	if _, err := s.requireCandidate(id); err != nil {
		return err
	}
	return s.optimistic(ctx, mutation{
		action: types.ActionSaveDraft,
		id:     id,
		apply: func() func() {
			prev, had := s.drafts.Peek(id)
			written := &types.Draft{Subject: subject, Body: body}
			if had {
				written.AssetHTML = prev.AssetHTML
			} else if c, ok := s.lookupLocked(id); ok && c.Draft != nil {
				written.AssetHTML = c.Draft.AssetHTML
			}
			s.drafts.Put(id, written)
			return func() {
				s.drafts.restore(id, written, prev, had)
			}
		},
		remote: func(ctx context.Context) error {
			return s.backend.SaveDraft(ctx, id, subject, body)
		},
	})
}

// Regenerate replaces the cached draft with a fresh one from the backend.
// On failure the cache is left untouched.
func (s *Session) Regenerate(ctx context.Context, id string) (*types.Draft, error) {
	if _, err := s.requireCandidate(id); err != nil {
		return nil, err
	}
	var draft *types.Draft
	err := s.guarded(ctx, types.ActionRegenerate, id, func(ctx context.Context) error {
		d, err := s.backend.Regenerate(ctx, id)
		if err != nil {
			return err
		}
		s.drafts.Put(id, d)
		draft = d
		return nil
	})
	return draft, err
}

// RegenerateWithFeedback asks for a new draft guided by comments on the
// current one and stores it in the cache.
func (s *Session) RegenerateWithFeedback(ctx context.Context, id, comments string) (*types.Draft, error) {
	if strings.TrimSpace(comments) == "" {
		return nil, errors.New("feedback comments are required")
	}
	current, err := s.Draft(id)
	if errors.Is(err, ErrNoDraft) {
		current = &types.Draft{}
	} else if err != nil {
		return nil, err
	}
	var draft *types.Draft
	err = s.guarded(ctx, types.ActionRegenerate, id, func(ctx context.Context) error {
		d, err := s.backend.RegenerateWithFeedback(ctx, id, *current, comments)
		if err != nil {
			return err
		}
		s.drafts.Put(id, d)
		draft = d
		return nil
	})
	return draft, err
}
