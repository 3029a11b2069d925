package briefing

import (
	"context"
	"errors"
	"fmt"

	"github.com/daviddao/scout/internal/types"
	"go.uber.org/zap"
)

var errDossierClosed = errors.New("dossier tab is not open")

// DossierPanel is the state of the extended-detail panel for the selected
// candidate.
type DossierPanel struct {
	CandidateID string         `json:"candidate_id,omitempty"`
	Loading     bool           `json:"loading"`
	Data        *types.Dossier `json:"data,omitempty"`
	Err         error          `json:"-"`
}

// Selected returns the active candidate ID, or "".
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Select makes id the active candidate. Selecting never touches the draft
// cache; it cancels the previous candidate's dossier and proposal fetches and
// starts new ones for id.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCandidate, id)
	}
	s.selectLocked(id)
	return nil
}

// SelectNext moves to the following candidate in queue order, wrapping.
func (s *Session) SelectNext() string {
	return s.step(1)
}

// SelectPrev moves to the preceding candidate in queue order, wrapping.
func (s *Session) SelectPrev() string {
	return s.step(-1)
}

func (s *Session) step(delta int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.candidates)
	if n == 0 {
		return ""
	}
	i, ok := s.index[s.selected]
	if !ok {
		i = -delta
		if delta < 0 {
			i = 0
		}
	}
	j := ((i+delta)%n + n) % n
	s.selectLocked(s.candidates[j].ID)
	return s.selected
}

func (s *Session) selectLocked(id string) {
	if id == s.selected {
		return
	}
	s.selected = id
	s.cancelTasksLocked()
	s.proposal = nil
	s.dossier = DossierPanel{CandidateID: id}
	if id == "" {
		return
	}
	if s.dossierTab {
		s.startDossierLocked(id)
	}
	s.startProposalLocked(id)
}

// SetDossierTab records whether the full-dossier view is open. Opening it
// fetches the dossier for the current selection; closing it cancels any
// fetch in flight.
func (s *Session) SetDossierTab(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if active == s.dossierTab {
		return
	}
	s.dossierTab = active
	if !active {
		if s.dossierCancel != nil {
			s.dossierCancel()
			s.dossierCancel = nil
		}
		s.dossierSeq++
		s.dossier.Loading = false
		return
	}
	if s.selected != "" && s.dossier.Data == nil {
		s.startDossierLocked(s.selected)
	}
}

// RetryDossier refetches the dossier for the selection after an error.
func (s *Session) RetryDossier() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == "" {
		return ErrNoSelection
	}
	if !s.dossierTab {
		return errDossierClosed
	}
	s.startDossierLocked(s.selected)
	return nil
}

// Dossier returns the dossier panel state.
func (s *Session) Dossier() DossierPanel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dossier
}

func (s *Session) startDossierLocked(id string) {
	if s.dossierCancel != nil {
		s.dossierCancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.dossierSeq++
	seq := s.dossierSeq
	s.dossierCancel = cancel
	s.dossier = DossierPanel{CandidateID: id, Loading: true}

	s.dossierTasks.Add(1)
	go func() {
		defer s.dossierTasks.Done()
		defer cancel()

		d, err := s.backend.Dossier(ctx, id)

		s.mu.Lock()
		defer s.mu.Unlock()
		if ctx.Err() != nil || seq != s.dossierSeq || s.selected != id {
			return
		}
		s.dossierCancel = nil
		if err != nil {
			s.log.Debug("dossier fetch failed", zap.String("id", id), zap.Error(err))
			s.dossier = DossierPanel{CandidateID: id, Err: err}
			return
		}
		s.dossier = DossierPanel{CandidateID: id, Data: d}
	}()
}
