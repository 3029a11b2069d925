package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/daviddao/scout/internal/types"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
}

func newStatusError(method, path string, code int, body []byte) *StatusError {
	e := &StatusError{Method: method, Path: path, Code: code}
	var msg struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &msg) == nil {
		e.Message = msg.Error
		if e.Message == "" {
			e.Message = msg.Message
		}
	}
	return e
}

// DecodeError reports a response that could not be turned into a typed value.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == 404
}

// fieldErrors collects validation problems for one record.
type fieldErrors []string

func (f *fieldErrors) add(format string, args ...any) {
	*f = append(*f, fmt.Sprintf(format, args...))
}

func (f fieldErrors) err(what string) error {
	if len(f) == 0 {
		return nil
	}
	return &DecodeError{What: what, Err: errors.New(strings.Join(f, "; "))}
}

// --- Wire shapes ---

type wireReason struct {
	Reason string `json:"reason,omitempty"`
}

type wireDraftUpdate struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type wireFeedback struct {
	CurrentDraft types.Draft `json:"current_draft"`
	Comments     string      `json:"comments"`
}

type wireStatusResponse struct {
	Status string `json:"status"`
}

type wireDraft struct {
	Subject   *string `json:"subject"`
	Body      *string `json:"body"`
	AssetHTML string  `json:"asset_html"`
}

func (w *wireDraft) validate(what string) (*types.Draft, error) {
	var errs fieldErrors
	if w.Subject == nil {
		errs.add("subject missing")
	}
	if w.Body == nil {
		errs.add("body missing")
	}
	if err := errs.err(what + " draft"); err != nil {
		return nil, err
	}
	return &types.Draft{Subject: *w.Subject, Body: *w.Body, AssetHTML: w.AssetHTML}, nil
}

type wireCandidate struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Email       string     `json:"email"`
	LinkedInURL string     `json:"linkedin_url"`
	Phone       string     `json:"phone"`
	Confidence  *float64   `json:"confidence"`
	Status      string     `json:"status"`
	Draft       *wireDraft `json:"draft"`
}

func decodeCandidate(raw json.RawMessage) (*types.Candidate, error) {
	var w wireCandidate
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &DecodeError{What: "candidate", Err: err}
	}

	var errs fieldErrors
	if w.ID == "" {
		errs.add("id missing")
	}
	status := types.Status(w.Status)
	if status == "" {
		status = types.StatusPendingReview
	} else if !status.IsValid() {
		errs.add("unknown status %q", w.Status)
	}
	confidence := 0.0
	if w.Confidence != nil {
		confidence = *w.Confidence
		if confidence < 0 || confidence > 1 {
			errs.add("confidence %v out of range", confidence)
		}
	}

	var draft *types.Draft
	if w.Draft != nil {
		d, err := w.Draft.validate("candidate")
		if err != nil {
			errs.add("draft: %v", errors.Unwrap(err))
		}
		draft = d
	}
	if err := errs.err("candidate " + w.ID); err != nil {
		return nil, err
	}

	return &types.Candidate{
		ID:          w.ID,
		Name:        w.Name,
		Title:       w.Title,
		Company:     w.Company,
		Email:       w.Email,
		LinkedInURL: w.LinkedInURL,
		Phone:       w.Phone,
		Confidence:  confidence,
		Status:      status,
		Draft:       draft,
	}, nil
}

type wireDossier struct {
	CandidateID       string             `json:"candidate_id"`
	CompanySummary    string             `json:"company_summary"`
	CommercialContext string             `json:"commercial_context"`
	Signals           []types.Signal     `json:"signals"`
	Provenance        []types.Provenance `json:"provenance"`
}

func (w *wireDossier) validate(id string) (*types.Dossier, error) {
	var errs fieldErrors
	if w.CandidateID != "" && w.CandidateID != id {
		errs.add("candidate_id %q does not match %q", w.CandidateID, id)
	}
	for i, s := range w.Signals {
		if s.Kind == "" {
			errs.add("signals[%d].kind missing", i)
		}
	}
	if err := errs.err("dossier"); err != nil {
		return nil, err
	}
	return &types.Dossier{
		CandidateID:       id,
		CompanySummary:    w.CompanySummary,
		CommercialContext: w.CommercialContext,
		Signals:           w.Signals,
		Provenance:        w.Provenance,
	}, nil
}

type wireProposal struct {
	ID                string                   `json:"id"`
	CandidateID       string                   `json:"candidate_id"`
	Intent            string                   `json:"intent"`
	Reasoning         string                   `json:"reasoning"`
	Confidence        *float64                 `json:"confidence"`
	ProposedMutations *types.ProposedMutations `json:"proposed_mutations"`
}

func (w *wireProposal) validate(candidateID string) (*types.SignalProposal, error) {
	var errs fieldErrors
	if w.ID == "" {
		errs.add("id missing")
	}
	if w.Intent == "" {
		errs.add("intent missing")
	}
	if w.CandidateID != "" && w.CandidateID != candidateID {
		errs.add("candidate_id %q does not match %q", w.CandidateID, candidateID)
	}
	confidence := 0.0
	if w.Confidence != nil {
		confidence = *w.Confidence
		if confidence < 0 || confidence > 1 {
			errs.add("confidence %v out of range", confidence)
		}
	}
	if err := errs.err("signal proposal"); err != nil {
		return nil, err
	}
	return &types.SignalProposal{
		ID:                w.ID,
		CandidateID:       candidateID,
		Intent:            w.Intent,
		Reasoning:         w.Reasoning,
		Confidence:        confidence,
		ProposedMutations: w.ProposedMutations,
	}, nil
}

type wireOutreach struct {
	OutlookConnected *bool  `json:"outlook_connected"`
	Status           string `json:"status"`
	WarningDue       bool   `json:"warning_due"`
}

func (w *wireOutreach) validate() (*types.OutreachStatus, error) {
	var errs fieldErrors
	if w.OutlookConnected == nil {
		errs.add("outlook_connected missing")
	}
	status := w.Status
	switch status {
	case "":
		status = types.OutreachActive
	case types.OutreachActive, types.OutreachPaused:
	default:
		errs.add("unknown status %q", w.Status)
	}
	if err := errs.err("outreach status"); err != nil {
		return nil, err
	}
	return &types.OutreachStatus{
		OutlookConnected: *w.OutlookConnected,
		Status:           status,
		WarningDue:       w.WarningDue,
	}, nil
}
