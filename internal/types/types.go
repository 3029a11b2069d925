// Package types defines core data structures for scout.
package types

// Draft is the editable outreach email proposed for a candidate.
type Draft struct {
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	AssetHTML string `json:"asset_html,omitempty"`
}

// Equal reports whether two drafts carry the same content.
func (d *Draft) Equal(o *Draft) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.Subject == o.Subject && d.Body == o.Body && d.AssetHTML == o.AssetHTML
}

// Clone returns a copy of the draft, or nil.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

// Candidate is a prospective contact queued for outreach review.
type Candidate struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Title       string  `json:"title,omitempty"`
	Company     string  `json:"company,omitempty"`
	Email       string  `json:"email,omitempty"`
	LinkedInURL string  `json:"linkedin_url,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	Confidence  float64 `json:"confidence"`
	Status      Status  `json:"status"`
	Draft       *Draft  `json:"draft,omitempty"`
}

// Signal is a detected buying signal attached to a dossier.
type Signal struct {
	Kind       string  `json:"kind"`
	Summary    string  `json:"summary"`
	DetectedAt string  `json:"detected_at,omitempty"`
	Score      float64 `json:"score"`
}

// Provenance records where a dossier fact came from.
type Provenance struct {
	Source      string `json:"source"`
	URL         string `json:"url,omitempty"`
	RetrievedAt string `json:"retrieved_at,omitempty"`
}

// Dossier is the extended, on-demand detail for a candidate.
type Dossier struct {
	CandidateID       string       `json:"candidate_id"`
	CompanySummary    string       `json:"company_summary,omitempty"`
	CommercialContext string       `json:"commercial_context,omitempty"`
	Signals           []Signal     `json:"signals,omitempty"`
	Provenance        []Provenance `json:"provenance,omitempty"`
}

// ProposedMutations are the draft fields a signal proposal suggests.
// Nil fields are left as they are when the proposal is applied.
type ProposedMutations struct {
	Subject *string `json:"subject,omitempty"`
	Body    *string `json:"body,omitempty"`
}

// SignalProposal is an AI-suggested edit surfaced for the selected candidate.
type SignalProposal struct {
	ID                string             `json:"id"`
	CandidateID       string             `json:"candidate_id,omitempty"`
	Intent            string             `json:"intent"`
	Reasoning         string             `json:"reasoning,omitempty"`
	Confidence        float64            `json:"confidence"`
	ProposedMutations *ProposedMutations `json:"proposed_mutations,omitempty"`
}

// Outreach status values.
const (
	OutreachActive = "active"
	OutreachPaused = "paused"
)

// OutreachStatus gates whether approvals may be sent.
type OutreachStatus struct {
	OutlookConnected bool   `json:"outlook_connected"`
	Status           string `json:"status"`
	WarningDue       bool   `json:"warning_due"`
}

// CanApprove reports whether outreach is in a state that accepts approvals.
func (o *OutreachStatus) CanApprove() bool {
	return o.OutlookConnected && o.Status != OutreachPaused
}

// Activity is one journaled mutation outcome.
type Activity struct {
	ID          string `json:"id"`
	CandidateID string `json:"candidate_id"`
	Action      string `json:"action"`
	Outcome     string `json:"outcome"`
	Detail      string `json:"detail,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// Action names recorded in the activity journal.
const (
	ActionApprove    = "approve"
	ActionDismiss    = "dismiss"
	ActionPause      = "pause"
	ActionSaveDraft  = "save_draft"
	ActionRegenerate = "regenerate"
)

// Activity outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeReverted = "reverted" // failed after a local change, which was rolled back
)
